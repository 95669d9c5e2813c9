// Package omg drives the OMG room occupancy board: two PIR motion sensors and
// two time-of-flight distance sensors exposed as one-byte notify characteristics.
package omg

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/battery233/gooccupancy"
	"github.com/battery233/gooccupancy/pkg/sensors/omg/comms"
)

func init() {
	gooccupancy.Register(comms.DeviceName, New)
}

// This line is the compile-time check. It will fail to compile if
// *OmgSensor ever stops satisfying the gooccupancy.Sensor interface.
var _ gooccupancy.Sensor = (*OmgSensor)(nil)

// The board notifies every few milliseconds, so a silent link is a dead link.
const staleAfter = 2 * time.Second

type OmgSensor struct {
	name    string
	id      string
	address bluetooth.Address

	mu             sync.Mutex
	connected      bool
	connecting     bool
	disconnectFunc context.CancelFunc
	lastNotified   time.Time

	btDevice bluetooth.Device
	chars    map[gooccupancy.Channel]bluetooth.DeviceCharacteristic

	updates chan gooccupancy.Update
}

func New(device *gooccupancy.FoundDevice) gooccupancy.Sensor {
	return &OmgSensor{
		name:    device.Name,
		id:      device.ID,
		address: device.Address,
	}
}

func (s *OmgSensor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *OmgSensor) DeviceName() string {
	return s.name
}

func (s *OmgSensor) DisplayName() string {
	return "OMG occupancy board"
}

func (s *OmgSensor) Channels() []gooccupancy.Channel {
	return gooccupancy.AllChannels
}

// Connect connects to the board, subscribes to all four characteristics and
// returns a channel of decoded updates.
func (s *OmgSensor) Connect() (<-chan gooccupancy.Update, error) {
	if err := s.beginConnect(); err != nil {
		return nil, err
	}
	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	err := gooccupancy.TryEnableAdapter()
	if err != nil {
		return nil, err
	}

	dev, err := gooccupancy.BTAdapter.Connect(s.address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.name, err)
	}

	chars, err := setupCharacteristics(dev)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	var ctx context.Context
	s.mu.Lock()
	s.btDevice = dev
	s.chars = chars
	s.updates = make(chan gooccupancy.Update, 64)
	ctx, s.disconnectFunc = context.WithCancel(context.Background())
	s.lastNotified = time.Now()
	s.connected = true
	updates := s.updates
	s.mu.Unlock()

	log.Println("setting up notifications")
	for ch, char := range chars {
		err = char.EnableNotifications(s.handleNotification(ch))
		if err != nil {
			_ = s.Disconnect()
			return nil, fmt.Errorf("failed to enable notifications on %s: %w", ch, err)
		}
	}

	go s.monitor(ctx)

	return updates, nil
}

// beginConnect claims the sensor for a single Connect call.
func (s *OmgSensor) beginConnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("%s is already connected", s.name)
	}
	if s.connecting {
		return fmt.Errorf("%s is already connecting", s.name)
	}
	s.connecting = true
	return nil
}

// Disconnect drops the connection and closes the update channel.
func (s *OmgSensor) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	s.disconnectFunc()
	close(s.updates)
	dev := s.btDevice
	s.mu.Unlock()

	return dev.Disconnect()
}

// monitor disconnects once notifications stop arriving.
func (s *OmgSensor) monitor(ctx context.Context) {
	ticker := time.NewTicker(staleAfter / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			stale := now.Sub(s.lastNotified) > staleAfter
			s.mu.Unlock()
			if stale {
				log.Printf("%s: no notifications for %s, disconnecting", s.name, staleAfter)
				_ = s.Disconnect()
				return
			}
		}
	}
}

func setupCharacteristics(dev bluetooth.Device) (map[gooccupancy.Channel]bluetooth.DeviceCharacteristic, error) {
	log.Println("Discovering services...")
	services, err := dev.DiscoverServices([]bluetooth.UUID{comms.ServiceUUID})
	if err != nil {
		return nil, fmt.Errorf("could not discover services: %w", err)
	}

	if len(services) == 0 {
		return nil, errors.New("could not find the OMG occupancy service")
	}

	found, err := services[0].DiscoverCharacteristics(comms.NotifyCharUUIDs)
	if err != nil {
		return nil, fmt.Errorf("could not discover characteristics: %w", err)
	}
	if len(found) != len(comms.NotifyCharUUIDs) {
		return nil, fmt.Errorf("expected %d characteristics, found %d", len(comms.NotifyCharUUIDs), len(found))
	}

	chars := make(map[gooccupancy.Channel]bluetooth.DeviceCharacteristic, len(found))
	for _, char := range found {
		if ch, ok := comms.ChannelForUUID(char.UUID()); ok {
			chars[ch] = char
		}
	}

	log.Println("Successfully set up characteristics.")
	return chars, nil
}

// handleNotification returns the notification callback for one channel.
func (s *OmgSensor) handleNotification(ch gooccupancy.Channel) func([]byte) {
	cb := channelCallback{sensor: s, channel: ch}
	return func(buf []byte) {
		s.mu.Lock()
		s.lastNotified = time.Now()
		s.mu.Unlock()

		if ch.IsPir() {
			comms.DecodePir(s.id, buf, cb)
		} else {
			comms.DecodeDistance(s.id, buf, cb)
		}
	}
}

func (s *OmgSensor) emit(u gooccupancy.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return
	}
	select {
	case s.updates <- u:
	default:
		log.Printf("[HANDLER] %s: update buffer full, dropping %s update", s.name, u.Channel)
	}
}

// channelCallback receives decoder results for a single characteristic.
type channelCallback struct {
	sensor  *OmgSensor
	channel gooccupancy.Channel
}

func (c channelCallback) OnPirStateChanged(device string, pressed bool) {
	c.sensor.emit(gooccupancy.Update{DeviceID: device, Channel: c.channel, Active: pressed, Time: time.Now()})
}

func (c channelCallback) OnDistanceStateChanged(device string, inRange bool) {
	c.sensor.emit(gooccupancy.Update{DeviceID: device, Channel: c.channel, Active: inRange, Time: time.Now()})
}

func (c channelCallback) OnInvalidDataReceived(device string, data []byte) {
	log.Printf("[HANDLER] %s: invalid %s data: % X", c.sensor.name, c.channel, data)
	// The stack may reuse the buffer once the callback returns.
	payload := make([]byte, len(data))
	copy(payload, data)
	c.sensor.emit(gooccupancy.Update{
		DeviceID: device,
		Channel:  c.channel,
		Payload:  payload,
		Time:     time.Now(),
		Error:    fmt.Errorf("%s: %w", c.channel, comms.ErrInvalidData),
	})
}
