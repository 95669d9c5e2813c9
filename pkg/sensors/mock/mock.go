// Package mock provides a mock implementation of the gooccupancy.Sensor interface.
// It is intended for development and testing purposes when a physical board is not available.
// The mock produces raw one-byte payloads and runs them through the real OMG
// decoders, so invalid payloads show up exactly as they would from hardware.
package mock

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/battery233/gooccupancy"
	"github.com/battery233/gooccupancy/pkg/sensors/omg/comms"
)

// This init function registers the MockSensor with the central registry.
// To use it, you must explicitly import this package.
func init() {
	// Register with a distinct name, "MOCK", so it can be requested specifically.
	gooccupancy.Register("MOCK", New)
}

// This line is the compile-time check. It will fail to compile if
// *MockSensor ever stops satisfying the gooccupancy.Sensor interface.
var _ gooccupancy.Sensor = (*MockSensor)(nil)

const (
	defaultInterval = 750 * time.Millisecond
	// One payload in invalidEvery is corrupted on purpose.
	invalidEvery = 20
)

// MockSensor is a simulated occupancy board for development.
type MockSensor struct {
	name     string
	id       string
	interval time.Duration

	mu        sync.Mutex
	connected bool
	rng       *rand.Rand
	state     map[gooccupancy.Channel]bool

	disconnect context.CancelFunc
	updates    chan gooccupancy.Update
	done       chan struct{}
}

// New creates a new, uninitialized MockSensor.
// The device ID is the identity reported in updates; the name stands in when
// no ID was given.
func New(device *gooccupancy.FoundDevice) gooccupancy.Sensor {
	id := device.ID
	if id == "" {
		id = device.Name
	}
	return &MockSensor{
		name:     device.Name,
		id:       id,
		interval: defaultInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    make(map[gooccupancy.Channel]bool),
	}
}

func (s *MockSensor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *MockSensor) DeviceName() string {
	return s.name
}

func (s *MockSensor) DisplayName() string {
	return "Mock occupancy board"
}

func (s *MockSensor) Channels() []gooccupancy.Channel {
	return gooccupancy.AllChannels
}

// Connect starts the simulation.
func (s *MockSensor) Connect() (<-chan gooccupancy.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil, fmt.Errorf("mock sensor is already connected")
	}

	log.Println("MOCK: Connecting...")
	var ctx context.Context
	ctx, s.disconnect = context.WithCancel(context.Background())
	s.connected = true
	s.updates = make(chan gooccupancy.Update, 16)
	s.done = make(chan struct{})

	go s.simulate(ctx)

	log.Println("MOCK: Connected successfully.")
	return s.updates, nil
}

// simulate is the core loop that generates fake notifications.
func (s *MockSensor) simulate(ctx context.Context) {
	// The update channel is closed on exit to signal disconnection.
	defer close(s.done)
	defer close(s.updates)
	defer log.Println("MOCK: Simulation stopped.")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, ch := range gooccupancy.AllChannels {
				if !s.notify(ctx, ch, s.nextPayload(ch)) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// nextPayload flips a channel now and then and occasionally corrupts the payload.
func (s *MockSensor) nextPayload(ch gooccupancy.Channel) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Intn(invalidEvery) == 0 {
		if s.rng.Intn(2) == 0 {
			return []byte{byte(2 + s.rng.Intn(254))}
		}
		return []byte{0x01, 0x00}
	}
	if s.rng.Intn(4) == 0 {
		s.state[ch] = !s.state[ch]
	}
	if s.state[ch] {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// notify decodes payload as the board driver would and forwards the result.
// It returns false once ctx is done.
func (s *MockSensor) notify(ctx context.Context, ch gooccupancy.Channel, payload []byte) bool {
	var update gooccupancy.Update
	cb := callback{channel: ch, out: &update}
	if ch.IsPir() {
		comms.DecodePir(s.id, payload, cb)
	} else {
		comms.DecodeDistance(s.id, payload, cb)
	}

	select {
	case s.updates <- update:
		return true
	case <-ctx.Done():
		return false
	}
}

// Disconnect stops the simulation and waits for the update channel to close.
func (s *MockSensor) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil // Nothing to do
	}
	log.Println("MOCK: Disconnecting...")
	s.connected = false
	s.disconnect()
	done := s.done
	s.mu.Unlock()

	<-done
	log.Println("MOCK: Disconnected.")
	return nil
}

// callback turns a decoder result into a single Update.
type callback struct {
	channel gooccupancy.Channel
	out     *gooccupancy.Update
}

func (c callback) OnPirStateChanged(device string, pressed bool) {
	*c.out = gooccupancy.Update{DeviceID: device, Channel: c.channel, Active: pressed, Time: time.Now()}
}

func (c callback) OnDistanceStateChanged(device string, inRange bool) {
	*c.out = gooccupancy.Update{DeviceID: device, Channel: c.channel, Active: inRange, Time: time.Now()}
}

func (c callback) OnInvalidDataReceived(device string, data []byte) {
	log.Printf("MOCK: invalid %s data: % X", c.channel, data)
	*c.out = gooccupancy.Update{
		DeviceID: device,
		Channel:  c.channel,
		Payload:  append([]byte(nil), data...),
		Time:     time.Now(),
		Error:    fmt.Errorf("%s: %w", c.channel, comms.ErrInvalidData),
	}
}
