package gooccupancy

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Channel identifies one sensor on an occupancy board.
type Channel uint8

const (
	ChannelPir1 Channel = iota
	ChannelPir2
	ChannelDistance1
	ChannelDistance2
)

// AllChannels lists every channel a board can report.
var AllChannels = []Channel{ChannelPir1, ChannelPir2, ChannelDistance1, ChannelDistance2}

func (c Channel) String() string {
	switch c {
	case ChannelPir1:
		return "pir1"
	case ChannelPir2:
		return "pir2"
	case ChannelDistance1:
		return "distance1"
	case ChannelDistance2:
		return "distance2"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// IsPir reports whether c is a motion channel.
func (c Channel) IsPir() bool {
	return c == ChannelPir1 || c == ChannelPir2
}

// Update represents a single notification from a sensor.
// Active is the decoded state: motion for PIR channels, an object in range for
// distance channels. When the payload could not be decoded Error is set and
// Payload holds a copy of the raw bytes.
type Update struct {
	DeviceID string
	Channel  Channel
	Active   bool
	Payload  []byte
	Time     time.Time
	Error    error
}

// Sensor is the generic interface for a Bluetooth occupancy board.
type Sensor interface {
	// Connect establishes a connection and subscribes to every channel.
	// The returned channel is closed once the sensor is disconnected.
	Connect() (<-chan Update, error)

	// Disconnect terminates the connection. Calling it more than once is safe.
	Disconnect() error

	IsConnected() bool

	// DeviceName is the advertised BLE name.
	DeviceName() string

	// DisplayName is a human readable model name.
	DisplayName() string

	// Channels lists the channels this sensor reports.
	Channels() []Channel
}

// --- Implementation Registry ---

// Factory is a function that creates a new instance of a Sensor.
type Factory func(*FoundDevice) Sensor

var (
	registry = make(map[string]Factory)
	regLock  = sync.RWMutex{}
)

// Register makes a sensor implementation available by its device name prefix.
// This function should be called from the init() function of the implementation's package.
func Register(namePrefix string, factory Factory) {
	regLock.Lock()
	defer regLock.Unlock()

	if _, found := registry[namePrefix]; found {
		fmt.Printf("warning: sensor implementation for prefix '%s' is being overwritten\n", namePrefix)
	}
	registry[namePrefix] = factory
}

// NewSensorForDevice finds a registered factory for the given device name and
// creates a new Sensor instance. It matches based on the prefix, preferring the
// longest one when several match.
// Example: A device named "OMG-2" would match a registered "OMG" prefix.
func NewSensorForDevice(device *FoundDevice) (Sensor, error) {
	regLock.RLock()
	defer regLock.RUnlock()

	var best string
	var factory Factory
	for prefix, f := range registry {
		if strings.HasPrefix(device.Name, prefix) && len(prefix) > len(best) {
			best, factory = prefix, f
		}
	}
	if factory == nil {
		return nil, fmt.Errorf("no implementation found for device '%s'", device.Name)
	}
	return factory(device), nil
}
