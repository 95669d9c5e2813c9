// Package comms holds the wire format of the OMG room occupancy board: its
// GATT layout and the decoders for the one-byte notifications it sends.
package comms

import (
	"tinygo.org/x/bluetooth"

	"github.com/battery233/gooccupancy"
)

// DeviceName is the complete local name the board advertises.
const DeviceName = "OMG"

var (
	ServiceUUID = bluetooth.New16BitUUID(0xAB00)

	Distance1CharUUID = bluetooth.New16BitUUID(0xAB01)
	Distance2CharUUID = bluetooth.New16BitUUID(0xAB02)
	Pir1CharUUID      = bluetooth.New16BitUUID(0xAB03)
	Pir2CharUUID      = bluetooth.New16BitUUID(0xAB04)

	// NotifyCharUUIDs lists every characteristic the board notifies on, in
	// handle order.
	NotifyCharUUIDs = []bluetooth.UUID{
		Distance1CharUUID,
		Distance2CharUUID,
		Pir1CharUUID,
		Pir2CharUUID,
	}
)

// IsPirChar reports whether uuid is one of the PIR characteristics.
func IsPirChar(uuid bluetooth.UUID) bool {
	return uuid == Pir1CharUUID || uuid == Pir2CharUUID
}

var channelsByUUID = map[bluetooth.UUID]gooccupancy.Channel{
	Distance1CharUUID: gooccupancy.ChannelDistance1,
	Distance2CharUUID: gooccupancy.ChannelDistance2,
	Pir1CharUUID:      gooccupancy.ChannelPir1,
	Pir2CharUUID:      gooccupancy.ChannelPir2,
}

// ChannelForUUID maps a notify characteristic to the sensor channel it carries.
func ChannelForUUID(uuid bluetooth.UUID) (gooccupancy.Channel, bool) {
	ch, ok := channelsByUUID[uuid]
	return ch, ok
}
