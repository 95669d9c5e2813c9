package comms

import "fmt"

// The board reports a distance channel as active when its time-of-flight
// sensor sees an object strictly between these bounds.
const (
	DistanceMinMM = 10
	DistanceMaxMM = 500
)

// InRange applies the board's in-range rule to a distance in millimetres.
func InRange(mm uint32) bool {
	return mm > DistanceMinMM && mm < DistanceMaxMM
}

// DistanceState is the decoded state of a distance characteristic.
type DistanceState uint8

const (
	DistanceClear   DistanceState = 0x00 // Nothing in range
	DistanceInRange DistanceState = 0x01 // Object in range
)

func (s DistanceState) String() string {
	switch s {
	case DistanceClear:
		return "Clear"
	case DistanceInRange:
		return "In range"
	default:
		return fmt.Sprintf("Unknown (%d)", uint8(s))
	}
}

// DistanceCallback receives decoded distance state changes.
type DistanceCallback interface {
	OnDistanceStateChanged(device string, inRange bool)
}

// DistanceDataCallback is the full consumer of DecodeDistance.
type DistanceDataCallback interface {
	DistanceCallback
	DataCallback
}

// DistanceCallbackFuncs adapts a pair of functions to DistanceDataCallback.
type DistanceCallbackFuncs struct {
	StateChanged func(device string, inRange bool)
	InvalidData  func(device string, data []byte)
}

func (f DistanceCallbackFuncs) OnDistanceStateChanged(device string, inRange bool) {
	if f.StateChanged != nil {
		f.StateChanged(device, inRange)
	}
}

func (f DistanceCallbackFuncs) OnInvalidDataReceived(device string, data []byte) {
	if f.InvalidData != nil {
		f.InvalidData(device, data)
	}
}

// ParseDistanceState decodes a single distance notification payload. The wire
// format is the same one-byte flag used by the PIR characteristics.
func ParseDistanceState(data []byte) (DistanceState, error) {
	code, err := decodeFlag(data)
	if err != nil {
		return 0, err
	}
	return DistanceState(code), nil
}

// DecodeDistance decodes a distance notification and invokes exactly one
// method of cb.
func DecodeDistance(device string, data []byte, cb DistanceDataCallback) {
	state, err := ParseDistanceState(data)
	if err != nil {
		cb.OnInvalidDataReceived(device, data)
		return
	}
	cb.OnDistanceStateChanged(device, state == DistanceInRange)
}
