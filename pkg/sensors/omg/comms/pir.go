package comms

import (
	"errors"
	"fmt"
)

// ErrInvalidData is reported for any payload that is not exactly one byte
// holding a recognised state code. Wrong length and unknown value are not
// distinguished.
var ErrInvalidData = errors.New("invalid data")

// PirState is the decoded state of a PIR characteristic.
type PirState uint8

const (
	PirReleased PirState = 0x00 // No motion
	PirPressed  PirState = 0x01 // Motion detected
)

func (s PirState) String() string {
	switch s {
	case PirReleased:
		return "Released"
	case PirPressed:
		return "Pressed"
	default:
		return fmt.Sprintf("Unknown (%d)", uint8(s))
	}
}

// Pressed reports whether s means motion was detected.
func (s PirState) Pressed() bool {
	return s == PirPressed
}

// DataCallback receives payloads that could not be decoded.
type DataCallback interface {
	OnInvalidDataReceived(device string, data []byte)
}

// PirCallback receives decoded PIR state changes.
type PirCallback interface {
	OnPirStateChanged(device string, pressed bool)
}

// PirDataCallback is the full consumer of DecodePir.
type PirDataCallback interface {
	PirCallback
	DataCallback
}

// PirCallbackFuncs adapts a pair of functions to PirDataCallback. A nil
// function is skipped.
type PirCallbackFuncs struct {
	StateChanged func(device string, pressed bool)
	InvalidData  func(device string, data []byte)
}

func (f PirCallbackFuncs) OnPirStateChanged(device string, pressed bool) {
	if f.StateChanged != nil {
		f.StateChanged(device, pressed)
	}
}

func (f PirCallbackFuncs) OnInvalidDataReceived(device string, data []byte) {
	if f.InvalidData != nil {
		f.InvalidData(device, data)
	}
}

// ParsePirState decodes a single PIR notification payload.
func ParsePirState(data []byte) (PirState, error) {
	code, err := decodeFlag(data)
	if err != nil {
		return 0, err
	}
	return PirState(code), nil
}

// DecodePir decodes a PIR notification and invokes exactly one method of cb.
// The payload is neither retained nor modified.
func DecodePir(device string, data []byte, cb PirDataCallback) {
	state, err := ParsePirState(data)
	if err != nil {
		cb.OnInvalidDataReceived(device, data)
		return
	}
	cb.OnPirStateChanged(device, state.Pressed())
}

// decodeFlag accepts exactly one byte that is either 0x00 or 0x01.
func decodeFlag(data []byte) (byte, error) {
	if len(data) != 1 {
		return 0, ErrInvalidData
	}
	switch code := data[0]; code {
	case 0x00, 0x01:
		return code, nil
	default:
		return 0, ErrInvalidData
	}
}
