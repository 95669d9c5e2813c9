package gooccupancy

import (
	"sync"

	"tinygo.org/x/bluetooth"
)

// BTAdapter is the adapter used for scanning and connecting.
var BTAdapter = bluetooth.DefaultAdapter

var (
	enableOnce sync.Once
	enableErr  error
)

// TryEnableAdapter enables BTAdapter the first time it is called and returns
// the result of that attempt on every call.
func TryEnableAdapter() error {
	enableOnce.Do(func() {
		enableErr = BTAdapter.Enable()
	})
	return enableErr
}
