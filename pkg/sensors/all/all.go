// Package all is a convenience wrapper that registers all known sensor implementations.
// Importing this package enables the gooccupancy factory to find drivers for any
// supported board.
package all

// Import each implementation package for its side-effects (the init() function).
import (
	_ "github.com/battery233/gooccupancy/pkg/sensors/mock"
	_ "github.com/battery233/gooccupancy/pkg/sensors/omg"
)
