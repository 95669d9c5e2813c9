// Package dispatch fans sensor updates out to the parts of the program that
// consume them.
package dispatch

import (
	"context"

	"github.com/battery233/gooccupancy"
)

// Handler consumes updates. Handle must not block for long; it runs on the
// dispatch goroutine.
type Handler interface {
	Handle(u gooccupancy.Update)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(u gooccupancy.Update)

func (f HandlerFunc) Handle(u gooccupancy.Update) {
	f(u)
}

// Run delivers every update to each handler in the order given, until updates
// is closed or ctx is done. It returns the number of updates dispatched.
func Run(ctx context.Context, updates <-chan gooccupancy.Update, handlers ...Handler) int {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case u, ok := <-updates:
			if !ok {
				return n
			}
			for _, h := range handlers {
				h.Handle(u)
			}
			n++
		}
	}
}
