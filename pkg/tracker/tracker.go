// Package tracker keeps the latest decoded state of every board seen.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/battery233/gooccupancy"
)

// DeviceState is the most recent state reported by one board.
type DeviceState struct {
	DeviceID     string    `json:"deviceId"`
	Pir1         bool      `json:"pir1"`
	Pir2         bool      `json:"pir2"`
	Distance1    bool      `json:"distance1"`
	Distance2    bool      `json:"distance2"`
	InvalidCount uint64    `json:"invalidCount"`
	LastSeen     time.Time `json:"lastSeen"`
}

// Motion reports whether either PIR sensor currently sees motion.
func (d DeviceState) Motion() bool {
	return d.Pir1 || d.Pir2
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	devices map[string]*DeviceState
}

func New() *Tracker {
	return &Tracker{devices: make(map[string]*DeviceState)}
}

// Handle records u. Invalid updates only bump the invalid counter; the last
// decoded state is kept.
func (t *Tracker) Handle(u gooccupancy.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.devices[u.DeviceID]
	if !ok {
		d = &DeviceState{DeviceID: u.DeviceID}
		t.devices[u.DeviceID] = d
	}
	d.LastSeen = u.Time

	if u.Error != nil {
		d.InvalidCount++
		return
	}

	switch u.Channel {
	case gooccupancy.ChannelPir1:
		d.Pir1 = u.Active
	case gooccupancy.ChannelPir2:
		d.Pir2 = u.Active
	case gooccupancy.ChannelDistance1:
		d.Distance1 = u.Active
	case gooccupancy.ChannelDistance2:
		d.Distance2 = u.Active
	}
}

// Get returns a copy of the state of one device.
func (t *Tracker) Get(deviceID string) (DeviceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	d, ok := t.devices[deviceID]
	if !ok {
		return DeviceState{}, false
	}
	return *d, true
}

// Snapshot returns every device, sorted by ID.
func (t *Tracker) Snapshot() []DeviceState {
	t.mu.RLock()
	out := make([]DeviceState, 0, len(t.devices))
	for _, d := range t.devices {
		out = append(out, *d)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// Occupied reports whether any board currently sees motion.
func (t *Tracker) Occupied() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, d := range t.devices {
		if d.Motion() {
			return true
		}
	}
	return false
}
