package gooccupancy

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// FoundDevice is a board seen while scanning.
type FoundDevice struct {
	Name    string
	ID      string
	Address bluetooth.Address
	RSSI    int
}

// ErrNoDevice is returned by ScanForOne when nothing matched before the timeout.
var ErrNoDevice = errors.New("no matching device found")

// ScanStream returns a channel that streams each matching device the first time
// it is seen and stops scanning when the context is canceled.
func ScanStream(ctx context.Context, customPrefixes ...string) (<-chan FoundDevice, error) {
	prefixesToScan := getPrefixes(customPrefixes...)
	if len(prefixesToScan) == 0 {
		return nil, errors.New("no implementations registered and no custom prefixes provided")
	}
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	deviceChan := make(chan FoundDevice)

	go func() {
		defer close(deviceChan)

		mu := sync.Mutex{}
		seen := make(map[string]struct{})

		log.Printf("Starting BLE scan for devices with prefixes: %v...", prefixesToScan)

		handler := func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			dev, ok := matchResult(result, prefixesToScan)
			if !ok {
				return
			}

			mu.Lock()
			_, dup := seen[dev.ID]
			seen[dev.ID] = struct{}{}
			mu.Unlock()
			if dup {
				return
			}

			select {
			case deviceChan <- dev:
			case <-ctx.Done():
			}
		}

		scanDone := make(chan struct{})
		go func() {
			defer close(scanDone)
			if err := BTAdapter.Scan(handler); err != nil {
				log.Printf("Error starting scan: %v", err)
			}
		}()

		select {
		case <-ctx.Done():
		case <-scanDone:
			return
		}

		if err := BTAdapter.StopScan(); err != nil {
			log.Printf("Error stopping scan: %v", err)
		}
		<-scanDone
	}()

	return deviceChan, nil
}

// Scan finds any bluetooth devices with given string prefixes in their name, blocks for duration
func Scan(duration time.Duration, customPrefixes ...string) ([]FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	results := make([]FoundDevice, 0)
	for dev := range stream {
		log.Printf("    --> Found a match! Device: %s (%s)", dev.Name, dev.ID)
		results = append(results, dev)
	}

	log.Printf("Scan processing finished. Found %d unique matching device(s).", len(results))
	return results, nil
}

// ScanForOne blocks until the first matching device is seen or duration elapses.
func ScanForOne(duration time.Duration, customPrefixes ...string) (*FoundDevice, error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stream, err := ScanStream(ctx, customPrefixes...)
	if err != nil {
		return nil, err
	}

	dev, ok := <-stream
	cancel()
	// Drain so the scan goroutine can exit.
	for range stream {
	}
	if !ok {
		return nil, ErrNoDevice
	}
	return &dev, nil
}

func matchResult(result bluetooth.ScanResult, prefixes []string) (FoundDevice, bool) {
	name := result.LocalName()
	if name == "" {
		return FoundDevice{}, false // Ignore packets without a name.
	}
	if !hasAnyPrefix(name, prefixes) {
		return FoundDevice{}, false
	}
	return FoundDevice{
		Name:    name,
		ID:      result.Address.String(),
		Address: result.Address,
		RSSI:    int(result.RSSI),
	}, true
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// getPrefixes helper function, provide prefixes in addition to registered sensor prefixes
func getPrefixes(customPrefixes ...string) []string {
	if len(customPrefixes) > 0 {
		return customPrefixes
	}
	regLock.RLock()
	defer regLock.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}
