package main

import (
	"fmt"
	"log"
	"time"

	"github.com/battery233/gooccupancy"
	_ "github.com/battery233/gooccupancy/pkg/sensors/all"
	"github.com/battery233/gooccupancy/pkg/sensors/omg/comms"
)

func main() {
	log.Println("--- GoOccupancy Scanner ---")

	scanDuration := 15 * time.Second
	log.Printf("Starting BLE scan for %s...", scanDuration)
	log.Println("Power on your occupancy board now.")

	// Find any device whose name starts with the board's advertised name.
	devices, err := gooccupancy.Scan(scanDuration, comms.DeviceName)
	if err != nil {
		log.Fatalf("Fatal: Scan failed: %v", err)
	}

	if len(devices) == 0 {
		log.Println("\nScan complete. No supported devices found.")
		log.Printf("Tip: Make sure the board is powered and advertising as '%s'.", comms.DeviceName)
		return
	}

	fmt.Println("\n--- Found Supported Devices ---")
	for i, device := range devices {
		fmt.Printf("%d: Name: %s\n", i+1, device.Name)
		fmt.Printf("   ID:   %s\n", device.ID)
		fmt.Printf("   RSSI: %d\n\n", device.RSSI)
	}
	fmt.Println("-----------------------------")
}
