package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/battery233/gooccupancy"

	// This tells the Go compiler to include the package, which runs its init()
	// function. The init() function, in turn, calls gooccupancy.Register().
	_ "github.com/battery233/gooccupancy/pkg/sensors/all"
)

func main() {
	log.Println("GoOccupancy mock sensor starting...")

	// The mock registers under "MOCK", so any name with that prefix selects it.
	device := &gooccupancy.FoundDevice{Name: "MOCK-Development-Board", ID: "mock-0"}
	sensor, err := gooccupancy.NewSensorForDevice(device)
	if err != nil {
		log.Fatalf("Fatal: Could not create sensor instance: %v", err)
	}

	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Println("Shutdown signal received. Disconnecting...")
		_ = sensor.Disconnect()
	}()

	updates, err := sensor.Connect()
	if err != nil {
		log.Fatalf("Fatal: Could not connect to sensor: %v", err)
	}
	log.Println("Connection successful. Listening for updates...")

	// The loop exits when Disconnect closes the channel.
	for update := range updates {
		if update.Error != nil {
			log.Printf("%s: %v (payload % X)", update.DeviceID, update.Error, update.Payload)
			continue
		}
		log.Printf("%s %s active=%t", update.DeviceID, update.Channel, update.Active)
	}

	log.Println("Update channel closed. Application finished gracefully.")
}
