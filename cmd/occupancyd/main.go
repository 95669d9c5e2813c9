package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/battery233/gooccupancy"
	"github.com/battery233/gooccupancy/internal/config"
	"github.com/battery233/gooccupancy/pkg/api"
	"github.com/battery233/gooccupancy/pkg/dispatch"
	"github.com/battery233/gooccupancy/pkg/metrics"
	"github.com/battery233/gooccupancy/pkg/publish"
	_ "github.com/battery233/gooccupancy/pkg/sensors/all"
	"github.com/battery233/gooccupancy/pkg/tracker"
)

func main() {
	cfg := config.FromEnv()
	log.Printf("config loaded: prefix=%s scan=%s bind=%s mqtt=%q mock=%t",
		cfg.DevicePrefix, cfg.ScanTimeout, cfg.BindAddr, cfg.MQTTBroker, cfg.Mock)

	sensor, err := findSensor(cfg)
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}

	updates, err := sensor.Connect()
	if err != nil {
		log.Fatalf("Fatal: Could not connect to %s: %v", sensor.DeviceName(), err)
	}
	log.Printf("Connected to %s (%s)", sensor.DeviceName(), sensor.DisplayName())

	state := tracker.New()
	m := metrics.NewMetrics()
	sinks := []dispatch.Handler{state, m}

	if cfg.MQTTBroker != "" {
		pub, err := publish.NewPublisher(cfg.MQTTBroker, cfg.MQTTTopic)
		if err != nil {
			_ = sensor.Disconnect()
			log.Fatalf("Fatal: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	srv := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: handlers.LoggingHandler(os.Stdout, api.NewRouter(state, m.Handler())),
	}
	go func() {
		log.Printf("Occupancy API listening on %s", cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n := dispatch.Run(ctx, updates, sinks...)
	log.Printf("Dispatch finished after %d updates", n)

	if err := sensor.Disconnect(); err != nil {
		log.Printf("Error disconnecting: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("occupancyd stopped")
}

func findSensor(cfg config.Config) (gooccupancy.Sensor, error) {
	if cfg.Mock {
		return gooccupancy.NewSensorForDevice(&gooccupancy.FoundDevice{Name: "MOCK", ID: "mock-0"})
	}

	log.Printf("Scanning for a board named %s* for %s...", cfg.DevicePrefix, cfg.ScanTimeout)
	dev, err := gooccupancy.ScanForOne(cfg.ScanTimeout, cfg.DevicePrefix)
	if err != nil {
		return nil, err
	}
	return gooccupancy.NewSensorForDevice(dev)
}
