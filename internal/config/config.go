package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DevicePrefix string        // e.g. "OMG"
	ScanTimeout  time.Duration // e.g. 10s
	BindAddr     string        // e.g. ":8086"
	MQTTBroker   string        // e.g. "tcp://localhost:1883", empty disables publishing
	MQTTTopic    string        // topic prefix
	Mock         bool          // use the simulated board instead of scanning
}

func FromEnv() Config {
	prefix := os.Getenv("OCCUPANCY_DEVICE_PREFIX")
	if prefix == "" {
		prefix = "OMG"
	}
	scan := 10 * time.Second
	if s := os.Getenv("OCCUPANCY_SCAN_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			scan = d
		}
	}
	bind := os.Getenv("OCCUPANCY_BIND_ADDR")
	if bind == "" {
		bind = ":8086"
	}
	topic := os.Getenv("OCCUPANCY_MQTT_TOPIC")
	if topic == "" {
		topic = "occupancy"
	}
	mock := false
	if s := os.Getenv("OCCUPANCY_MOCK"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			mock = b
		}
	}
	return Config{
		DevicePrefix: prefix,
		ScanTimeout:  scan,
		BindAddr:     bind,
		MQTTBroker:   os.Getenv("OCCUPANCY_MQTT_BROKER"),
		MQTTTopic:    topic,
		Mock:         mock,
	}
}
