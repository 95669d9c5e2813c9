// Package publish forwards sensor updates to an MQTT broker.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/battery233/gooccupancy"
)

const (
	publishTimeout = 2 * time.Second
	queueSize      = 64
)

// Message is the JSON body published for every update.
type Message struct {
	DeviceID  string    `json:"deviceId"`
	Channel   string    `json:"channel"`
	Active    bool      `json:"active"`
	Invalid   bool      `json:"invalid"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes updates under <prefix>/<deviceID>/<channel>.
// Handle only queues state changes and invalid payload reports; a single
// goroutine talks to the broker so a slow broker never stalls the caller.
type Publisher struct {
	client mqtt.Client
	prefix string

	mu     sync.Mutex
	last   map[string]bool
	closed bool
	queue  chan gooccupancy.Update
	done   chan struct{}
}

// NewPublisher connects to brokerAddr (e.g. "tcp://localhost:1883").
func NewPublisher(brokerAddr, prefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID("gooccupancy-" + uuid.NewString()).
		SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", brokerAddr, token.Error())
	}
	return NewPublisherWithClient(c, prefix), nil
}

// NewPublisherWithClient wraps an already connected client.
func NewPublisherWithClient(c mqtt.Client, prefix string) *Publisher {
	p := &Publisher{
		client: c,
		prefix: prefix,
		last:   make(map[string]bool),
		queue:  make(chan gooccupancy.Update, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Topic returns the topic an update is published on.
func (p *Publisher) Topic(u gooccupancy.Update) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, u.DeviceID, u.Channel)
}

// Publish sends u. Decoded states are retained so late subscribers see the
// current state; invalid payload reports are not.
func (p *Publisher) Publish(u gooccupancy.Update) error {
	payload, err := json.Marshal(Message{
		DeviceID:  u.DeviceID,
		Channel:   u.Channel.String(),
		Active:    u.Active,
		Invalid:   u.Error != nil,
		Timestamp: u.Time,
	})
	if err != nil {
		return fmt.Errorf("marshalling update: %w", err)
	}

	token := p.client.Publish(p.Topic(u), 0, u.Error == nil, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("timed out publishing update")
	}
	return token.Error()
}

// Handle queues u for publishing when it changes the channel's state or
// reports an invalid payload. Repeats of the current state are skipped and a
// full queue drops the update; in both cases the channel's last published state
// stays as it was.
func (p *Publisher) Handle(u gooccupancy.Update) {
	topic := p.Topic(u)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if u.Error == nil {
		if prev, ok := p.last[topic]; ok && prev == u.Active {
			return
		}
	}
	select {
	case p.queue <- u:
		if u.Error == nil {
			p.last[topic] = u.Active
		}
	default:
		log.Printf("Publish queue full, dropping %s update", u.Channel)
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for u := range p.queue {
		if err := p.Publish(u); err != nil {
			log.Printf("Failed to publish %s update: %s", u.Channel, err)
		}
	}
}

// Close publishes whatever is still queued and disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	p.client.Disconnect(250)
}
