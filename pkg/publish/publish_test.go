package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battery233/gooccupancy"
	"github.com/battery233/gooccupancy/pkg/sensors/omg/comms"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes; other mqtt.Client methods are not used.
// When gate is set, Publish blocks until it is closed.
type fakeClient struct {
	mqtt.Client
	err  error
	gate chan struct{}

	mu           sync.Mutex
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newFakeToken(c.err)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) sentMessages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.sent...)
}

func TestPublishDecodedUpdate(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisherWithClient(c, "occupancy")
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelPir1, Active: true, Time: ts})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Equal(t, "occupancy/dev1/pir1", c.sent[0].topic)
	assert.True(t, c.sent[0].retained)

	var msg Message
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &msg))
	assert.Equal(t, Message{DeviceID: "dev1", Channel: "pir1", Active: true, Timestamp: ts}, msg)
}

func TestPublishInvalidUpdateIsNotRetained(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisherWithClient(c, "home")

	err := p.Publish(gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelDistance2, Error: comms.ErrInvalidData})
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	assert.Equal(t, "home/dev1/distance2", c.sent[0].topic)
	assert.False(t, c.sent[0].retained)
	assert.Contains(t, string(c.sent[0].payload), `"invalid":true`)
}

func TestPublishReturnsTokenError(t *testing.T) {
	c := &fakeClient{err: errors.New("broker gone")}
	p := NewPublisherWithClient(c, "occupancy")

	err := p.Publish(gooccupancy.Update{DeviceID: "dev1"})
	assert.EqualError(t, err, "broker gone")

	assert.NotPanics(t, func() { p.Handle(gooccupancy.Update{DeviceID: "dev1"}) })

	p.Close()
	assert.Len(t, c.sentMessages(), 2)
	assert.True(t, c.disconnected)

	// Handle after Close is a no-op and Close is idempotent.
	p.Handle(gooccupancy.Update{DeviceID: "dev1", Active: true})
	p.Close()
	assert.Len(t, c.sentMessages(), 2)
}

func TestHandlePublishesOnlyStateChanges(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisherWithClient(c, "occupancy")

	pir := func(active bool) gooccupancy.Update {
		return gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelPir1, Active: active}
	}
	bad := gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelPir1, Error: comms.ErrInvalidData}

	for _, u := range []gooccupancy.Update{
		pir(true), pir(true), pir(true),
		pir(false), pir(false),
		bad, bad,
		pir(false), pir(true),
	} {
		p.Handle(u)
	}
	// Another channel has its own state.
	p.Handle(gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelPir2, Active: true})
	p.Close()

	sent := c.sentMessages()
	require.Len(t, sent, 6)
	var got []string
	for _, m := range sent {
		var msg Message
		require.NoError(t, json.Unmarshal(m.payload, &msg))
		got = append(got, fmt.Sprintf("%s active=%t invalid=%t", msg.Channel, msg.Active, msg.Invalid))
	}
	assert.Equal(t, []string{
		"pir1 active=true invalid=false",
		"pir1 active=false invalid=false",
		"pir1 active=false invalid=true",
		"pir1 active=false invalid=true",
		"pir1 active=true invalid=false",
		"pir2 active=true invalid=false",
	}, got)
}

func TestHandleDoesNotBlockOnSlowBroker(t *testing.T) {
	c := &fakeClient{gate: make(chan struct{})}
	p := NewPublisherWithClient(c, "occupancy")

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		for i := 0; i < queueSize*4; i++ {
			p.Handle(gooccupancy.Update{DeviceID: "dev1", Channel: gooccupancy.ChannelPir1, Active: i%2 == 0})
		}
	}()

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("Handle blocked on a stalled broker")
	}

	close(c.gate)
	p.Close()

	n := len(c.sentMessages())
	assert.GreaterOrEqual(t, n, queueSize)
	assert.LessOrEqual(t, n, queueSize+1)
}
