package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/battery233/gooccupancy"
)

func TestRunDeliversInOrderUntilClosed(t *testing.T) {
	updates := make(chan gooccupancy.Update, 3)
	updates <- gooccupancy.Update{Channel: gooccupancy.ChannelPir1, Active: true}
	updates <- gooccupancy.Update{Channel: gooccupancy.ChannelPir2}
	updates <- gooccupancy.Update{Channel: gooccupancy.ChannelDistance1, Active: true}
	close(updates)

	var order []string
	first := HandlerFunc(func(u gooccupancy.Update) { order = append(order, "a:"+u.Channel.String()) })
	second := HandlerFunc(func(u gooccupancy.Update) { order = append(order, "b:"+u.Channel.String()) })

	n := Run(context.Background(), updates, first, second)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{
		"a:pir1", "b:pir1",
		"a:pir2", "b:pir2",
		"a:distance1", "b:distance1",
	}, order)
}

func TestRunStopsOnCancel(t *testing.T) {
	updates := make(chan gooccupancy.Update)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	n := Run(ctx, updates, HandlerFunc(func(gooccupancy.Update) { called = true }))

	assert.Zero(t, n)
	assert.False(t, called)
}
