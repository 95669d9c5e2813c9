package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battery233/gooccupancy"
	"github.com/battery233/gooccupancy/pkg/sensors/omg/comms"
)

func TestHandleCountsResults(t *testing.T) {
	m := NewMetrics()

	m.Handle(gooccupancy.Update{DeviceID: "a", Channel: gooccupancy.ChannelPir1, Active: true})
	m.Handle(gooccupancy.Update{DeviceID: "a", Channel: gooccupancy.ChannelPir1})
	m.Handle(gooccupancy.Update{DeviceID: "a", Channel: gooccupancy.ChannelPir1, Error: comms.ErrInvalidData})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("pir1", "decoded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("pir1", "invalid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.active.WithLabelValues("a", "pir1")))

	m.Handle(gooccupancy.Update{DeviceID: "a", Channel: gooccupancy.ChannelDistance2, Active: true})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.active.WithLabelValues("a", "distance2")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.Handle(gooccupancy.Update{DeviceID: "a", Channel: gooccupancy.ChannelPir2, Active: true})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), "occupancy_notifications_total"))
	assert.True(t, strings.Contains(string(body), `occupancy_channel_active{channel="pir2",device="a"} 1`))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Handle(gooccupancy.Update{Channel: gooccupancy.ChannelPir1})
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
