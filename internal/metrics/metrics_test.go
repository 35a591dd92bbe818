package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.TrackGatewayRequest("list_events", "200", 20*time.Millisecond)
	r.TrackGatewayRequest("list_events", "200", 10*time.Millisecond)
	r.TrackGatewayRetry("list_performers")
	r.TrackPage("ok")
	r.TrackHTTPRequest("GET", "/nejat", 200, time.Millisecond)
	r.TrackCache("event", true)
	r.TrackCache("event", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.gatewayRequests.WithLabelValues("list_events", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.gatewayRetries.WithLabelValues("list_performers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pagesLoaded.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/nejat", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("event", "miss")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.TrackGatewayRequest("x", "error", time.Second)
		r.TrackGatewayRetry("x")
		r.TrackPage("error")
		r.TrackHTTPRequest("GET", "/", 500, time.Second)
		r.TrackCache("event", true)
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
