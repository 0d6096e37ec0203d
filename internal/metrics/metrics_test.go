package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := NewDispatch(reg)

	d.Enqueued("ui", 3)
	d.Enqueued("ui", 4)
	d.Processed("ui", ResultSucceeded, time.Millisecond, 3)
	d.Processed("ui", ResultStale, 0, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(d.enqueued.WithLabelValues("ui")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.tasks.WithLabelValues("ui", ResultSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.tasks.WithLabelValues("ui", ResultStale)))
	assert.Equal(t, 2.0, testutil.ToFloat64(d.queueDepth.WithLabelValues("ui")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestPaths_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPaths(reg)

	p.Rebuilt("platform", 2)
	p.Rebuilt("platform", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(p.rebuilds.WithLabelValues("platform")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.links.WithLabelValues("platform")))

	p.Disposed("platform")
	assert.Equal(t, 0.0, testutil.ToFloat64(p.links.WithLabelValues("platform")))
}

func TestNilReceivers(t *testing.T) {
	var d *Dispatch
	var p *Paths

	assert.NotPanics(t, func() {
		d.Enqueued("ui", 1)
		d.Processed("ui", ResultFailed, time.Second, 0)
		p.Rebuilt("x", 1)
		p.Disposed("x")
	})
}
