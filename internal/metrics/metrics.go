// Package metrics exposes prometheus collectors for the property core.
//
// Collectors are registered on an injected prometheus.Registerer so that
// tests and embedded uses can keep their own registries. Every method is
// safe to call on a nil receiver, which disables recording.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "missioncontrol"

// Task results recorded by Dispatch.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultPanicked  = "panicked"
	ResultStale     = "stale"
)

// Dispatch records synchronization context activity.
type Dispatch struct {
	enqueued   *prometheus.CounterVec
	tasks      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
}

// NewDispatch creates and registers the dispatch collectors on reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	f := promauto.With(reg)
	return &Dispatch{
		enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_enqueued_total",
			Help:      "Tasks marshalled onto a synchronization context.",
		}, []string{"context"}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Tasks processed by a synchronization context, by result.",
		}, []string{"context", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "task_duration_seconds",
			Help:      "Task execution time on a synchronization context.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"context"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Tasks waiting on a synchronization context.",
		}, []string{"context"}),
	}
}

// Enqueued records a queued task and the resulting queue depth.
func (d *Dispatch) Enqueued(context string, depth int) {
	if d == nil {
		return
	}
	d.enqueued.WithLabelValues(context).Inc()
	d.queueDepth.WithLabelValues(context).Set(float64(depth))
}

// Processed records a finished task.
func (d *Dispatch) Processed(context, result string, elapsed time.Duration, depth int) {
	if d == nil {
		return
	}
	d.tasks.WithLabelValues(context, result).Inc()
	if result != ResultStale {
		d.duration.WithLabelValues(context).Observe(elapsed.Seconds())
	}
	d.queueDepth.WithLabelValues(context).Set(float64(depth))
}

// Paths records property path re-resolution.
type Paths struct {
	rebuilds *prometheus.CounterVec
	links    *prometheus.GaugeVec
}

// NewPaths creates and registers the path collectors on reg.
func NewPaths(reg prometheus.Registerer) *Paths {
	f := promauto.With(reg)
	return &Paths{
		rebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "path",
			Name:      "rebuilds_total",
			Help:      "Chain re-resolutions of a property path.",
		}, []string{"path"}),
		links: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "path",
			Name:      "active_links",
			Help:      "Currently subscribed links of a property path.",
		}, []string{"path"}),
	}
}

// Rebuilt records a re-resolution and the number of links now subscribed.
func (p *Paths) Rebuilt(path string, activeLinks int) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(path).Inc()
	p.links.WithLabelValues(path).Set(float64(activeLinks))
}

// Disposed records that a path released all of its links.
func (p *Paths) Disposed(path string) {
	if p == nil {
		return
	}
	p.links.WithLabelValues(path).Set(0)
}
