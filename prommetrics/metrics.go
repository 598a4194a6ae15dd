// Package prommetrics implements joboutbox.Metrics with Prometheus collectors.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/velmie/joboutbox"
)

const (
	defaultNamespace = "joboutbox"
	subsystem        = "relay"
)

// Metrics records relay telemetry on Prometheus collectors.
type Metrics struct {
	batchDuration prometheus.Histogram
	dispatched    prometheus.Counter
	recovered     prometheus.Counter
	errors        prometheus.Counter
	lockMisses    prometheus.Counter
	pending       prometheus.Gauge
}

var _ joboutbox.Metrics = (*Metrics)(nil)

// Option configures collector naming.
type Option func(*options)

type options struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
}

// WithNamespace sets the metric namespace (default "joboutbox").
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithConstLabels attaches constant labels to every collector.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = labels
	}
}

// WithBuckets overrides the batch duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, opts ...Option) (*Metrics, error) {
	o := options{namespace: defaultNamespace, buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: o.constLabels,
		})
	}

	m := &Metrics{
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Subsystem:   subsystem,
			Name:        "batch_duration_seconds",
			Help:        "Time spent processing one outbox batch.",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}),
		dispatched: counter("dispatched_total", "Count of outbox records handed to the scheduler."),
		recovered:  counter("recovered_total", "Count of outbox records resolved from the dedup cache."),
		errors:     counter("errors_total", "Count of outbox records whose dispatch failed."),
		lockMisses: counter("lock_misses_total", "Count of cycles skipped because the relay lock was held elsewhere."),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Subsystem:   subsystem,
			Name:        "pending",
			Help:        "Number of outbox records waiting for dispatch.",
			ConstLabels: o.constLabels,
		}),
	}

	for _, c := range []prometheus.Collector{m.batchDuration, m.dispatched, m.recovered, m.errors, m.lockMisses, m.pending} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer, opts ...Option) *Metrics {
	m, err := New(reg, opts...)
	if err != nil {
		panic(err)
	}

	return m
}

// ObserveBatchDuration implements joboutbox.Metrics.
func (m *Metrics) ObserveBatchDuration(duration time.Duration) {
	m.batchDuration.Observe(duration.Seconds())
}

// AddDispatched implements joboutbox.Metrics.
func (m *Metrics) AddDispatched(count int) {
	addPositive(m.dispatched, count)
}

// AddRecovered implements joboutbox.Metrics.
func (m *Metrics) AddRecovered(count int) {
	addPositive(m.recovered, count)
}

// AddErrors implements joboutbox.Metrics.
func (m *Metrics) AddErrors(count int) {
	addPositive(m.errors, count)
}

// AddLockMisses implements joboutbox.Metrics.
func (m *Metrics) AddLockMisses(count int) {
	addPositive(m.lockMisses, count)
}

// SetPending implements joboutbox.Metrics.
func (m *Metrics) SetPending(count int) {
	m.pending.Set(float64(count))
}

// Counter.Add panics on negative values.
func addPositive(c prometheus.Counter, count int) {
	if count > 0 {
		c.Add(float64(count))
	}
}
