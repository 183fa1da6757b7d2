// Package metrics exports Prometheus collectors for entity operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "entitree"

type Metrics struct {
	entries       *prometheus.CounterVec
	entryBytes    *prometheus.CounterVec
	lockAttempts  *prometheus.HistogramVec
	lockWait      *prometheus.HistogramVec
	persistOps    *prometheus.CounterVec
	persistTiming *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg when it is not
// nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "listener",
				Name:      "entries_total",
				Help:      "Entries written by write listeners.",
			},
			[]string{"kind"},
		),
		entryBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "listener",
				Name:      "entry_bytes_total",
				Help:      "Bytes of entry code written by write listeners.",
			},
			[]string{"kind"},
		),
		lockAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reference",
				Name:      "attempts",
				Help:      "Lock then validate rounds taken to acquire a reference bundle.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13},
			},
			[]string{"op"},
		),
		lockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reference",
				Name:      "wait_seconds",
				Help:      "Time spent acquiring entity references.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		persistOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persist",
				Name:      "operations_total",
				Help:      "Entity store and load operations.",
			},
			[]string{"op", "type", "success"},
		),
		persistTiming: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "persist",
				Name:      "duration_seconds",
				Help:      "Entity store and load duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.entries, m.entryBytes, m.lockAttempts, m.lockWait, m.persistOps, m.persistTiming)
	}
	return m
}

// ObserveEntry counts one listener entry of the given kind.
func (m *Metrics) ObserveEntry(kind string, bytes int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(kind).Inc()
	m.entryBytes.WithLabelValues(kind).Add(float64(bytes))
}

// ObserveLock records how an operation acquired its references.
func (m *Metrics) ObserveLock(op string, attempts int, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockAttempts.WithLabelValues(op).Observe(float64(attempts))
	m.lockWait.WithLabelValues(op).Observe(wait.Seconds())
}

func (m *Metrics) ObservePersist(op, fileType string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.persistOps.WithLabelValues(op, fileType, strconv.FormatBool(err == nil)).Inc()
	m.persistTiming.WithLabelValues(op, fileType).Observe(d.Seconds())
}
