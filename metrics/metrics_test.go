package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveEntry("print", 3)
	m.ObserveLock("move", 1, time.Millisecond)
	m.ObservePersist("store", "caml", nil, time.Millisecond)
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveEntry("assign_to_entities", 10)
	m.ObserveEntry("assign_to_entities", 5)
	m.ObserveEntry("print", 2)
	m.ObserveLock("move", 2, time.Millisecond)
	m.ObservePersist("store", "amlg", nil, time.Millisecond)
	m.ObservePersist("load", "amlg", errors.New("boom"), time.Millisecond)

	if got := testutil.ToFloat64(m.entries.WithLabelValues("assign_to_entities")); got != 2 {
		t.Errorf("entries %v", got)
	}
	if got := testutil.ToFloat64(m.entryBytes.WithLabelValues("assign_to_entities")); got != 15 {
		t.Errorf("bytes %v", got)
	}
	if got := testutil.ToFloat64(m.persistOps.WithLabelValues("load", "amlg", "false")); got != 1 {
		t.Errorf("failed loads %v", got)
	}
	n, err := testutil.GatherAndCount(reg,
		"entitree_listener_entries_total",
		"entitree_reference_attempts",
		"entitree_persist_operations_total")
	if err != nil {
		t.Fatal(err)
	}
	// two entry kinds, one lock op, two persist label sets
	if n != 5 {
		t.Errorf("series %d", n)
	}
}
