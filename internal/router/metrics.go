package router

import (
	"sync"
	"time"
)

// Observability counters for one subsystem.
type Metrics struct {
	Operations int64         `json:"operations"`
	TotalTime  time.Duration `json:"totalTime"`
}

// Mean time per operation, zero when nothing has been dispatched.
func (m Metrics) AverageTime() time.Duration {
	if m.Operations == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Operations)
}

// Tracks per-subsystem counters. Process-wide state; nothing here
// survives a restart.
type metricsTable struct {
	mu      sync.Mutex
	entries map[Subsystem]*Metrics
}

func newMetricsTable() *metricsTable {
	return &metricsTable{entries: make(map[Subsystem]*Metrics)}
}

// Counts one dispatched operation against a subsystem.
func (t *metricsTable) record(subsystem Subsystem, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.entries[subsystem]
	if !ok {
		m = &Metrics{}
		t.entries[subsystem] = m
	}
	m.Operations++
	m.TotalTime += elapsed
}

// Returns a copy of every subsystem's counters.
func (t *metricsTable) snapshot() map[Subsystem]Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[Subsystem]Metrics, len(t.entries))
	for subsystem, m := range t.entries {
		out[subsystem] = *m
	}
	return out
}
