// Package stats counts requests proxied to the upstream.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/hskang9/turbo-s/internal/metrics"
)

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Proxied uint64 `json:"proxied"`
}

// String renders the snapshot for humans.
func (s Snapshot) String() string {
	return fmt.Sprintf("Stats { proxied: %d }", s.Proxied)
}

// Counter counts cache-miss requests served from upstream. It has no reset.
type Counter struct {
	proxied atomic.Uint64
	metrics *metrics.Metrics
}

// NewCounter creates a Counter. Increments are mirrored into m when non-nil.
func NewCounter(m *metrics.Metrics) *Counter {
	return &Counter{metrics: m}
}

// Increment adds one proxied request.
func (c *Counter) Increment() {
	c.proxied.Add(1)
	if c.metrics != nil {
		c.metrics.Proxied.Inc()
	}
}

// Snapshot returns the current counts.
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{Proxied: c.proxied.Load()}
}
