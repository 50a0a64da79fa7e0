// Package observability defines the metrics contract for store operations
// and two recorders: a process-local expvar exporter and a Prometheus
// exporter.
package observability

import (
	"context"
	"time"
)

// MetricsRecorder observes store operation outcomes and cache behavior.
type MetricsRecorder interface {
	// Observe records one operation outcome with its duration.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// CacheHit records whether a read was served from cache or hit the network.
	CacheHit(entity string, hit bool)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) Observe(context.Context, string, bool, time.Duration) {}
func (Noop) CacheHit(string, bool)                                {}
