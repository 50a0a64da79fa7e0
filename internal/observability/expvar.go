package observability

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarRecorder publishes aggregate timing and result counters via expvar.
// It fulfills MetricsRecorder for deployments that prefer process-local
// metrics without external dependencies. The recorder maintains totals in
// milliseconds per operation plus success/error and cache hit/miss counters.
type ExpvarRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	cache     map[string]map[string]int64
}

// ExpvarSnapshot captures a read-only view of the recorded metrics.
type ExpvarSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Cache       map[string]map[string]int64 `json:"cache_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarRecorder constructs an expvar-backed recorder and publishes it
// under the supplied name. When name is empty, a unique identifier is
// generated.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("cachecore_metrics_%d", id)
	}
	rec := &ExpvarRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
		cache:     make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarRecorder) Name() string {
	return r.name
}

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for op, statusCounts := range r.results {
		cpy := make(map[string]int64, len(statusCounts))
		for status, count := range statusCounts {
			cpy[status] = count
		}
		results[op] = cpy
	}
	cache := make(map[string]map[string]int64, len(r.cache))
	for entity, counts := range r.cache {
		cpy := make(map[string]int64, len(counts))
		for outcome, count := range counts {
			cpy[outcome] = count
		}
		cache[entity] = cpy
	}

	return ExpvarSnapshot{
		DurationsMS: durations,
		Results:     results,
		Cache:       cache,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe records a store operation outcome.
func (r *ExpvarRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	ms := float64(duration) / float64(time.Millisecond)
	status := "error"
	if success {
		status = "success"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] += ms
	statusCounts, ok := r.results[operation]
	if !ok {
		statusCounts = make(map[string]int64, 2)
		r.results[operation] = statusCounts
	}
	statusCounts[status]++
}

// CacheHit records a cache hit or miss for an entity type.
func (r *ExpvarRecorder) CacheHit(entity string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	counts, ok := r.cache[entity]
	if !ok {
		counts = make(map[string]int64, 2)
		r.cache[entity] = counts
	}
	counts[outcome]++
}
