package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "users.fetch_all", true, 20*time.Millisecond)
	rec.Observe(ctx, "users.fetch_all", true, 30*time.Millisecond)
	rec.Observe(ctx, "users.fetch_all", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored
	rec.CacheHit("user", true)
	rec.CacheHit("user", false)
	rec.CacheHit("user", true)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["users.fetch_all"]; got != 55 {
		t.Fatalf("expected 55ms total, got %v", got)
	}
	if got := snap.Results["users.fetch_all"]["success"]; got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if got := snap.Results["users.fetch_all"]["error"]; got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
	if got := snap.Cache["user"]["hit"]; got != 2 {
		t.Fatalf("expected 2 cache hits, got %d", got)
	}
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}
}

func TestExpvarSnapshotIsCopy(t *testing.T) {
	rec := NewExpvarRecorder("")
	rec.Observe(context.Background(), "op", true, time.Millisecond)

	snap := rec.Snapshot()
	snap.Results["op"]["success"] = 99

	if got := rec.Snapshot().Results["op"]["success"]; got != 1 {
		t.Fatalf("snapshot mutation leaked into recorder: %d", got)
	}
}

func TestPrometheusRecorderRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rec.Observe(context.Background(), "tasks.update", false, 40*time.Millisecond)
	rec.CacheHit("task", false)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"cachecore_operation_duration_seconds",
		"cachecore_operation_results_total",
		"cachecore_cache_requests_total",
	} {
		if !names[want] {
			t.Fatalf("expected metric family %s, got %v", want, names)
		}
	}

	// Double registration must surface the registry error.
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
