package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"cachecore/internal/config"
	"cachecore/internal/remote"
	"cachecore/pkg/domain"
)

// scriptedDoer answers HTTP requests from a method+path lookup table, which
// keeps FromConfig tests off the network.
type scriptedDoer struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := req.Method + " " + req.URL.Path
	d.calls = append(d.calls, key)
	body, ok := d.responses[key]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
		body = `{"error":"not found"}`
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	encoded, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(encoded)
}

func testConfig() config.Config {
	return config.Config{
		CacheTTL:          5 * time.Minute,
		ProfileMaxAge:     10 * time.Minute,
		ProfileMaxSize:    8,
		OptimisticTimeout: time.Second,
		MaxPendingUpdates: 4,
		WarmBatchSize:     3,
		CheckInterval:     time.Minute,
		APIBaseURL:        "http://api.test/api",
		LogLevel:          "disabled",
	}
}

func TestFromConfigWiresHTTPSources(t *testing.T) {
	doer := &scriptedDoer{responses: map[string]string{
		"GET /api/users":    jsonBody(t, []domain.User{testUser("u1", "Ada")}),
		"GET /api/users/u1": jsonBody(t, testUser("u1", "Ada")),
		"GET /api/tasks":    jsonBody(t, []domain.Task{testTask("t1", "Ship", ref("u1"))}),
	}}
	session := &remote.StaticSession{}
	session.Establish("u1", domain.RoleAdmin)

	p, err := FromConfig(testConfig(), Runtime{Doer: doer, Session: session})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer p.Close()

	if err := p.WarmCaches(context.Background()); err != nil {
		t.Fatalf("WarmCaches: %v", err)
	}
	if got := len(p.Users().List()); got != 1 {
		t.Fatalf("users cached = %d, want 1", got)
	}
	if got := len(p.Tasks().List()); got != 1 {
		t.Fatalf("tasks cached = %d, want 1", got)
	}

	report, err := p.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("CheckConsistency: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("expected consistent state, issues: %+v", report.Issues)
	}

	task, ok := p.Tasks().GetByID("t1")
	if !ok {
		t.Fatal("task t1 missing after warm")
	}
	view := p.Tasks().Hydrate(task)
	if view.Assignee == nil || view.Assignee.ID != "u1" {
		t.Fatalf("assignee not hydrated: %+v", view.Assignee)
	}
}

func TestFromConfigSurfacesRemoteFailures(t *testing.T) {
	// Empty table: every request 404s.
	doer := &scriptedDoer{responses: map[string]string{}}

	p, err := FromConfig(testConfig(), Runtime{Doer: doer})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer p.Close()

	if err := p.WarmCaches(context.Background()); err == nil {
		t.Fatal("expected warm failure when the API is unreachable")
	}
	if got := len(p.Users().List()); got != 0 {
		t.Fatalf("users cached = %d, want 0", got)
	}
}
