package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "dial tcp: connection refused" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return true }

func TestClassifyByStatusCode(t *testing.T) {
	cases := []struct {
		status    int
		wantKind  Kind
		retryable bool
	}{
		{400, KindValidation, false},
		{401, KindAuth, false},
		{403, KindAuth, false},
		{408, KindTimeout, true},
		{422, KindValidation, false},
		{429, KindServer, true},
		{500, KindServer, true},
		{503, KindServer, true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			got := Classify(NewStatusError(tc.status, "nope"))
			if got.Kind != tc.wantKind {
				t.Fatalf("expected kind %s, got %s", tc.wantKind, got.Kind)
			}
			if got.Retryable != tc.retryable {
				t.Fatalf("expected retryable=%v, got %v", tc.retryable, got.Retryable)
			}
			if got.Status != tc.status {
				t.Fatalf("expected status %d preserved, got %d", tc.status, got.Status)
			}
			if got.Message == "" || len(got.Suggestions) == 0 {
				t.Fatalf("expected user-facing message and suggestions")
			}
		})
	}
}

func TestClassifyNetworkAndTimeout(t *testing.T) {
	if got := Classify(fakeNetError{}); got.Kind != KindNetwork || !got.Retryable {
		t.Fatalf("expected retryable network error, got %+v", got)
	}
	if got := Classify(fakeNetError{timeout: true}); got.Kind != KindTimeout {
		t.Fatalf("expected timeout kind, got %s", got.Kind)
	}
	if got := Classify(context.DeadlineExceeded); got.Kind != KindTimeout {
		t.Fatalf("expected deadline to classify as timeout, got %s", got.Kind)
	}
	if got := Classify(errors.New("mystery")); got.Kind != KindUnknown || got.Retryable {
		t.Fatalf("expected non-retryable unknown error, got %+v", got)
	}
}

func TestClassifySeverity(t *testing.T) {
	if got := Classify(NewStatusError(401, "")); got.Severity != SeverityCritical {
		t.Fatalf("expected 401 to be critical, got %s", got.Severity)
	}
	if got := Classify(NewStatusError(422, "")); got.Severity != SeverityLow {
		t.Fatalf("expected validation to be low severity, got %s", got.Severity)
	}
}

func TestClassifyPassthroughAndUnwrap(t *testing.T) {
	cause := NewStatusError(500, "boom")
	first := Classify(cause)
	if again := Classify(first); again != first {
		t.Fatalf("classified errors must pass through unchanged")
	}
	var status StatusError
	if !errors.As(first, &status) || status.StatusCode() != 500 {
		t.Fatalf("expected unwrap chain to expose the status error")
	}
}
