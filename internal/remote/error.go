package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"cachecore/pkg/domain"
)

// Kind classifies a collaborator rejection by cause.
type Kind string

// Rejection causes recognised by Classify.
const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// ErrorSeverity grades how disruptive a rejection is for the session.
type ErrorSeverity string

// Severities assigned by Classify; critical errors are reported out of band.
const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// Error is the uniform rejection shape surfaced by store operations. It
// wraps the transport error with a cause classification, a user-facing
// message, and actionable suggestions.
type Error struct {
	Kind        Kind
	Severity    ErrorSeverity
	Status      int
	Message     string
	Suggestions []string
	Retryable   bool
	cause       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the transport error for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// StatusError is the minimal rejection contract expected from collaborators:
// a message plus, when available, a numeric status code.
type StatusError interface {
	error
	StatusCode() int
}

// httpError is the concrete rejection returned by the HTTP collaborator.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.status, e.body)
}

func (e *httpError) StatusCode() int { return e.status }

// NewStatusError builds a rejection carrying an HTTP-style status code.
func NewStatusError(status int, message string) error {
	return &httpError{status: status, body: message}
}

// Classify converts an arbitrary collaborator rejection into the uniform
// Error shape. Already-classified errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	out := &Error{cause: err, Message: err.Error()}

	var netErr net.Error
	var notFound domain.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		out.Status = http.StatusNotFound
		out.Kind = KindValidation
		out.Severity = SeverityLow
		out.Retryable = false
		out.Message = notFound.Error()
		out.Suggestions = []string{"refresh the list", "the record may have been removed"}
		return out
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		out.Kind = KindTimeout
	case errors.As(err, &netErr):
		out.Kind = KindNetwork
	default:
		var withStatus StatusError
		if errors.As(err, &withStatus) {
			out.Status = withStatus.StatusCode()
			out.Kind = kindForStatus(out.Status)
		} else {
			out.Kind = KindUnknown
		}
	}

	out.Severity = severityFor(out.Kind, out.Status)
	out.Retryable = retryableFor(out.Kind, out.Status)
	out.Message = messageFor(out.Kind)
	out.Suggestions = suggestionsFor(out.Kind)
	return out
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusNotFound:
		return KindValidation
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status == http.StatusTooManyRequests:
		return KindServer
	default:
		return KindUnknown
	}
}

func severityFor(kind Kind, status int) ErrorSeverity {
	switch kind {
	case KindAuth:
		if status == http.StatusUnauthorized {
			return SeverityCritical
		}
		return SeverityHigh
	case KindServer:
		return SeverityHigh
	case KindNetwork, KindTimeout:
		return SeverityMedium
	case KindValidation:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func retryableFor(kind Kind, status int) bool {
	switch kind {
	case KindNetwork, KindTimeout:
		return true
	case KindServer:
		return true
	default:
		return status == http.StatusTooManyRequests
	}
}

func messageFor(kind Kind) string {
	switch kind {
	case KindNetwork:
		return "Unable to reach the server. Check your connection."
	case KindTimeout:
		return "The request timed out."
	case KindAuth:
		return "You are not authorized to perform this action."
	case KindValidation:
		return "The submitted data was rejected by the server."
	case KindServer:
		return "The server encountered an error. Try again shortly."
	default:
		return "An unexpected error occurred."
	}
}

func suggestionsFor(kind Kind) []string {
	switch kind {
	case KindNetwork:
		return []string{"check network connectivity", "retry the request"}
	case KindTimeout:
		return []string{"retry the request", "reduce the requested page size"}
	case KindAuth:
		return []string{"sign in again", "contact an administrator for access"}
	case KindValidation:
		return []string{"review the highlighted fields", "remove unsupported values"}
	case KindServer:
		return []string{"retry after a short delay", "report the incident if it persists"}
	default:
		return []string{"retry the request"}
	}
}
