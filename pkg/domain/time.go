package domain

import (
	"fmt"
	"time"
)

// parseDueDate accepts RFC 3339 timestamps or bare dates; empty clears the value.
func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q", raw)
}
