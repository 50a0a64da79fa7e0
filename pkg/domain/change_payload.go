package domain

import (
	"encoding/json"
	"fmt"
)

// ChangePayload carries a point-in-time JSON snapshot of an entity as it
// crossed the event bus. The zero value is an absent snapshot: a create has
// no Before, a delete has no After. Bytes are copied on read, so a
// subscriber can never mutate store state through one.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayloadFromValue marshals a typed value into a snapshot.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return ChangePayload{defined: true, raw: raw}, nil
}

// Defined reports whether a snapshot was recorded.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Decode unmarshals the snapshot into out. Decoding an absent snapshot is an
// error so callers cannot mistake a create's missing Before for a zero
// entity.
func (p ChangePayload) Decode(out any) error {
	if !p.defined || len(p.raw) == 0 {
		return fmt.Errorf("no snapshot recorded")
	}
	return json.Unmarshal(p.raw, out)
}

// Raw returns a copy of the snapshot bytes; nil when absent.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(p.raw))
	copy(out, p.raw)
	return out
}
