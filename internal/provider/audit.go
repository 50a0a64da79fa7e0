package provider

import (
	"time"

	"cachecore/internal/bus"
	"cachecore/pkg/domain"
)

// auditLimit caps the retained change trail.
const auditLimit = 64

// AuditEntry is one confirmed user change observed on the bus, with the
// user's name recovered from the change snapshot.
type AuditEntry struct {
	Action domain.Action
	UserID string
	Name   string
	At     time.Time
}

func (p *Provider) watchUserChanges() {
	p.unsubscribe = append(p.unsubscribe,
		p.events.On(bus.UserUpdated, p.recordUserChange),
		p.events.On(bus.UserDeleted, p.recordUserChange),
	)
}

// recordUserChange appends a trail entry. Deletes carry no After, so the
// name comes from whichever snapshot the change recorded.
func (p *Provider) recordUserChange(payload any) {
	change, ok := payload.(bus.UserChange)
	if !ok {
		return
	}
	entry := AuditEntry{Action: change.Action, UserID: change.ID, At: p.clock()}
	snapshot := change.After
	if !snapshot.Defined() {
		snapshot = change.Before
	}
	var user domain.User
	if err := snapshot.Decode(&user); err == nil {
		entry.Name = user.Name
	}
	p.mu.Lock()
	p.audit = append(p.audit, entry)
	if len(p.audit) > auditLimit {
		p.audit = p.audit[len(p.audit)-auditLimit:]
	}
	p.mu.Unlock()
}

// RecentChanges returns the retained user change trail, oldest first.
func (p *Provider) RecentChanges() []AuditEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]AuditEntry(nil), p.audit...)
}
