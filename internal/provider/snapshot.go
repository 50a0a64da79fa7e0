package provider

import (
	"context"
	"fmt"

	"cachecore/internal/snapshot"
)

// ExportSnapshot captures both cached collections for persistence.
func (p *Provider) ExportSnapshot() snapshot.Snapshot {
	return snapshot.Capture(p.users.List(), p.tasks.List())
}

// RestoreSnapshot seeds both stores from a persisted snapshot. Dangling
// references are cleared before any entity is applied, and users load before
// tasks so reference hydration resolves immediately. Restored data carries no
// freshness; the first FetchAll still goes to the network.
func (p *Provider) RestoreSnapshot(snap snapshot.Snapshot) {
	migrated, dropped := snapshot.Migrate(snap)
	if dropped > 0 {
		p.log.Warn("snapshot carried dangling references", "dropped", dropped)
	}
	view := snapshot.View(migrated)
	for _, user := range view.ListUsers() {
		p.users.Engine().ApplyLocal(user)
	}
	for _, task := range view.ListTasks() {
		p.tasks.Engine().ApplyLocal(task)
	}
}

// SaveSnapshot exports current state into the given store.
func (p *Provider) SaveSnapshot(ctx context.Context, store snapshot.Store) error {
	if err := store.Save(ctx, p.ExportSnapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the store and restores both collections.
func (p *Provider) LoadSnapshot(ctx context.Context, store snapshot.Store) error {
	snap, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	p.RestoreSnapshot(snap)
	return nil
}
