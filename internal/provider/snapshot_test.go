package provider

import (
	"context"
	"testing"

	"cachecore/internal/snapshot"
	"cachecore/pkg/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	fx := newFixture(t, nil,
		[]domain.User{testUser("u1", "Ada"), testUser("u2", "Grace")},
		[]domain.Task{testTask("t1", "Ship", ref("u1"))},
	)
	if err := fx.provider.WarmCaches(context.Background()); err != nil {
		t.Fatalf("WarmCaches: %v", err)
	}

	snap := fx.provider.ExportSnapshot()
	if snap.Len() != 3 {
		t.Fatalf("snapshot Len = %d, want 3", snap.Len())
	}

	// Restore into a cold engine backed by empty sources.
	cold := newFixture(t, nil, nil, nil)
	cold.provider.RestoreSnapshot(snap)

	if got := len(cold.users.List()); got != 2 {
		t.Fatalf("restored users = %d, want 2", got)
	}
	task, ok := cold.tasks.GetByID("t1")
	if !ok {
		t.Fatal("restored task t1 missing")
	}
	if task.AssigneeID == nil || *task.AssigneeID != "u1" {
		t.Fatalf("assignee = %v, want u1", task.AssigneeID)
	}

	// Restored data carries no freshness.
	if cold.users.Engine().Fresh() || cold.tasks.Engine().Fresh() {
		t.Fatal("restored caches must not report fresh")
	}
}

func TestRestoreSnapshotClearsDanglingReferences(t *testing.T) {
	snap := snapshot.Capture(
		[]domain.User{testUser("u1", "Ada")},
		[]domain.Task{testTask("t1", "Ship", ref("ghost"))},
	)

	cold := newFixture(t, nil, nil, nil)
	cold.provider.RestoreSnapshot(snap)

	task, ok := cold.tasks.GetByID("t1")
	if !ok {
		t.Fatal("task t1 missing after restore")
	}
	if task.AssigneeID != nil {
		t.Fatalf("dangling assignee survived restore: %v", *task.AssigneeID)
	}
}

func TestSaveAndLoadSnapshotThroughStore(t *testing.T) {
	ctx := context.Background()
	st, err := snapshot.Open(ctx, snapshot.Params{Driver: snapshot.DriverMemory})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	fx := newFixture(t, nil, []domain.User{testUser("u1", "Ada")}, nil)
	if err := fx.provider.WarmCaches(ctx); err != nil {
		t.Fatalf("WarmCaches: %v", err)
	}
	if err := fx.provider.SaveSnapshot(ctx, st); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	cold := newFixture(t, nil, nil, nil)
	if err := cold.provider.LoadSnapshot(ctx, st); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if _, ok := cold.users.GetByID("u1"); !ok {
		t.Fatal("u1 missing after load")
	}
}
