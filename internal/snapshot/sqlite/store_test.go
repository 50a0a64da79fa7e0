package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"cachecore/internal/snapshot/memory"
	"cachecore/pkg/domain"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cache.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	snap := memory.New()
	snap.Users["u1"] = domain.User{Base: domain.Base{ID: "u1"}, Name: "Ada", Role: domain.RoleAdmin}
	assignee := "u1"
	snap.Tasks["t1"] = domain.Task{
		Base:       domain.Base{ID: "t1"},
		Title:      "Ship",
		Status:     domain.TaskStatusInProgress,
		Priority:   domain.PriorityHigh,
		AssigneeID: &assignee,
		Tags:       []string{"release"},
	}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Users["u1"].Name != "Ada" {
		t.Fatalf("user = %+v", loaded.Users["u1"])
	}
	task := loaded.Tasks["t1"]
	if task.AssigneeID == nil || *task.AssigneeID != "u1" || len(task.Tags) != 1 {
		t.Fatalf("task = %+v", task)
	}

	// Saving again overwrites rather than appending.
	delete(snap.Tasks, "t1")
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	loaded, err = store.Load(context.Background())
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(loaded.Tasks) != 0 {
		t.Fatalf("tasks after overwrite = %+v", loaded.Tasks)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Len() != 0 {
		t.Fatalf("Len = %d, want 0", snap.Len())
	}
}
