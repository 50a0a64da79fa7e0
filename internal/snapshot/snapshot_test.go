package snapshot

import (
	"context"
	"testing"

	"cachecore/pkg/domain"
)

func snapUser(id, name string) domain.User {
	return domain.User{Base: domain.Base{ID: id}, Name: name, Role: domain.RoleMember}
}

func snapTask(id string, assignee *string) domain.Task {
	return domain.Task{
		Base:       domain.Base{ID: id},
		Title:      "task " + id,
		Status:     domain.TaskStatusTodo,
		Priority:   domain.PriorityLow,
		AssigneeID: assignee,
	}
}

func strptr(s string) *string { return &s }

func TestCaptureAndMemoryRoundTrip(t *testing.T) {
	snap := Capture(
		[]domain.User{snapUser("u1", "Ada")},
		[]domain.Task{snapTask("t1", strptr("u1"))},
	)

	store, err := Open(context.Background(), Params{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}
	if loaded.Users["u1"].Name != "Ada" {
		t.Fatalf("user = %+v", loaded.Users["u1"])
	}

	// Loaded snapshots are independent copies.
	loaded.Users["u1"] = snapUser("u1", "Mutated")
	again, _ := store.Load(context.Background())
	if again.Users["u1"].Name != "Ada" {
		t.Fatal("Load returned shared state")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Params{Driver: "etcd"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestMigrateClearsDanglingReferences(t *testing.T) {
	withRefs := snapTask("t1", strptr("ghost"))
	withRefs.ResponsibleID = strptr("u1")
	withRefs.AccountableID = strptr("gone")
	snap := Capture([]domain.User{snapUser("u1", "Ada")}, []domain.Task{withRefs, snapTask("t2", nil)})

	migrated, dropped := Migrate(snap)
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	task := migrated.Tasks["t1"]
	if task.AssigneeID != nil || task.AccountableID != nil {
		t.Fatalf("dangling refs kept: %+v", task)
	}
	if task.ResponsibleID == nil || *task.ResponsibleID != "u1" {
		t.Fatal("valid reference dropped")
	}
	// The input snapshot is untouched.
	if snap.Tasks["t1"].AssigneeID == nil {
		t.Fatal("Migrate mutated its input")
	}
}

func TestViewListsInSortedOrder(t *testing.T) {
	snap := Capture(
		[]domain.User{snapUser("b", "B"), snapUser("a", "A")},
		[]domain.Task{snapTask("t2", nil), snapTask("t1", nil)},
	)
	view := View(snap)

	if got := view.CollectionIDs(domain.EntityUser); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("CollectionIDs = %v", got)
	}
	users := view.ListUsers()
	if len(users) != 2 || users[0].ID != "a" {
		t.Fatalf("ListUsers = %+v", users)
	}
	if _, ok := view.FindTask("t1"); !ok {
		t.Fatal("FindTask missed existing task")
	}
	if _, ok := view.FindUser("ghost"); ok {
		t.Fatal("FindUser found a ghost")
	}
}
