// Package snapshot selects and wraps the local snapshot persistence backends.
// Consumers depend on the Store interface here; the driver sub-packages are
// implementation detail (an architecture test enforces this).
package snapshot

import (
	"context"
	"fmt"
	"os"
	"sort"

	"cachecore/internal/snapshot/memory"
	"cachecore/internal/snapshot/postgres"
	"cachecore/internal/snapshot/sqlite"
	"cachecore/pkg/domain"
)

// Snapshot is the serialisable export of both cached collections.
type Snapshot = memory.Snapshot

// Store persists snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// Compile-time contract assertions for the drivers.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Driver identifies a concrete snapshot storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Params carries driver selection and per-driver settings.
type Params struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open constructs the snapshot store for the selected driver. An empty
// driver defaults to sqlite.
func Open(ctx context.Context, params Params) (Store, error) {
	driver := params.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(params.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, params.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown snapshot driver %s", driver)
	}
}

// OpenFromEnv selects a backend using environment variables. Defaults to
// sqlite when unset.
//
//	CACHECORE_SNAPSHOT_DRIVER: memory|sqlite|postgres (default sqlite)
//	CACHECORE_SQLITE_PATH: path to sqlite file (default ./cachecore.db)
//	CACHECORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenFromEnv(ctx context.Context) (Store, error) {
	return Open(ctx, Params{
		Driver:      Driver(os.Getenv("CACHECORE_SNAPSHOT_DRIVER")),
		SQLitePath:  os.Getenv("CACHECORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("CACHECORE_POSTGRES_DSN"),
	})
}

// Capture builds a snapshot from entity slices.
func Capture(users []domain.User, tasks []domain.Task) Snapshot {
	snap := memory.New()
	for _, user := range users {
		snap.Users[user.ID] = user.Clone()
	}
	for _, task := range tasks {
		snap.Tasks[task.ID] = task.Clone()
	}
	return snap
}

// Migrate returns a copy of the snapshot with dangling task references
// cleared. It reports the number of references dropped. Ordering and
// relationship indexes are not part of the snapshot; stores rebuild them on
// restore.
func Migrate(snap Snapshot) (Snapshot, int) {
	out := snap.Clone()
	if out.Users == nil {
		out.Users = map[string]domain.User{}
	}
	if out.Tasks == nil {
		out.Tasks = map[string]domain.Task{}
	}
	dropped := 0
	for id, task := range out.Tasks {
		if task.AssigneeID != nil {
			if _, ok := out.Users[*task.AssigneeID]; !ok {
				task.AssigneeID = nil
				dropped++
			}
		}
		if task.ResponsibleID != nil {
			if _, ok := out.Users[*task.ResponsibleID]; !ok {
				task.ResponsibleID = nil
				dropped++
			}
		}
		if task.AccountableID != nil {
			if _, ok := out.Users[*task.AccountableID]; !ok {
				task.AccountableID = nil
				dropped++
			}
		}
		out.Tasks[id] = task
	}
	return out, dropped
}

// View adapts a snapshot to the rules engine's read contract so consistency
// rules can run against persisted state without live stores.
func View(snap Snapshot) domain.RuleView {
	return snapshotView{snap: snap}
}

type snapshotView struct {
	snap Snapshot
}

func (v snapshotView) ListUsers() []domain.User {
	out := make([]domain.User, 0, len(v.snap.Users))
	for _, id := range v.CollectionIDs(domain.EntityUser) {
		out = append(out, v.snap.Users[id])
	}
	return out
}

func (v snapshotView) ListTasks() []domain.Task {
	out := make([]domain.Task, 0, len(v.snap.Tasks))
	for _, id := range v.CollectionIDs(domain.EntityTask) {
		out = append(out, v.snap.Tasks[id])
	}
	return out
}

func (v snapshotView) FindUser(id string) (domain.User, bool) {
	user, ok := v.snap.Users[id]
	return user, ok
}

func (v snapshotView) FindTask(id string) (domain.Task, bool) {
	task, ok := v.snap.Tasks[id]
	return task, ok
}

// CollectionIDs returns sorted bucket keys; snapshots carry no display order.
func (v snapshotView) CollectionIDs(entity domain.EntityType) []string {
	var out []string
	switch entity {
	case domain.EntityUser:
		for id := range v.snap.Users {
			out = append(out, id)
		}
	case domain.EntityTask:
		for id := range v.snap.Tasks {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
