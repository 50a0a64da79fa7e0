package provider

import (
	"context"
	"testing"

	"cachecore/pkg/domain"
)

func TestRecentChangesDecodesBusSnapshots(t *testing.T) {
	fx := newFixture(t, nil,
		[]domain.User{testUser("u1", "Ada"), testUser("u2", "Grace")},
		nil,
	)
	ctx := context.Background()
	if err := fx.provider.WarmCaches(ctx); err != nil {
		t.Fatalf("WarmCaches: %v", err)
	}

	name := "Ada Lovelace"
	if res := fx.provider.Actions().UpdateUser(ctx, "u1", domain.UserPatch{Name: &name}); !res.OK {
		t.Fatalf("UpdateUser: %v", res.Err)
	}
	if res := fx.provider.Actions().DeleteUser(ctx, "u2"); !res.OK {
		t.Fatalf("DeleteUser: %v", res.Err)
	}

	trail := fx.provider.RecentChanges()
	if len(trail) == 0 {
		t.Fatal("no audit entries recorded")
	}

	var sawUpdate, sawDelete bool
	for _, entry := range trail {
		switch {
		case entry.Action == domain.ActionUpdate && entry.UserID == "u1":
			sawUpdate = true
			if entry.Name != "Ada Lovelace" {
				t.Fatalf("update entry name = %q, want decoded patched name", entry.Name)
			}
		case entry.Action == domain.ActionDelete && entry.UserID == "u2":
			sawDelete = true
			// Deletes have no After; the name decodes from the Before snapshot.
			if entry.Name != "Grace" {
				t.Fatalf("delete entry name = %q, want Grace", entry.Name)
			}
		}
	}
	if !sawUpdate || !sawDelete {
		t.Fatalf("trail missing entries: update=%v delete=%v (%+v)", sawUpdate, sawDelete, trail)
	}
}

func TestRecentChangesTrailIsBounded(t *testing.T) {
	fx := newFixture(t, nil, []domain.User{testUser("u1", "Ada")}, nil)
	ctx := context.Background()
	if err := fx.provider.WarmCaches(ctx); err != nil {
		t.Fatalf("WarmCaches: %v", err)
	}

	name := "Ada"
	for i := 0; i < auditLimit+10; i++ {
		if res := fx.provider.Actions().UpdateUser(ctx, "u1", domain.UserPatch{Name: &name}); !res.OK {
			t.Fatalf("UpdateUser %d: %v", i, res.Err)
		}
	}
	if got := len(fx.provider.RecentChanges()); got > auditLimit {
		t.Fatalf("trail length = %d, want at most %d", got, auditLimit)
	}
}
