package normalize

import (
	"reflect"
	"testing"
	"time"

	"cachecore/pkg/domain"
)

func user(id, name string) domain.User {
	return domain.User{Base: domain.Base{ID: id}, Name: name}
}

func TestNormalizeDuplicateTieBreak(t *testing.T) {
	state := Normalize([]domain.User{
		user("1", "Alice"),
		user("2", "Bob"),
		user("1", "Alicia"),
	})

	if got := state.AllIDs; !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("expected first-seen order [1 2], got %v", got)
	}
	if got := state.ByID["1"].Name; got != "Alicia" {
		t.Fatalf("expected last write to win on value, got %q", got)
	}
	if msg := state.Check(); msg != "" {
		t.Fatalf("invariant violated: %s", msg)
	}
}

func TestDenormalizeRoundTrip(t *testing.T) {
	input := []domain.User{user("a", "A"), user("b", "B"), user("a", "A2")}
	out := Normalize(input).Denormalize()

	if len(out) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("expected order [a b], got [%s %s]", out[0].ID, out[1].ID)
	}
}

func TestDenormalizeSkipsMissingIDs(t *testing.T) {
	state := Normalize([]domain.User{user("1", "A"), user("2", "B")})
	delete(state.ByID, "2")

	out := state.Denormalize()
	if len(out) != 1 || out[0].ID != "1" {
		t.Fatalf("expected missing id to be skipped, got %v", out)
	}
}

func TestUpsertAndRemoveKeepInvariant(t *testing.T) {
	state := NewState[domain.User]()
	state.Upsert(user("1", "A"))
	state.Upsert(user("2", "B"))
	state.Upsert(user("1", "A2"))

	if got := len(state.AllIDs); got != 2 {
		t.Fatalf("upsert must not duplicate ids, got %d entries", got)
	}
	if got, _ := state.Get("1"); got.Name != "A2" {
		t.Fatalf("expected upsert to replace value, got %q", got.Name)
	}

	state.Remove("1")
	if _, ok := state.Get("1"); ok {
		t.Fatalf("expected id 1 removed from map")
	}
	if !reflect.DeepEqual(state.AllIDs, []string{"2"}) {
		t.Fatalf("expected order list [2], got %v", state.AllIDs)
	}
	state.Remove("missing")
	if msg := state.Check(); msg != "" {
		t.Fatalf("invariant violated after removes: %s", msg)
	}
}

func TestCheckReportsDivergence(t *testing.T) {
	state := Normalize([]domain.User{user("1", "A")})
	state.AllIDs = append(state.AllIDs, "ghost")
	if msg := state.Check(); msg == "" {
		t.Fatalf("expected divergence report for dangling order entry")
	}

	state = Normalize([]domain.User{user("1", "A")})
	state.ByID["orphan"] = user("orphan", "O")
	if msg := state.Check(); msg == "" {
		t.Fatalf("expected divergence report for orphaned map entry")
	}
}

func TestSortByStable(t *testing.T) {
	users := []domain.User{
		{Base: domain.Base{ID: "1"}, Name: "B", Team: "x"},
		{Base: domain.Base{ID: "2"}, Name: "A", Team: "x"},
		{Base: domain.Base{ID: "3"}, Name: "A", Team: "y"},
	}
	byName := func(a, b domain.User) bool { return a.Name < b.Name }

	asc := SortBy(users, byName, Ascending)
	if asc[0].ID != "2" || asc[1].ID != "3" || asc[2].ID != "1" {
		t.Fatalf("ascending sort lost stability: %v", ids(asc))
	}

	desc := SortBy(users, byName, Descending)
	if desc[0].ID != "1" {
		t.Fatalf("descending sort wrong head: %v", ids(desc))
	}
	// Input slice must be untouched.
	if users[0].ID != "1" {
		t.Fatalf("SortBy mutated its input")
	}
}

func TestPaginateClamps(t *testing.T) {
	users := []domain.User{user("1", "A"), user("2", "B"), user("3", "C")}

	cases := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"first page", 0, 2, []string{"1", "2"}},
		{"tail page", 2, 2, []string{"3"}},
		{"past end", 5, 2, nil},
		{"no limit", 1, 0, []string{"2", "3"}},
		{"negative offset", -4, 1, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Paginate(users, tc.offset, tc.limit))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCacheValidBoundary(t *testing.T) {
	ttl := 30 * time.Second
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if CacheValid(nil, ttl, now) {
		t.Fatalf("nil lastFetch must be stale")
	}

	atTTL := now.Add(-ttl)
	if CacheValid(&atTTL, ttl, now) {
		t.Fatalf("age == ttl must be stale")
	}

	justInside := now.Add(-ttl + time.Nanosecond)
	if !CacheValid(&justInside, ttl, now) {
		t.Fatalf("age == ttl-1 must be fresh")
	}
}

func ids(users []domain.User) []string {
	if len(users) == 0 {
		return nil
	}
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.ID
	}
	return out
}
