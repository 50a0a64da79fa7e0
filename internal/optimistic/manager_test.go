package optimistic

import (
	"testing"
	"time"

	"cachecore/pkg/domain"
)

// manualScheduler collects scheduled callbacks so tests control expiry.
type manualScheduler struct {
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
	fired     bool
}

func (s *manualScheduler) Schedule(_ time.Duration, fn func()) CancelFunc {
	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return func() bool {
		if task.fired {
			return false
		}
		task.cancelled = true
		return true
	}
}

func (s *manualScheduler) fireAll() {
	for _, task := range s.tasks {
		if !task.cancelled && !task.fired {
			task.fired = true
			task.fn()
		}
	}
}

func (s *manualScheduler) live() int {
	n := 0
	for _, task := range s.tasks {
		if !task.cancelled && !task.fired {
			n++
		}
	}
	return n
}

func u(id, name string) domain.User {
	return domain.User{Base: domain.Base{ID: id}, Name: name}
}

func newTestManager(sched Scheduler, maxPending int, onExpire func(Update[domain.User])) *Manager[domain.User] {
	return NewManager[domain.User](Options{
		Timeout:    time.Second,
		MaxPending: maxPending,
		Scheduler:  sched,
	}, onExpire)
}

func TestConfirmRemovesRecordAndCancelsTimer(t *testing.T) {
	sched := &manualScheduler{}
	mgr := newTestManager(sched, 10, nil)

	mgr.Add("1", KindUpdate, u("1", "patched"), u("1", "original"))
	if !mgr.Confirm("1") {
		t.Fatalf("expected pending record to confirm")
	}
	if mgr.Confirm("1") {
		t.Fatalf("confirm must be terminal")
	}
	if sched.live() != 0 {
		t.Fatalf("expected timer cancelled on confirm")
	}
	if _, ok := mgr.Pending("1"); ok {
		t.Fatalf("expected record removed")
	}
}

func TestRollbackReturnsOriginal(t *testing.T) {
	mgr := newTestManager(&manualScheduler{}, 10, nil)
	mgr.Add("1", KindUpdate, u("1", "patched"), u("1", "original"))

	original, ok := mgr.Rollback("1")
	if !ok || original.Name != "original" {
		t.Fatalf("expected original snapshot back, got %+v ok=%v", original, ok)
	}
	if _, ok := mgr.Rollback("1"); ok {
		t.Fatalf("rollback must be terminal")
	}
}

func TestExpiryRollsBackThroughCallback(t *testing.T) {
	sched := &manualScheduler{}
	var expired []Update[domain.User]
	mgr := newTestManager(sched, 10, func(up Update[domain.User]) {
		expired = append(expired, up)
	})

	mgr.Add("1", KindDelete, u("1", ""), u("1", "kept"))
	sched.fireAll()

	if len(expired) != 1 || expired[0].Original.Name != "kept" {
		t.Fatalf("expected expiry callback with original snapshot, got %+v", expired)
	}
	if _, ok := mgr.Pending("1"); ok {
		t.Fatalf("expired record must be removed")
	}
}

func TestNewMutationSupersedesPendingTimer(t *testing.T) {
	sched := &manualScheduler{}
	var expired int
	mgr := newTestManager(sched, 10, func(Update[domain.User]) { expired++ })

	mgr.Add("1", KindUpdate, u("1", "v1"), u("1", "base"))
	mgr.Add("1", KindUpdate, u("1", "v2"), u("1", "base"))

	// The superseded timer firing must not roll back the newer record.
	sched.fireAll()
	if expired != 1 {
		t.Fatalf("expected exactly one expiry (the live record), got %d", expired)
	}
	if mgr.Len() != 0 {
		t.Fatalf("expected no pending records after expiry")
	}
}

func TestStaleTimerAfterConfirmIsIgnored(t *testing.T) {
	sched := &manualScheduler{}
	expired := 0
	mgr := newTestManager(sched, 10, func(Update[domain.User]) { expired++ })

	mgr.Add("1", KindUpdate, u("1", "v1"), u("1", "base"))
	mgr.Confirm("1")
	sched.fireAll()

	if expired != 0 {
		t.Fatalf("timer for a confirmed record must not fire a rollback")
	}
}

func TestPendingLimitRejectsSilently(t *testing.T) {
	mgr := newTestManager(&manualScheduler{}, 2, nil)
	if !mgr.Add("1", KindUpdate, u("1", "a"), u("1", "a0")) {
		t.Fatalf("first add should succeed")
	}
	if !mgr.Add("2", KindUpdate, u("2", "b"), u("2", "b0")) {
		t.Fatalf("second add should succeed")
	}
	if mgr.Add("3", KindUpdate, u("3", "c"), u("3", "c0")) {
		t.Fatalf("expected rejection beyond pending limit")
	}
	// Replacing an existing id is allowed at the limit.
	if !mgr.Add("1", KindUpdate, u("1", "a2"), u("1", "a0")) {
		t.Fatalf("replacement of a pending id must not count against the limit")
	}
}

func TestCloseRollsBackEverythingAndRejectsAdds(t *testing.T) {
	sched := &manualScheduler{}
	mgr := newTestManager(sched, 10, nil)
	mgr.Add("1", KindUpdate, u("1", "a"), u("1", "a0"))
	mgr.Add("2", KindDelete, u("2", ""), u("2", "b0"))

	rolled := mgr.Close()
	if len(rolled) != 2 {
		t.Fatalf("expected both pending updates returned, got %d", len(rolled))
	}
	if sched.live() != 0 {
		t.Fatalf("expected all timers cancelled on close")
	}
	if mgr.Add("3", KindUpdate, u("3", "c"), u("3", "c0")) {
		t.Fatalf("closed manager must reject new updates")
	}
}
