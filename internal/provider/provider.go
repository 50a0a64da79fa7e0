// Package provider composes the entity stores behind a single facade: cache
// warming after sign-in, periodic consistency checking over both collections,
// and repair of dangling cross-store references.
package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cachecore/internal/bus"
	"cachecore/internal/logging"
	"cachecore/internal/observability"
	"cachecore/internal/remote"
	"cachecore/internal/store"
	"cachecore/pkg/domain"
)

// Options configure provider behaviour.
type Options struct {
	// WarmBatchSize bounds how many loaders run concurrently during warming.
	WarmBatchSize int
	// WarmBatchDelay is the pause between warm batches.
	WarmBatchDelay time.Duration
	// CheckInterval is the period between consistency checks in Run.
	CheckInterval time.Duration
	// SessionWait bounds how long WarmCaches waits for an authenticated
	// session before giving up.
	SessionWait time.Duration
}

// Defaults applied when an option is zero.
const (
	DefaultWarmBatchSize = 3
	DefaultCheckInterval = 5 * time.Minute
	DefaultSessionWait   = 30 * time.Second
)

func (o Options) normalized() Options {
	if o.WarmBatchSize <= 0 {
		o.WarmBatchSize = DefaultWarmBatchSize
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.SessionWait <= 0 {
		o.SessionWait = DefaultSessionWait
	}
	return o
}

// Report is the outcome of one consistency check.
type Report struct {
	Consistent bool
	Issues     []domain.Violation
}

// Provider owns both stores, the shared bus and the rules engine. It is
// constructed explicitly; there is no package-level instance.
type Provider struct {
	users   *store.Users
	tasks   *store.Tasks
	events  *bus.Bus
	engine  *domain.RulesEngine
	session remote.Session
	opts    Options
	log     logging.Logger
	metrics observability.MetricsRecorder
	clock   func() time.Time

	unsubscribe []func()

	mu         sync.Mutex
	lastReport *Report
	warmed     bool
	audit      []AuditEntry
}

// Config carries the provider's collaborators.
type Config struct {
	Users   *store.Users
	Tasks   *store.Tasks
	Bus     *bus.Bus
	Engine  *domain.RulesEngine
	Session remote.Session
	Options Options
	Logger  logging.Logger
	Metrics observability.MetricsRecorder
	Clock   func() time.Time
}

// New constructs a provider. When no rules engine is supplied, one is built
// with the standard rule set.
func New(cfg Config) (*Provider, error) {
	if cfg.Users == nil || cfg.Tasks == nil {
		return nil, fmt.Errorf("provider requires both stores")
	}
	if cfg.Bus == nil {
		cfg.Bus = bus.New()
	}
	if cfg.Engine == nil {
		cfg.Engine = domain.NewRulesEngine()
		cfg.Engine.Register(TaskReferencesRule())
		cfg.Engine.Register(DuplicateIDsRule())
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.Noop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	p := &Provider{
		users:   cfg.Users,
		tasks:   cfg.Tasks,
		events:  cfg.Bus,
		engine:  cfg.Engine,
		session: cfg.Session,
		opts:    cfg.Options.normalized(),
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
	}
	p.watchUserChanges()
	return p, nil
}

// storeView adapts the stores to the rules engine's read contract.
type storeView struct {
	users *store.Users
	tasks *store.Tasks
}

func (v storeView) ListUsers() []domain.User { return v.users.List() }
func (v storeView) ListTasks() []domain.Task { return v.tasks.List() }

func (v storeView) FindUser(id string) (domain.User, bool) { return v.users.GetByID(id) }
func (v storeView) FindTask(id string) (domain.Task, bool) { return v.tasks.GetByID(id) }

func (v storeView) CollectionIDs(entity domain.EntityType) []string {
	switch entity {
	case domain.EntityUser:
		return v.users.Engine().IDs()
	case domain.EntityTask:
		return v.tasks.Engine().IDs()
	}
	return nil
}

type warmLoader struct {
	name string
	load func(context.Context) error
}

// WarmCaches populates both stores in priority order, in bounded concurrent
// batches. When a session collaborator is configured, warming waits until it
// reports an authenticated user.
func (p *Provider) WarmCaches(ctx context.Context) error {
	if err := p.awaitSession(ctx); err != nil {
		return err
	}
	started := p.clock()
	loaders := p.warmLoaders(ctx)
	var firstErr error
	for len(loaders) > 0 {
		batch := loaders
		if len(batch) > p.opts.WarmBatchSize {
			batch = batch[:p.opts.WarmBatchSize]
		}
		loaders = loaders[len(batch):]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, loader := range batch {
			wg.Add(1)
			go func(i int, loader warmLoader) {
				defer wg.Done()
				errs[i] = loader.load(ctx)
			}(i, loader)
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				p.log.Warn("cache warm loader failed", "loader", batch[i].name, "error", err.Error())
				if firstErr == nil {
					firstErr = fmt.Errorf("warm %s: %w", batch[i].name, err)
				}
			}
		}

		if len(loaders) > 0 && p.opts.WarmBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.opts.WarmBatchDelay):
			}
		}
	}
	p.mu.Lock()
	p.warmed = firstErr == nil
	p.mu.Unlock()
	p.metrics.Observe(ctx, "provider.warm", firstErr == nil, p.clock().Sub(started))
	return firstErr
}

func (p *Provider) warmLoaders(ctx context.Context) []warmLoader {
	loaders := []warmLoader{}
	if p.session != nil {
		if id, _, ok := p.session.CurrentUser(ctx); ok && id != "" {
			loaders = append(loaders, warmLoader{name: "current_user", load: func(ctx context.Context) error {
				res := p.users.FetchOne(ctx, id, false)
				return errOf(res.Err)
			}})
		}
	}
	loaders = append(loaders,
		warmLoader{name: "users", load: func(ctx context.Context) error {
			return errOf(p.users.FetchAll(ctx, false).Err)
		}},
		warmLoader{name: "tasks", load: func(ctx context.Context) error {
			return errOf(p.tasks.FetchAll(ctx, false).Err)
		}},
	)
	return loaders
}

func errOf(err *remote.Error) error {
	if err == nil {
		return nil
	}
	return err
}

// awaitSession blocks until the session collaborator reports an authenticated
// user. A nil session means warming is unconditional.
func (p *Provider) awaitSession(ctx context.Context) error {
	if p.session == nil {
		return nil
	}
	deadline := p.clock().Add(p.opts.SessionWait)
	for {
		if _, _, ok := p.session.CurrentUser(ctx); ok {
			return nil
		}
		if !p.clock().Before(deadline) {
			return fmt.Errorf("no authenticated session after %s", p.opts.SessionWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// CheckConsistency evaluates the registered rules over both stores. Rule
// violations are reported, never returned as errors; the error return covers
// rule execution failures only.
func (p *Provider) CheckConsistency(ctx context.Context) (Report, error) {
	started := p.clock()
	result, err := p.engine.Evaluate(ctx, storeView{users: p.users, tasks: p.tasks}, nil)
	p.metrics.Observe(ctx, "provider.check", err == nil, p.clock().Sub(started))
	if err != nil {
		return Report{}, fmt.Errorf("evaluate rules: %w", err)
	}
	report := Report{Consistent: len(result.Violations) == 0, Issues: result.Violations}
	p.mu.Lock()
	p.lastReport = &report
	p.mu.Unlock()
	if !report.Consistent {
		p.log.Warn("consistency check found issues",
			"count", len(report.Issues), "blocking", result.HasBlocking())
	}
	return report, nil
}

// FixConsistencyIssues runs a check and repairs every repairable violation by
// clearing the dangling reference field through a normal task update.
// Blocking violations are reported but never auto-repaired. It returns the
// number of repairs applied.
func (p *Provider) FixConsistencyIssues(ctx context.Context) (int, Report, error) {
	report, err := p.CheckConsistency(ctx)
	if err != nil {
		return 0, Report{}, err
	}
	repaired := 0
	for _, issue := range report.Issues {
		if issue.Field == "" || issue.Entity != domain.EntityTask || issue.Severity == domain.SeverityBlock {
			continue
		}
		patch, err := domain.ClearReference(issue.Field)
		if err != nil {
			p.log.Error("build repair patch", "rule", issue.Rule, "field", string(issue.Field), "error", err.Error())
			continue
		}
		res := p.tasks.Update(ctx, issue.EntityID, patch)
		if res.Err != nil {
			p.log.Warn("repair failed", "task_id", issue.EntityID, "field", string(issue.Field), "kind", string(res.Err.Kind))
			continue
		}
		repaired++
	}
	if repaired > 0 {
		p.log.Info("repaired dangling references", "count", repaired)
		report, err = p.CheckConsistency(ctx)
		if err != nil {
			return repaired, Report{}, err
		}
	}
	return repaired, report, nil
}

// Run warms the caches, performs one immediate consistency check, then
// checks at the configured interval until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) error {
	if err := p.WarmCaches(ctx); err != nil {
		p.log.Warn("cache warming incomplete", "error", err.Error())
	}
	if _, err := p.CheckConsistency(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(p.opts.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.CheckConsistency(ctx); err != nil {
				p.log.Error("consistency check failed", "error", err.Error())
			}
		}
	}
}

// LastReport returns the most recent consistency report, if any check ran.
func (p *Provider) LastReport() (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastReport == nil {
		return Report{}, false
	}
	return *p.lastReport, true
}

// Users exposes the user store facade.
func (p *Provider) Users() *store.Users { return p.users }

// Tasks exposes the task store facade.
func (p *Provider) Tasks() *store.Tasks { return p.tasks }

// Bus exposes the shared event bus for additional subscribers.
func (p *Provider) Bus() *bus.Bus { return p.events }

// Status aggregates per-store freshness, activity and recorded errors.
type Status struct {
	Warmed     bool
	UsersFresh bool
	TasksFresh bool
	Busy       bool
	Errors     []*remote.Error
	Consistent bool
	Checked    bool
}

// Status snapshots the provider's view of both stores.
func (p *Provider) Status() Status {
	usersOps := p.users.OpState()
	tasksOps := p.tasks.OpState()
	st := Status{
		UsersFresh: p.users.Engine().Fresh(),
		TasksFresh: p.tasks.Engine().Fresh(),
		Busy:       usersOps.Busy() || tasksOps.Busy(),
		Errors:     append(usersOps.Errors(), tasksOps.Errors()...),
	}
	p.mu.Lock()
	st.Warmed = p.warmed
	if p.lastReport != nil {
		st.Checked = true
		st.Consistent = p.lastReport.Consistent
	}
	p.mu.Unlock()
	return st
}

// Refresh forces both collections to reload from the collaborators.
func (p *Provider) Refresh(ctx context.Context) error {
	if res := p.users.FetchAll(ctx, true); res.Err != nil {
		return fmt.Errorf("refresh users: %w", res.Err)
	}
	if res := p.tasks.FetchAll(ctx, true); res.Err != nil {
		return fmt.Errorf("refresh tasks: %w", res.Err)
	}
	return nil
}

// ClearCaches invalidates both collections without dropping data.
func (p *Provider) ClearCaches() {
	p.users.Invalidate()
	p.tasks.Invalidate()
}

// Close tears both stores down, rolling back pending optimistic mutations.
func (p *Provider) Close() {
	for _, off := range p.unsubscribe {
		off()
	}
	p.tasks.Close()
	p.users.Close()
}
