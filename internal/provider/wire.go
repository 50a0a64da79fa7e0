package provider

import (
	"os"

	"github.com/rs/zerolog"

	"cachecore/internal/bus"
	"cachecore/internal/config"
	"cachecore/internal/logging"
	"cachecore/internal/observability"
	"cachecore/internal/optimistic"
	"cachecore/internal/remote"
	"cachecore/internal/remote/httpapi"
	"cachecore/internal/store"
	"cachecore/pkg/domain"
)

// Runtime carries collaborator overrides for FromConfig. Zero-value fields
// are filled with production defaults: a zerolog logger on stderr, an expvar
// metrics recorder and net/http transport.
type Runtime struct {
	Logger   logging.Logger
	Metrics  observability.MetricsRecorder
	Doer     httpapi.Doer
	Session  remote.Session
	Reporter remote.Reporter
}

// FromConfig wires the complete engine from environment-driven settings:
// HTTP sources for both collections, the shared bus, typed stores and the
// provider facade.
func FromConfig(cfg config.Config, rt Runtime) (*Provider, error) {
	if rt.Logger == nil {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		rt.Logger = logging.NewZerolog(os.Stderr, level)
	}
	if rt.Metrics == nil {
		rt.Metrics = observability.NewExpvarRecorder("")
	}

	var clientOpts []httpapi.Option
	if rt.Doer != nil {
		clientOpts = append(clientOpts, httpapi.WithDoer(rt.Doer))
	}
	userSource := httpapi.New[domain.User, domain.UserPatch](cfg.APIBaseURL, "users", clientOpts...)
	taskSource := httpapi.New[domain.Task, domain.TaskPatch](cfg.APIBaseURL, "tasks", clientOpts...)

	cache := store.CacheConfig{
		TTL:      cfg.CacheTTL,
		MaxAge:   cfg.ProfileMaxAge,
		MaxSize:  cfg.ProfileMaxSize,
		PageSize: cfg.PageSize,
	}
	pending := optimistic.Options{
		Timeout:    cfg.OptimisticTimeout,
		MaxPending: cfg.MaxPendingUpdates,
	}

	shared := bus.New()
	users := store.NewUsers(store.UsersOptions{
		Source:     userSource,
		Cache:      cache,
		Optimistic: pending,
		Reporter:   rt.Reporter,
		Bus:        shared,
		Logger:     rt.Logger,
		Metrics:    rt.Metrics,
	})
	tasks := store.NewTasks(store.TasksOptions{
		Source:     taskSource,
		Cache:      cache,
		Optimistic: pending,
		Reporter:   rt.Reporter,
		Bus:        shared,
		Users:      users.GetByID,
		Logger:     rt.Logger,
		Metrics:    rt.Metrics,
	})

	return New(Config{
		Users:   users,
		Tasks:   tasks,
		Bus:     shared,
		Session: rt.Session,
		Options: Options{
			WarmBatchSize:  cfg.WarmBatchSize,
			WarmBatchDelay: cfg.WarmBatchDelay,
			CheckInterval:  cfg.CheckInterval,
		},
		Logger:  rt.Logger,
		Metrics: rt.Metrics,
	})
}
