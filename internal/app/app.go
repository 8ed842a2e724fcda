// Package app wires the mentorship engine from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alem-hub/mentorship-hub/config"
	"github.com/alem-hub/mentorship-hub/internal/application/exams"
	"github.com/alem-hub/mentorship-hub/internal/application/lifecycle"
	"github.com/alem-hub/mentorship-hub/internal/application/objectives"
	"github.com/alem-hub/mentorship-hub/internal/application/profiles"
	"github.com/alem-hub/mentorship-hub/internal/application/rating"
	"github.com/alem-hub/mentorship-hub/internal/application/scheduling"
	"github.com/alem-hub/mentorship-hub/internal/domain/exam"
	"github.com/alem-hub/mentorship-hub/internal/domain/feedback"
	"github.com/alem-hub/mentorship-hub/internal/domain/meeting"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorprofile"
	"github.com/alem-hub/mentorship-hub/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-hub/internal/domain/objective"
	"github.com/alem-hub/mentorship-hub/internal/domain/shared"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/locking"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/messaging"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/mentorship-hub/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/mentorship-hub/pkg/logger"
	"github.com/alem-hub/mentorship-hub/pkg/retry"
	"github.com/alem-hub/mentorship-hub/pkg/timeutil"
)

// App holds the wired services and the resources they depend on.
type App struct {
	Config *config.Config
	Log    *logger.Logger
	Events shared.EventBus

	Lifecycle  *lifecycle.Manager
	Scheduler  *scheduling.Scheduler
	Objectives *objectives.Tracker
	Ratings    *rating.Aggregator
	Profiles   *profiles.Service
	Exams      *exams.Service

	db      *postgres.Connection
	redis   *goredis.Client
	closers []func() error
}

// Options override collaborators that are otherwise built from config.
type Options struct {
	Clock timeutil.Clock
	NewID func() string
}

// ══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION
// ══════════════════════════════════════════════════════════════════════════════

// New connects the configured backends and builds every service. The caller
// owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (_ *App, err error) {
	if cfg.Features == nil {
		cfg.Features = config.NewFeatureFlags(cfg.FeatureSwitches)
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.Storage.Driver == config.DriverPostgres {
		if err := a.connectPostgres(ctx); err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.NewMigrator(a.db).Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
	}
	if cfg.Redis.Enabled {
		if err := a.connectRedis(); err != nil {
			return nil, err
		}
	}

	bus, err := a.buildEventBus()
	if err != nil {
		return nil, err
	}
	a.Events = bus
	if err := bus.SubscribeAll(a.logEvent); err != nil {
		return nil, fmt.Errorf("subscribe event log: %w", err)
	}

	var locker shared.Locker = locking.NewKeyedMutex()
	if a.redis != nil {
		locker = redis.NewLocker(a.redis, cfg.Redis.LockTTL, 0, log)
	}

	s := a.stores()
	a.wireServices(s, locker, opts)

	log.Info("mentorship engine ready",
		logger.String("storage", cfg.Storage.Driver),
		logger.Bool("redis", a.redis != nil),
		logger.Any("features", cfg.Features.All()),
	)
	return a, nil
}

func (a *App) connectPostgres(ctx context.Context) error {
	cfg := a.Config.Database
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.URL
	pgCfg.MaxConns = cfg.MaxConns
	pgCfg.MinConns = cfg.MinConns
	pgCfg.ConnectTimeout = cfg.ConnectTimeout

	r := retry.New(
		retry.WithMaxAttempts(max(cfg.RetryAttempts, 1)),
		retry.WithInitialDelay(500*time.Millisecond),
		retry.WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			a.Log.Warn("postgres connect failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)
	conn, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.db = conn
	a.closers = append(a.closers, func() error {
		conn.Close()
		return nil
	})

	return nil
}

func (a *App) connectRedis() error {
	cfg := a.Config.Redis
	rCfg := redis.DefaultConfig()
	rCfg.Host = cfg.Host
	rCfg.Port = cfg.Port
	rCfg.Password = cfg.Password
	rCfg.DB = cfg.DB

	client, err := redis.NewClient(rCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return nil
}

func (a *App) buildEventBus() (shared.EventBus, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = a.Log

	if a.Config.Features.IsEnabled(config.FeatureRedisEventBus, nil) {
		if a.redis == nil {
			return nil, errors.New("redis event bus requires redis")
		}
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(a.redis),
			LocalBusConfig: local,
			Logger:         a.Log,
		})
		if err != nil {
			return nil, fmt.Errorf("start redis event bus: %w", err)
		}
		a.closers = append(a.closers, bus.Close)
		return bus, nil
	}

	bus := messaging.NewInMemoryEventBus(local)
	a.closers = append(a.closers, bus.Close)
	return bus, nil
}

func (a *App) logEvent(e shared.Event) error {
	a.Log.Debug("domain event",
		logger.EventType(string(e.EventType())),
		logger.String("aggregate_id", e.AggregateID()),
	)
	return nil
}

// Migrate applies pending schema migrations, or reverts the latest one when
// down is set. Cached records are dropped afterwards so no instance reads a
// document from before the change.
func Migrate(ctx context.Context, cfg *config.Config, log *logger.Logger, down bool) error {
	if cfg.Storage.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate: storage driver is %q, not postgres", cfg.Storage.Driver)
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{Config: cfg, Log: log}
	defer a.Close()

	if err := a.connectPostgres(ctx); err != nil {
		return err
	}
	m := postgres.NewMigrator(a.db)
	if down {
		if err := m.Rollback(ctx); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	} else if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if cfg.Redis.Enabled {
		if err := a.connectRedis(); err != nil {
			return err
		}
		if err := redis.NewCache(a.redis).DeleteByPattern(ctx, redis.RecordPattern("")); err != nil {
			return fmt.Errorf("flush record cache: %w", err)
		}
	}
	log.Info("migrations done", logger.Bool("down", down))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

type stores struct {
	mentorships mentorship.Repository
	meetings    meeting.Repository
	objectives  objective.Repository
	feedback    feedback.Repository
	profiles    mentorprofile.Repository
	exams       exam.CatalogRepository
	assignments exam.AssignmentRepository
}

func (a *App) stores() stores {
	return stores{
		mentorships: collection(a, mentorship.Schema, func() *mentorship.Mentorship { return new(mentorship.Mentorship) }),
		meetings:    collection(a, meeting.Schema, func() *meeting.Meeting { return new(meeting.Meeting) }),
		objectives:  collection(a, objective.Schema, func() *objective.Objective { return new(objective.Objective) }),
		feedback:    collection(a, feedback.Schema, func() *feedback.Feedback { return new(feedback.Feedback) }),
		profiles:    collection(a, mentorprofile.Schema, func() *mentorprofile.Profile { return new(mentorprofile.Profile) }),
		exams:       collection(a, exam.CatalogSchema, func() *exam.Exam { return new(exam.Exam) }),
		assignments: collection(a, exam.AssignmentSchema, func() *exam.Assignment { return new(exam.Assignment) }),
	}
}

// collection builds the gateway adapter for one schema: postgres or memory,
// behind the Redis record cache when Redis is enabled.
func collection[R shared.Record[R]](a *App, schema shared.Schema[R], newRecord func() R) shared.Collection[R] {
	var c shared.Collection[R]
	if a.db != nil {
		c = postgres.NewCollection(a.db, schema, newRecord)
	} else {
		c = memory.NewCollection(schema)
	}
	if a.redis != nil {
		c = redis.NewCachedCollection(c, redis.NewCache(a.redis), schema.Name, a.Config.Redis.CacheTTL, newRecord, a.Log)
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICES
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) wireServices(s stores, locker shared.Locker, opts Options) {
	cfg := a.Config
	clock := timeutil.OrReal(opts.Clock)

	a.Lifecycle = lifecycle.NewManager(lifecycle.Dependencies{
		Mentorships: s.mentorships,
		Meetings:    s.meetings,
		Objectives:  s.objectives,
		Locker:      locker,
		Events:      a.Events,
		Clock:       clock,
		Logger:      a.Log,
		NewID:       opts.NewID,
	}, lifecycle.Config{
		DefaultFrequency: mentorship.Frequency(cfg.Mentorship.DefaultFrequency),
		MaxPageSize:      cfg.Mentorship.MaxPageSize,
		UniqueActivePair: cfg.Features.IsEnabled(config.FeatureUniqueActivePair, nil),
		AutoComplete:     cfg.Features.IsEnabled(config.FeatureAutoCompleteMentorship, nil),
	})

	a.Scheduler = scheduling.NewScheduler(scheduling.Dependencies{
		Meetings:    s.meetings,
		Mentorships: a.Lifecycle,
		Locker:      locker,
		Events:      a.Events,
		Clock:       clock,
		Logger:      a.Log,
		NewID:       opts.NewID,
	}, cfg.Mentorship.MaxPageSize)

	a.Objectives = objectives.NewTracker(objectives.Dependencies{
		Objectives:  s.objectives,
		Mentorships: a.Lifecycle,
		Locker:      locker,
		Events:      a.Events,
		Clock:       clock,
		Logger:      a.Log,
		NewID:       opts.NewID,
	})

	a.Profiles = profiles.NewService(s.profiles, a.Events, clock, a.Log)

	a.Ratings = rating.NewAggregator(rating.Dependencies{
		Feedback:    s.feedback,
		Mentorships: a.Lifecycle,
		Profiles:    a.Profiles,
		Locker:      locker,
		Events:      a.Events,
		Clock:       clock,
		Logger:      a.Log,
		NewID:       opts.NewID,
	})

	a.Exams = exams.NewService(exams.Dependencies{
		Catalog:     s.exams,
		Assignments: s.assignments,
		Mentorships: a.Lifecycle,
		Locker:      locker,
		Events:      a.Events,
		Clock:       clock,
		Logger:      a.Log,
		NewID:       opts.NewID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Health pings the configured backends.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		st, err := a.db.Health(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		} else {
			a.Log.Debug("postgres healthy",
				logger.Latency(st.Latency),
				logger.Int("conns_acquired", int(st.Acquired)),
				logger.Int("conns_idle", int(st.Idle)),
				logger.Int("conns_max", int(st.Max)),
			)
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
