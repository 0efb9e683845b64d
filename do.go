package surrealmigrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/surrealdb/surrealmigrate/pkg/backup"
	"github.com/surrealdb/surrealmigrate/pkg/bulk"
	"github.com/surrealdb/surrealmigrate/pkg/confirm"
	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/store/surrealstore"
)

// ErrLocked is returned when another run holds the lock file.
var ErrLocked = errors.New("another migration run holds the lock")

// PlanFunc builds the migration to run. source reads the configured
// source container, or the target when none is configured.
type PlanFunc func(ctx context.Context, source store.Finder) (Migration, error)

// Static returns a PlanFunc that always returns m.
func Static(m Migration) PlanFunc {
	return func(context.Context, store.Finder) (Migration, error) {
		return m, nil
	}
}

// Do runs the migration plan builds against the stores cfg names.
func Do(ctx context.Context, cfg *Config, log logger.Logger, plan PlanFunc) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	confirmer, err := newConfirmer(cfg)
	if err != nil {
		return nil, err
	}

	unlock, err := lock(cfg.LockFile)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target, closeTarget, err := surrealstore.Open(ctx, cfg.Target.surreal(), log)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	defer closeTarget()

	var source store.Finder
	if cfg.Source != nil {
		s, closeSource, err := surrealstore.Open(ctx, cfg.Source.surreal(), log)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		defer closeSource()
		source = store.NewContainer(s)
	}

	return execute(ctx, cfg, deps{
		target:    target,
		source:    source,
		confirmer: confirmer,
		log:       log,
	}, plan)
}

// deps are the connected collaborators of one run.
type deps struct {
	target    store.Client
	source    store.Finder
	confirmer confirm.Confirmer
	log       logger.Logger
}

func execute(ctx context.Context, cfg *Config, d deps, plan PlanFunc) (*Report, error) {
	container := store.NewContainer(d.target)
	source := d.source
	if source == nil {
		source = container
	}

	m, err := plan(ctx, source)
	if err != nil {
		return nil, err
	}

	engine, reg := newEngine(cfg, container, d)
	report, err := engine.Run(ctx, m)

	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, reg); werr != nil {
			d.log.Warn("Failed to write metrics", "path", cfg.MetricsFile, "err", werr.Error())
		}
	}
	return report, err
}

func newEngine(cfg *Config, container *store.Container, d deps) (*Engine, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	writer := bulk.New(container)
	writer.BatchSize = cfg.BatchSize
	writer.Retryer = cfg.retryer()
	writer.RetryAllFailures = cfg.RetryAllFailures
	writer.Logger = d.log
	writer.Metrics = bulk.NewMetrics(reg)

	engine := NewEngine(container, writer, d.confirmer)
	engine.Logger = d.log
	engine.DryRun = cfg.DryRun
	if cfg.BackupDir != "" {
		engine.Backup = &backup.Dir{
			Path:      cfg.BackupDir,
			Namespace: cfg.Target.Namespace,
			Database:  cfg.Target.Database,
			Container: cfg.Target.Container,
			Logger:    d.log,
		}
	}
	return engine, reg
}

func newConfirmer(cfg *Config) (confirm.Confirmer, error) {
	if cfg.AssumeYes || cfg.DryRun {
		return confirm.Always(true), nil
	}
	return confirm.NewTerminal()
}

func lock(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return func() { _ = fl.Unlock() }, nil
}
