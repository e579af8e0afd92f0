package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/haukened/rr-inspect/internal/inspect/common/clock"
	"github.com/haukened/rr-inspect/internal/inspect/common/log"
	"github.com/haukened/rr-inspect/internal/inspect/config"
	"github.com/haukened/rr-inspect/internal/inspect/domain"
	"github.com/haukened/rr-inspect/internal/inspect/repos/history"
	"github.com/haukened/rr-inspect/internal/inspect/repos/history/bolt"
	"github.com/haukened/rr-inspect/internal/inspect/repos/records"
	"github.com/haukened/rr-inspect/internal/inspect/repos/rules"
	"github.com/haukened/rr-inspect/internal/inspect/repos/rules/bloom"
	"github.com/haukened/rr-inspect/internal/inspect/repos/rules/lru"
	"github.com/haukened/rr-inspect/internal/inspect/services/authority"
	"github.com/haukened/rr-inspect/internal/inspect/services/dispatch"
	"github.com/haukened/rr-inspect/internal/inspect/services/inspection"
	"github.com/haukened/rr-inspect/internal/inspect/services/stats"
)

// Application holds all the components of one inspection run.
type Application struct {
	config    *config.AppConfig
	clock     clock.Clock
	logger    log.Logger
	authority *authority.Authority
	stats     *stats.Aggregator
	reader    *records.Reader
	history   history.Store // nil when history is disabled
}

// Report is the outcome of a completed run.
type Report struct {
	TakenAt  time.Time
	Snapshot domain.TrafficSnapshot
	Tasks    dispatch.Counts
	Records  records.Stats
}

// buildApplication constructs all components and loads the rule file.
// A rule file that cannot be read is fatal to the run.
func buildApplication(cfg *config.AppConfig, rulesPath string) (*Application, error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	cache, err := lru.New(cfg.RuleCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule cache: %w", err)
	}

	auth := authority.New(authority.Options{
		RateLimit: cfg.RateLimit,
		Rules: rules.Options{
			Factory: bloom.NewFactory(),
			FPRate:  cfg.BloomFPRate,
			Cache:   cache,
		},
		Logger: logger,
	})
	if err := auth.LoadRulesFile(rulesPath); err != nil {
		return nil, fmt.Errorf("failed to load security rules: %w", err)
	}

	app := &Application{
		config:    cfg,
		clock:     clk,
		logger:    logger,
		authority: auth,
		stats:     stats.New(cfg.SuspicionThreshold),
		reader: records.NewReader(records.Options{
			Clock:   clk,
			Logger:  logger,
			Limiter: records.NewLimiter(cfg.IngestRate),
		}),
	}

	if cfg.HistoryDB != "" {
		store, err := bolt.New(cfg.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open history db: %w", err)
		}
		app.history = store
	}
	return app, nil
}

// Run streams the records file through the worker pool, drains it and
// writes the reports. Cancelling ctx stops reading; records already queued
// are still inspected within the drain timeout.
func (app *Application) Run(ctx context.Context, recordsPath string, out io.Writer) (Report, error) {
	pool := dispatch.New(context.Background(), dispatch.Options{
		Workers:   app.config.Workers,
		QueueSize: app.config.QueueSize,
		Logger:    app.logger,
	})
	deps := inspection.Deps{
		Authority: app.authority,
		Stats:     app.stats,
		Clock:     app.clock,
		Logger:    app.logger,
	}

	app.logger.Info(map[string]any{"records": recordsPath}, "Starting record inspection pipeline")
	readStats, readErr := app.reader.EachFile(ctx, recordsPath, func(r domain.Record) error {
		return pool.Submit(inspection.New(r, deps))
	})
	switch {
	case readErr == nil:
	case errors.Is(readErr, context.Canceled):
		app.logger.Info(map[string]any{"records_read": readStats.Records}, "Record stream interrupted, draining")
		readErr = nil
	default:
		app.logger.Error(map[string]any{"error": readErr.Error()}, "Failed reading records, draining")
	}

	counts, drainErr := pool.DrainAndAwait(app.config.DrainTimeout)
	if drainErr != nil && !errors.Is(drainErr, dispatch.ErrDrainTimeout) {
		app.logger.Warn(map[string]any{"error": drainErr.Error()}, "Drain finished with errors")
	}
	if readErr != nil {
		return Report{Tasks: counts, Records: readStats}, readErr
	}

	app.logger.Info(map[string]any{
		"submitted": counts.Submitted,
		"completed": counts.Completed,
		"faulted":   counts.Faulted,
		"abandoned": counts.Abandoned,
		"skipped":   readStats.Skipped,
	}, "Processing complete, generating reports")

	rep := Report{
		TakenAt:  app.clock.Now(),
		Snapshot: app.stats.Snapshot(),
		Tasks:    counts,
		Records:  readStats,
	}
	if err := app.publish(rep, out); err != nil {
		return rep, err
	}
	return rep, nil
}

// publish writes the JSON report, prints the summary and stores history.
func (app *Application) publish(rep Report, out io.Writer) error {
	if err := history.ExportFile(app.config.StatsFile, rep.Snapshot, rep.TakenAt); err != nil {
		return err
	}
	app.logger.Info(map[string]any{"path": app.config.StatsFile}, "Statistics exported")

	history.Summary(out, rep.Snapshot)

	if app.history != nil {
		if err := app.history.Save(rep.TakenAt, rep.Snapshot); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
	}
	rs := app.authority.RuleStats()
	app.logger.Debug(map[string]any{
		"bloom_rejects": rs.BloomRejects,
		"set_lookups":   rs.SetLookups,
		"cache_hits":    rs.Cache.Hits,
		"cache_misses":  rs.Cache.Misses,
	}, "Rule lookup statistics")
	return nil
}

// Close releases the history store, if any.
func (app *Application) Close() error {
	if app.history == nil {
		return nil
	}
	return app.history.Close()
}
