// Package control wires the collector together and owns the process-level
// verdict: which exit code a run produces.
package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mfenwick/racecollect/internal/collect/coverage"
	"github.com/mfenwick/racecollect/internal/collect/job"
	"github.com/mfenwick/racecollect/internal/collect/region"
	"github.com/mfenwick/racecollect/internal/collect/retry"
	"github.com/mfenwick/racecollect/internal/core/config"
	"github.com/mfenwick/racecollect/internal/core/domain"
	"github.com/mfenwick/racecollect/internal/infra/api"
	redisclient "github.com/mfenwick/racecollect/internal/infra/redis"
	"github.com/mfenwick/racecollect/internal/infra/storage/postgres"
	"github.com/mfenwick/racecollect/internal/status"
)

// Exit codes for the process.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// Runner holds every wired dependency for one invocation.
type Runner struct {
	cfg    *config.AppConfig
	log    *slog.Logger
	runID  uuid.UUID
	client *api.Client
	coord  *job.Coordinator
	db     *postgres.DB
	redis  *redisclient.Client
}

// NewRunner builds a runner from configuration. Database and Redis are
// optional: an empty URL skips them and the run simply goes unrecorded.
func NewRunner(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Runner, error) {
	r := &Runner{
		cfg:   cfg,
		log:   log,
		runID: uuid.New(),
	}

	r.client = api.NewClient(cfg.API.BaseURL, cfg.API.Timeout.Std())

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		}, "migrations")
		if err != nil {
			return nil, err
		}
		r.db = db
		log.Info("run history enabled")
	}

	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(redisclient.Config{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			if r.db != nil {
				_ = r.db.Close()
			}
			return nil, err
		}
		r.redis = rc
		log.Info("failed-region queue enabled")
	}

	budget := retry.Budget{
		Initial:  cfg.Retry.InitialBackoff.Std(),
		Max:      cfg.Retry.MaxBackoff.Std(),
		MaxTotal: cfg.Retry.MaxTotalWait.Std(),
	}
	if err := budget.Validate(); err != nil {
		r.Close()
		return nil, err
	}

	exec := region.NewExecutor(r.client, budget, region.Options{
		RaceType:      cfg.Scrape.RaceType,
		Betfair:       *cfg.Scrape.Betfair,
		FetchStats:    *cfg.Scrape.FetchStats,
		FetchProfiles: *cfg.Scrape.FetchProfiles,
	}, log)

	var policy coverage.Policy = coverage.ThresholdPolicy{Threshold: cfg.Coverage.Threshold}
	if cfg.Coverage.Floor > 0 {
		policy = coverage.StrictPolicy{Threshold: cfg.Coverage.Threshold, Floor: cfg.Coverage.Floor}
	}

	r.coord = job.New(exec, policy, r.newRecorder(), log)
	return r, nil
}

// Close releases external connections.
func (r *Runner) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

// Run executes the requested job and returns the process exit code. Data
// collected by succeeding regions stays persisted regardless of the verdict;
// failure is reported, never rolled back.
func (r *Runner) Run(ctx context.Context, req domain.JobRequest) int {
	log := r.log.With("run_id", r.runID.String())

	if req.Kind == domain.JobHealth {
		return r.runHealth(ctx, log)
	}

	var srv *status.Server
	if r.cfg.Server.Port > 0 {
		srv = status.NewServer(r.cfg.Server.Port, status.RunInfo{
			RunID:     r.runID.String(),
			Job:       req.Kind,
			StartedAt: time.Now(),
		})
		srv.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
		}()
	}

	log.Info("job starting", "job", string(req.Kind), "regions", req.Regions)

	results, ok := r.coord.Run(ctx, req)
	if ok {
		log.Info("job complete, all regions collected", "phases", len(results))
		return ExitOK
	}

	log.Error("job finished with failures", "phases", len(results))
	return ExitFailed
}
