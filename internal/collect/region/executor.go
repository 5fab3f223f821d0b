// Package region runs one job phase for a single region and isolates its
// failure from the rest of the run.
package region

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mfenwick/racecollect/internal/collect/metrics"
	"github.com/mfenwick/racecollect/internal/collect/retry"
	"github.com/mfenwick/racecollect/internal/core/domain"
	"github.com/mfenwick/racecollect/internal/infra/api"
)

// Caller is the slice of the API client the executor needs.
type Caller interface {
	ScrapeRacecards(ctx context.Context, req api.RacecardScrapeRequest) ([]byte, error)
	SyncRacecards(ctx context.Context, req api.RacecardSyncRequest) ([]byte, error)
	ScrapeResults(ctx context.Context, req api.ResultsScrapeRequest) ([]byte, error)
}

// Options carry the scrape knobs forwarded on every call.
type Options struct {
	RaceType      string // "flat", "jumps", "all"
	Betfair       bool
	FetchStats    bool
	FetchProfiles bool
}

// DefaultOptions matches the production cron invocation.
var DefaultOptions = Options{
	RaceType:      "all",
	Betfair:       true,
	FetchStats:    true,
	FetchProfiles: true,
}

// Executor runs one region through a phase. Each retried stage gets its own
// engine invocation with fresh attempt state: a transient persistence failure
// never re-triggers re-scraping.
type Executor struct {
	client Caller
	budget retry.Budget
	opts   Options
	log    *slog.Logger
}

// NewExecutor builds an executor.
func NewExecutor(client Caller, budget retry.Budget, opts Options, log *slog.Logger) *Executor {
	return &Executor{client: client, budget: budget, opts: opts, log: log}
}

// Run executes one region and never lets its failure escape as anything but
// a failed outcome. The caller keeps iterating regardless.
func (e *Executor) Run(ctx context.Context, region domain.Region, kind domain.JobKind, date string) domain.RegionOutcome {
	log := e.log.With("region", region, "job", string(kind), "date", date)

	switch kind {
	case domain.JobRacecards:
		return e.runRacecards(ctx, region, date, log)
	case domain.JobResults:
		return e.runResults(ctx, region, date, log)
	}
	return failed(region, fmt.Errorf("region executor cannot run job kind %q", kind))
}

func (e *Executor) runRacecards(ctx context.Context, region domain.Region, date string, log *slog.Logger) domain.RegionOutcome {
	// Stage (a): scrape the cards.
	eng := retry.New(e.budget, log)
	body, err := eng.Execute(ctx, "racecards/scrape", func(ctx context.Context) ([]byte, error) {
		metrics.RetryAttempts.WithLabelValues(string(region), "racecards/scrape").Inc()
		return e.client.ScrapeRacecards(ctx, api.RacecardScrapeRequest{
			Day:           date,
			Region:        string(region),
			FetchStats:    e.opts.FetchStats,
			FetchProfiles: e.opts.FetchProfiles,
		})
	})
	if err != nil {
		return failed(region, err)
	}

	var scraped api.RacecardScrapeResponse
	if err := json.Unmarshal(body, &scraped); err != nil {
		return failed(region, fmt.Errorf("decode racecard scrape response: %w", err))
	}

	// No racing scheduled is not an error; skip persistence entirely.
	if scraped.Races == 0 {
		log.Info("no racecards for region, nothing to sync")
		return domain.RegionOutcome{Region: region, Status: domain.RegionSucceeded}
	}

	// Stage (b): persist, with its own fresh retry state.
	eng = retry.New(e.budget, log)
	body, err = eng.Execute(ctx, "racecards/sync", func(ctx context.Context) ([]byte, error) {
		metrics.RetryAttempts.WithLabelValues(string(region), "racecards/sync").Inc()
		return e.client.SyncRacecards(ctx, api.RacecardSyncRequest{
			Data:       scraped.Data,
			ScrapeDate: scraped.Date,
		})
	})
	if err != nil {
		return failed(region, err)
	}

	var synced api.RacecardSyncResponse
	if err := json.Unmarshal(body, &synced); err != nil {
		return failed(region, fmt.Errorf("decode racecard sync response: %w", err))
	}

	entries := synced.EntriesCreated + synced.EntriesUpdated
	log.Info("racecards region complete",
		"races", scraped.Races, "entries_created", synced.EntriesCreated, "entries_updated", synced.EntriesUpdated)

	return domain.RegionOutcome{Region: region, Status: domain.RegionSucceeded, Primary: entries}
}

func (e *Executor) runResults(ctx context.Context, region domain.Region, date string, log *slog.Logger) domain.RegionOutcome {
	eng := retry.New(e.budget, log)
	body, err := eng.Execute(ctx, "results/scrape", func(ctx context.Context) ([]byte, error) {
		metrics.RetryAttempts.WithLabelValues(string(region), "results/scrape").Inc()
		return e.client.ScrapeResults(ctx, api.ResultsScrapeRequest{
			Date:     date,
			Region:   string(region),
			RaceType: e.opts.RaceType,
			Betfair:  e.opts.Betfair,
		})
	})
	if err != nil {
		return failed(region, err)
	}

	var res api.ResultsScrapeResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return failed(region, fmt.Errorf("decode results scrape response: %w", err))
	}

	runs := res.RunsCreated + res.RunsUpdated
	log.Info("results region complete",
		"races_created", res.RacesCreated, "races_updated", res.RacesUpdated,
		"runs", runs, "bsp_rows", res.BSPRowsFetched)

	return domain.RegionOutcome{
		Region:    region,
		Status:    domain.RegionSucceeded,
		Primary:   runs,
		Secondary: res.BSPRowsFetched,
	}
}

func failed(region domain.Region, err error) domain.RegionOutcome {
	return domain.RegionOutcome{Region: region, Status: domain.RegionFailed, Err: err}
}
