package region

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mfenwick/racecollect/internal/collect/retry"
	"github.com/mfenwick/racecollect/internal/core/domain"
	"github.com/mfenwick/racecollect/internal/infra/api"
)

// tightBudget exhausts on the first failure without sleeping.
var tightBudget = retry.Budget{Initial: time.Millisecond, Max: time.Millisecond, MaxTotal: time.Millisecond}

// quickBudget allows a few millisecond-scale retries.
var quickBudget = retry.Budget{Initial: time.Millisecond, Max: 4 * time.Millisecond, MaxTotal: 50 * time.Millisecond}

type fakeCaller struct {
	scrapeRacecards func(api.RacecardScrapeRequest) ([]byte, error)
	syncRacecards   func(api.RacecardSyncRequest) ([]byte, error)
	scrapeResults   func(api.ResultsScrapeRequest) ([]byte, error)

	scrapeCalls int
	syncCalls   int
	resultCalls int
}

func (f *fakeCaller) ScrapeRacecards(_ context.Context, req api.RacecardScrapeRequest) ([]byte, error) {
	f.scrapeCalls++
	return f.scrapeRacecards(req)
}

func (f *fakeCaller) SyncRacecards(_ context.Context, req api.RacecardSyncRequest) ([]byte, error) {
	f.syncCalls++
	return f.syncRacecards(req)
}

func (f *fakeCaller) ScrapeResults(_ context.Context, req api.ResultsScrapeRequest) ([]byte, error) {
	f.resultCalls++
	return f.scrapeResults(req)
}

func newTestExecutor(c Caller, budget retry.Budget) *Executor {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(c, budget, DefaultOptions, log)
}

func TestRun_RacecardsEmptyShortCircuit(t *testing.T) {
	caller := &fakeCaller{
		scrapeRacecards: func(api.RacecardScrapeRequest) ([]byte, error) {
			return []byte(`{"races": 0, "date": "2026/01/06", "data": []}`), nil
		},
	}
	e := newTestExecutor(caller, tightBudget)

	out := e.Run(context.Background(), "gb", domain.JobRacecards, "2026/01/06")
	if out.Failed() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if out.Primary != 0 || out.Secondary != 0 {
		t.Errorf("counts = %d/%d, want 0/0", out.Primary, out.Secondary)
	}
	if caller.syncCalls != 0 {
		t.Errorf("sync called %d times, want 0 when no races scheduled", caller.syncCalls)
	}
}

func TestRun_RacecardsTwoStages(t *testing.T) {
	caller := &fakeCaller{
		scrapeRacecards: func(req api.RacecardScrapeRequest) ([]byte, error) {
			if req.Region != "ire" || req.Day != "2026/01/06" {
				t.Errorf("unexpected scrape request %+v", req)
			}
			return []byte(`{"races": 4, "date": "2026/01/06", "data": [{"race_id": 1}]}`), nil
		},
		syncRacecards: func(req api.RacecardSyncRequest) ([]byte, error) {
			if req.ScrapeDate != "2026/01/06" {
				t.Errorf("sync scrape_date = %q", req.ScrapeDate)
			}
			if string(req.Data) != `[{"race_id": 1}]` {
				t.Errorf("sync data not forwarded verbatim: %s", req.Data)
			}
			return []byte(`{"entries_created": 30, "entries_updated": 12}`), nil
		},
	}
	e := newTestExecutor(caller, tightBudget)

	out := e.Run(context.Background(), "ire", domain.JobRacecards, "2026/01/06")
	if out.Failed() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if out.Primary != 42 {
		t.Errorf("primary = %d, want 42", out.Primary)
	}
}

func TestRun_RacecardsSyncFailureDoesNotRescrape(t *testing.T) {
	caller := &fakeCaller{
		scrapeRacecards: func(api.RacecardScrapeRequest) ([]byte, error) {
			return []byte(`{"races": 2, "date": "2026/01/06", "data": []}`), nil
		},
		syncRacecards: func(api.RacecardSyncRequest) ([]byte, error) {
			return nil, errors.New("http 503")
		},
	}
	e := newTestExecutor(caller, quickBudget)

	out := e.Run(context.Background(), "gb", domain.JobRacecards, "2026/01/06")
	if !out.Failed() {
		t.Fatal("expected failed outcome")
	}
	if !errors.Is(out.Err, retry.ErrBudgetExhausted) {
		t.Errorf("err = %v, want budget exhaustion", out.Err)
	}
	if caller.scrapeCalls != 1 {
		t.Errorf("scrape called %d times, want exactly 1: sync retries must not re-scrape", caller.scrapeCalls)
	}
	if caller.syncCalls < 2 {
		t.Errorf("sync called %d times, want retries", caller.syncCalls)
	}
}

func TestRun_RacecardsScrapeRetriesThenSucceeds(t *testing.T) {
	failures := 0
	caller := &fakeCaller{
		scrapeRacecards: func(api.RacecardScrapeRequest) ([]byte, error) {
			if failures < 2 {
				failures++
				return nil, errors.New("connection refused")
			}
			return []byte(`{"races": 0, "date": "2026/01/06", "data": []}`), nil
		},
	}
	e := newTestExecutor(caller, quickBudget)

	out := e.Run(context.Background(), "gb", domain.JobRacecards, "2026/01/06")
	if out.Failed() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if caller.scrapeCalls != 3 {
		t.Errorf("scrape calls = %d, want 3", caller.scrapeCalls)
	}
}

func TestRun_Results(t *testing.T) {
	caller := &fakeCaller{
		scrapeResults: func(req api.ResultsScrapeRequest) ([]byte, error) {
			if req.Region != "gb" || req.Date != "2026/01/05" {
				t.Errorf("unexpected results request %+v", req)
			}
			if req.RaceType != "all" || !req.Betfair {
				t.Errorf("scrape knobs not forwarded: %+v", req)
			}
			return []byte(`{"races_created": 8, "races_updated": 1, "runs_created": 100, "runs_updated": 20, "bsp_rows_fetched": 90}`), nil
		},
	}
	e := newTestExecutor(caller, tightBudget)

	out := e.Run(context.Background(), "gb", domain.JobResults, "2026/01/05")
	if out.Failed() {
		t.Fatalf("outcome failed: %v", out.Err)
	}
	if out.Primary != 120 {
		t.Errorf("primary = %d, want 120 runs", out.Primary)
	}
	if out.Secondary != 90 {
		t.Errorf("secondary = %d, want 90 bsp rows", out.Secondary)
	}
}

func TestRun_ResultsBudgetExhaustion(t *testing.T) {
	caller := &fakeCaller{
		scrapeResults: func(api.ResultsScrapeRequest) ([]byte, error) {
			return []byte("<html>blocked</html>"), nil
		},
	}
	e := newTestExecutor(caller, tightBudget)

	out := e.Run(context.Background(), "fr", domain.JobResults, "2026/01/05")
	if !out.Failed() {
		t.Fatal("expected failed outcome")
	}
	if !errors.Is(out.Err, retry.ErrBudgetExhausted) {
		t.Errorf("err = %v, want budget exhaustion", out.Err)
	}
	if out.Region != "fr" {
		t.Errorf("region = %q, want fr", out.Region)
	}
}
