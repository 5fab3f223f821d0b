// Package retry drives one logical remote operation to completion or to
// budget exhaustion. The budget is time-based: there is no attempt cap, only
// a ceiling on cumulative wait. With the default 60s initial backoff doubling
// to a 30 minute cap, the schedule fits roughly 29 attempts inside the 23
// hour budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenwick/racecollect/internal/collect/backoff"
)

// ErrBudgetExhausted reports that the cumulative wait reached the configured
// ceiling without ever observing a successful response.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Budget bounds a retried operation.
type Budget struct {
	Initial  time.Duration
	Max      time.Duration
	MaxTotal time.Duration
}

// DefaultBudget matches the production cron configuration: a job scheduled
// daily may burn almost the whole day retrying before the next run takes over.
var DefaultBudget = Budget{
	Initial:  backoff.DefaultInitial,
	Max:      backoff.DefaultMax,
	MaxTotal: 23 * time.Hour,
}

// Validate enforces Initial <= Max <= MaxTotal.
func (b Budget) Validate() error {
	if b.Initial <= 0 || b.Max <= 0 || b.MaxTotal <= 0 {
		return fmt.Errorf("retry budget durations must be positive: %+v", b)
	}
	if b.Initial > b.Max {
		return fmt.Errorf("initial backoff %v exceeds max backoff %v", b.Initial, b.Max)
	}
	if b.Max > b.MaxTotal {
		return fmt.Errorf("max backoff %v exceeds total budget %v", b.Max, b.MaxTotal)
	}
	return nil
}

// Operation performs one attempt of a remote call, returning the raw response
// body, or an error when the call itself did not complete.
type Operation func(ctx context.Context) ([]byte, error)

// Engine retries operations under a budget. Attempt state lives entirely
// inside Execute; an Engine is safe to reuse across operations.
type Engine struct {
	budget   Budget
	schedule backoff.Schedule
	log      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an engine. The budget must already be validated.
func New(budget Budget, log *slog.Logger) *Engine {
	return &Engine{
		budget:   budget,
		schedule: backoff.New(budget.Initial, budget.Max),
		log:      log,
		sleep:    sleepCtx,
	}
}

// Execute invokes op until it yields a well-formed response or the budget
// runs out. Every failure, transport or malformed payload alike, is retried
// with exponential backoff. The engine never sleeps if doing so would push
// cumulative wait to or past the budget; it reports ErrBudgetExhausted
// immediately instead.
func (e *Engine) Execute(ctx context.Context, name string, op Operation) ([]byte, error) {
	attempt := 1
	var elapsed time.Duration

	for {
		body, err := op(ctx)

		class := Classify(body, err)
		if class == ClassSuccess {
			if attempt > 1 {
				e.log.Info("operation recovered",
					"op", name, "attempt", attempt, "waited", elapsed)
			}
			return body, nil
		}

		wait := e.schedule.Wait(attempt)
		if elapsed+wait >= e.budget.MaxTotal {
			e.log.Error("retry budget exhausted",
				"op", name, "attempts", attempt, "waited", elapsed, "last", class.String(), "error", err)
			return nil, fmt.Errorf("%s after %d attempts: %w", name, attempt, ErrBudgetExhausted)
		}

		e.log.Warn("attempt failed, backing off",
			"op", name, "attempt", attempt, "class", class.String(),
			"wait", wait, "budget_left", e.budget.MaxTotal-elapsed, "error", err)

		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
		elapsed += wait
		attempt++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
