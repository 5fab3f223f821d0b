package control

import (
	"context"
	"log/slog"

	"github.com/mfenwick/racecollect/internal/core/domain"
)

// runHealth is a one-shot check that the collection system is alive: the API
// answers, the core tables hold data, and yesterday's races actually landed.
// Single attempts only; a health probe that retries for hours is useless.
func (r *Runner) runHealth(ctx context.Context, log *slog.Logger) int {
	ok := true

	courses, err := r.client.Count(ctx, "courses")
	if err != nil {
		log.Error("api unreachable", "error", err)
		return ExitFailed
	}
	log.Info("api responding", "courses", courses)

	for _, resource := range []string{"races", "runs"} {
		count, err := r.client.Count(ctx, resource)
		switch {
		case err != nil:
			log.Error("count check failed", "resource", resource, "error", err)
			ok = false
		case count == 0:
			log.Warn("table is empty", "resource", resource)
			ok = false
		default:
			log.Info("table populated", "resource", resource, "count", count)
		}
	}

	yesterday := domain.Yesterday()
	races, err := r.client.RacesOn(ctx, yesterday)
	switch {
	case err != nil:
		log.Error("freshness check failed", "date", yesterday, "error", err)
		ok = false
	case races == 0:
		// Zero races can be a legitimately quiet day, so freshness only
		// warns; the count checks above carry the verdict.
		log.Warn("no races stored for yesterday", "date", yesterday)
	default:
		log.Info("yesterday's data present", "date", yesterday, "races", races)
	}

	if !ok {
		log.Error("health check failed")
		return ExitFailed
	}
	log.Info("health check passed")
	return ExitOK
}
