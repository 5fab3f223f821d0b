package control

import (
	"context"

	"github.com/google/uuid"

	"github.com/mfenwick/racecollect/internal/collect/job"
	"github.com/mfenwick/racecollect/internal/infra/storage/postgres"
)

// recorder fans a finished phase out to run history and the failed-region
// queue. Bookkeeping failures are logged and swallowed: the collected data
// is already persisted server-side and the exit code already carries the
// verdict.
type recorder struct {
	runner *Runner
	repo   *postgres.RunRepo
}

// newRecorder returns nil when neither store is configured, which disables
// recording in the coordinator.
func (r *Runner) newRecorder() job.Recorder {
	if r.db == nil && r.redis == nil {
		return nil
	}
	rec := &recorder{runner: r}
	if r.db != nil {
		rec.repo = postgres.NewRunRepo(r.db)
	}
	return rec
}

func (rec *recorder) RecordPhase(ctx context.Context, report job.PhaseReport) {
	r := rec.runner

	if rec.repo != nil {
		err := rec.repo.Insert(ctx, postgres.RunRecord{
			RunID:        uuid.New(),
			InvocationID: r.runID,
			Result:       report.Result,
			StartedAt:    report.Started,
			FinishedAt:   report.Finished,
		}, report.Outcomes)
		if err != nil {
			r.log.Warn("failed to record run history", "error", err)
		}
	}

	if r.redis != nil && len(report.Result.FailedRegions) > 0 {
		err := r.redis.PushFailedRegions(ctx, report.Result.Kind, report.Result.Date, report.Result.FailedRegions)
		if err != nil {
			r.log.Warn("failed to queue failed regions", "error", err)
		}
	}
}
