package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mfenwick/racecollect/internal/core/domain"
)

// RunRepo persists finished job phases.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a run history repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// RunRecord is one finished job phase. InvocationID ties the phases of a
// "both" run together.
type RunRecord struct {
	RunID        uuid.UUID
	InvocationID uuid.UUID
	Result       domain.JobResult
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Insert writes one phase and its region outcomes in a single transaction.
func (r *RunRepo) Insert(ctx context.Context, rec RunRecord, outcomes []domain.RegionOutcome) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer tx.Rollback()

	status := "succeeded"
	if !rec.Result.Succeeded() {
		status = "failed"
	}

	var coverage *int
	if rec.Result.CoverageKnown {
		coverage = &rec.Result.CoveragePct
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_runs (run_id, invocation_id, kind, target_date, status, primary_count, secondary_count, coverage_pct, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.RunID,
		rec.InvocationID,
		string(rec.Result.Kind),
		rec.Result.Date,
		status,
		rec.Result.Totals.Primary,
		rec.Result.Totals.Secondary,
		coverage,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job run: %w", err)
	}

	for _, out := range outcomes {
		var errMsg *string
		if out.Err != nil {
			msg := out.Err.Error()
			errMsg = &msg
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO region_outcomes (run_id, region, status, primary_count, secondary_count, error_msg)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			rec.RunID,
			string(out.Region),
			string(out.Status),
			out.Primary,
			out.Secondary,
			errMsg,
		)
		if err != nil {
			return fmt.Errorf("insert region outcome for %s: %w", out.Region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run insert: %w", err)
	}
	return nil
}

// RecentFailures lists regions that failed within the last n runs of a kind,
// for operator triage.
func (r *RunRepo) RecentFailures(ctx context.Context, kind domain.JobKind, runs int) ([]string, error) {
	var regions []string
	err := r.db.SelectContext(ctx, &regions, `
		SELECT ro.region
		FROM region_outcomes ro
		JOIN job_runs jr ON jr.run_id = ro.run_id
		WHERE jr.kind = $1 AND ro.status = 'failed'
		  AND jr.run_id IN (
			SELECT run_id FROM job_runs WHERE kind = $1 ORDER BY started_at DESC LIMIT $2
		  )
		ORDER BY ro.region
	`, string(kind), runs)
	if err != nil {
		return nil, fmt.Errorf("select recent failures: %w", err)
	}
	return regions, nil
}
