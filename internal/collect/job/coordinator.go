// Package job iterates regions for a requested job kind and turns their
// outcomes into a run-level verdict.
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/mfenwick/racecollect/internal/collect/coverage"
	"github.com/mfenwick/racecollect/internal/collect/metrics"
	"github.com/mfenwick/racecollect/internal/core/domain"
)

// RegionRunner runs one region through one phase.
type RegionRunner interface {
	Run(ctx context.Context, region domain.Region, kind domain.JobKind, date string) domain.RegionOutcome
}

// PhaseReport is one finished phase with everything bookkeeping needs.
type PhaseReport struct {
	Result   domain.JobResult
	Outcomes []domain.RegionOutcome
	Started  time.Time
	Finished time.Time
}

// Recorder receives finished phases for bookkeeping (run history, failed
// region queues). Recording failures are logged by implementations, never
// fatal to the run.
type Recorder interface {
	RecordPhase(ctx context.Context, report PhaseReport)
}

// Coordinator drives a job run. Regions are processed strictly sequentially
// in configured order: the upstream site rate-limits aggressively and
// overlapping requests across regions make that worse.
type Coordinator struct {
	exec     RegionRunner
	policy   coverage.Policy
	recorder Recorder
	log      *slog.Logger
}

// New builds a coordinator. recorder may be nil.
func New(exec RegionRunner, policy coverage.Policy, recorder Recorder, log *slog.Logger) *Coordinator {
	return &Coordinator{exec: exec, policy: policy, recorder: recorder, log: log}
}

// Run dispatches the requested kind. For "both" the racecards pass and the
// results pass run independently; the second phase always runs, and either
// failing fails the invocation. Returns the phase results and whether the
// whole run succeeded.
func (c *Coordinator) Run(ctx context.Context, req domain.JobRequest) ([]domain.JobResult, bool) {
	var kinds []domain.JobKind
	switch req.Kind {
	case domain.JobBoth:
		kinds = []domain.JobKind{domain.JobRacecards, domain.JobResults}
	default:
		kinds = []domain.JobKind{req.Kind}
	}

	results := make([]domain.JobResult, 0, len(kinds))
	ok := true
	for _, kind := range kinds {
		res, phaseOK := c.runPhase(ctx, kind, req)
		results = append(results, res)
		ok = ok && phaseOK
	}

	for _, res := range results {
		status := "succeeded"
		if !res.Succeeded() {
			status = "failed"
		}
		c.log.Info("phase summary",
			"job", string(res.Kind), "date", res.Date, "status", status,
			"primary", res.Totals.Primary, "secondary", res.Totals.Secondary,
			"failed_regions", res.FailedRegions)
	}

	return results, ok
}

// runPhase iterates every configured region. One persistently broken region
// must never prevent the others from being collected, so outcomes are folded
// in and iteration always continues.
func (c *Coordinator) runPhase(ctx context.Context, kind domain.JobKind, req domain.JobRequest) (domain.JobResult, bool) {
	date := req.DateFor(kind)
	log := c.log.With("job", string(kind), "date", date)
	log.Info("phase starting", "regions", len(req.Regions))

	start := time.Now()
	result := domain.JobResult{Kind: kind, Date: date}
	outcomes := make([]domain.RegionOutcome, 0, len(req.Regions))

	for _, region := range req.Regions {
		out := c.exec.Run(ctx, region, kind, date)
		outcomes = append(outcomes, out)
		result.Record(out)

		if out.Failed() {
			metrics.RegionsFailed.WithLabelValues(string(kind)).Inc()
			log.Error("region failed, continuing with remaining regions",
				"region", out.Region, "error", out.Err)
		}
	}

	ok := result.Succeeded()
	if kind == domain.JobResults {
		ok = c.evaluateCoverage(&result, log) && ok
	}

	status := "succeeded"
	if !ok {
		status = "failed"
	}
	metrics.JobDuration.WithLabelValues(string(kind), status).Observe(time.Since(start).Seconds())

	if c.recorder != nil {
		c.recorder.RecordPhase(ctx, PhaseReport{
			Result:   result,
			Outcomes: outcomes,
			Started:  start,
			Finished: time.Now(),
		})
	}

	return result, ok
}

// evaluateCoverage grades BSP coverage for a results phase. With no runs
// collected there is nothing to measure, so nothing is computed or logged.
// Returns false only when the policy escalates.
func (c *Coordinator) evaluateCoverage(result *domain.JobResult, log *slog.Logger) bool {
	primary := result.Totals.Primary
	if primary <= 0 {
		return true
	}

	pct := coverage.Pct(primary, result.Totals.Secondary)
	result.CoveragePct = pct
	result.CoverageKnown = true
	metrics.CoveragePct.WithLabelValues(string(result.Kind)).Set(float64(pct))

	switch c.policy.Evaluate(primary, result.Totals.Secondary) {
	case coverage.Warn:
		log.Warn("bsp coverage below threshold",
			"coverage_pct", pct, "runs", primary, "bsp_rows", result.Totals.Secondary)
	case coverage.Escalate:
		log.Error("bsp coverage below hard floor, marking run failed",
			"coverage_pct", pct, "runs", primary, "bsp_rows", result.Totals.Secondary)
		return false
	}
	return true
}
