package domain

// RegionStatus is the terminal state of one region within a run.
type RegionStatus string

const (
	RegionSucceeded RegionStatus = "succeeded"
	RegionFailed    RegionStatus = "failed"
)

// RegionOutcome is the result of running one region through a job phase.
// Built once per region per run, immutable afterwards.
type RegionOutcome struct {
	Region    Region
	Status    RegionStatus
	Primary   int // racecard entries, or races+runs created/updated
	Secondary int // BSP price rows, results job only
	Err       error
}

// Failed reports whether the region exhausted its retry budget.
func (o RegionOutcome) Failed() bool {
	return o.Status == RegionFailed
}

// Totals accumulates primary/secondary counts across regions. Accumulation is
// commutative; region order only matters for log readability.
type Totals struct {
	Primary   int
	Secondary int
}

// Add folds a successful outcome into the totals.
func (t *Totals) Add(o RegionOutcome) {
	t.Primary += o.Primary
	t.Secondary += o.Secondary
}

// JobResult aggregates one phase of a run. A region contributes either to
// Totals or to FailedRegions, never both and never neither.
type JobResult struct {
	Kind          JobKind
	Date          string
	Totals        Totals
	FailedRegions []Region
	CoveragePct   int  // floor(secondary*100/primary), results only
	CoverageKnown bool // false when primary is zero or kind is racecards
}

// Record folds one region outcome into the result.
func (r *JobResult) Record(o RegionOutcome) {
	if o.Failed() {
		r.FailedRegions = append(r.FailedRegions, o.Region)
		return
	}
	r.Totals.Add(o)
}

// Succeeded reports whether every region completed.
func (r JobResult) Succeeded() bool {
	return len(r.FailedRegions) == 0
}
