package domain

// JobKind selects which collection pass a run performs.
type JobKind string

const (
	JobRacecards JobKind = "racecards"
	JobResults   JobKind = "results"
	JobBoth      JobKind = "both"
	JobHealth    JobKind = "health"
)

// ParseJobKind maps a CLI argument to a JobKind.
func ParseJobKind(s string) (JobKind, bool) {
	switch JobKind(s) {
	case JobRacecards, JobResults, JobBoth, JobHealth:
		return JobKind(s), true
	}
	return "", false
}

// Region is an independent partition of the collection workload, a short
// lowercase code such as "gb" or "ire". Regions fail independently.
type Region string

// JobRequest describes one invocation. Immutable after construction.
type JobRequest struct {
	Kind    JobKind
	Date    string // YYYY/MM/DD; empty means the kind's default date
	Regions []Region
}

// DateFor resolves the target date for a phase. Racecards collect today's
// cards, results collect yesterday's races; an explicit date wins.
func (r JobRequest) DateFor(kind JobKind) string {
	if r.Date != "" {
		return r.Date
	}
	if kind == JobRacecards {
		return Today()
	}
	return Yesterday()
}
