// Package coverage grades the ratio of BSP price rows fetched against runs
// collected. A quiet drop in this ratio once went unnoticed for weeks, so the
// evaluation is kept behind a policy interface: the default only warns, but a
// stricter policy can fail the run without touching the job layers.
package coverage

// Verdict classifies a coverage measurement.
type Verdict int

const (
	OK Verdict = iota
	Warn
	Escalate
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "ok"
	case Warn:
		return "warn"
	case Escalate:
		return "escalate"
	}
	return "unknown"
}

// Pct is floor(secondary*100/primary). Only meaningful when primary > 0.
func Pct(primary, secondary int) int {
	return secondary * 100 / primary
}

// Policy grades a primary/secondary pair. Evaluate is only called when the
// primary count is positive; with no runs there is nothing to cover.
type Policy interface {
	Evaluate(primary, secondary int) Verdict
}

// DefaultThreshold is the healthy floor in percent.
const DefaultThreshold = 80

// ThresholdPolicy warns below Threshold and never escalates. This is the
// reporting-only behavior the cron currently runs with.
type ThresholdPolicy struct {
	Threshold int
}

func (p ThresholdPolicy) Evaluate(primary, secondary int) Verdict {
	if Pct(primary, secondary) < p.Threshold {
		return Warn
	}
	return OK
}

// StrictPolicy escalates below Floor and warns below Threshold. Escalation
// marks the run failed even though the collected data is already persisted.
type StrictPolicy struct {
	Threshold int
	Floor     int
}

func (p StrictPolicy) Evaluate(primary, secondary int) Verdict {
	pct := Pct(primary, secondary)
	if pct < p.Floor {
		return Escalate
	}
	if pct < p.Threshold {
		return Warn
	}
	return OK
}
