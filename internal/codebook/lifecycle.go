package codebook

import (
	"math"
	"time"
)

// wilsonZ is the normal quantile for a 95% interval.
const wilsonZ = 1.96

// Thresholds drive stage promotion.
type Thresholds struct {
	ValidateConfidence  float64 // T1
	ValidateSamples     int     // N1
	IntegrateConfidence float64 // T2
	IntegrateSamples    int     // N2
	IntegrateCycles     int     // K
	BadWeight           int     // samples each confirmed-bad outcome counts as
}

// DefaultThresholds returns the standard promotion thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ValidateConfidence:  0.75,
		ValidateSamples:     10,
		IntegrateConfidence: 0.90,
		IntegrateSamples:    30,
		IntegrateCycles:     3,
		BadWeight:           3,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.ValidateConfidence <= 0 {
		t.ValidateConfidence = d.ValidateConfidence
	}
	if t.ValidateSamples <= 0 {
		t.ValidateSamples = d.ValidateSamples
	}
	if t.IntegrateConfidence <= 0 {
		t.IntegrateConfidence = d.IntegrateConfidence
	}
	if t.IntegrateSamples <= 0 {
		t.IntegrateSamples = d.IntegrateSamples
	}
	if t.IntegrateCycles <= 0 {
		t.IntegrateCycles = d.IntegrateCycles
	}
	if t.BadWeight <= 0 {
		t.BadWeight = d.BadWeight
	}
	return t
}

// Confidence is the Wilson score lower bound of the confirmed-good rate,
// with each confirmed-bad outcome weighing BadWeight samples. It is 0 with
// no samples and never leaves [0, 1].
func (t Thresholds) Confidence(e *Entry) float64 {
	n := float64(e.Observed + (t.BadWeight-1)*e.Bad)
	if n <= 0 {
		return 0
	}
	p := float64(e.Confirmed) / n
	z2 := wilsonZ * wilsonZ
	centre := p + z2/(2*n)
	margin := wilsonZ * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	lower := (centre - margin) / (1 + z2/n)
	return math.Min(1, math.Max(0, lower))
}

// apply folds one cycle into e.
func (t Thresholds) apply(e *Entry, observed bool, outcome Outcome, now time.Time) {
	e.Cycles++
	if !observed {
		e.Missed++
		e.Confidence = t.Confidence(e)
		return
	}

	e.Missed = 0
	e.Observed++
	e.LastSeen = now
	switch outcome {
	case OutcomeGood:
		e.Confirmed++
	case OutcomeBad:
		e.Bad++
	}
	e.Confidence = t.Confidence(e)
	t.transition(e, outcome, now)
}

// transition moves e between stages after an observed cycle. Integrated
// entries are never demoted here.
func (t Thresholds) transition(e *Entry, outcome Outcome, now time.Time) {
	if outcome == OutcomeBad {
		e.Streak = 0
		if e.Stage == StageValidated && e.Confidence < t.ValidateConfidence {
			e.Stage = StageProvisional
			e.PromotedAt = now
		}
		return
	}

	switch e.Stage {
	case StageProvisional:
		if e.Confidence >= t.ValidateConfidence && e.Observed >= t.ValidateSamples {
			e.Stage = StageValidated
			e.PromotedAt = now
			e.Streak = 0
		}
	case StageValidated:
		if e.Confidence >= t.IntegrateConfidence && e.Observed >= t.IntegrateSamples {
			e.Streak++
		} else {
			e.Streak = 0
		}
		if e.Streak >= t.IntegrateCycles {
			e.Stage = StageIntegrated
			e.PromotedAt = now
		}
	}
}

// Retention flags entries that have gone unseen.
type Retention struct {
	Cycles int           // consecutive unseen cycles; negative disables
	Window time.Duration // time since last seen; negative disables
}

func (r Retention) withDefaults() Retention {
	if r.Cycles == 0 {
		r.Cycles = 20
	}
	if r.Window == 0 {
		r.Window = 30 * 24 * time.Hour
	}
	return r
}

func (r Retention) eligible(e *Entry, now time.Time) bool {
	if r.Cycles > 0 && e.Missed >= r.Cycles {
		return true
	}
	if r.Window > 0 && !e.LastSeen.IsZero() && now.Sub(e.LastSeen) >= r.Window {
		return true
	}
	return false
}
