package codebook

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a confidence tier.
type Stage int

const (
	StageProvisional Stage = iota
	StageValidated
	StageIntegrated
)

func (s Stage) String() string {
	switch s {
	case StageValidated:
		return "validated"
	case StageIntegrated:
		return "integrated"
	default:
		return "provisional"
	}
}

// ParseStage parses a stage name.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(s) {
	case "provisional":
		return StageProvisional, nil
	case "validated":
		return StageValidated, nil
	case "integrated":
		return StageIntegrated, nil
	}
	return 0, fmt.Errorf("unknown stage %q (use provisional, validated or integrated)", s)
}

// Stages lists all stages in lifecycle order.
var Stages = []Stage{StageProvisional, StageValidated, StageIntegrated}

// Outcome is the caller's verdict on one use of a pattern.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeGood
	OutcomeBad
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGood:
		return "good"
	case OutcomeBad:
		return "bad"
	default:
		return "unknown"
	}
}

// ParseOutcome parses an outcome name. Empty means unknown.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return OutcomeUnknown, nil
	case "good":
		return OutcomeGood, nil
	case "bad":
		return OutcomeBad, nil
	}
	return 0, fmt.Errorf("unknown outcome %q (use good, bad or unknown)", s)
}

// Entry is the derived state of one tracked pattern.
type Entry struct {
	ID          string `msgpack:"id" json:"id"`
	Key         string `msgpack:"key" json:"key"`
	Replacement string `msgpack:"replacement,omitempty" json:"replacement,omitempty"`
	Stage       Stage  `msgpack:"stage" json:"stage"`

	Observed  int `msgpack:"observed" json:"observed"`   // cycles in which the pattern was seen
	Confirmed int `msgpack:"confirmed" json:"confirmed"` // confirmed-good outcomes
	Bad       int `msgpack:"bad" json:"bad"`             // confirmed-bad outcomes
	Missed    int `msgpack:"missed" json:"missed"`       // consecutive cycles unseen
	Cycles    int `msgpack:"cycles" json:"cycles"`       // all recorded cycles
	Streak    int `msgpack:"streak" json:"streak"`       // consecutive cycles meeting integration thresholds

	Confidence         float64   `msgpack:"confidence" json:"confidence"`
	FirstSeen          time.Time `msgpack:"first_seen" json:"first_seen"`
	LastSeen           time.Time `msgpack:"last_seen" json:"last_seen"`
	PromotedAt         time.Time `msgpack:"promoted_at" json:"promoted_at,omitempty"`
	RetirementEligible bool      `msgpack:"retirement_eligible" json:"retirement_eligible"`
}

// Observation is one append-only log record.
type Observation struct {
	Key        string    `msgpack:"key" json:"key"`
	Cycle      int       `msgpack:"cycle" json:"cycle"`
	Observed   bool      `msgpack:"observed" json:"observed"`
	Outcome    Outcome   `msgpack:"outcome" json:"outcome"`
	Stage      Stage     `msgpack:"stage" json:"stage"` // stage after this record
	Confidence float64   `msgpack:"confidence" json:"confidence"`
	Manual     bool      `msgpack:"manual,omitempty" json:"manual,omitempty"` // operator stage change
	At         time.Time `msgpack:"at" json:"at"`
}

// Stats summarizes a codebook.
type Stats struct {
	Total              int
	ByStage            map[Stage]int
	RetirementEligible int
	MeanConfidence     float64
}
