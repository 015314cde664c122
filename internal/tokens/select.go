package tokens

import (
	"fmt"
	"log"
)

// Strategy selects which counter Select should build.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyExact     Strategy = "exact"
	StrategyHeuristic Strategy = "heuristic"
)

// ParseStrategy validates a strategy name. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyExact, StrategyHeuristic:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown tokenizer strategy %q (use auto, exact or heuristic)", s)
}

// Options configures counter selection.
type Options struct {
	Strategy Strategy
	Table    string // path to a JSON tokenizer table; takes precedence over Encoding
	Encoding string // tiktoken encoding name
}

// Selection is the counter Select settled on.
type Selection struct {
	Counter  Counter
	Fallback bool   // true when an exact tokenizer was wanted but unavailable
	Warning  string // user-facing explanation when Fallback is set
}

// Select builds the counter described by opts. An unavailable exact tokenizer
// is not an error: Select falls back to the heuristic and reports why.
func Select(opts Options) Selection {
	if opts.Strategy == StrategyHeuristic {
		return Selection{Counter: NewHeuristic()}
	}

	exact, err := loadExact(opts)
	if err == nil {
		return Selection{Counter: exact}
	}

	warning := fmt.Sprintf("exact tokenizer unavailable (%v); using heuristic counter, token savings are approximate (~10%% error)", err)
	log.Printf("warning: %s", warning)
	return Selection{
		Counter:  NewHeuristic(),
		Fallback: true,
		Warning:  warning,
	}
}

func loadExact(opts Options) (*Exact, error) {
	switch {
	case opts.Table != "":
		return LoadTable(opts.Table)
	case opts.Encoding != "":
		return NewEncoding(opts.Encoding)
	}
	return nil, fmt.Errorf("no tokenizer table or encoding configured")
}
