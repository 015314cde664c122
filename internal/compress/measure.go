package compress

import (
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// Measurement breaks savings down by layer: structuring prose into
// key/value form happens upstream, substitution happens here.
type Measurement struct {
	ProseTokens      int
	StructuredTokens int
	CompressedTokens int
	Substitution     *Result
}

// StructuringPercent is the reduction from prose to the structured form.
func (m *Measurement) StructuringPercent() float64 {
	return tokens.Stats{Before: m.ProseTokens, After: m.StructuredTokens}.PercentReduction()
}

// SubstitutionPercent is the reduction substitution achieved on the structured form.
func (m *Measurement) SubstitutionPercent() float64 {
	return tokens.Stats{Before: m.StructuredTokens, After: m.CompressedTokens}.PercentReduction()
}

// TotalPercent is the end-to-end reduction from prose.
func (m *Measurement) TotalPercent() float64 {
	return tokens.Stats{Before: m.ProseTokens, After: m.CompressedTokens}.PercentReduction()
}

// Measure compares the original prose with its structured rewrite and
// with the rewrite after substitution.
func Measure(prose, structured string, table *vocab.Table, counter tokens.Counter) *Measurement {
	res := Compress(structured, table, counter)
	return &Measurement{
		ProseTokens:      counter.Count(prose),
		StructuredTokens: res.OriginalTokens,
		CompressedTokens: res.CompressedTokens,
		Substitution:     res,
	}
}
