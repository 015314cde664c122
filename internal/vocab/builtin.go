package vocab

// BuiltinSource is the source name of the built-in rules.
const BuiltinSource = "builtin"

var builtinRules = []Rule{
	// Multi-word phrases to acronyms.
	{Pattern: `\bkey[_\s](?:performance[_\s])?indicators?\b`, Replacement: "KPI", Expansion: "Key Performance Indicator"},
	{Pattern: `\breturn[_\s]on[_\s]investment\b`, Replacement: "ROI", Expansion: "Return on Investment"},
	{Pattern: `\bsearch[_\s]engine[_\s]optimization\b`, Replacement: "SEO", Expansion: "Search Engine Optimization"},
	{Pattern: `\bcall[_\s]to[_\s]action\b`, Replacement: "CTA", Expansion: "Call to Action"},
	{Pattern: `\buser[_\s]experience\b`, Replacement: "UX", Expansion: "User Experience"},
	{Pattern: `\buser[_\s]interface\b`, Replacement: "UI", Expansion: "User Interface"},
	{Pattern: `\bideal[_\s](?:client|customer)(?:[_\s]profiles?)?\b`, Replacement: "ICP", Expansion: "Ideal Customer Profile"},
	{Pattern: `\btotal[_\s]addressable[_\s]market\b`, Replacement: "TAM", Expansion: "Total Addressable Market"},
	{Pattern: `\bgo[_\s-]to[_\s-]market\b`, Replacement: "GTM", Expansion: "Go-to-Market"},
	{Pattern: `\bbusiness[_\s]to[_\s]business\b`, Replacement: "B2B", Expansion: "Business to Business"},
	{Pattern: `\bbusiness[_\s]to[_\s]consumer\b`, Replacement: "B2C", Expansion: "Business to Consumer"},
	{Pattern: `\bservice[_\s]level[_\s]agreements?\b`, Replacement: "SLA", Expansion: "Service Level Agreement"},
	{Pattern: `\bnon[_\s-]disclosure[_\s]agreements?\b`, Replacement: "NDA", Expansion: "Non-Disclosure Agreement"},
	{Pattern: `\bminimum[_\s]viable[_\s]products?\b`, Replacement: "MVP", Expansion: "Minimum Viable Product"},
	{Pattern: `\bobjectives?[_\s](?:and[_\s])?key[_\s]results?\b`, Replacement: "OKR", Expansion: "Objectives and Key Results"},
	{Pattern: `\bknowledge[_\s]graph\b`, Replacement: "KG", Expansion: "Knowledge Graph"},

	// Long words with cheaper abbreviations.
	{Pattern: `\bconfidentiality\b`, Replacement: "conf", Expansion: "confidentiality"},
	{Pattern: `\bcertifications\b`, Replacement: "certs", Expansion: "certifications"},
	{Pattern: `\binfrastructure\b`, Replacement: "infra", Expansion: "infrastructure"},
	{Pattern: `\bdemographics?\b`, Replacement: "demo", Expansion: "demographics"},
}

// Structural shorthand; saves characters but rarely tokens, so the floor
// guard usually rejects it.
var builtinAnywhere = []Rule{
	{Pattern: `\b[Ss]ection\b`, Replacement: "§", Expansion: "Section"},
}

// Builtin returns the built-in rule set.
func Builtin() Source {
	rules := make([]Rule, 0, len(builtinRules)+len(builtinAnywhere))
	for _, r := range builtinRules {
		r.Scope = ScopeValues
		r.CaseInsensitive = true
		r.Origin = OriginBuiltin
		r.Source = BuiltinSource
		rules = append(rules, r)
	}
	for _, r := range builtinAnywhere {
		r.Scope = ScopeAnywhere
		r.Origin = OriginBuiltin
		r.Source = BuiltinSource
		rules = append(rules, r)
	}
	return Source{Name: BuiltinSource, Rules: rules}
}
