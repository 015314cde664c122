package config

import "strings"

// DefaultTrustedSources are pack repositories fetched without confirmation.
var DefaultTrustedSources = []string{
	"HartBrook/squeeze-packs",
}

// IsTrusted reports whether repo matches a trusted entry. An entry is either
// "owner/repo" or a bare "owner" trusting every repository of that owner.
// Matching ignores case.
func IsTrusted(repo string, trusted []string) bool {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return false
	}
	for _, entry := range trusted {
		if trustMatches(strings.TrimSpace(entry), owner, name) {
			return true
		}
	}
	return false
}

func trustMatches(entry, owner, name string) bool {
	if entry == "" {
		return false
	}
	if !strings.Contains(entry, "/") {
		return strings.EqualFold(entry, owner)
	}
	tOwner, tName, err := ParseRepo(entry)
	return err == nil && strings.EqualFold(tOwner, owner) && strings.EqualFold(tName, name)
}

// TrustWarning explains the risk of fetching packs from repo and how to
// trust it.
func TrustWarning(repo string) string {
	var b strings.Builder
	b.WriteString("Untrusted source: " + repo + "\n\n")
	b.WriteString("    Its rules rewrite every document compressed with the pack.\n")
	b.WriteString("    Review them first: https://github.com/" + repo + "\n\n")
	b.WriteString("    To skip this prompt, trust it in config.yaml:\n")
	b.WriteString("      trusted:\n")
	b.WriteString("        - " + repo + "\n")
	return b.String()
}
