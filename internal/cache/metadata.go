// Package cache manages rule packs fetched from GitHub.
package cache

import (
	"fmt"
	"time"
)

// Metadata records where a cached pack came from.
type Metadata struct {
	Name        string    `json:"name"`
	File        string    `json:"file"`
	Owner       string    `json:"owner"`
	Repo        string    `json:"repo"`
	Path        string    `json:"path"`
	SHA         string    `json:"sha,omitempty"`
	LastFetched time.Time `json:"last_fetched"`
}

// IsStale returns true if the pack is at or older than the TTL.
func (m *Metadata) IsStale(ttl time.Duration) bool {
	return time.Since(m.LastFetched) >= ttl
}

// Age returns human-readable age string.
func (m *Metadata) Age() string {
	duration := time.Since(m.LastFetched)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute")
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour")
	default:
		return plural(int(duration.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// RepoString returns "owner/repo" format.
func (m *Metadata) RepoString() string {
	return fmt.Sprintf("%s/%s", m.Owner, m.Repo)
}

// Origin returns "owner/repo:path".
func (m *Metadata) Origin() string {
	return m.RepoString() + ":" + m.Path
}
