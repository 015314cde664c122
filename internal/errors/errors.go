// Package errors provides typed errors for squeeze.
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode identifies the type of error.
type ErrorCode string

const (
	ErrConfigNotFound    ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigInvalid     ErrorCode = "CONFIG_INVALID"
	ErrRuleConflict      ErrorCode = "RULE_CONFLICT"
	ErrRuleInvalid       ErrorCode = "RULE_INVALID"
	ErrPackNotFound      ErrorCode = "PACK_NOT_FOUND"
	ErrPackInvalid       ErrorCode = "PACK_INVALID"
	ErrStoreFailed       ErrorCode = "STORE_FAILED"
	ErrEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"
	ErrGitHubAuthFailed  ErrorCode = "GITHUB_AUTH_FAILED"
	ErrGitHubFetchFailed ErrorCode = "GITHUB_FETCH_FAILED"
	ErrInvalidRepo       ErrorCode = "INVALID_REPO"
)

// SqueezeError represents a typed error with user-friendly hints.
type SqueezeError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Cause   error
}

func (e *SqueezeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SqueezeError) Unwrap() error {
	return e.Cause
}

// Is matches another SqueezeError by code, so callers can test
// errors.Is(err, &SqueezeError{Code: ErrRuleConflict}).
func (e *SqueezeError) Is(target error) bool {
	t, ok := target.(*SqueezeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new SqueezeError.
func New(code ErrorCode, message, hint string) *SqueezeError {
	return &SqueezeError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

// Wrap creates a new SqueezeError wrapping an existing error.
func Wrap(code ErrorCode, message, hint string, cause error) *SqueezeError {
	return &SqueezeError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   cause,
	}
}

// HasCode reports whether err (or anything it wraps) is a SqueezeError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if se, ok := err.(*SqueezeError); ok && se.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ConfigNotFound returns an error for missing config file.
func ConfigNotFound(path string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrConfigNotFound,
		Message: fmt.Sprintf("config file not found: %s", path),
		Hint:    "Run `squeeze init` to create a configuration",
	}
}

// ConfigInvalid returns an error for invalid config.
func ConfigInvalid(reason string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrConfigInvalid,
		Message: fmt.Sprintf("invalid config: %s", reason),
		Hint:    "Check your config file at ~/.config/squeeze/config.yaml",
	}
}

// RuleConflict returns an error for two rules registering the same pattern.
func RuleConflict(pattern, first, second string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrRuleConflict,
		Message: fmt.Sprintf("rule conflict: pattern %q is defined by both %s and %s", pattern, first, second),
		Hint:    "Remove the duplicate pattern from one of the packs",
	}
}

// RuleInvalid returns an error for a rule that cannot be used.
func RuleInvalid(source, pattern, reason string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrRuleInvalid,
		Message: fmt.Sprintf("invalid rule %q in %s: %s", pattern, source, reason),
		Hint:    "Valid flags are v (values only), i (case-insensitive) and a (anywhere)",
	}
}

// PackNotFound returns an error when a vocabulary pack cannot be resolved.
func PackNotFound(name string, searched []string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrPackNotFound,
		Message: fmt.Sprintf("vocab pack %q not found in %s", name, strings.Join(searched, ", ")),
		Hint:    "Run `squeeze packs list` to see available packs, or `squeeze packs fetch` to download one",
	}
}

// PackInvalid returns an error for a pack file that cannot be parsed.
func PackInvalid(path string, cause error) *SqueezeError {
	return &SqueezeError{
		Code:    ErrPackInvalid,
		Message: fmt.Sprintf("failed to parse vocab pack %s", path),
		Hint:    "Packs are JSON or YAML lists of {pattern, replacement, flags} records",
		Cause:   cause,
	}
}

// StoreFailed returns an error for a failed codebook transaction.
func StoreFailed(op string, cause error) *SqueezeError {
	return &SqueezeError{
		Code:    ErrStoreFailed,
		Message: fmt.Sprintf("codebook %s failed", op),
		Hint:    "Check that the codebook directory is writable and not locked by another process",
		Cause:   cause,
	}
}

// EntryNotFound returns an error for an unknown codebook pattern key.
func EntryNotFound(key string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrEntryNotFound,
		Message: fmt.Sprintf("no codebook entry for %q", key),
		Hint:    "Run `squeeze codebook list` to see tracked patterns",
	}
}

// GitHubAuthFailed returns an error for authentication failures.
func GitHubAuthFailed(cause error) *SqueezeError {
	return &SqueezeError{
		Code:    ErrGitHubAuthFailed,
		Message: "GitHub authentication failed",
		Hint:    "Run `gh auth login` or set SQUEEZE_GITHUB_TOKEN environment variable",
		Cause:   cause,
	}
}

// GitHubFetchFailed returns an error for fetch failures.
func GitHubFetchFailed(repo string, cause error) *SqueezeError {
	return &SqueezeError{
		Code:    ErrGitHubFetchFailed,
		Message: fmt.Sprintf("failed to fetch from %s", repo),
		Hint:    "Check that the repository exists and you have access",
		Cause:   cause,
	}
}

// InvalidRepo returns an error for malformed repo strings.
func InvalidRepo(repo string) *SqueezeError {
	return &SqueezeError{
		Code:    ErrInvalidRepo,
		Message: fmt.Sprintf("invalid repository format: %s", repo),
		Hint:    "Use format: github.com/owner/repo or owner/repo",
	}
}
