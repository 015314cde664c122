// Package github provides GitHub API integration for fetching rule packs.
package github

import (
	"os"
	"os/exec"
	"strings"

	"github.com/HartBrook/squeeze/internal/errors"
)

// EnvGitHubToken overrides the token for squeeze alone.
const EnvGitHubToken = "SQUEEZE_GITHUB_TOKEN"

type tokenSource struct {
	name  string
	token func() (string, error)
}

// tokenSources are tried in order; the first non-empty token wins.
var tokenSources = []tokenSource{
	{"gh CLI", ghAuthToken},
	{EnvGitHubToken, envToken(EnvGitHubToken)},
	{"GH_TOKEN", envToken("GH_TOKEN")},
	{"GITHUB_TOKEN", envToken("GITHUB_TOKEN")},
}

func ghAuthToken() (string, error) {
	out, err := exec.Command("gh", "auth", "token").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func envToken(name string) func() (string, error) {
	return func() (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	}
}

func resolveToken() (token, method string, err error) {
	for _, src := range tokenSources {
		t, srcErr := src.token()
		if srcErr != nil {
			if err == nil {
				err = srcErr
			}
			continue
		}
		if t != "" {
			return t, src.name, nil
		}
	}
	return "", "none", err
}

// GetToken returns the first token found in the gh CLI or the environment.
func GetToken() (string, error) {
	token, _, err := resolveToken()
	if token == "" {
		return "", errors.GitHubAuthFailed(err)
	}
	return token, nil
}

// AuthMethod names the source GetToken would use, or "none".
func AuthMethod() string {
	_, method, _ := resolveToken()
	return method
}
