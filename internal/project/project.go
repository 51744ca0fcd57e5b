// Package project derives the archive grouping key of a session.
package project

import (
	"regexp"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

// Unknown is the key of sessions with neither a repository nor a cwd.
const Unknown = "unknown"

var (
	githubRepoRe = regexp.MustCompile(`(?:https?://)?(?:api\.)?github\.com[:/](?:repos/)?([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)`)
	slugRe       = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// GitHubRepo returns "owner/repo" for GitHub remote and API URLs, or "".
func GitHubRepo(repoURL string) string {
	if repoURL == "" {
		return ""
	}
	m := githubRepoRe.FindStringSubmatch(repoURL)
	if m == nil {
		return ""
	}
	repo := strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return ""
	}
	return m[1] + "/" + repo
}

// ResolveKey returns the project key and display name of a session: the
// GitHub repository when known, else the working directory, else "unknown".
func ResolveKey(s *parse.Session) (key, name string) {
	if repo := GitHubRepo(s.RepositoryURL()); repo != "" {
		return repo, repo
	}
	if s.Cwd != "" {
		return s.Cwd, s.Cwd
	}
	return Unknown, "Unknown"
}

// Slugify makes text safe for a directory or file name.
func Slugify(text string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(text, "-"), "-")
	if slug == "" {
		return Unknown
	}
	return slug
}
