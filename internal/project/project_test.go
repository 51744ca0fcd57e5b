package project

import (
	"testing"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

func TestGitHubRepo(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/widgets.git", "acme/widgets"},
		{"https://github.com/acme/widgets", "acme/widgets"},
		{"git@github.com:acme/widgets.git", "acme/widgets"},
		{"https://api.github.com/repos/simonw/claude-code-transcripts", "simonw/claude-code-transcripts"},
		{"https://gitlab.com/acme/widgets.git", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := GitHubRepo(tt.url); got != tt.want {
			t.Errorf("GitHubRepo(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name    string
		session *parse.Session
		key     string
		display string
	}{
		{
			name:    "github url",
			session: &parse.Session{Git: &parse.Git{RepositoryURL: "https://github.com/acme/widgets.git"}, Cwd: "/home/u/proj"},
			key:     "acme/widgets",
			display: "acme/widgets",
		},
		{
			name:    "cwd fallback",
			session: &parse.Session{Cwd: "/home/u/proj"},
			key:     "/home/u/proj",
			display: "/home/u/proj",
		},
		{
			name:    "non-github url falls back to cwd",
			session: &parse.Session{Git: &parse.Git{RepositoryURL: "https://example.com/x.git"}, Cwd: "/srv/x"},
			key:     "/srv/x",
			display: "/srv/x",
		},
		{
			name:    "nothing",
			session: &parse.Session{},
			key:     "unknown",
			display: "Unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, display := ResolveKey(tt.session)
			if key != tt.key || display != tt.display {
				t.Errorf("ResolveKey() = %q, %q; want %q, %q", key, display, tt.key, tt.display)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example/repo", "example-repo"},
		{"/home/u/proj", "home-u-proj"},
		{"codex-transcript-2025-01-01 00:00 abc123", "codex-transcript-2025-01-01-00-00-abc123"},
		{"///", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
