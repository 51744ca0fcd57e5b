package gist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFormatSessionTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-01T00:00:00Z", "2025-01-01 00:00"},
		{"2025-06-30T14:05:59.123Z", "2025-06-30 14:05"},
		{"2025-01-01T10:30:00+02:00", "2025-01-01 10:30"},
		{"not-a-time", "not-a-time"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatSessionTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatSessionTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabelDescriptionFilename(t *testing.T) {
	s, err := parse.ParseFile("testdata/session_current.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := Label(s), "2025-01-01 00:00 abc123"; got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}
	if got, want := Description(s), "Codex transcript: 2025-01-01 00:00 abc123"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
	if got, want := IndexFilename(s), "codex-transcript-2025-01-01-00-00-abc123.html"; got != want {
		t.Errorf("IndexFilename() = %q, want %q", got, want)
	}

	bare := &parse.Session{SourcePath: "/logs/rollout-x.jsonl"}
	if got := Label(bare); got != "rollout-x" {
		t.Errorf("Label(bare) = %q, want rollout-x", got)
	}
}

func TestExtractGistID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://gist.github.com/user/abc123def456", "abc123def456"},
		{"https://gist.github.com/user/abc123def456/", "abc123def456"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractGistID(tt.in); got != tt.want {
			t.Errorf("ExtractGistID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInjectPreviewJSOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	writeFile(t, path, "<html><body>OK</body></html>")

	for i := 0; i < 2; i++ {
		if err := InjectPreviewJS(dir); err != nil {
			t.Fatalf("InjectPreviewJS() error: %v", err)
		}
	}
	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "gistpreview.github.io") {
		t.Error("preview script not injected")
	}
	if n := strings.Count(content, "<script>"); n != 1 {
		t.Errorf("script count = %d, want 1", n)
	}
}

func TestStageFilesRenamesIndex(t *testing.T) {
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "index.html"), `<a href="index.html">Index</a><a href="page-001.html">Page</a>`)
	writeFile(t, filepath.Join(out, "page-001.html"), `<a href='index.html'>Index</a>`)
	writeFile(t, filepath.Join(out, "session.jsonl"), "{}\n")

	stage := t.TempDir()
	st, err := StageFiles(out, stage, "session-abc.html", true)
	if err != nil {
		t.Fatalf("StageFiles() error: %v", err)
	}

	if filepath.Base(st.Index) != "session-abc.html" {
		t.Errorf("Index = %q", st.Index)
	}
	if len(st.Files) != 3 || st.Files[0] != st.Index {
		t.Errorf("Files = %v", st.Files)
	}
	if _, err := os.Stat(filepath.Join(stage, "index.html")); !os.IsNotExist(err) {
		t.Error("index.html should have been renamed")
	}

	index, _ := os.ReadFile(st.Index)
	if !strings.Contains(string(index), `href="session-abc.html"`) || !strings.Contains(string(index), "page-001.html") {
		t.Errorf("index = %s", index)
	}
	page, _ := os.ReadFile(filepath.Join(stage, "page-001.html"))
	if !strings.Contains(string(page), `href='session-abc.html'`) {
		t.Errorf("page = %s", page)
	}
	if _, err := os.Stat(filepath.Join(stage, "session.jsonl")); err != nil {
		t.Error("session log not staged")
	}
}

func TestStageFilesErrors(t *testing.T) {
	empty := t.TempDir()
	if _, err := StageFiles(empty, t.TempDir(), "x.html", false); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("err = %v, want ErrNoTranscript", err)
	}

	noIndex := t.TempDir()
	writeFile(t, filepath.Join(noIndex, "page-001.html"), "Page 1")
	if _, err := StageFiles(noIndex, t.TempDir(), "x.html", false); !errors.Is(err, ErrMissingIndex) {
		t.Errorf("err = %v, want ErrMissingIndex", err)
	}
}

func TestCreateWithFakeGH(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for gh")
	}
	bin := t.TempDir()
	argsFile := filepath.Join(bin, "args.txt")
	gh := filepath.Join(bin, "gh")
	writeFile(t, gh, "#!/bin/sh\necho \"$@\" > "+argsFile+"\necho 'Creating gist...'\necho https://gist.github.com/user/abc123def456\n")
	if err := os.Chmod(gh, 0o755); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	writeFile(t, filepath.Join(out, "index.html"), "<html><body>x</body></html>")

	res, err := Create(context.Background(), out, Options{
		GHPath:        gh,
		Description:   "Codex transcript: test",
		IndexFilename: "t.html",
		Public:        true,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if res.URL != "https://gist.github.com/user/abc123def456" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.PreviewURL != "https://gistpreview.github.io/?abc123def456/t.html" {
		t.Errorf("PreviewURL = %q", res.PreviewURL)
	}

	args, _ := os.ReadFile(argsFile)
	for _, want := range []string{"gist create", "t.html", "--desc Codex transcript: test", "--public"} {
		if !strings.Contains(string(args), want) {
			t.Errorf("gh args %q missing %q", args, want)
		}
	}
}

func TestCreateFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for gh")
	}
	gh := filepath.Join(t.TempDir(), "gh")
	writeFile(t, gh, "#!/bin/sh\necho 'HTTP 401' >&2\nexit 1\n")
	if err := os.Chmod(gh, 0o755); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "index.html"), "<html><body>x</body></html>")

	_, err := Create(context.Background(), out, Options{GHPath: gh})
	if err == nil || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("err = %v, want gh stderr", err)
	}
}
