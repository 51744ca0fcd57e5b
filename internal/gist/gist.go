// Package gist publishes a rendered transcript as a GitHub gist through the
// gh CLI, staged so that it can be browsed via gistpreview.github.io.
package gist

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
)

//go:embed preview.js
var previewJS string

const previewHost = "gistpreview.github.io"

var (
	ErrNoTranscript = errors.New("no transcript files found")
	ErrMissingIndex = errors.New("missing index.html in transcript output")
	ErrGHNotFound   = errors.New("GitHub CLI 'gh' not found; install it from https://cli.github.com/ and run `gh auth login`")
)

// FormatSessionTimestamp formats an ISO timestamp as "2006-01-02 15:04" in
// its own offset. Unparseable input is returned unchanged.
func FormatSessionTimestamp(ts string) string {
	t := parse.ParseTimestamp(ts)
	if t.IsZero() {
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

// Label identifies a session: start time and id, falling back to the file
// stem.
func Label(s *parse.Session) string {
	var parts []string
	if started := FormatSessionTimestamp(s.StartedAt); started != "" {
		parts = append(parts, started)
	}
	if s.ID != "" {
		parts = append(parts, s.ID)
	} else {
		parts = append(parts, parse.Stem(s.SourcePath))
	}
	if label := strings.TrimSpace(strings.Join(parts, " ")); label != "" {
		return label
	}
	return parse.Stem(s.SourcePath)
}

// Description is the gist description.
func Description(s *parse.Session) string {
	return "Codex transcript: " + Label(s)
}

// IndexFilename is the name the transcript index gets inside the gist.
func IndexFilename(s *parse.Session) string {
	return project.Slugify("codex-transcript-"+Label(s)) + ".html"
}

// ExtractGistID returns the last path segment of a gist URL.
func ExtractGistID(gistURL string) string {
	gistURL = strings.TrimRight(strings.TrimSpace(gistURL), "/")
	if gistURL == "" {
		return ""
	}
	return gistURL[strings.LastIndex(gistURL, "/")+1:]
}

// PreviewURL returns the gistpreview address of a gist file.
func PreviewURL(gistID, filename string) string {
	return "https://" + previewHost + "/?" + gistID + "/" + filename
}

// InjectPreviewJS adds the link-rewriting script to every HTML file in dir
// that does not carry it yet.
func InjectPreviewJS(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		content := string(data)
		if strings.Contains(content, previewHost) || !strings.Contains(content, "</body>") {
			continue
		}
		content = strings.Replace(content, "</body>", "<script>"+previewJS+"</script>\n</body>", 1)
		if err := os.WriteFile(f, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Staged is a transcript copied for upload.
type Staged struct {
	Dir   string
	Index string   // path of the renamed index page
	Files []string // Index first
}

// StageFiles copies the transcript in outputDir into stagingDir, renaming
// index.html to indexFilename and rewriting links to it. With includeJSON
// the session logs are copied too.
func StageFiles(outputDir, stagingDir, indexFilename string, includeJSON bool) (*Staged, error) {
	pages, err := filepath.Glob(filepath.Join(outputDir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTranscript, outputDir)
	}
	sort.Strings(pages)

	rewrite := strings.NewReplacer(
		`href="index.html"`, `href="`+indexFilename+`"`,
		`href='index.html'`, `href='`+indexFilename+`'`,
	)

	st := &Staged{Dir: stagingDir, Index: filepath.Join(stagingDir, indexFilename)}
	var rest []string
	foundIndex := false
	for _, page := range pages {
		data, err := os.ReadFile(page)
		if err != nil {
			return nil, err
		}
		content := rewrite.Replace(string(data))

		target := filepath.Join(stagingDir, filepath.Base(page))
		if filepath.Base(page) == "index.html" {
			target = st.Index
			foundIndex = true
		} else {
			rest = append(rest, target)
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	if !foundIndex {
		return nil, ErrMissingIndex
	}
	st.Files = append([]string{st.Index}, rest...)

	if includeJSON {
		logs, err := filepath.Glob(filepath.Join(outputDir, "*.jsonl"))
		if err != nil {
			return nil, err
		}
		sort.Strings(logs)
		for _, l := range logs {
			target := filepath.Join(stagingDir, filepath.Base(l))
			if err := copyFile(l, target); err != nil {
				return nil, err
			}
			st.Files = append(st.Files, target)
		}
	}

	if err := InjectPreviewJS(stagingDir); err != nil {
		return nil, fmt.Errorf("inject preview script: %w", err)
	}
	return st, nil
}

// Options controls gist creation.
type Options struct {
	GHPath        string // empty looks up gh on PATH
	Description   string
	IndexFilename string
	Public        bool
	IncludeJSON   bool
}

// Result locates a created gist.
type Result struct {
	URL        string
	PreviewURL string
}

// Create stages the transcript in outputDir and uploads it with
// `gh gist create`.
func Create(ctx context.Context, outputDir string, opts Options) (*Result, error) {
	gh := opts.GHPath
	if gh == "" {
		var err error
		if gh, err = exec.LookPath("gh"); err != nil {
			return nil, ErrGHNotFound
		}
	}

	stagingDir, err := os.MkdirTemp("", "codex-gist-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(stagingDir)

	indexName := opts.IndexFilename
	if indexName == "" {
		indexName = "index.html"
	}
	st, err := StageFiles(outputDir, stagingDir, indexName, opts.IncludeJSON)
	if err != nil {
		return nil, err
	}

	args := append([]string{"gist", "create"}, st.Files...)
	if opts.Description != "" {
		args = append(args, "--desc", opts.Description)
	}
	if opts.Public {
		args = append(args, "--public")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, gh, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("create gist: %s", msg)
	}

	res := &Result{URL: lastLine(stdout.String())}
	if id := ExtractGistID(res.URL); id != "" {
		res.PreviewURL = PreviewURL(id, filepath.Base(st.Index))
	}
	return res, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
