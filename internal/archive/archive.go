// Package archive converts a whole tree of session logs into a browsable
// archive: one transcript per session grouped under per-project index pages
// and a master index.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
	"github.com/Zuo-Peng/codex-transcripts/internal/render"
	"github.com/Zuo-Peng/codex-transcripts/internal/scan"
)

const summaryLen = 200

// Session is a log file found under the source root.
type Session struct {
	Path    string
	Name    string // file stem, also the output directory name
	ID      string
	Summary string
	ModTime time.Time
	Size    int64
}

// Project groups the sessions sharing a project key.
type Project struct {
	Key      string
	Name     string
	Slug     string
	Sessions []Session // newest first
}

// FindAllSessions parses every log under root and groups them by project.
// Projects are ordered by their newest session. Logs that cannot be read are
// grouped under the unknown project so that conversion reports them.
func FindAllSessions(root string) ([]Project, error) {
	files, err := scan.Recent(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	bySlug := make(map[string]*Project)
	var order []*Project
	for _, f := range files {
		key, name := project.Unknown, "Unknown"
		var id string
		if s, err := parse.ParseFile(f.Path); err != nil {
			slog.Debug("unreadable session", "path", f.Path, "error", err)
		} else {
			key, name = project.ResolveKey(s)
			id = s.ID
		}

		slug := project.Slugify(key)
		p, ok := bySlug[slug]
		if !ok {
			p = &Project{Key: key, Name: name, Slug: slug}
			bySlug[slug] = p
			order = append(order, p)
		}
		p.Sessions = append(p.Sessions, Session{
			Path:    f.Path,
			Name:    parse.Stem(f.Path),
			ID:      id,
			Summary: parse.Summary(f.Path, summaryLen),
			ModTime: f.ModTime(),
			Size:    f.Size,
		})
	}

	// files arrive newest first, so first-seen order is newest-session order
	projects := make([]Project, 0, len(order))
	for _, p := range order {
		projects = append(projects, *p)
	}
	return projects, nil
}

// ProgressFunc is called after every session conversion attempt.
type ProgressFunc func(projectName, sessionName string, done, total int)

// Options controls batch conversion.
type Options struct {
	render.Options
	Progress ProgressFunc
}

// Failure records a session that could not be converted.
type Failure struct {
	Project string
	Session string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s/%s: %v", f.Project, f.Session, f.Err)
}

// Result summarises a batch conversion.
type Result struct {
	TotalProjects int
	TotalSessions int // converted successfully
	Failures      []Failure
	OutputDir     string
}

// GenerateBatch converts every session under root into outputDir. A failing
// session is recorded in the result and does not stop the batch.
func GenerateBatch(root, outputDir string, opts Options) (*Result, error) {
	projects, err := FindAllSessions(root)
	if err != nil {
		return nil, err
	}
	return GenerateProjects(projects, outputDir, opts)
}

// GenerateProjects converts sessions already grouped by FindAllSessions.
func GenerateProjects(projects []Project, outputDir string, opts Options) (*Result, error) {
	r, err := render.New()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	total := 0
	for _, p := range projects {
		total += len(p.Sessions)
	}

	res := &Result{TotalProjects: len(projects), OutputDir: outputDir}
	done := 0
	master := render.MasterIndex{TotalSessions: total}

	for _, p := range projects {
		projectDir := filepath.Join(outputDir, p.Slug)
		if err := os.MkdirAll(projectDir, 0o755); err != nil {
			return nil, fmt.Errorf("create project dir: %w", err)
		}

		idx := render.ProjectIndex{Name: p.Name}
		for _, s := range p.Sessions {
			if _, err := r.Generate(s.Path, filepath.Join(projectDir, s.Name), opts.Options); err != nil {
				slog.Warn("session conversion failed", "project", p.Name, "session", s.Name, "error", err)
				res.Failures = append(res.Failures, Failure{Project: p.Name, Session: s.Name, Err: err})
			} else {
				res.TotalSessions++
			}
			done++
			if opts.Progress != nil {
				opts.Progress(p.Name, s.Name, done, total)
			}

			idx.Sessions = append(idx.Sessions, render.SessionEntry{
				Name:    s.Name,
				Summary: s.Summary,
				Date:    s.ModTime.Format("2006-01-02 15:04"),
				SizeKB:  float64(s.Size) / 1024,
			})
		}
		if err := r.WriteProjectIndex(projectDir, idx); err != nil {
			return nil, err
		}

		master.Projects = append(master.Projects, render.ProjectEntry{
			Name:         p.Name,
			Slug:         p.Slug,
			SessionCount: len(p.Sessions),
			RecentDate:   p.Sessions[0].ModTime.Format("2006-01-02"),
		})
	}

	if err := r.WriteMasterIndex(outputDir, master); err != nil {
		return nil, err
	}
	return res, nil
}
