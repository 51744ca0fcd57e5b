// Package render writes a parsed session as a paginated static HTML
// transcript: one page per group of conversations plus an index page with
// the prompt and commit timeline.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/codex-transcripts/internal/conversation"
	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html static/*
var assets embed.FS

// IndexFile is the name of the transcript's entry page.
const IndexFile = "index.html"

var pageTemplates = []string{"page.html", "index.html", "project_index.html", "master_index.html"}

// Options controls transcript generation.
type Options struct {
	IncludeJSON       bool // copy the source log next to the HTML
	PerPage           int
	LongTextThreshold int
}

func (o Options) withDefaults() Options {
	if o.PerPage < 1 {
		o.PerPage = conversation.DefaultPerPage
	}
	if o.LongTextThreshold < 1 {
		o.LongTextThreshold = conversation.DefaultLongTextThreshold
	}
	return o
}

// Renderer holds the parsed templates and the markdown pipeline. It is safe
// for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	pages  map[string]*template.Template
	macros *template.Template
	css    template.CSS
	js     template.JS
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	css, err := assets.ReadFile("static/style.css")
	if err != nil {
		return nil, err
	}
	js, err := assets.ReadFile("static/app.js")
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
		policy: bluemonday.UGCPolicy(),
		pages:  make(map[string]*template.Template),
		css:    template.CSS(css),
		js:     template.JS(js),
	}

	root, err := template.New("root").Funcs(template.FuncMap{
		"pageFile": conversation.PageFile,
	}).ParseFS(assets, "templates/base.html", "templates/macros.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.macros = root

	for _, name := range pageTemplates {
		t, err := root.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(assets, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Generate parses the session log at sessionPath and writes its transcript
// into outputDir. It returns the path of the index page.
func (r *Renderer) Generate(sessionPath, outputDir string, opts Options) (string, error) {
	s, err := parse.ParseFile(sessionPath)
	if err != nil {
		return "", err
	}
	return r.GenerateSession(s, outputDir, opts)
}

// GenerateSession writes the transcript of an already parsed session.
func (r *Renderer) GenerateSession(s *parse.Session, outputDir string, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	convs := conversation.Group(s.Events)
	if lead := conversation.Leading(s.Events); len(lead) > 0 {
		slog.Debug("events before first prompt omitted", "path", s.SourcePath, "count", len(lead))
	}

	w := &sessionWriter{Renderer: r, repo: project.GitHubRepo(s.RepositoryURL())}
	head := w.header(s)
	total := conversation.PageCount(len(convs), opts.PerPage)

	for _, p := range conversation.Paginate(convs, opts.PerPage) {
		data := pageData{
			layout:     r.layout(fmt.Sprintf("Codex transcript - page %d", p.Number)),
			header:     head,
			Number:     p.Number,
			Total:      total,
			Pagination: newPagination(p.Number, total),
		}
		for _, c := range p.Conversations {
			for _, e := range c.Events {
				data.Messages = append(data.Messages, w.message(e))
			}
		}
		if err := r.write(filepath.Join(outputDir, conversation.PageFile(p.Number)), "page.html", data); err != nil {
			return "", err
		}
	}

	summaries := conversation.Summarize(convs, opts.PerPage, opts.LongTextThreshold)
	idx := indexData{
		layout:     r.layout("Codex transcript"),
		header:     head,
		Totals:     conversation.Total(convs, summaries, opts.PerPage),
		Pagination: newPagination(0, total),
	}
	for _, entry := range conversation.BuildTimeline(summaries) {
		idx.Timeline = append(idx.Timeline, w.timelineItem(entry))
	}

	indexPath := filepath.Join(outputDir, IndexFile)
	if err := r.write(indexPath, "index.html", idx); err != nil {
		return "", err
	}

	if opts.IncludeJSON && s.SourcePath != "" {
		dst := filepath.Join(outputDir, filepath.Base(s.SourcePath))
		if err := copyFile(s.SourcePath, dst); err != nil {
			return "", fmt.Errorf("copy session log: %w", err)
		}
	}
	return indexPath, nil
}

func (r *Renderer) layout(title string) layout {
	return layout{Title: title, CSS: r.css, JS: r.js}
}

func (r *Renderer) write(path, page string, data any) error {
	var buf bytes.Buffer
	if err := r.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// fragment executes a named macro into trusted HTML.
func (r *Renderer) fragment(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := r.macros.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Warn("render fragment failed", "template", name, "error", err)
		return ""
	}
	return template.HTML(buf.String())
}

// markdown renders text as sanitized HTML. Raw HTML in the source is
// dropped by goldmark and whatever survives is filtered by the policy.
func (r *Renderer) markdown(text string) template.HTML {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
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
