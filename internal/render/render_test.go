package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func writeSession(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateCreatesPages(t *testing.T) {
	r := newRenderer(t)
	out := filepath.Join(t.TempDir(), "output")

	indexPath, err := r.Generate("testdata/session_current.jsonl", out, Options{IncludeJSON: true})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if indexPath != filepath.Join(out, "index.html") {
		t.Errorf("indexPath = %q", indexPath)
	}

	index := readFile(t, indexPath)
	for _, want := range []string{"Codex transcript", "Hello", "page-001.html#msg-2025-01-01T00-00-01Z-0", "1 shell", "abc123"} {
		if !strings.Contains(index, want) {
			t.Errorf("index.html missing %q", want)
		}
	}

	page := readFile(t, filepath.Join(out, "page-001.html"))
	for _, want := range []string{
		`id="msg-2025-01-01T00-00-01Z-0"`,
		"https://github.com/example/repo/commit/abcdef1",
		"bash -lc git commit -m &#39;Fix bug&#39;",
		"/tmp/project",
		"System instructions",
		"Done.",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page-001.html missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(out, "page-002.html")); !os.IsNotExist(err) {
		t.Error("unexpected page-002.html")
	}
	if _, err := os.Stat(filepath.Join(out, "session_current.jsonl")); err != nil {
		t.Errorf("source log not copied: %v", err)
	}
}

func TestGenerateSanitizesContent(t *testing.T) {
	r := newRenderer(t)
	path := writeSession(t,
		`{"timestamp":"2025-01-01T00:00:00Z","type":"session_meta","payload":{"id":"abc123","timestamp":"2025-01-01T00:00:00Z"}}`,
		`{"timestamp":"2025-01-01T00:00:01Z","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"Hello <script>alert(1)</script> [x](javascript:alert(2)) <img src=x onerror=alert(3)>"}]}}`,
	)
	out := t.TempDir()
	indexPath, err := r.Generate(path, out, Options{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, file := range []string{indexPath, filepath.Join(out, "page-001.html")} {
		content := readFile(t, file)
		for _, bad := range []string{"<script>alert", "javascript:", "onerror"} {
			if strings.Contains(content, bad) {
				t.Errorf("%s contains %q", filepath.Base(file), bad)
			}
		}
		if !strings.Contains(content, "Hello") {
			t.Errorf("%s lost the safe text", filepath.Base(file))
		}
	}
}

func TestGeneratePaginates(t *testing.T) {
	r := newRenderer(t)
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf(
			`{"timestamp":"2025-01-01T00:00:%02dZ","type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"prompt %d"}]}}`, i, i))
	}
	out := t.TempDir()
	if _, err := r.Generate(writeSession(t, lines...), out, Options{PerPage: 5}); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, name := range []string{"page-001.html", "page-002.html", "page-003.html"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "page-004.html")); !os.IsNotExist(err) {
		t.Error("unexpected page-004.html")
	}

	last := readFile(t, filepath.Join(out, "page-003.html"))
	if strings.Count(last, `class="message user"`) != 2 {
		t.Errorf("last page should hold 2 prompts")
	}
	index := readFile(t, filepath.Join(out, "index.html"))
	if !strings.Contains(index, "page-003.html#msg-2025-01-01T00-00-11Z-11") {
		t.Error("index should link prompt 12 on page 3")
	}
}

func TestGenerateWithoutPrompts(t *testing.T) {
	r := newRenderer(t)
	path := writeSession(t,
		`{"timestamp":"2025-01-01T00:00:01Z","type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"nobody asked"}]}}`,
	)
	out := t.TempDir()
	indexPath, err := r.Generate(path, out, Options{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "page-001.html")); !os.IsNotExist(err) {
		t.Error("no page should be written without prompts")
	}
	if !strings.Contains(readFile(t, indexPath), "0 prompts") {
		t.Error("index should report 0 prompts")
	}
}

func TestGenerateMissingFile(t *testing.T) {
	r := newRenderer(t)
	if _, err := r.Generate(filepath.Join(t.TempDir(), "nope.jsonl"), t.TempDir(), Options{}); err == nil {
		t.Error("expected error for missing session file")
	}
}

func TestToolCallRendering(t *testing.T) {
	w := &sessionWriter{Renderer: newRenderer(t)}

	tests := []struct {
		name  string
		event parse.Event
		want  []string
	}{
		{
			name: "shell list",
			event: parse.Event{Kind: parse.KindToolCall, ToolName: "shell", Input: parse.Payload{Value: map[string]any{
				"command": []any{"ls", "-la"}, "workdir": "/srv",
			}}},
			want: []string{"ls -la", "/srv"},
		},
		{
			name:  "shell text",
			event: parse.Event{Kind: parse.KindToolCall, ToolName: "shell_command", Input: parse.Payload{Value: "make test"}},
			want:  []string{"make test"},
		},
		{
			name:  "patch",
			event: parse.Event{Kind: parse.KindToolCall, ToolName: "apply_patch", Input: parse.Payload{Value: "*** Begin Patch"}},
			want:  []string{"*** Begin Patch", "patch-tool"},
		},
		{
			name: "plan",
			event: parse.Event{Kind: parse.KindToolCall, ToolName: "update_plan", Input: parse.Payload{Value: map[string]any{
				"explanation": "two steps",
				"plan": []any{
					map[string]any{"step": "write code", "status": "completed"},
					map[string]any{"step": "test it", "status": "in_progress"},
				},
			}}},
			want: []string{"two steps", "plan-completed", "plan-in-progress", "test it"},
		},
		{
			name:  "generic",
			event: parse.Event{Kind: parse.KindToolCall, ToolName: "web_search", Input: parse.Payload{Value: map[string]any{"q": "go"}}},
			want:  []string{"web_search", "&#34;q&#34;: &#34;go&#34;"},
		},
		{
			name:  "unnamed without input",
			event: parse.Event{Kind: parse.KindToolCall},
			want:  []string{"Unknown tool", "{}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(w.toolCall(tt.event))
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("toolCall() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestToolOutputRendering(t *testing.T) {
	w := &sessionWriter{Renderer: newRenderer(t), repo: "acme/widgets"}

	got := string(w.toolOutput(parse.Event{Output: parse.Payload{Value: "before\n[main abcdef1] Fix bug\nafter"}}))
	for _, want := range []string{"before", "https://github.com/acme/widgets/commit/abcdef1", "Fix bug", "after"} {
		if !strings.Contains(got, want) {
			t.Errorf("commit output missing %q: %s", want, got)
		}
	}

	got = string(w.toolOutput(parse.Event{Output: parse.Payload{Value: `{"b":1,"a":2}`}}))
	if !strings.Contains(got, `class="json"`) || !strings.Contains(got, "&#34;b&#34;: 1") {
		t.Errorf("json output = %s", got)
	}

	got = string(w.toolOutput(parse.Event{Output: parse.Payload{Value: "Exit code: 1\nboom"}}))
	if !strings.Contains(got, "tool-error") {
		t.Errorf("failed output not flagged: %s", got)
	}

	got = string(w.toolOutput(parse.Event{Output: parse.Payload{Value: map[string]any{"metadata": map[string]any{"exit_code": float64(0)}}}}))
	if strings.Contains(got, "tool-error") || !strings.Contains(got, "exit_code") {
		t.Errorf("structured output = %s", got)
	}
}

func TestCommitWithoutRepo(t *testing.T) {
	w := &sessionWriter{Renderer: newRenderer(t)}
	got := string(w.toolOutput(parse.Event{Output: parse.Payload{Value: "[main abcdef1] Fix bug"}}))
	if strings.Contains(got, "href=") {
		t.Errorf("commit card linked without repository: %s", got)
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 3)
	if p.Prev != 1 || p.Next != 3 || len(p.Pages) != 3 {
		t.Errorf("newPagination(2, 3) = %+v", p)
	}
	p = newPagination(3, 3)
	if p.Next != 0 {
		t.Errorf("last page Next = %d, want 0", p.Next)
	}
	p = newPagination(0, 2)
	if p.Prev != 0 || p.Next != 0 {
		t.Errorf("index pagination = %+v", p)
	}
}

func TestWriteArchiveIndexes(t *testing.T) {
	r := newRenderer(t)
	dir := t.TempDir()

	err := r.WriteProjectIndex(dir, ProjectIndex{
		Name:     "acme/widgets",
		Sessions: []SessionEntry{{Name: "run-a", Summary: "Fix <b>it</b>", Date: "2025-01-01 10:00", SizeKB: 1.5}},
	})
	if err != nil {
		t.Fatalf("WriteProjectIndex() error: %v", err)
	}
	got := readFile(t, filepath.Join(dir, "index.html"))
	for _, want := range []string{"acme/widgets", `href="run-a/index.html"`, "Fix &lt;b&gt;it&lt;/b&gt;", "1.5 KB"} {
		if !strings.Contains(got, want) {
			t.Errorf("project index missing %q", want)
		}
	}

	err = r.WriteMasterIndex(dir, MasterIndex{
		Projects:      []ProjectEntry{{Name: "acme/widgets", Slug: "acme-widgets", SessionCount: 2, RecentDate: "2025-01-01"}},
		TotalSessions: 2,
	})
	if err != nil {
		t.Fatalf("WriteMasterIndex() error: %v", err)
	}
	got = readFile(t, filepath.Join(dir, "index.html"))
	if !strings.Contains(got, `href="acme-widgets/index.html"`) || !strings.Contains(got, "1 projects") {
		t.Errorf("master index = %s", got)
	}
}
