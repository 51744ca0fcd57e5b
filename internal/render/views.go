package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/conversation"
	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
)

type layout struct {
	Title string
	CSS   template.CSS
	JS    template.JS
}

type header struct {
	Meta         *metaView
	Instructions template.HTML
	Repeats      int
}

type pageData struct {
	layout
	header
	Number     int
	Total      int
	Pagination pagination
	Messages   []messageView
}

type indexData struct {
	layout
	header
	Totals     conversation.Totals
	Pagination pagination
	Timeline   []timelineItem
}

// pagination describes the page navigation bar. Current is 0 on the index.
type pagination struct {
	Current int
	Prev    int
	Next    int
	Pages   []int
}

func newPagination(current, total int) pagination {
	p := pagination{Current: current}
	for n := 1; n <= total; n++ {
		p.Pages = append(p.Pages, n)
	}
	if current > 1 {
		p.Prev = current - 1
	}
	if current > 0 && current < total {
		p.Next = current + 1
	}
	return p
}

type metaView struct {
	ID        string
	StartedAt string
	Cwd       string
	Repo      string
	RepoURL   string
	Branch    string
	Commit    string
}

type messageView struct {
	Class     string
	Label     string
	ID        string
	Timestamp string
	Body      template.HTML
}

type commitView struct {
	Hash      string
	Message   string
	Timestamp string
	URL       string
}

type promptView struct {
	Number    int
	Link      string
	Timestamp string
	Content   template.HTML
	ToolStats string
	LongTexts []template.HTML
}

type timelineItem struct {
	Prompt *promptView
	Commit *commitView
}

// sessionWriter carries per-session rendering state.
type sessionWriter struct {
	*Renderer
	repo string // GitHub "owner/repo" or ""
}

func (w *sessionWriter) header(s *parse.Session) header {
	var h header
	m := metaView{ID: s.ID, StartedAt: s.StartedAt, Cwd: s.Cwd}
	if s.Git != nil {
		m.RepoURL = s.Git.RepositoryURL
		m.Repo = project.GitHubRepo(m.RepoURL)
		if m.Repo == "" {
			m.Repo = m.RepoURL
		}
		m.Branch = s.Git.Branch
		m.Commit = s.Git.CommitHash
	}
	if m != (metaView{}) {
		h.Meta = &m
	}
	if s.Instructions != "" {
		h.Instructions = w.markdown(s.Instructions)
		h.Repeats = s.InstructionRepeats
	}
	return h
}

func (w *sessionWriter) message(e parse.Event) messageView {
	v := messageView{ID: conversation.MessageID(e.Timestamp, e.Index), Timestamp: e.Timestamp}
	switch e.Kind {
	case parse.KindToolCall:
		v.Class, v.Label = "tool-call", "Tool"
		v.Body = w.toolCall(e)
	case parse.KindToolOutput:
		v.Class, v.Label = "tool-reply", "Tool result"
		v.Body = w.toolOutput(e)
	default:
		v.Class, v.Label = "user", "User"
		if e.Role == parse.RoleAssistant {
			v.Class, v.Label = "assistant", "Assistant"
		}
		v.Body = w.markdown(e.Text)
	}
	return v
}

type planItem struct {
	Step   string
	Status string
}

func (w *sessionWriter) toolCall(e parse.Event) template.HTML {
	name := e.ToolName
	if name == "" {
		name = "Unknown tool"
	}

	switch name {
	case "shell", "shell_command":
		var command, workdir string
		if obj, ok := e.Input.Object(); ok {
			command = joinCommand(obj["command"])
			workdir, _ = obj["workdir"].(string)
		} else if text, ok := e.Input.Text(); ok {
			command = text
		}
		return w.fragment("shell_tool", map[string]any{"Command": command, "Workdir": workdir, "CallID": e.CallID})

	case "apply_patch":
		patch, ok := e.Input.Text()
		if !ok {
			patch = prettyValue(e.Input.Value)
		}
		return w.fragment("patch_tool", map[string]any{"Patch": patch, "CallID": e.CallID})

	case "update_plan":
		var items []planItem
		var explanation string
		if obj, ok := e.Input.Object(); ok {
			explanation, _ = obj["explanation"].(string)
			plan, _ := obj["plan"].([]any)
			for _, raw := range plan {
				step, _ := raw.(map[string]any)
				text, _ := step["step"].(string)
				status, _ := step["status"].(string)
				items = append(items, planItem{Step: text, Status: strings.ReplaceAll(status, "_", "-")})
			}
		}
		return w.fragment("plan_tool", map[string]any{"Items": items, "Explanation": explanation, "CallID": e.CallID})
	}

	var input string
	switch v := e.Input.Value.(type) {
	case nil:
		input = "{}"
	case string:
		input = v
	default:
		input = prettyValue(v)
	}
	return w.fragment("generic_tool", map[string]any{"Name": name, "Input": input, "CallID": e.CallID})
}

func joinCommand(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, p := range c {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}

// outputBlock is one segment of a tool result: preformatted text, a JSON
// document or a commit card.
type outputBlock struct {
	Text   string
	JSON   bool
	Commit *commitView
}

func (w *sessionWriter) toolOutput(e parse.Event) template.HTML {
	var blocks []outputBlock
	text, isText := e.Output.Text()
	switch {
	case isText && conversation.CommitRe.MatchString(text):
		blocks = w.commitBlocks(text)
	case isText && isJSONLike(text):
		blocks = []outputBlock{jsonBlock(text)}
	case isText:
		blocks = []outputBlock{{Text: text}}
	default:
		blocks = []outputBlock{{Text: prettyValue(e.Output.Value), JSON: true}}
	}
	return w.fragment("tool_result", map[string]any{
		"Blocks": blocks,
		"Error":  conversation.DetectError(e.Output),
	})
}

func (w *sessionWriter) commitBlocks(text string) []outputBlock {
	var blocks []outputBlock
	last := 0
	for _, m := range conversation.CommitRe.FindAllStringSubmatchIndex(text, -1) {
		if before := strings.TrimSpace(text[last:m[0]]); before != "" {
			blocks = append(blocks, outputBlock{Text: before})
		}
		c := w.commit(conversation.Commit{Hash: text[m[2]:m[3]], Message: text[m[4]:m[5]]})
		blocks = append(blocks, outputBlock{Commit: &c})
		last = m[1]
	}
	if after := strings.TrimSpace(text[last:]); after != "" {
		blocks = append(blocks, outputBlock{Text: after})
	}
	return blocks
}

func (w *sessionWriter) commit(c conversation.Commit) commitView {
	v := commitView{Hash: c.Hash, Message: c.Message, Timestamp: c.Timestamp}
	if w.repo != "" {
		v.URL = "https://github.com/" + w.repo + "/commit/" + c.Hash
	}
	return v
}

func (w *sessionWriter) timelineItem(entry conversation.TimelineEntry) timelineItem {
	if entry.Commit != nil {
		c := w.commit(*entry.Commit)
		return timelineItem{Commit: &c}
	}
	s := entry.Summary
	p := &promptView{
		Number:    s.Number,
		Link:      s.Link(),
		Timestamp: s.Timestamp,
		Content:   w.markdown(s.UserText),
		ToolStats: conversation.FormatToolStats(s.Stats.ToolCounts),
	}
	for _, lt := range s.Stats.LongTexts {
		p.LongTexts = append(p.LongTexts, w.markdown(lt))
	}
	return timelineItem{Prompt: p}
}

func isJSONLike(text string) bool {
	text = strings.TrimSpace(text)
	return (strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}")) ||
		(strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"))
}

// jsonBlock pretty prints JSON text, keeping key order. Text that does not
// parse is shown as is.
func jsonBlock(text string) outputBlock {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(text)), "", "  "); err != nil {
		return outputBlock{Text: text}
	}
	return outputBlock{Text: buf.String(), JSON: true}
}

func prettyValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
