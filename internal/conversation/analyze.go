package conversation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

// DefaultLongTextThreshold is the length from which assistant messages are
// excerpted on the index page.
const DefaultLongTextThreshold = 300

// CommitRe matches git's "[branch hash] subject" commit summary line.
var CommitRe = regexp.MustCompile(`\[[\w\-/]+ ([a-f0-9]{7,})\] (.+?)(?:\n|$)`)

var exitCodeRe = regexp.MustCompile(`Exit code:\s*(\d+)`)

// Commit is a commit reference found in tool output. Timestamp is that of
// the output that printed it.
type Commit struct {
	Hash      string
	Message   string
	Timestamp string
}

// Stats summarises one conversation.
type Stats struct {
	ToolCounts map[string]int
	LongTexts  []string
	Commits    []Commit
}

// ToolCalls returns the number of tool calls.
func (s Stats) ToolCalls() int {
	n := 0
	for _, c := range s.ToolCounts {
		n += c
	}
	return n
}

// Analyze tallies tool calls, collects long assistant messages and
// extracts commit references from tool output.
func Analyze(events []parse.Event, longTextThreshold int) Stats {
	if longTextThreshold < 1 {
		longTextThreshold = DefaultLongTextThreshold
	}
	stats := Stats{ToolCounts: make(map[string]int)}

	for _, e := range events {
		switch e.Kind {
		case parse.KindToolCall:
			if e.ToolName != "" {
				stats.ToolCounts[e.ToolName]++
			}
		case parse.KindMessage:
			if e.Role == parse.RoleAssistant && utf8.RuneCountInString(e.Text) >= longTextThreshold {
				stats.LongTexts = append(stats.LongTexts, e.Text)
			}
		case parse.KindToolOutput:
			if text, ok := e.Output.Text(); ok {
				stats.Commits = append(stats.Commits, FindCommits(text, e.Timestamp)...)
			}
		}
	}
	return stats
}

// FindCommits returns every commit reference in text, all stamped with ts.
func FindCommits(text, ts string) []Commit {
	var commits []Commit
	for _, m := range CommitRe.FindAllStringSubmatch(text, -1) {
		commits = append(commits, Commit{Hash: m[1], Message: m[2], Timestamp: ts})
	}
	return commits
}

var toolAbbrev = map[string]string{
	"shell":         "shell",
	"shell_command": "shell",
	"apply_patch":   "patch",
	"update_plan":   "plan",
}

// FormatToolStats renders counts as "3 shell | 1 patch", most used first.
func FormatToolStats(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, 0, len(names))
	for _, name := range names {
		short, ok := toolAbbrev[name]
		if !ok {
			short = strings.ToLower(name)
		}
		parts = append(parts, fmt.Sprintf("%d %s", counts[name], short))
	}
	return strings.Join(parts, " | ")
}

// DetectError reports whether a tool output signals failure. Structured
// output fails on a non-zero metadata.exit_code or a truthy is_error; text
// output fails on an "Exit code: N" marker with N != 0.
func DetectError(p parse.Payload) bool {
	if obj, ok := p.Object(); ok {
		if meta, ok := obj["metadata"].(map[string]any); ok && nonZeroExit(meta["exit_code"]) {
			return true
		}
		return truthy(obj["is_error"])
	}
	if text, ok := p.Text(); ok {
		if m := exitCodeRe.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			return err != nil || n != 0
		}
	}
	return false
}

func nonZeroExit(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
