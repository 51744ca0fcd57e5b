package conversation

import (
	"reflect"
	"testing"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

func msg(role, text, ts string) parse.Event {
	return parse.Event{Kind: parse.KindMessage, Role: role, Text: text, Timestamp: ts}
}

func call(name string) parse.Event {
	return parse.Event{Kind: parse.KindToolCall, ToolName: name}
}

func output(text, ts string) parse.Event {
	return parse.Event{Kind: parse.KindToolOutput, Output: parse.Payload{Value: text}, Timestamp: ts}
}

func indexed(events ...parse.Event) []parse.Event {
	for i := range events {
		events[i].Index = i
	}
	return events
}

func TestGroupPartitionsEvents(t *testing.T) {
	events := indexed(
		msg("assistant", "preamble", "t0"),
		msg("user", "first", "t1"),
		call("shell"),
		msg("assistant", "done", "t2"),
		msg("user", "second", "t3"),
		msg("user", "", "t4"),
		msg("user", "third", "t5"),
	)

	convs := Group(events)
	if len(convs) != 3 {
		t.Fatalf("len(convs) = %d, want 3", len(convs))
	}
	if convs[0].UserText != "first" || convs[1].UserText != "second" || convs[2].UserText != "third" {
		t.Errorf("anchors = %q, %q, %q", convs[0].UserText, convs[1].UserText, convs[2].UserText)
	}
	if len(convs[1].Events) != 2 {
		t.Errorf("empty user message should stay inside the open conversation, got %d events", len(convs[1].Events))
	}

	rebuilt := append([]parse.Event{}, Leading(events)...)
	for _, c := range convs {
		rebuilt = append(rebuilt, c.Events...)
	}
	if !reflect.DeepEqual(rebuilt, events) {
		t.Error("Leading + conversations does not reproduce the event list")
	}
}

func TestGroupWithoutUserMessage(t *testing.T) {
	events := indexed(msg("assistant", "hi", ""), call("shell"))
	if convs := Group(events); len(convs) != 0 {
		t.Errorf("len(convs) = %d, want 0", len(convs))
	}
	if got := Leading(events); len(got) != 2 {
		t.Errorf("len(Leading) = %d, want 2", len(got))
	}
}

func TestPaginate(t *testing.T) {
	convs := make([]Conversation, 12)
	pages := Paginate(convs, 5)
	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("pages[%d].Number = %d", i, p.Number)
		}
	}
	if len(pages[2].Conversations) != 2 {
		t.Errorf("last page holds %d conversations, want 2", len(pages[2].Conversations))
	}
	if pages[2].Offset != 10 {
		t.Errorf("last page offset = %d, want 10", pages[2].Offset)
	}
	if PageCount(12, 5) != 3 || PageCount(0, 5) != 0 || PageCount(10, 5) != 2 {
		t.Error("PageCount mismatch")
	}
	if PageOf(4, 5) != 1 || PageOf(5, 5) != 2 {
		t.Error("PageOf mismatch")
	}
	if PageFile(3) != "page-003.html" {
		t.Errorf("PageFile(3) = %q", PageFile(3))
	}
}

func TestMessageID(t *testing.T) {
	if got := MessageID("2025-01-01T00:00:01.500Z", 7); got != "msg-2025-01-01T00-00-01-500Z-7" {
		t.Errorf("MessageID = %q", got)
	}
	if got := MessageID("", 3); got != "msg-3" {
		t.Errorf("MessageID = %q", got)
	}
}

func TestFindCommits(t *testing.T) {
	got := FindCommits("[my-repo abcdef1] Fix bug\nmore text", "t9")
	want := []Commit{{Hash: "abcdef1", Message: "Fix bug", Timestamp: "t9"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindCommits = %+v, want %+v", got, want)
	}

	multi := FindCommits("[main 1234567] One\n[feature/x 89abcdef0] Two", "t1")
	if len(multi) != 2 || multi[1].Hash != "89abcdef0" || multi[1].Message != "Two" {
		t.Errorf("multi = %+v", multi)
	}
	if multi[0].Timestamp != "t1" || multi[1].Timestamp != "t1" {
		t.Error("every commit should carry the output timestamp")
	}

	if none := FindCommits("[main abc] too short", "t"); len(none) != 0 {
		t.Errorf("short hash matched: %+v", none)
	}
}

func TestAnalyze(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	events := indexed(
		msg("user", "go", "t1"),
		call("shell"),
		call("shell"),
		call("apply_patch"),
		call(""),
		output("[main abcdef1] Fix bug\n", "t2"),
		parse.Event{Kind: parse.KindToolOutput, Output: parse.Payload{Value: map[string]any{"output": "[main abcdef1] x"}}},
		msg("assistant", string(long), "t3"),
		msg("assistant", "short", "t4"),
		msg("user", string(long), "t5"),
	)

	stats := Analyze(events, 300)
	if stats.ToolCounts["shell"] != 2 || stats.ToolCounts["apply_patch"] != 1 || len(stats.ToolCounts) != 2 {
		t.Errorf("ToolCounts = %v", stats.ToolCounts)
	}
	if stats.ToolCalls() != 3 {
		t.Errorf("ToolCalls() = %d, want 3", stats.ToolCalls())
	}
	if len(stats.LongTexts) != 1 {
		t.Errorf("len(LongTexts) = %d, want 1", len(stats.LongTexts))
	}
	if len(stats.Commits) != 1 || stats.Commits[0].Timestamp != "t2" {
		t.Errorf("Commits = %+v", stats.Commits)
	}
}

func TestFormatToolStats(t *testing.T) {
	got := FormatToolStats(map[string]int{"apply_patch": 1, "shell_command": 3, "Web_Search": 1})
	if want := "3 shell | 1 patch | 1 web_search"; got != want {
		t.Errorf("FormatToolStats = %q, want %q", got, want)
	}
	if FormatToolStats(nil) != "" {
		t.Error("empty counts should format as empty string")
	}
}

func TestDetectError(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"exit zero", map[string]any{"metadata": map[string]any{"exit_code": float64(0)}}, false},
		{"exit one", map[string]any{"metadata": map[string]any{"exit_code": float64(1)}}, true},
		{"exit null", map[string]any{"metadata": map[string]any{"exit_code": nil}}, false},
		{"is_error", map[string]any{"is_error": true}, true},
		{"is_error false", map[string]any{"is_error": false}, false},
		{"text exit 2", "stderr...\nExit code: 2\n", true},
		{"text exit 0", "Exit code: 0", false},
		{"plain text", "all good", false},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectError(parse.Payload{Value: tt.v}); got != tt.want {
				t.Errorf("DetectError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildTimeline(t *testing.T) {
	summaries := []Summary{
		{Index: 0, Timestamp: "2025-01-01T00:00:01Z", Stats: Stats{Commits: []Commit{{Hash: "aaaaaaa", Timestamp: "2025-01-01T00:00:05Z"}}}},
		{Index: 1, Timestamp: "2025-01-01T00:00:03Z", Stats: Stats{Commits: []Commit{{Hash: "bbbbbbb", Timestamp: ""}}}},
		{Index: 2, Timestamp: "2025-01-01T00:00:03Z"},
	}

	entries := BuildTimeline(summaries)
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}

	type key struct {
		conv   int
		commit string
	}
	var got []key
	for _, e := range entries {
		k := key{conv: e.Conversation}
		if e.Commit != nil {
			k.commit = e.Commit.Hash
		}
		got = append(got, k)
	}
	want := []key{
		{1, "bbbbbbb"}, // empty timestamp first
		{0, ""},
		{1, ""},
		{2, ""}, // same timestamp, later conversation
		{0, "aaaaaaa"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("timeline = %+v, want %+v", got, want)
	}
}

func TestSummarizeAndTotal(t *testing.T) {
	events := indexed(
		msg("user", "one", "t1"),
		call("shell"),
		output("[main abcdef1] Fix\n", "t2"),
		msg("user", "two", ""),
	)
	convs := Group(events)
	sums := Summarize(convs, 1, 300)
	if len(sums) != 2 {
		t.Fatalf("len(sums) = %d", len(sums))
	}
	if sums[1].Page != 2 || sums[1].Number != 2 {
		t.Errorf("second summary = %+v", sums[1])
	}
	if got := sums[0].Link(); got != "page-001.html#msg-t1-0" {
		t.Errorf("Link() = %q", got)
	}
	if got := sums[1].AnchorID; got != "msg-3" {
		t.Errorf("AnchorID = %q", got)
	}

	tot := Total(convs, sums, 1)
	want := Totals{Prompts: 2, Messages: 4, ToolCalls: 1, Commits: 1, Pages: 2}
	if tot != want {
		t.Errorf("Total = %+v, want %+v", tot, want)
	}
}
