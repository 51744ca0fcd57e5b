package conversation

import "sort"

// Summary is the index-page bundle of one conversation.
type Summary struct {
	Number    int // 1-based prompt number
	Index     int // conversation ordinal
	Page      int
	AnchorID  string
	Timestamp string
	UserText  string
	Stats     Stats
}

// Link returns the page-relative link to the conversation's prompt.
func (s Summary) Link() string {
	return PageFile(s.Page) + "#" + s.AnchorID
}

// Summarize analyzes every conversation.
func Summarize(convs []Conversation, perPage, longTextThreshold int) []Summary {
	out := make([]Summary, 0, len(convs))
	for i, c := range convs {
		out = append(out, Summary{
			Number:    i + 1,
			Index:     i,
			Page:      PageOf(i, perPage),
			AnchorID:  c.Anchor(),
			Timestamp: c.Timestamp,
			UserText:  c.UserText,
			Stats:     Analyze(c.Events, longTextThreshold),
		})
	}
	return out
}

// TimelineEntry is either a conversation summary or a commit reference.
// Exactly one of Summary and Commit is set.
type TimelineEntry struct {
	Conversation int
	Timestamp    string
	Summary      *Summary
	Commit       *Commit
}

// BuildTimeline merges summaries and their commits into one list ordered
// by timestamp, then conversation ordinal. Entries without a timestamp sort
// first; the sort is stable so equal keys keep log order.
func BuildTimeline(summaries []Summary) []TimelineEntry {
	var entries []TimelineEntry
	for i := range summaries {
		s := &summaries[i]
		entries = append(entries, TimelineEntry{Conversation: s.Index, Timestamp: s.Timestamp, Summary: s})
	}
	for i := range summaries {
		s := &summaries[i]
		for j := range s.Stats.Commits {
			c := &s.Stats.Commits[j]
			entries = append(entries, TimelineEntry{Conversation: s.Index, Timestamp: c.Timestamp, Commit: c})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.Conversation < b.Conversation
	})
	return entries
}

// Totals aggregates the statistics shown on the index page.
type Totals struct {
	Prompts   int
	Messages  int
	ToolCalls int
	Commits   int
	Pages     int
}

// Total sums summaries and conversations for the index header.
func Total(convs []Conversation, summaries []Summary, perPage int) Totals {
	t := Totals{Prompts: len(convs), Pages: PageCount(len(convs), perPage)}
	for _, c := range convs {
		t.Messages += len(c.Events)
	}
	for _, s := range summaries {
		t.ToolCalls += s.Stats.ToolCalls()
		t.Commits += len(s.Stats.Commits)
	}
	return t
}
