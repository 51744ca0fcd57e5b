// Package conversation splits a parsed session into prompt-anchored
// conversations, pages them and derives per-conversation statistics.
package conversation

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
)

// DefaultPerPage is the number of conversations rendered on one page.
const DefaultPerPage = 5

// Conversation is a user prompt and every event up to the next prompt.
type Conversation struct {
	UserText  string
	Timestamp string
	Events    []parse.Event // Events[0] is the prompt
}

// Anchor returns the message id of the conversation's prompt.
func (c Conversation) Anchor() string {
	return MessageID(c.Timestamp, c.Events[0].Index)
}

// Group partitions events into conversations. A new conversation starts at
// every non-empty user message. Events before the first user message have
// no anchor and are not part of any conversation; see Leading.
func Group(events []parse.Event) []Conversation {
	var convs []Conversation
	var cur *Conversation
	for _, e := range events {
		if e.IsUserMessage() {
			if cur != nil {
				convs = append(convs, *cur)
			}
			cur = &Conversation{
				UserText:  e.Text,
				Timestamp: e.Timestamp,
				Events:    []parse.Event{e},
			}
			continue
		}
		if cur != nil {
			cur.Events = append(cur.Events, e)
		}
	}
	if cur != nil {
		convs = append(convs, *cur)
	}
	return convs
}

// Leading returns the events that precede the first user message and are
// therefore dropped by Group.
func Leading(events []parse.Event) []parse.Event {
	for i, e := range events {
		if e.IsUserMessage() {
			return events[:i]
		}
	}
	return events
}

// Page is one rendered page of conversations.
type Page struct {
	Number        int // 1-based
	Offset        int // index of the first conversation on the page
	Conversations []Conversation
}

// PageCount returns ceil(n / perPage).
func PageCount(n, perPage int) int {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return (n + perPage - 1) / perPage
}

// PageOf returns the 1-based page holding conversation index i.
func PageOf(i, perPage int) int {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return i/perPage + 1
}

// Paginate slices conversations into contiguous pages of perPage.
func Paginate(convs []Conversation, perPage int) []Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total := PageCount(len(convs), perPage)
	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		start := (n - 1) * perPage
		end := min(start+perPage, len(convs))
		pages = append(pages, Page{
			Number:        n,
			Offset:        start,
			Conversations: convs[start:end],
		})
	}
	return pages
}

// PageFile is the file name of page n.
func PageFile(n int) string {
	return fmt.Sprintf("page-%03d.html", n)
}

// MessageID derives a stable anchor from an event's timestamp and index.
func MessageID(timestamp string, index int) string {
	if timestamp == "" {
		return fmt.Sprintf("msg-%d", index)
	}
	safe := strings.NewReplacer(":", "-", ".", "-").Replace(timestamp)
	return fmt.Sprintf("msg-%s-%d", safe, index)
}
