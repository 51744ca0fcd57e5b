package tui

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/Zuo-Peng/codex-transcripts/internal/search"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each entry occupies.
const linesPerItem = 2

// item is one pickable session, either from the recent list or a search hit.
type item struct {
	SessionKey string
	Project    string
	Date       string
	Summary    string
	Snippet    string
	HitIndex   int // event index of the search hit, -1 for none
}

func itemFromSession(s index.SessionRow) item {
	return item{
		SessionKey: s.SessionKey,
		Project:    s.ProjectName,
		Date:       s.UpdatedAt,
		Summary:    s.Summary,
		Snippet:    s.Cwd,
		HitIndex:   -1,
	}
}

func itemFromResult(r search.Result) item {
	return item{
		SessionKey: r.SessionKey,
		Project:    r.ProjectName,
		Date:       r.UpdatedAt,
		Summary:    r.Summary,
		Snippet:    r.Snippet,
		HitIndex:   r.EventIndex,
	}
}

// shortDate turns "2026-01-27T10:00:00Z" into "01-27 10:00".
func shortDate(ts string) string {
	switch {
	case len(ts) >= 16:
		return ts[5:10] + " " + ts[11:16]
	case len(ts) >= 10:
		return ts[5:10]
	default:
		return ts
	}
}

// flatten collapses whitespace and strips the snippet hit markers.
func flatten(s string) string {
	s = strings.NewReplacer(">>>", "", "<<<", "", "\t", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "...")
	}
	return s
}

// renderList renders the left panel with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.items) == 0 {
		msg := "No sessions"
		if m.query != "" {
			msg = "No results"
		}
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(msg)
	}

	var lines []string
	for i, it := range m.items {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatItem(it, width, i == m.cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatItem formats an entry as two lines:
//
//	line 1: [>] MM-DD HH:MM  project  summary
//	line 2:    snippet or cwd (dimmed)
func formatItem(it item, width int, selected bool) []string {
	date := shortDate(it.Date)
	project := fit(it.Project, 24)
	used := 2 + runewidth.StringWidth(date) + 1 + runewidth.StringWidth(project) + 1
	summary := fit(flatten(it.Summary), width-used)

	line1 := fmt.Sprintf("%s %s %s", date, styleProject.Render(project), summary)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	line2 := "    " + styleSnippet.Render(fit(flatten(it.Snippet), width-4))
	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
