// Package preview renders a catalogued session for the terminal.
package preview

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/mattn/go-runewidth"
)

const (
	colorReset   = "\033[0m"
	colorUser    = "\033[1;34m" // bold blue
	colorAssist  = "\033[1;32m" // bold green
	colorTool    = "\033[1;35m" // bold magenta
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitIndex int    // event index of the hit, -1 for none
	Context  int    // events before/after hit to show; <0 shows all
	Width    int    // wrap width (0 = no wrap)
	Query    string // search query for keyword highlighting
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	var terms []string
	for _, t := range strings.Fields(query) {
		t = strings.Trim(t, `"*()`)
		if t != "" && !fts5Operators[t] {
			terms = append(terms, regexp.QuoteMeta(t))
		}
	}
	if len(terms) == 0 {
		return text
	}
	re, err := regexp.Compile("(?i)(?:" + strings.Join(terms, "|") + ")")
	if err != nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return colorBoldRed + m + colorReset
	})
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, correctly skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

func roleStyle(role, kind string) (color, label string) {
	switch {
	case role == "user":
		return colorUser, "USER"
	case role == "assistant":
		return colorAssist, "ASST"
	case kind == "tool_call":
		return colorTool, "TOOL"
	case kind == "tool_output":
		return colorTool, "RESULT"
	default:
		return colorDim, strings.ToUpper(role)
	}
}

// RenderSession renders the events of a session around opts.HitIndex and
// returns the content and the 0-based line of the hit header (-1 if none).
func RenderSession(db *index.DB, sessionKey string, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}

	session, err := db.GetSessionByKey(sessionKey)
	if err != nil {
		return "", -1, err
	}

	events, hitIdx, startPos, totalCount, err := db.GetEventsWindow(sessionKey, opts.HitIndex, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get events: %w", err)
	}

	if totalCount == 0 {
		return "(empty session)", -1, nil
	}

	skipAfter := totalCount - startPos - len(events)

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	separator := colorDim + strings.Repeat("-", 50) + colorReset

	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(fmt.Sprintf("%s--- %s [%s] %s ---%s", colorDim, sessionKey, session.ProjectName, session.StartedAt, colorReset))

	if startPos > 0 {
		writeLine(fmt.Sprintf("%s... (%d events before) ...%s", colorDim, startPos, colorReset))
	}

	for i, e := range events {
		isHit := i == hitIdx
		if i > 0 {
			writeLine(separator)
		}
		if isHit {
			hitLine = lineCount
		}

		color, label := roleStyle(e.Role, e.Kind)
		if isHit {
			writeLine(fmt.Sprintf("%s>> %s > %s <<%s", colorHit, label, e.Ts, colorReset))
		} else {
			writeLine(fmt.Sprintf("%s%s >%s %s%s%s", color, label, colorReset, colorDim, e.Ts, colorReset))
		}

		text := indentLines(highlightKeywords(e.Text, opts.Query), "  ")
		for _, tl := range strings.Split(text, "\n") {
			writeLine(tl)
		}
		writeLine("")
	}

	if skipAfter > 0 {
		writeLine(fmt.Sprintf("%s... (%d events after) ...%s", colorDim, skipAfter, colorReset))
	}

	return b.String(), hitLine, nil
}
