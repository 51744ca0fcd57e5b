package parse

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// NoSummary is returned when a session has no usable first prompt.
const NoSummary = "(no summary)"

// Summary returns the first real user prompt of the log at filePath,
// truncated to maxLen characters. Environment-context and AGENTS.md
// boilerplate messages are skipped.
func Summary(filePath string, maxLen int) string {
	f, err := os.Open(filePath)
	if err != nil {
		return NoSummary
	}
	defer f.Close()
	return SummaryFromReader(f, maxLen)
}

// SummaryFromReader is Summary over an open log.
func SummaryFromReader(r io.Reader, maxLen int) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, ok := classify(line)
		if !ok {
			continue
		}

		var raw []byte
		switch rec.kind {
		case recResponseItem:
			raw = rec.payload()
		case recLegacyItem:
			raw = line
		default:
			continue
		}

		var item itemPayload
		if !decodeLenient(raw, &item) || item.Type != "message" || item.Role != RoleUser {
			continue
		}
		text := extractText(item.Content)
		if text == "" || isBoilerplate(text) {
			continue
		}
		return Truncate(text, maxLen)
	}
	return NoSummary
}

func isBoilerplate(text string) bool {
	return strings.Contains(text, "<environment_context>") ||
		strings.HasPrefix(strings.TrimSpace(text), "# AGENTS.md instructions")
}

// Truncate shortens s to at most maxLen characters, marking the cut with
// "...". maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	keep := maxLen - 3
	if keep < 0 {
		keep = 0
	}
	return string([]rune(s)[:keep]) + "..."
}
