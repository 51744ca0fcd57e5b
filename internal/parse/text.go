package parse

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// InstructionsPlaceholder replaces user messages that only repeat the
// session's system instructions.
const InstructionsPlaceholder = "System instructions repeated. See [system instructions](#system-instructions)."

var cwdTagRe = regexp.MustCompile(`(?s)<cwd>(.*?)</cwd>`)

// extractText flattens message content: plain text is trimmed, a list of
// content blocks contributes every block's "text" joined by newlines.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	// try string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	// try array of content blocks
	var blocks []json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		var block map[string]json.RawMessage
		if err := json.Unmarshal(b, &block); err != nil {
			continue
		}
		if text := rawString(block["text"]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// decodeValue decodes any JSON value; absent or null members yield nil.
func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// parseArguments decodes tool arguments. Producers usually send them as a
// JSON-encoded string; if that string is not JSON it is kept verbatim.
func parseArguments(raw json.RawMessage) Payload {
	v := decodeValue(raw)
	s, ok := v.(string)
	if !ok {
		return Payload{Value: v}
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return Payload{Value: s}
	}
	return Payload{Value: parsed}
}

// extractCwd finds a <cwd>...</cwd> tag in message text.
func extractCwd(text string) string {
	m := cwdTagRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// normalizeForMatch drops all whitespace and folds case.
func normalizeForMatch(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// isInstructionRepeat reports whether message contains the instructions
// once whitespace and case are ignored.
func isInstructionRepeat(message, instructions string) bool {
	if message == "" || instructions == "" {
		return false
	}
	needle := normalizeForMatch(instructions)
	if needle == "" {
		return false
	}
	return strings.Contains(normalizeForMatch(message), needle)
}

// ParseTimestamp parses the timestamp formats producers write. It returns
// the zero time for anything else.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// try RFC3339
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// try RFC3339Nano
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// try ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t
	}
	return time.Time{}
}
