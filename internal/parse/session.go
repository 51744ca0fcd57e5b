package parse

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxLineSize = 64 * 1024 * 1024 // tool outputs can be huge

// ParseFile parses one session log.
func ParseFile(filePath string) (*Session, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, filePath)
}

// Parse reads a session log from r. sourcePath is recorded on the session
// and provides the fallback session id.
func Parse(r io.Reader, sourcePath string) (*Session, error) {
	n := NewNormalizer(sourcePath)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		n.Feed(lineNum, scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", sourcePath, err)
	}

	s := n.Session()
	slog.Debug("parsed session", "path", sourcePath, "events", len(s.Events), "skipped", n.Skipped())
	return s, nil
}

// sessionIDFromPath derives an id from the file name. Codex rollout files
// end in the session UUID (rollout-2025-01-26T17-30-22-<uuid>.jsonl); other
// names fall back to the stem.
func sessionIDFromPath(p string) string {
	stem := Stem(p)
	const uuidLen = 36
	if len(stem) >= uuidLen {
		if id, err := uuid.Parse(stem[len(stem)-uuidLen:]); err == nil {
			return id.String()
		}
	}
	return stem
}

// Stem returns the file name without directory and extension.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
