package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/conversation"
	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/project"
	"github.com/Zuo-Peng/codex-transcripts/internal/scan"
)

const (
	summaryLen   = 200
	maxEventText = 8000
	roleTool     = "tool"
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors)
}

// Sync brings the catalog in line with the logs under root. Only files whose
// mtime or size changed are parsed again; sessions whose file vanished are
// pruned. perPage determines the page numbers stored with each event.
func Sync(db *DB, root string, perPage int) (Stats, error) {
	var stats Stats

	files, err := scan.Scan(root)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	// track which files we see, for pruning
	seenKeys := make(map[string]struct{})

	for _, fi := range files {
		key := SessionKey(fi.Path)
		seenKeys[key] = struct{}{}

		needs, err := needsUpdate(db, key, fi.Mtime, fi.Size)
		if err != nil {
			stats.Errors++
			continue
		}
		if !needs {
			stats.Skipped++
			continue
		}

		s, err := parse.ParseFile(fi.Path)
		if err != nil {
			stats.Errors++
			slog.Warn("parse session", "path", fi.Path, "error", err)
			continue
		}
		if err := indexSession(db, key, fi, s, perPage); err != nil {
			stats.Errors++
			slog.Warn("index session", "path", fi.Path, "error", err)
			continue
		}
		stats.Updated++
	}

	pruned, err := pruneSessions(db, seenKeys)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	return stats, nil
}

// SessionKey is the catalog key of the log at path: its file stem.
func SessionKey(path string) string {
	return parse.Stem(path)
}

func needsUpdate(db *DB, sessionKey string, mtime, size int64) (bool, error) {
	info, err := db.GetSessionInfo(sessionKey)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil // new session
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func indexSession(db *DB, key string, fi scan.FileInfo, s *parse.Session, perPage int) error {
	// delete old data first
	if err := db.DeleteSession(key); err != nil {
		return err
	}

	convs := conversation.Group(s.Events)
	pageOf := eventPages(s.Events, convs, perPage)
	projectKey, projectName := project.ResolveKey(s)

	var updatedAt string
	for _, e := range s.Events {
		if e.Timestamp != "" {
			updatedAt = e.Timestamp
		}
	}

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_key, session_id, file_path, project_key, project_name, cwd, started_at, updated_at, summary, prompts, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key,
		s.ID,
		fi.Path,
		projectKey,
		projectName,
		s.Cwd,
		s.StartedAt,
		updatedAt,
		parse.Summary(fi.Path, summaryLen),
		len(convs),
		fi.Mtime,
		fi.Size,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO events (session_key, event_index, ts, role, kind, text, page, anchor, line_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range s.Events {
		role, text := searchText(e)
		if text == "" {
			continue
		}
		_, err := stmt.Exec(
			key,
			e.Index,
			e.Timestamp,
			role,
			string(e.Kind),
			text,
			pageOf[e.Index],
			conversation.MessageID(e.Timestamp, e.Index),
			e.LineNumber,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// eventPages maps event index to transcript page. Events before the first
// prompt are on no page.
func eventPages(events []parse.Event, convs []conversation.Conversation, perPage int) map[int]int {
	pages := make(map[int]int, len(events))
	for i, c := range convs {
		page := conversation.PageOf(i, perPage)
		for _, e := range c.Events {
			pages[e.Index] = page
		}
	}
	return pages
}

// searchText returns the role and the text to index for an event.
func searchText(e parse.Event) (role, text string) {
	switch e.Kind {
	case parse.KindToolCall:
		text = strings.TrimSpace(e.ToolName + " " + payloadText(e.Input))
		return roleTool, parse.Truncate(text, maxEventText)
	case parse.KindToolOutput:
		return roleTool, parse.Truncate(payloadText(e.Output), maxEventText)
	default:
		return e.Role, e.Text
	}
}

func payloadText(p parse.Payload) string {
	if text, ok := p.Text(); ok {
		return text
	}
	if obj, ok := p.Object(); ok {
		if cmd, ok := obj["command"].([]any); ok {
			parts := make([]string, 0, len(cmd))
			for _, c := range cmd {
				parts = append(parts, fmt.Sprint(c))
			}
			return strings.Join(parts, " ")
		}
	}
	if p.IsZero() {
		return ""
	}
	data, err := json.Marshal(p.Value)
	if err != nil {
		return ""
	}
	return string(data)
}

func pruneSessions(db *DB, seenKeys map[string]struct{}) (int, error) {
	allKeys, err := db.AllSessionKeys()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for key := range allKeys {
		if _, ok := seenKeys[key]; !ok {
			if err := db.DeleteSession(key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
