// Package search queries the session catalog: FTS5 for word queries and a
// LIKE scan for CJK text, which the unicode61 tokenizer does not split.
package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/codex-transcripts/internal/conversation"
	"github.com/Zuo-Peng/codex-transcripts/internal/index"
)

type Result struct {
	SessionKey  string
	EventIndex  int
	UpdatedAt   string
	ProjectName string
	Summary     string
	Snippet     string
	Role        string
	Page        int
	Anchor      string
	Rank        float64
}

// Link returns the transcript-relative link of the hit, or "" when the
// event is not on any page.
func (r Result) Link() string {
	if r.Page < 1 {
		return ""
	}
	return conversation.PageFile(r.Page) + "#" + r.Anchor
}

type Options struct {
	Query   string
	Project string // substring of the project key; "" = all
	Role    string // "" = all, "user", "assistant", "tool"
	Since   string // "" = no filter, e.g. "2024-01-01"
	Limit   int
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	runes := []rune(text)
	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 || query == "" {
		// no match, return head
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	qLen := len([]rune(query))
	runePos := len([]rune(text[:idx]))
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))
	hitEnd := min(runePos+qLen, len(runes))

	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	// wrap the matched part with markers
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:hitEnd]) + "<<<" +
		string(runes[hitEnd:end])
	return prefix + snippet + suffix
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	// Deduplicate: keep only the best-ranked result per session
	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.SessionKey] {
			continue
		}
		seen[r.SessionKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

// filters returns the shared WHERE conditions after the text match.
func filters(opts Options) ([]string, []any) {
	var conditions []string
	var args []any
	if opts.Project != "" {
		conditions = append(conditions, "s.project_key LIKE ?")
		args = append(args, "%"+opts.Project+"%")
	}
	if opts.Role != "" {
		conditions = append(conditions, "e.role = ?")
		args = append(args, opts.Role)
	}
	if opts.Since != "" {
		conditions = append(conditions, "s.updated_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	conditions := []string{"events_fts MATCH ?"}
	args := []any{opts.Query}
	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	query := fmt.Sprintf(`
		SELECT
			e.session_key,
			e.event_index,
			s.updated_at,
			s.project_name,
			s.summary,
			snippet(events_fts, 0, '>>>','<<<', '...', 40) as snip,
			e.role,
			e.page,
			e.anchor,
			bm25(events_fts, 1.0) as rank
		FROM events_fts
		JOIN events e ON events_fts.rowid = e.rowid
		JOIN sessions s ON e.session_key = s.session_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	// LIKE match for CJK substring search
	conditions := []string{"e.text LIKE ?"}
	args := []any{"%" + opts.Query + "%"}
	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	query := fmt.Sprintf(`
		SELECT
			e.session_key,
			e.event_index,
			s.updated_at,
			s.project_name,
			s.summary,
			e.text,
			e.role,
			e.page,
			e.anchor,
			0.0
		FROM events e
		JOIN sessions s ON e.session_key = s.session_key
		WHERE %s
		ORDER BY s.updated_at DESC, e.event_index
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Snippet = makeSnippet(results[i].Snippet, opts.Query, 30)
	}
	return results, nil
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.SessionKey, &r.EventIndex, &r.UpdatedAt,
			&r.ProjectName, &r.Summary,
			&r.Snippet, &r.Role, &r.Page, &r.Anchor, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
