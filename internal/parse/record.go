package parse

import (
	"encoding/json"
	"errors"
)

// recordKind tags the shape of one log line. Producers have written three
// generations of records; the tag is decided once per line and the
// normalizer dispatches on it.
type recordKind int

const (
	recUnknown recordKind = iota
	recSessionMeta
	recResponseItem
	recEventMsg
	recLegacySession
	recState
	recLegacyItem
)

func (k recordKind) String() string {
	switch k {
	case recSessionMeta:
		return "session_meta"
	case recResponseItem:
		return "response_item"
	case recEventMsg:
		return "event_msg"
	case recLegacySession:
		return "legacy_session"
	case recState:
		return "state"
	case recLegacyItem:
		return "legacy_item"
	default:
		return "unknown"
	}
}

// record is a classified line. fields keeps the raw top-level members so
// each variant decodes only what it needs.
type record struct {
	kind      recordKind
	timestamp string
	fields    map[string]json.RawMessage
}

// session_meta payload, also the shape of a legacy whole-session record
type metaPayload struct {
	ID           string          `json:"id"`
	Timestamp    string          `json:"timestamp"`
	Cwd          string          `json:"cwd"`
	Instructions string          `json:"instructions"`
	Git          json.RawMessage `json:"git"`
}

// response_item payload, also the shape of a legacy per-line record
type itemPayload struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Name      string          `json:"name"`
	CallID    string          `json:"call_id"`
	Arguments json.RawMessage `json:"arguments"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
}

// event_msg payload (flat, not nested)
type eventPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// classify decodes one line and tags its generation. ok is false when the
// line is not a JSON object.
func classify(line []byte) (rec record, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return record{}, false
	}

	typ := rawString(fields["type"])
	rec = record{
		timestamp: rawString(fields["timestamp"]),
		fields:    fields,
	}

	switch {
	case typ == "session_meta":
		rec.kind = recSessionMeta
	case typ == "response_item":
		rec.kind = recResponseItem
	case typ == "event_msg":
		rec.kind = recEventMsg
	case has(fields, "id") && has(fields, "timestamp") && has(fields, "git"):
		rec.kind = recLegacySession
	case rawString(fields["record_type"]) == "state":
		rec.kind = recState
	case typ == "message" || typ == "function_call" || typ == "function_call_output":
		rec.kind = recLegacyItem
	default:
		rec.kind = recUnknown
	}
	return rec, true
}

// payload returns the raw "payload" member of a current-generation record.
func (r record) payload() json.RawMessage {
	return r.fields["payload"]
}

// decodeLenient decodes raw into v. Members of an unexpected type are left
// at their zero value; only malformed JSON is reported as a failure.
func decodeLenient(raw []byte, v any) bool {
	if len(raw) == 0 {
		return false
	}
	err := json.Unmarshal(raw, v)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}

func has(fields map[string]json.RawMessage, key string) bool {
	_, ok := fields[key]
	return ok
}

// rawString decodes a JSON string member, returning "" for anything else.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// decodeGit reads the git descriptor, ignoring members that are not strings.
func decodeGit(raw json.RawMessage) *Git {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil
	}
	g := &Git{
		RepositoryURL: rawString(fields["repository_url"]),
		Branch:        rawString(fields["branch"]),
		CommitHash:    rawString(fields["commit_hash"]),
	}
	if g.empty() {
		return nil
	}
	return g
}
