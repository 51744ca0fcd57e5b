package parse

import (
	"bytes"
	"log/slog"
)

// sessionMeta accumulates metadata across every metadata-bearing record.
// Identifier, start time, cwd and git keep the first non-empty value;
// instructions keep the first value and count how often one was seen.
type sessionMeta struct {
	id           string
	startedAt    string
	cwd          string
	git          *Git
	instructions string
	repeats      int
}

func (m *sessionMeta) merge(p metaPayload, recordTS string) {
	setFirst(&m.id, p.ID)
	if p.Timestamp != "" {
		setFirst(&m.startedAt, p.Timestamp)
	} else {
		setFirst(&m.startedAt, recordTS)
	}
	setFirst(&m.cwd, p.Cwd)
	if m.git == nil {
		m.git = decodeGit(p.Git)
	}
	if p.Instructions != "" {
		setFirst(&m.instructions, p.Instructions)
		m.repeats++
	}
}

func setFirst(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// Normalizer turns log lines into events. It owns all state of one scan:
// metadata, the call tracker and the dedup set. A Normalizer is used for a
// single file and is not safe for concurrent use.
type Normalizer struct {
	path    string
	meta    sessionMeta
	events  []Event
	calls   *CallTracker
	dedup   *messageDedup
	skipped int
}

// NewNormalizer starts a scan of the log at path. path is only used for the
// default session id and for log attributes.
func NewNormalizer(path string) *Normalizer {
	return &Normalizer{
		path:  path,
		calls: NewCallTracker(),
		dedup: newMessageDedup(),
	}
}

// Feed consumes one line. Blank, malformed, state and unrecognised lines
// are skipped.
func (n *Normalizer) Feed(lineNum int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	rec, ok := classify(line)
	if !ok {
		n.skip(lineNum, "malformed")
		return
	}

	switch rec.kind {
	case recSessionMeta:
		if m, ok := decodeMetaPayload(rec.payload()); ok {
			n.meta.merge(m, rec.timestamp)
		}

	case recLegacySession:
		if m, ok := decodeMetaPayload(line); ok {
			n.meta.merge(m, rec.timestamp)
		}

	case recResponseItem:
		var item itemPayload
		if decodeLenient(rec.payload(), &item) {
			n.item(rec.timestamp, lineNum, item, true)
		}

	case recEventMsg:
		var evt eventPayload
		if decodeLenient(rec.payload(), &evt) {
			n.eventMessage(rec.timestamp, lineNum, evt)
		}

	case recLegacyItem:
		var item itemPayload
		if decodeLenient(line, &item) {
			n.item(rec.timestamp, lineNum, item, false)
		}

	case recState:
		// producer bookkeeping, nothing to render

	default:
		n.skip(lineNum, "unrecognized")
	}
}

func decodeMetaPayload(raw []byte) (metaPayload, bool) {
	var m metaPayload
	ok := decodeLenient(raw, &m)
	return m, ok
}

func (n *Normalizer) skip(lineNum int, reason string) {
	n.skipped++
	slog.Debug("skipping record", "path", n.path, "line", lineNum, "reason", reason)
}

// item handles response items (current) and bare per-line records (legacy);
// both carry the same payload shape.
func (n *Normalizer) item(ts string, lineNum int, item itemPayload, current bool) {
	switch item.Type {
	case "message":
		text := extractText(item.Content)
		if item.Role == RoleUser && isInstructionRepeat(text, n.meta.instructions) {
			text = InstructionsPlaceholder
		}
		if text != "" {
			if !current || n.dedup.firstSeen(messageKey{item.Role, text, ts}) {
				n.emit(Event{Timestamp: ts, Kind: KindMessage, Role: item.Role, Text: text, LineNumber: lineNum})
			}
		}
		if n.meta.cwd == "" {
			n.meta.cwd = extractCwd(text)
		}

	case "function_call":
		n.calls.Record(item.CallID, item.Name)
		n.emit(Event{
			Timestamp:  ts,
			Kind:       KindToolCall,
			ToolName:   item.Name,
			Input:      parseArguments(item.Arguments),
			CallID:     item.CallID,
			LineNumber: lineNum,
		})

	case "custom_tool_call":
		if !current {
			return
		}
		n.calls.Record(item.CallID, item.Name)
		n.emit(Event{
			Timestamp:  ts,
			Kind:       KindToolCall,
			ToolName:   item.Name,
			Input:      Payload{Value: decodeValue(item.Input)},
			CallID:     item.CallID,
			LineNumber: lineNum,
		})

	case "function_call_output":
		name, _ := n.calls.Resolve(item.CallID)
		n.emit(Event{
			Timestamp:  ts,
			Kind:       KindToolOutput,
			ToolName:   name,
			Output:     Payload{Value: decodeValue(item.Output)},
			CallID:     item.CallID,
			LineNumber: lineNum,
		})
	}
}

// eventMessage handles the event-stream echo of user and agent messages.
func (n *Normalizer) eventMessage(ts string, lineNum int, evt eventPayload) {
	var role string
	text := evt.Message
	switch evt.Type {
	case "user_message":
		role = RoleUser
		if isInstructionRepeat(text, n.meta.instructions) {
			text = InstructionsPlaceholder
		}
	case "agent_message":
		role = RoleAssistant
	default:
		return
	}
	if text == "" || !n.dedup.firstSeen(messageKey{role, text, ts}) {
		return
	}
	n.emit(Event{Timestamp: ts, Kind: KindMessage, Role: role, Text: text, LineNumber: lineNum})
}

func (n *Normalizer) emit(e Event) {
	e.Index = len(n.events)
	n.events = append(n.events, e)
}

// Skipped returns how many non-blank lines were dropped so far.
func (n *Normalizer) Skipped() int {
	return n.skipped
}

// Session assembles the scanned data. It may be called once the whole file
// has been fed.
func (n *Normalizer) Session() *Session {
	m := n.meta
	switch {
	case m.instructions == "":
		m.repeats = 0
	case m.repeats == 0:
		m.repeats = 1
	}

	id := m.id
	if id == "" {
		id = sessionIDFromPath(n.path)
	}

	events := make([]Event, len(n.events))
	copy(events, n.events)

	return &Session{
		ID:                 id,
		StartedAt:          m.startedAt,
		Cwd:                m.cwd,
		Git:                m.git,
		Instructions:       m.instructions,
		InstructionRepeats: m.repeats,
		Events:             events,
		SourcePath:         n.path,
	}
}
