package parse

// CallTracker maps tool call identifiers to the tool that was invoked so
// that a later output record can be attributed to it.
type CallTracker struct {
	names map[string]string
}

func NewCallTracker() *CallTracker {
	return &CallTracker{names: make(map[string]string)}
}

// Record remembers the tool behind callID. Empty identifiers are ignored.
func (t *CallTracker) Record(callID, toolName string) {
	if callID == "" {
		return
	}
	t.names[callID] = toolName
}

// Resolve returns the tool recorded for callID. ok is false when the call
// was never recorded; that is not an error, the output is simply anonymous.
func (t *CallTracker) Resolve(callID string) (name string, ok bool) {
	name, ok = t.names[callID]
	return name, ok
}

// messageKey identifies a message across its response-item and
// event-message representations.
type messageKey struct {
	role      string
	text      string
	timestamp string
}

// messageDedup remembers messages already emitted during one parse.
type messageDedup struct {
	seen map[messageKey]struct{}
}

func newMessageDedup() *messageDedup {
	return &messageDedup{seen: make(map[messageKey]struct{})}
}

// firstSeen records k and reports whether this is its first occurrence.
func (d *messageDedup) firstSeen(k messageKey) bool {
	if _, ok := d.seen[k]; ok {
		return false
	}
	d.seen[k] = struct{}{}
	return true
}
