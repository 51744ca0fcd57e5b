package parse

// Kind is the kind of a normalized event.
type Kind string

const (
	KindMessage    Kind = "message"
	KindToolCall   Kind = "tool_call"
	KindToolOutput Kind = "tool_output"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Payload is a tool input or output. Value holds either the raw text
// (string) or a decoded JSON value; nil means the record carried none.
type Payload struct {
	Value any
}

// Text returns the payload as raw text.
func (p Payload) Text() (string, bool) {
	s, ok := p.Value.(string)
	return s, ok
}

// Object returns the payload as a JSON object.
func (p Payload) Object() (map[string]any, bool) {
	m, ok := p.Value.(map[string]any)
	return m, ok
}

func (p Payload) IsZero() bool {
	return p.Value == nil
}

// Event is one normalized unit of session activity.
type Event struct {
	Index     int // position in the session, assigned at extraction
	Timestamp string
	Kind      Kind

	// message
	Role string
	Text string

	// tool_call / tool_output
	ToolName string // empty when an output could not be correlated
	Input    Payload
	Output   Payload
	CallID   string

	LineNumber int // 1-based line in the source file
}

// IsUserMessage reports whether e anchors a conversation.
func (e Event) IsUserMessage() bool {
	return e.Kind == KindMessage && e.Role == RoleUser && e.Text != ""
}

// Git is the source-control context recorded by the producer.
type Git struct {
	RepositoryURL string `json:"repository_url" yaml:"repository_url,omitempty"`
	Branch        string `json:"branch" yaml:"branch,omitempty"`
	CommitHash    string `json:"commit_hash" yaml:"commit_hash,omitempty"`
}

func (g *Git) empty() bool {
	return g == nil || (g.RepositoryURL == "" && g.Branch == "" && g.CommitHash == "")
}

// Session is one parsed log file.
type Session struct {
	ID                 string
	StartedAt          string
	Cwd                string
	Git                *Git
	Instructions       string
	InstructionRepeats int
	Events             []Event
	SourcePath         string
}

// RepositoryURL returns the git repository URL or "".
func (s *Session) RepositoryURL() string {
	if s.Git == nil {
		return ""
	}
	return s.Git.RepositoryURL
}
