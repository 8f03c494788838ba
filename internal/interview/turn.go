package interview

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleCandidate Role = "candidate"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request emitted by the model to invoke a named tool with
// loosely typed arguments. Argument decoding happens at execution time.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Turn is a single entry of a session's conversation log. The log is
// append-only: turns are never reordered or deleted once recorded.
//
// Hidden marks turns that exist only to steer the model (the synthetic begin
// trigger, for example). They are sent to the gateway but never surface in
// the transcript.
type Turn struct {
	Role       Role       `json:"role"`
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	Hidden     bool       `json:"hidden,omitempty"`
}

// ToolParameter describes one argument of a tool in a provider-neutral way.
// All interview tool arguments are plain strings.
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// ToolDefinition is the provider-neutral descriptor of an invokable tool,
// translated to the concrete function-calling format by the gateway adapter.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}
