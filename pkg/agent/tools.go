package agent

// Known tool names. Invocations naming anything else are rejected before
// dispatch.
const (
	ToolSearch   = "search_web_for_blogs"
	ToolFetch    = "get_webpage_content_and_interact"
	ToolExtract  = "extract_blog_fields_from_text"
	ToolFinalize = "finalize_blog_data_collection"
)

// KnownTools lists every dispatchable tool.
var KnownTools = []string{ToolSearch, ToolFetch, ToolExtract, ToolFinalize}

// IsKnownTool reports whether name is dispatchable.
func IsKnownTool(name string) bool {
	for _, t := range KnownTools {
		if t == name {
			return true
		}
	}
	return false
}

// InvocationOrigin records how a tool invocation was obtained.
type InvocationOrigin string

const (
	// OriginStructured means the reasoning service emitted a well-formed
	// tool call.
	OriginStructured InvocationOrigin = "structured"
	// OriginRecovered means the invocation was salvaged from free text.
	OriginRecovered InvocationOrigin = "recovered-from-text"
)

// ToolInvocation is one pending tool call.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments map[string]any
	Origin    InvocationOrigin
	// DecodeWarning carries an argument-decode problem noted upstream; it
	// is attached to the eventual result message.
	DecodeWarning string
}

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ToolResult is the uniform envelope produced for every invocation.
// Exactly one result exists per invocation, including internal failures.
type ToolResult struct {
	InvocationID string
	Status       string
	Payload      map[string]any
	Message      string
}

// IsSuccess reports whether the result carries a success status.
func (r *ToolResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

func errorResult(invocationID, message string) *ToolResult {
	return &ToolResult{
		InvocationID: invocationID,
		Status:       StatusError,
		Payload:      map[string]any{},
		Message:      message,
	}
}
