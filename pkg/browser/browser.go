package browser

import (
	"context"
	"time"
)

// Action is a page interaction kind.
type Action string

const (
	ActionExtractText Action = "extract-text"
	ActionClick       Action = "click"
	ActionType        Action = "type"
)

// Request describes one browser operation.
type Request struct {
	URL       string
	Action    Action
	Selector  string
	InputText string
	Timeout   time.Duration
}

// PageData is the content portion of a snapshot.
type PageData struct {
	TextContent  string `json:"text_content"`
	UsedSelector string `json:"used_selector,omitempty"`
}

// Snapshot is the uniform result envelope for a browser operation. Page
// failures are reported inside the envelope, not as Go errors.
type Snapshot struct {
	Status          string   `json:"status"`
	FinalURL        string   `json:"final_url,omitempty"`
	PageTitle       string   `json:"page_title,omitempty"`
	ActionPerformed string   `json:"action_performed,omitempty"`
	Data            PageData `json:"data"`
	ErrorMessage    string   `json:"error_message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Controller drives an underlying browser instance. Implementations must
// tolerate Browse before Start by starting lazily, and Close when never
// started.
type Controller interface {
	Start(ctx context.Context) error
	Browse(ctx context.Context, req Request) *Snapshot
	Close() error
}
