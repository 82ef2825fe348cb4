package agent

import "errors"

// Protocol-level failures. These are always converted to error tool results
// at the dispatcher boundary and never abort a session.
var (
	ErrUnknownTool     = errors.New("unknown tool name")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidURL      = errors.New("url must start with http:// or https://")
	ErrContentTooShort = errors.New("text content too short for extraction")
)
