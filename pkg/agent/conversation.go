package agent

import (
	"encoding/json"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
)

// Turn is one conversation entry. Assistant turns may carry invocations;
// tool turns carry exactly one result.
type Turn struct {
	Role        string
	Content     string
	Invocations []ToolInvocation
	Result      *ToolResult
}

// Conversation is the append-only turn sequence for one session. It is
// owned by the orchestration loop; turns are never edited in place.
type Conversation struct {
	turns []Turn
}

// NewConversation seeds the session with its system and initial user turns.
func NewConversation(systemPrompt, userPrompt string) *Conversation {
	return &Conversation{turns: []Turn{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt},
	}}
}

// AppendAssistant records the reasoning service's turn together with the
// invocations interpreted from it.
func (c *Conversation) AppendAssistant(content string, invocations []ToolInvocation) {
	c.turns = append(c.turns, Turn{Role: llm.RoleAssistant, Content: content, Invocations: invocations})
}

// AppendToolResult records one tool result turn.
func (c *Conversation) AppendToolResult(result *ToolResult) {
	c.turns = append(c.turns, Turn{Role: llm.RoleTool, Result: result})
}

// Turns returns the turn sequence. Callers must treat it as read-only.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Messages renders the conversation in reasoning-service form. Tool results
// become tool-role messages with a JSON body so the service sees payloads
// and error guidance verbatim.
func (c *Conversation) Messages() []llm.Message {
	msgs := make([]llm.Message, 0, len(c.turns))
	for _, turn := range c.turns {
		msg := llm.Message{Role: turn.Role, Content: turn.Content}
		for _, inv := range turn.Invocations {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        inv.ID,
				Name:      inv.Name,
				Arguments: inv.Arguments,
			})
		}
		if turn.Result != nil {
			msg.Content = renderToolResult(turn.Result)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func renderToolResult(res *ToolResult) string {
	body := map[string]any{
		"status":  res.Status,
		"message": res.Message,
	}
	for k, v := range res.Payload {
		body[k] = v
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return res.Message
	}
	return string(encoded)
}
