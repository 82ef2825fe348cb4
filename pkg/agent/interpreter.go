package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
)

// recoveredTextLimit bounds the text_content value salvaged by the narrow
// extract fallback.
const recoveredTextLimit = 2000

var (
	recoveredTextRe = regexp.MustCompile(`(?s)"text_content"\s*:\s*"(.*?)"\s*[,}]`)
	recoveredURLRe  = regexp.MustCompile(`"(?:original_)?url"\s*:\s*"(.*?)"`)
)

// Interpreter turns a reasoning-service message into tool invocations,
// salvaging informally-shaped requests from free text when the service
// failed to emit structured calls. Pure: no side effects beyond logging.
type Interpreter struct {
	logger *logrus.Logger
}

// NewInterpreter builds an interpreter.
func NewInterpreter(logger *logrus.Logger) *Interpreter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Interpreter{logger: logger}
}

// Interpret produces the ordered invocation list for one assistant turn.
// An empty result means the assistant requested no further tool use.
// lastFetchedURL, when non-empty, lets the narrow extract fallback fill in
// a missing URL from the most recent successful fetch.
func (i *Interpreter) Interpret(msg llm.Message, lastFetchedURL string) []ToolInvocation {
	if len(msg.ToolCalls) > 0 {
		return i.fromStructured(msg.ToolCalls)
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil
	}

	if inv, ok := i.recoverFromText(text); ok {
		return []ToolInvocation{inv}
	}
	if inv, ok := i.recoverExtractCall(text, lastFetchedURL); ok {
		return []ToolInvocation{inv}
	}

	i.logger.Debug("No tool invocations found in assistant turn")
	return nil
}

func (i *Interpreter) fromStructured(calls []llm.ToolCall) []ToolInvocation {
	invocations := make([]ToolInvocation, 0, len(calls))
	for _, call := range calls {
		args := call.Arguments
		if args == nil {
			args = map[string]any{}
		}
		id := call.ID
		if id == "" {
			id = newInvocationID()
		}
		invocations = append(invocations, ToolInvocation{
			ID:            id,
			Name:          call.Name,
			Arguments:     args,
			Origin:        OriginStructured,
			DecodeWarning: call.DecodeWarning,
		})
	}
	return invocations
}

// recoverFromText tries the ordered free-text strategies: a fenced ```json
// block first, then the whole text through the loose-object cascade. The
// recovered object must name a known tool; anything else is discarded so a
// false-positive parse cannot corrupt the loop.
func (i *Interpreter) recoverFromText(text string) (ToolInvocation, bool) {
	var candidates []string
	if fenced, ok := ExtractFencedObject(text); ok {
		candidates = append(candidates, fenced)
	}
	candidates = append(candidates, text)

	for _, candidate := range candidates {
		obj, ok := ParseLooseObject(candidate)
		if !ok {
			continue
		}
		name, args, ok := toolCallShape(obj)
		if !ok {
			continue
		}
		if !IsKnownTool(name) {
			i.logger.WithField("tool", name).Warn("Discarding recovered call to unrecognized tool")
			return ToolInvocation{}, false
		}
		i.logger.WithField("tool", name).Warn("Recovered tool call from free text")
		return ToolInvocation{
			ID:        newInvocationID(),
			Name:      name,
			Arguments: args,
			Origin:    OriginRecovered,
		}, true
	}
	return ToolInvocation{}, false
}

// toolCallShape checks an object for the informal call shape: a "name"
// string plus an "arguments" or "parameters" map.
func toolCallShape(obj map[string]any) (string, map[string]any, bool) {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return "", nil, false
	}
	for _, key := range []string{"arguments", "parameters"} {
		if args, ok := obj[key].(map[string]any); ok {
			return name, args, true
		}
	}
	return "", nil, false
}

// recoverExtractCall is the narrow fallback for the extraction tool: when
// the text mentions it but no call shape was decodable, pull the two
// conventional argument values out directly. Both must be recoverable or
// nothing is synthesized.
func (i *Interpreter) recoverExtractCall(text, lastFetchedURL string) (ToolInvocation, bool) {
	if !strings.Contains(text, ToolExtract) {
		return ToolInvocation{}, false
	}

	textMatch := recoveredTextRe.FindStringSubmatch(text)
	if textMatch == nil {
		return ToolInvocation{}, false
	}
	content := truncateRunes(unescapeJSONString(textMatch[1]), recoveredTextLimit)

	url := ""
	if urlMatch := recoveredURLRe.FindStringSubmatch(text); urlMatch != nil {
		url = unescapeJSONString(urlMatch[1])
	}
	if url == "" {
		url = lastFetchedURL
	}
	if url == "" || content == "" {
		return ToolInvocation{}, false
	}

	i.logger.WithField("url", url).Warn("Synthesized extraction call from free text")
	return ToolInvocation{
		ID:   newInvocationID(),
		Name: ToolExtract,
		Arguments: map[string]any{
			"text_content": content,
			"original_url": url,
		},
		Origin: OriginRecovered,
	}, true
}

// unescapeJSONString decodes escape sequences in a regex-captured string
// value, falling back to the raw capture when it is not valid JSON.
func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

func newInvocationID() string {
	return "call_" + uuid.New().String()[:8]
}
