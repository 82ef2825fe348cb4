package agent

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/llm"
)

// Argument shapes declared to the reasoning service. The wire schemas are
// reflected from these structs so Go code and the advertised contract
// cannot drift apart.

type searchArgs struct {
	Keyword string `json:"keyword" jsonschema:"description=The search keyword to find candidate blogs for."`
}

type fetchActionDetails struct {
	Action    string `json:"action,omitempty" jsonschema:"enum=extract-text,enum=click,enum=type,description=Optional page interaction before text extraction."`
	Selector  string `json:"selector,omitempty" jsonschema:"description=CSS selector the action targets."`
	InputText string `json:"input_text,omitempty" jsonschema:"description=Text to type when action is type."`
}

type fetchArgs struct {
	URL             string              `json:"url" jsonschema:"description=Full http or https URL of the page to open."`
	FieldsToExtract []string            `json:"fields_to_extract,omitempty" jsonschema:"description=Names of the record fields this fetch is meant to answer."`
	ActionDetails   *fetchActionDetails `json:"action_details,omitempty"`
}

type extractArgs struct {
	TextContent string `json:"text_content" jsonschema:"description=The page text to extract blog fields from."`
	OriginalURL string `json:"original_url" jsonschema:"description=The URL the text was fetched from."`
}

type finalizeArgs struct {
	CollectedBlogsSummary string  `json:"collected_blogs_summary" jsonschema:"description=One-line summary of what was collected."`
	AllTasksCompleted     bool    `json:"all_tasks_completed" jsonschema:"description=Whether the collection goal was met."`
	QualityScore          float64 `json:"quality_score,omitempty" jsonschema:"description=Self-assessed quality from 0 to 10."`
	Recommendations       string  `json:"recommendations,omitempty" jsonschema:"description=Suggestions for improving future runs."`
}

// ToolSpecs returns the full tool catalog in reasoning-service form.
func ToolSpecs() []llm.ToolSpec {
	return []llm.ToolSpec{
		toolSpec(ToolSearch, "Search the web for candidate blogs matching a keyword.", searchArgs{}),
		toolSpec(ToolFetch, "Open a webpage, optionally interact with it, and return its text content.", fetchArgs{}),
		toolSpec(ToolExtract, "Extract structured blog fields from previously fetched page text.", extractArgs{}),
		toolSpec(ToolFinalize, "Declare the collection finished and summarize the results.", finalizeArgs{}),
	}
}

func toolSpec(name, description string, args any) llm.ToolSpec {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(args)
	schema.Version = ""

	params, err := json.Marshal(schema)
	if err != nil {
		// Reflection of our own static structs cannot fail at runtime.
		params = []byte(`{"type":"object"}`)
	}
	return llm.ToolSpec{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}
