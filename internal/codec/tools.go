package codec

import (
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// EncodeTools converts tool definitions and the tool_choice directive. A
// "none" choice suppresses the tool list entirely; unrecognized choice shapes
// keep the tools but carry no directive.
func EncodeTools(tools []openai.Tool, choice any) ([]anthropic.Tool, *anthropic.ToolChoice) {
	if isNoneChoice(choice) || len(tools) == 0 {
		return nil, nil
	}

	out := make([]anthropic.Tool, 0, len(tools))
	for _, t := range tools {
		schema := t.Function.Parameters
		if isEmptySchema(schema) {
			schema = emptyObjectSchema()
		}
		out = append(out, anthropic.Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}

	return out, encodeToolChoice(choice)
}

func isNoneChoice(choice any) bool {
	s, ok := choice.(string)
	return ok && s == "none"
}

func encodeToolChoice(choice any) *anthropic.ToolChoice {
	switch v := choice.(type) {
	case string:
		if v == "auto" {
			return &anthropic.ToolChoice{Type: "auto"}
		}
	case map[string]any:
		if fn, ok := v["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				return &anthropic.ToolChoice{Type: "tool", Name: name}
			}
		}
	}
	return nil
}

func isEmptySchema(schema any) bool {
	if schema == nil {
		return true
	}
	if m, ok := schema.(map[string]any); ok {
		return len(m) == 0
	}
	return false
}

// emptyObjectSchema stands in for tools declared without parameters; the
// upstream schema requires one.
func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

// DecodeToolCalls converts tool_use blocks from an upstream response into
// tool calls with arguments re-serialized as JSON text.
func DecodeToolCalls(content []anthropic.ResponseContent) []openai.ToolCall {
	var calls []openai.ToolCall
	for _, block := range content {
		if block.Type != "tool_use" {
			continue
		}
		arguments := "{}"
		if len(block.Input) > 0 {
			arguments = string(block.Input)
		}
		calls = append(calls, openai.ToolCall{
			ID:   block.ID,
			Type: "function",
			Function: openai.FunctionCall{
				Name:      block.Name,
				Arguments: arguments,
			},
		})
	}
	return calls
}
