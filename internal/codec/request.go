// Package codec translates between the OpenAI Chat Completions surface and
// the Claude Messages API surface.
package codec

import (
	"encoding/json"
	"strings"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// DefaultMaxTokens is applied when an inbound request leaves max_tokens
// unset; the Messages API requires a value.
const DefaultMaxTokens = 4096

// EncodeRequest translates an inbound chat completion request into a Messages
// API request. It never fails: unsupported shapes are dropped, defaulted, or
// passed through so a decodable inbound request always yields an upstream
// request.
func EncodeRequest(req *openai.ChatCompletionRequest, defaultMaxTokens int) *anthropic.MessagesRequest {
	out := &anthropic.MessagesRequest{
		System:      encodeSystem(req.Messages),
		Messages:    encodeMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		TopK:        req.TopK,
		Thinking:    req.Thinking,
	}

	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	if len(req.Stop) > 0 {
		out.StopSequences = req.Stop
	}

	out.Tools, out.ToolChoice = EncodeTools(req.Tools, req.ToolChoice)

	if merged := mergeMetadata(req.Metadata, req.ClaudeMetadata); len(merged) > 0 {
		out.Metadata = merged
	}

	return out
}

// encodeSystem concatenates the text of every system message, in order, with
// a blank line between them.
func encodeSystem(messages []openai.ChatCompletionMessage) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == "system" {
			parts = append(parts, msg.Content.Text())
		}
	}
	return strings.Join(parts, "\n\n")
}

// encodeMessages converts the non-system conversation turns. Every message
// produces at least one content block; the upstream schema rejects empty
// content arrays.
func encodeMessages(messages []openai.ChatCompletionMessage) []anthropic.Message {
	var out []anthropic.Message
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			continue

		case "tool":
			out = append(out, anthropic.Message{
				Role: "user",
				Content: []anthropic.ContentBlock{
					anthropic.ToolResultBlock(toolResultID(msg), msg.Content.Text()),
				},
			})

		case "assistant":
			var blocks []anthropic.ContentBlock
			for _, call := range msg.ToolCalls {
				if call.Type != "" && call.Type != "function" {
					continue
				}
				id := call.ID
				if id == "" {
					id = call.Function.Name
				}
				blocks = append(blocks, anthropic.ToolUseBlock(id, call.Function.Name, parseToolArguments(call.Function.Arguments)))
			}
			if text := msg.Content.Text(); text != "" {
				blocks = append(blocks, anthropic.TextBlock(text))
			}
			if len(blocks) == 0 {
				blocks = []anthropic.ContentBlock{anthropic.TextBlock("")}
			}
			out = append(out, anthropic.Message{Role: "assistant", Content: blocks})

		default:
			// user, and anything unrecognized degrades to a user turn
			out = append(out, anthropic.Message{
				Role:    "user",
				Content: []anthropic.ContentBlock{anthropic.TextBlock(msg.Content.Text())},
			})
		}
	}
	return out
}

// toolResultID correlates a tool message with the invocation it answers.
func toolResultID(msg openai.ChatCompletionMessage) string {
	if msg.ToolCallID != "" {
		return msg.ToolCallID
	}
	if msg.Name != "" {
		return msg.Name
	}
	return "tool_use"
}

// parseToolArguments decodes a call's argument text. Text that is not valid
// JSON is passed through unchanged rather than rejected.
func parseToolArguments(raw string) any {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return parsed
}

// mergeMetadata shallow-merges the standard and provider-specific metadata
// fields, extension keys winning.
func mergeMetadata(metadata, extension map[string]any) map[string]any {
	if len(metadata) == 0 && len(extension) == 0 {
		return nil
	}
	merged := make(map[string]any, len(metadata)+len(extension))
	for k, v := range metadata {
		merged[k] = v
	}
	for k, v := range extension {
		merged[k] = v
	}
	return merged
}
