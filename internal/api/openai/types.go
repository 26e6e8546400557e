// Package openai provides the wire types for the OpenAI Chat Completions
// API surface exposed by the gateway.
package openai

import (
	"encoding/json"
	"fmt"
)

// ChatCompletionRequest represents an OpenAI chat completion request.
// Optional generation parameters are pointers so that unset and zero are
// distinguishable; fields the gateway does not understand are ignored by
// the JSON decoder.
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature *float32                `json:"temperature,omitempty"`
	TopP        *float32                `json:"top_p,omitempty"`
	TopK        *int                    `json:"top_k,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
	Stop        StopList                `json:"stop,omitempty"`
	Tools       []Tool                  `json:"tools,omitempty"`
	ToolChoice  any                     `json:"tool_choice,omitempty"`
	Metadata    map[string]any          `json:"metadata,omitempty"`

	// ClaudeMetadata carries provider-specific metadata. It is shallow-merged
	// over Metadata before the request is forwarded, extension keys winning.
	ClaudeMetadata map[string]any `json:"claude_metadata,omitempty"`

	// Thinking is the extended-thinking configuration, forwarded verbatim.
	Thinking json.RawMessage `json:"thinking,omitempty"`
}

// ChatCompletionMessage represents a message in the chat completion request.
type ChatCompletionMessage struct {
	Role       string         `json:"role"`
	Content    MessageContent `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// MessageContent is message content that arrives either as a plain string or
// as an ordered list of typed parts.
type MessageContent []ContentPart

// UnmarshalJSON accepts a string, a list of typed parts, or anything else.
// Unrecognized shapes decode to empty content rather than an error; request
// translation must degrade, not reject.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*c = MessageContent{{Type: "text", Text: str}}
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err == nil {
		*c = parts
		return nil
	}

	*c = nil
	return nil
}

// Text returns the concatenation of all text parts, with no separator.
// Non-text parts (images and the like) contribute nothing.
func (c MessageContent) Text() string {
	var out string
	for _, part := range c {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out
}

// ContentPart is a single typed unit of message content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// StopList is the stop parameter, which arrives as a string or a list of
// strings. Anything else decodes to an empty list.
type StopList []string

// UnmarshalJSON handles both string and array stop formats.
func (s *StopList) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StopList{str}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}

	*s = nil
	return nil
}

// Tool represents a tool that the model can call.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionTool `json:"function"`
}

// FunctionTool describes a function tool.
type FunctionTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolCall represents a tool call made by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its arguments as JSON text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatCompletionResponse represents a chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason *string          `json:"finish_reason"`
}

// AssistantMessage is the assistant turn in a completion response. Content is
// always a plain string on the response side of the protocol.
type AssistantMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk represents a streaming chunk. ID is stable for the
// whole stream; Created is stamped per chunk.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice represents a choice in a streaming chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta is the delta content in a streaming chunk: {role, content} on
// the first content chunk, {content} afterwards, {} on the terminal chunk.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Model represents a model entry served by /v1/models.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList represents a list of models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// ErrorResponse is the error envelope for every error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
