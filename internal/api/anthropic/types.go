// Package anthropic provides a client for Claude models served through the
// Vertex AI Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"
)

// Version is the Messages API revision stamped into every request body.
// Vertex AI requires it in place of a model field, which lives in the URL.
const Version = "vertex-2023-10-16"

// MessagesRequest represents a request to the Messages API.
type MessagesRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	Messages         []Message       `json:"messages"`
	System           string          `json:"system,omitempty"`
	MaxTokens        int             `json:"max_tokens"`
	StopSequences    []string        `json:"stop_sequences,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             *float32        `json:"top_p,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolChoice       *ToolChoice     `json:"tool_choice,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	Thinking         json.RawMessage `json:"thinking,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one typed block of message content. Only the fields for the
// block's type are set; Text is a pointer so an empty text block still
// carries its text field on the wire.
type ContentBlock struct {
	Type      string  `json:"type"`
	Text      *string `json:"text,omitempty"`
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Input     any     `json:"input,omitempty"`
	ToolUseID string  `json:"tool_use_id,omitempty"`
	Content   *string `json:"content,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: &text}
}

// ToolUseBlock builds a tool_use content block.
func ToolUseBlock(id, name string, input any) ContentBlock {
	return ContentBlock{Type: "tool_use", ID: id, Name: name, Input: input}
}

// ToolResultBlock builds a tool_result content block.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: "tool_result", ToolUseID: toolUseID, Content: &content}
}

// Tool describes a tool the model may invoke.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

// ToolChoice controls how the model selects tools.
type ToolChoice struct {
	Type string `json:"type"` // "auto", "any", "tool"
	Name string `json:"name,omitempty"`
}

// MessagesResponse represents a response from the Messages API.
type MessagesResponse struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Role         string            `json:"role"`
	Model        string            `json:"model"`
	Content      []ResponseContent `json:"content"`
	StopReason   *string           `json:"stop_reason"`
	StopSequence *string           `json:"stop_sequence"`
	Usage        *Usage            `json:"usage"`
}

// ResponseContent represents content in a response. Tool input stays raw JSON
// so arguments survive re-serialization untouched.
type ResponseContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Usage reports token consumption. Both counts are pointers because the
// upstream may omit either, and usage must not be invented downstream.
type Usage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

// ErrorResponse represents an upstream API error body.
type ErrorResponse struct {
	Type  string    `json:"type"`
	Error *APIError `json:"error"`
}

// APIError contains error details. StatusCode carries the HTTP status the
// error arrived with so callers can mirror it.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic api error (status %d): %s: %s", e.StatusCode, e.Type, e.Message)
}

// ParseErrorResponse builds an APIError from a non-200 upstream reply. Bodies
// that do not match the documented error shape still yield a usable error.
func ParseErrorResponse(statusCode int, body []byte) *APIError {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return &APIError{
			StatusCode: statusCode,
			Type:       errResp.Error.Type,
			Message:    errResp.Error.Message,
		}
	}
	return &APIError{
		StatusCode: statusCode,
		Type:       "api_error",
		Message:    string(body),
	}
}
