package codec

import (
	"fmt"
	"time"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// DecodeResponse translates a complete upstream message into a chat
// completion response. The model echoed back is the id the client asked for,
// not the upstream's published name.
func DecodeResponse(resp *anthropic.MessagesResponse, model string) *openai.ChatCompletionResponse {
	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	id := resp.ID
	if id == "" {
		id = fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	}

	out := &openai.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.Choice{{
			Index: 0,
			Message: openai.AssistantMessage{
				Role:      "assistant",
				Content:   text,
				ToolCalls: DecodeToolCalls(resp.Content),
			},
			FinishReason: FinishReason(resp.StopReason),
		}},
	}

	if resp.Usage != nil && resp.Usage.InputTokens != nil && resp.Usage.OutputTokens != nil {
		out.Usage = &openai.Usage{
			PromptTokens:     *resp.Usage.InputTokens,
			CompletionTokens: *resp.Usage.OutputTokens,
			TotalTokens:      *resp.Usage.InputTokens + *resp.Usage.OutputTokens,
		}
	}

	return out
}

// FinishReason maps an upstream stop reason onto the chat completion
// vocabulary. Unknown reasons count as a normal stop; only a missing reason
// stays null.
func FinishReason(stopReason *string) *string {
	if stopReason == nil {
		return nil
	}

	var reason string
	switch *stopReason {
	case "end_turn", "stop_sequence":
		reason = "stop"
	case "max_tokens":
		reason = "length"
	case "tool_use":
		reason = "tool_calls"
	default:
		reason = "stop"
	}
	return &reason
}
