package anthropic

import (
	"encoding/json"
	"testing"
)

func TestContentBlockMarshal(t *testing.T) {
	tests := []struct {
		name  string
		block ContentBlock
		want  string
	}{
		{
			name:  "text block",
			block: TextBlock("Hello"),
			want:  `{"type":"text","text":"Hello"}`,
		},
		{
			name:  "empty text block keeps text field",
			block: TextBlock(""),
			want:  `{"type":"text","text":""}`,
		},
		{
			name:  "tool use block",
			block: ToolUseBlock("toolu_01", "get_weather", map[string]any{"city": "Oslo"}),
			want:  `{"type":"tool_use","id":"toolu_01","name":"get_weather","input":{"city":"Oslo"}}`,
		},
		{
			name:  "tool use block with raw string input",
			block: ToolUseBlock("toolu_02", "get_weather", "not json"),
			want:  `{"type":"tool_use","id":"toolu_02","name":"get_weather","input":"not json"}`,
		},
		{
			name:  "tool result block",
			block: ToolResultBlock("toolu_01", "sunny"),
			want:  `{"type":"tool_result","tool_use_id":"toolu_01","content":"sunny"}`,
		},
		{
			name:  "tool result block with empty content",
			block: ToolResultBlock("toolu_01", ""),
			want:  `{"type":"tool_result","tool_use_id":"toolu_01","content":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.block)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMessagesResponseUnmarshal(t *testing.T) {
	body := `{
		"id": "msg_vrtx_012",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4",
		"content": [
			{"type": "text", "text": "The answer"},
			{"type": "tool_use", "id": "toolu_01", "name": "lookup", "input": {"q": "x"}}
		],
		"stop_reason": "tool_use",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 25}
	}`

	var resp MessagesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if resp.ID != "msg_vrtx_012" {
		t.Errorf("ID = %q, want %q", resp.ID, "msg_vrtx_012")
	}
	if resp.StopReason == nil || *resp.StopReason != "tool_use" {
		t.Errorf("StopReason = %v, want tool_use", resp.StopReason)
	}
	if resp.StopSequence != nil {
		t.Errorf("StopSequence = %v, want nil", resp.StopSequence)
	}
	if len(resp.Content) != 2 {
		t.Fatalf("len(Content) = %d, want 2", len(resp.Content))
	}
	if got := string(resp.Content[1].Input); got != `{"q": "x"}` {
		t.Errorf("Input = %s, want original JSON text", got)
	}
	if resp.Usage == nil || resp.Usage.InputTokens == nil || *resp.Usage.InputTokens != 10 {
		t.Errorf("Usage.InputTokens = %v, want 10", resp.Usage)
	}
}

func TestMessagesResponseUnmarshalPartialUsage(t *testing.T) {
	body := `{"id":"msg_01","content":[],"stop_reason":null,"usage":{"input_tokens":5}}`

	var resp MessagesResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if resp.StopReason != nil {
		t.Errorf("StopReason = %v, want nil", resp.StopReason)
	}
	if resp.Usage == nil {
		t.Fatal("Usage = nil, want partial usage")
	}
	if resp.Usage.OutputTokens != nil {
		t.Errorf("OutputTokens = %v, want nil", resp.Usage.OutputTokens)
	}
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    string
		wantMessage string
	}{
		{
			name:        "documented error shape",
			status:      429,
			body:        `{"type":"error","error":{"type":"rate_limit_error","message":"Too many requests"}}`,
			wantType:    "rate_limit_error",
			wantMessage: "Too many requests",
		},
		{
			name:        "undocumented shape falls back to raw body",
			status:      502,
			body:        `upstream proxy error`,
			wantType:    "api_error",
			wantMessage: "upstream proxy error",
		},
		{
			name:        "valid json without error object",
			status:      500,
			body:        `{"message":"boom"}`,
			wantType:    "api_error",
			wantMessage: `{"message":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ParseErrorResponse(tt.status, []byte(tt.body))
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", apiErr.Type, tt.wantType)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}
