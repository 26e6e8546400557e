package codec

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

func decodeRequest(t *testing.T, body string) *openai.ChatCompletionRequest {
	t.Helper()
	var req openai.ChatCompletionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("failed to decode request fixture: %v", err)
	}
	return &req
}

func blockText(t *testing.T, block anthropic.ContentBlock) string {
	t.Helper()
	if block.Text == nil {
		t.Fatal("block has no text field")
	}
	return *block.Text
}

func TestEncodeRequestSystemAndUser(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "m",
		"messages": [
			{"role": "system", "content": "You are X"},
			{"role": "user", "content": "Hi"}
		]
	}`)

	got := EncodeRequest(req, 0)

	if got.System != "You are X" {
		t.Errorf("System = %q, want %q", got.System, "You are X")
	}
	if len(got.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(got.Messages))
	}
	msg := got.Messages[0]
	if msg.Role != "user" {
		t.Errorf("Role = %q, want %q", msg.Role, "user")
	}
	if len(msg.Content) != 1 || msg.Content[0].Type != "text" {
		t.Fatalf("Content = %+v, want single text block", msg.Content)
	}
	if text := blockText(t, msg.Content[0]); text != "Hi" {
		t.Errorf("text = %q, want %q", text, "Hi")
	}
}

func TestEncodeRequestSystemConcatenation(t *testing.T) {
	req := decodeRequest(t, `{
		"messages": [
			{"role": "system", "content": "First rule."},
			{"role": "user", "content": "Hi"},
			{"role": "system", "content": "Second rule."}
		]
	}`)

	got := EncodeRequest(req, 0)

	if want := "First rule.\n\nSecond rule."; got.System != want {
		t.Errorf("System = %q, want %q", got.System, want)
	}
	if len(got.Messages) != 1 {
		t.Errorf("len(Messages) = %d, want 1 (system turns are lifted out)", len(got.Messages))
	}
}

func TestEncodeRequestNoSystem(t *testing.T) {
	req := decodeRequest(t, `{"messages": [{"role": "user", "content": "Hi"}]}`)

	if got := EncodeRequest(req, 0); got.System != "" {
		t.Errorf("System = %q, want empty", got.System)
	}
}

// Translating a text-only conversation and reading the text back out of the
// upstream blocks loses nothing.
func TestEncodeRequestTextConversationRoundTrip(t *testing.T) {
	turns := []struct{ role, text string }{
		{"user", "What is the capital of Norway?"},
		{"assistant", "The capital of Norway is Oslo."},
		{"user", "And its population?"},
	}

	req := decodeRequest(t, `{
		"messages": [
			{"role": "system", "content": "You answer geography questions."},
			{"role": "user", "content": "What is the capital of Norway?"},
			{"role": "assistant", "content": "The capital of Norway is Oslo."},
			{"role": "user", "content": "And its population?"}
		]
	}`)

	got := EncodeRequest(req, 0)

	if got.System != "You answer geography questions." {
		t.Errorf("System = %q, want original system text", got.System)
	}
	if len(got.Messages) != len(turns) {
		t.Fatalf("len(Messages) = %d, want %d", len(got.Messages), len(turns))
	}
	for i, turn := range turns {
		msg := got.Messages[i]
		if msg.Role != turn.role {
			t.Errorf("message %d role = %q, want %q", i, msg.Role, turn.role)
		}
		if len(msg.Content) != 1 {
			t.Fatalf("message %d has %d blocks, want 1", i, len(msg.Content))
		}
		if text := blockText(t, msg.Content[0]); text != turn.text {
			t.Errorf("message %d text = %q, want %q", i, text, turn.text)
		}
	}
}

func TestEncodeRequestContentShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain string", `"Hello"`, "Hello"},
		{"typed parts", `[{"type":"text","text":"Hel"},{"type":"text","text":"lo"}]`, "Hello"},
		{"image part dropped", `[{"type":"text","text":"see:"},{"type":"image_url","image_url":{"url":"http://x"}}]`, "see:"},
		{"unrecognized shape", `42`, ""},
		{"null content", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := decodeRequest(t, `{"messages":[{"role":"user","content":`+tt.content+`}]}`)
			got := EncodeRequest(req, 0)

			if len(got.Messages) != 1 || len(got.Messages[0].Content) != 1 {
				t.Fatalf("Messages = %+v, want one message with one block", got.Messages)
			}
			if text := blockText(t, got.Messages[0].Content[0]); text != tt.want {
				t.Errorf("text = %q, want %q", text, tt.want)
			}
		})
	}
}

func TestEncodeRequestToolMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantID  string
	}{
		{
			name:    "tool_call_id wins",
			message: `{"role":"tool","tool_call_id":"call_9","name":"get_weather","content":"sunny"}`,
			wantID:  "call_9",
		},
		{
			name:    "falls back to name",
			message: `{"role":"tool","name":"get_weather","content":"sunny"}`,
			wantID:  "get_weather",
		},
		{
			name:    "falls back to placeholder",
			message: `{"role":"tool","content":"sunny"}`,
			wantID:  "tool_use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := decodeRequest(t, `{"messages":[`+tt.message+`]}`)
			got := EncodeRequest(req, 0)

			if len(got.Messages) != 1 {
				t.Fatalf("len(Messages) = %d, want 1", len(got.Messages))
			}
			msg := got.Messages[0]
			if msg.Role != "user" {
				t.Errorf("Role = %q, want %q", msg.Role, "user")
			}
			if len(msg.Content) != 1 || msg.Content[0].Type != "tool_result" {
				t.Fatalf("Content = %+v, want single tool_result block", msg.Content)
			}
			block := msg.Content[0]
			if block.ToolUseID != tt.wantID {
				t.Errorf("ToolUseID = %q, want %q", block.ToolUseID, tt.wantID)
			}
			if block.Content == nil || *block.Content != "sunny" {
				t.Errorf("Content = %v, want %q", block.Content, "sunny")
			}
		})
	}
}

func TestEncodeRequestToolMessageEmptyPayload(t *testing.T) {
	req := decodeRequest(t, `{"messages":[{"role":"tool","tool_call_id":"call_1"}]}`)
	got := EncodeRequest(req, 0)

	block := got.Messages[0].Content[0]
	if block.Content == nil || *block.Content != "" {
		t.Errorf("Content = %v, want empty string payload", block.Content)
	}
}

func TestEncodeRequestAssistantToolCalls(t *testing.T) {
	req := decodeRequest(t, `{
		"messages": [{
			"role": "assistant",
			"content": "Checking two cities.",
			"tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Oslo\"}"}},
				{"type": "function", "function": {"name": "get_time", "arguments": "not json"}}
			]
		}]
	}`)

	got := EncodeRequest(req, 0)

	if len(got.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(got.Messages))
	}
	blocks := got.Messages[0].Content
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want tool_use, tool_use, text", len(blocks))
	}

	first := blocks[0]
	if first.Type != "tool_use" || first.ID != "call_1" || first.Name != "get_weather" {
		t.Errorf("first block = %+v, want tool_use call_1/get_weather", first)
	}
	if input, ok := first.Input.(map[string]any); !ok || input["city"] != "Oslo" {
		t.Errorf("Input = %#v, want parsed object", first.Input)
	}

	second := blocks[1]
	if second.ID != "get_time" {
		t.Errorf("second block ID = %q, want the function name fallback", second.ID)
	}
	if second.Input != "not json" {
		t.Errorf("Input = %#v, want raw string passthrough", second.Input)
	}

	if blocks[2].Type != "text" || blockText(t, blocks[2]) != "Checking two cities." {
		t.Errorf("third block = %+v, want trailing text", blocks[2])
	}
}

func TestEncodeRequestEmptyAssistant(t *testing.T) {
	req := decodeRequest(t, `{"messages":[{"role":"assistant","content":""}]}`)
	got := EncodeRequest(req, 0)

	blocks := got.Messages[0].Content
	if len(blocks) != 1 || blocks[0].Type != "text" {
		t.Fatalf("blocks = %+v, want single text block", blocks)
	}
	if text := blockText(t, blocks[0]); text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestEncodeRequestStop(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"string form", `{"messages":[],"stop":"END"}`, []string{"END"}},
		{"list form", `{"messages":[],"stop":["a","b"]}`, []string{"a", "b"}},
		{"absent", `{"messages":[]}`, nil},
		{"empty list", `{"messages":[],"stop":[]}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRequest(decodeRequest(t, tt.body), 0)
			if !reflect.DeepEqual(got.StopSequences, tt.want) {
				t.Errorf("StopSequences = %v, want %v", got.StopSequences, tt.want)
			}
		})
	}
}

func TestEncodeRequestGenerationParameters(t *testing.T) {
	req := decodeRequest(t, `{
		"messages": [],
		"max_tokens": 256,
		"temperature": 0.5,
		"top_p": 0.9,
		"top_k": 40
	}`)

	got := EncodeRequest(req, 1024)

	if got.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", got.Temperature)
	}
	if got.TopP == nil || *got.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", got.TopP)
	}
	if got.TopK == nil || *got.TopK != 40 {
		t.Errorf("TopK = %v, want 40", got.TopK)
	}
}

func TestEncodeRequestMaxTokensDefault(t *testing.T) {
	req := decodeRequest(t, `{"messages":[]}`)

	if got := EncodeRequest(req, 2048); got.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want configured default 2048", got.MaxTokens)
	}
	if got := EncodeRequest(req, 0); got.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want built-in default %d", got.MaxTokens, DefaultMaxTokens)
	}
}

func TestEncodeRequestMetadataMerge(t *testing.T) {
	req := decodeRequest(t, `{
		"messages": [],
		"metadata": {"user_id": "u1", "team": "core"},
		"claude_metadata": {"team": "override"}
	}`)

	got := EncodeRequest(req, 0)

	want := map[string]any{"user_id": "u1", "team": "override"}
	if !reflect.DeepEqual(got.Metadata, want) {
		t.Errorf("Metadata = %v, want %v", got.Metadata, want)
	}
}

func TestEncodeRequestMetadataEmptyOmitted(t *testing.T) {
	req := decodeRequest(t, `{"messages":[],"metadata":{}}`)

	if got := EncodeRequest(req, 0); got.Metadata != nil {
		t.Errorf("Metadata = %v, want nil so the field is omitted", got.Metadata)
	}
}

func TestEncodeRequestThinkingPassthrough(t *testing.T) {
	req := decodeRequest(t, `{"messages":[],"thinking":{"type":"enabled","budget_tokens":1024}}`)

	got := EncodeRequest(req, 0)
	if string(got.Thinking) != `{"type":"enabled","budget_tokens":1024}` {
		t.Errorf("Thinking = %s, want verbatim passthrough", got.Thinking)
	}
}
