// Package tokens estimates prompt sizes for incoming chat requests.
//
// Claude's tokenizer is not available locally, so estimates use tiktoken's
// o200k_base encoding. Counts are approximate and are used for admission
// control, never for billing.
package tokens

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

// Overheads follow OpenAI's published chat format accounting:
// 3 tokens per message plus 1 for the role, and 3 tokens of assistant
// priming at the end.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	tokensPriming    = 3

	toolCallOverhead   = 3 // tool call structure
	toolResultOverhead = 2 // tool result framing
	toolDefOverhead    = 7 // per tool definition
)

// Estimator approximates prompt token counts for chat completion requests.
type Estimator struct {
	once  sync.Once
	codec tokenizer.Codec
	err   error
}

// NewEstimator creates an Estimator. Tokenizer data loads lazily on first use.
func NewEstimator() *Estimator {
	return &Estimator{}
}

func (e *Estimator) getCodec() (tokenizer.Codec, error) {
	e.once.Do(func() {
		codec, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			e.err = fmt.Errorf("failed to get tokenizer encoding: %w", err)
			return
		}
		e.codec = codec
	})
	return e.codec, e.err
}

// EstimatePrompt returns the approximate number of prompt tokens in req.
func (e *Estimator) EstimatePrompt(req *openai.ChatCompletionRequest) (int, error) {
	codec, err := e.getCodec()
	if err != nil {
		return 0, err
	}

	total := 0

	for _, msg := range req.Messages {
		total += tokensPerMessage + tokensPerRole
		total += countText(codec, msg.Content.Text())

		if msg.Role == "tool" {
			total += toolResultOverhead
		}

		for _, tc := range msg.ToolCalls {
			total += countText(codec, tc.Function.Name)
			total += countText(codec, tc.Function.Arguments)
			total += toolCallOverhead
		}
	}

	for _, tool := range req.Tools {
		total += countText(codec, tool.Function.Name)
		total += countText(codec, tool.Function.Description)
		if tool.Function.Parameters != nil {
			if params, err := json.Marshal(tool.Function.Parameters); err == nil {
				total += countText(codec, string(params))
			}
		}
		total += toolDefOverhead
	}

	total += tokensPriming

	return total, nil
}

func countText(codec tokenizer.Codec, text string) int {
	if text == "" {
		return 0
	}
	ids, _, _ := codec.Encode(text)
	return len(ids)
}
