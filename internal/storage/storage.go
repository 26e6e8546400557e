// Package storage defines the interaction log kept by the gateway. Each
// chat completion request produces one Interaction record after the
// response (or failure) has been delivered to the client.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Interaction statuses.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Interaction is the record of one chat completion request.
//
// PromptTokens and CompletionTokens come from upstream usage and stay zero
// when the upstream omits them (streaming responses, some errors).
// EstimatedPromptTokens is the local tiktoken estimate and is always set.
type Interaction struct {
	ID                    string
	Model                 string
	UpstreamModel         string
	Stream                bool
	Status                string
	FinishReason          string
	PromptTokens          int
	CompletionTokens      int
	EstimatedPromptTokens int
	RequestBody           json.RawMessage
	ResponseBody          json.RawMessage
	ErrorMessage          string
	Duration              time.Duration
	CreatedAt             time.Time
}

// ListOptions controls pagination when reading interactions back.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store records completed interactions.
type Store interface {
	RecordInteraction(ctx context.Context, rec *Interaction) error
	ListInteractions(ctx context.Context, opts ListOptions) ([]*Interaction, error)
	Close() error
}

// Discard drops every record. It backs the "none" storage mode so the
// request path can record unconditionally.
type Discard struct{}

var _ Store = Discard{}

func (Discard) RecordInteraction(context.Context, *Interaction) error { return nil }

func (Discard) ListInteractions(context.Context, ListOptions) ([]*Interaction, error) {
	return nil, nil
}

func (Discard) Close() error { return nil }
