// Package memory keeps interactions in process memory. Records are lost on
// restart, which suits tests and short-lived local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tjfontaine/vertex-claude-gateway/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.RWMutex
	interactions []*storage.Interaction
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) RecordInteraction(ctx context.Context, rec *storage.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	cp := *rec
	s.interactions = append(s.interactions, &cp)
	return nil
}

func (s *Store) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first, matching the SQLite backend.
	result := make([]*storage.Interaction, 0, len(s.interactions))
	for i := len(s.interactions) - 1; i >= 0; i-- {
		cp := *s.interactions[i]
		result = append(result, &cp)
	}

	// Simple pagination
	start := opts.Offset
	if start >= len(result) {
		return []*storage.Interaction{}, nil
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
