// Package sqlite persists interactions in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/vertex-claude-gateway/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens the database at dbPath, creating it and the schema if needed.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			upstream_model TEXT NOT NULL,
			streaming INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			finish_reason TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			estimated_prompt_tokens INTEGER NOT NULL DEFAULT 0,
			request_body TEXT,
			response_body TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_model ON interactions(model)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_status ON interactions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) RecordInteraction(ctx context.Context, rec *storage.Interaction) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `INSERT INTO interactions
	          (id, model, upstream_model, streaming, status, finish_reason,
	           prompt_tokens, completion_tokens, estimated_prompt_tokens,
	           request_body, response_body, error_message, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Model, rec.UpstreamModel, rec.Stream, rec.Status, rec.FinishReason,
		rec.PromptTokens, rec.CompletionTokens, rec.EstimatedPromptTokens,
		string(rec.RequestBody), string(rec.ResponseBody), rec.ErrorMessage,
		rec.Duration.Nanoseconds(), rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	return nil
}

func (s *Store) ListInteractions(ctx context.Context, opts storage.ListOptions) ([]*storage.Interaction, error) {
	query := `SELECT id, model, upstream_model, streaming, status, finish_reason,
	          prompt_tokens, completion_tokens, estimated_prompt_tokens,
	          request_body, response_body, error_message, duration_ns, created_at
	          FROM interactions
	          ORDER BY created_at DESC
	          LIMIT ? OFFSET ?`

	limit := opts.Limit
	if limit == 0 {
		limit = 100 // default limit
	}

	rows, err := s.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*storage.Interaction
	for rows.Next() {
		var rec storage.Interaction
		var requestStr, responseStr sql.NullString
		var durationNS int64

		if err := rows.Scan(&rec.ID, &rec.Model, &rec.UpstreamModel, &rec.Stream,
			&rec.Status, &rec.FinishReason, &rec.PromptTokens, &rec.CompletionTokens,
			&rec.EstimatedPromptTokens, &requestStr, &responseStr,
			&rec.ErrorMessage, &durationNS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}

		if requestStr.Valid && requestStr.String != "" {
			rec.RequestBody = json.RawMessage(requestStr.String)
		}
		if responseStr.Valid && responseStr.String != "" {
			rec.ResponseBody = json.RawMessage(responseStr.String)
		}
		rec.Duration = time.Duration(durationNS)

		interactions = append(interactions, &rec)
	}

	return interactions, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
