// Package frontdoor serves the gateway's OpenAI-compatible HTTP surface and
// drives the translation between it and the Vertex AI Messages API.
package frontdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
	"github.com/tjfontaine/vertex-claude-gateway/internal/codec"
	"github.com/tjfontaine/vertex-claude-gateway/internal/config"
	"github.com/tjfontaine/vertex-claude-gateway/internal/server"
	"github.com/tjfontaine/vertex-claude-gateway/internal/storage"
	"github.com/tjfontaine/vertex-claude-gateway/internal/tokens"
)

// completionTimeout bounds a non-streaming upstream call. Streaming calls are
// bounded by the client connection instead; cancelling the request context
// aborts the upstream stream.
const completionTimeout = 5 * time.Minute

// Upstream is the slice of the Vertex client the handler depends on.
type Upstream interface {
	CreateMessage(ctx context.Context, model string, req *anthropic.MessagesRequest) (*anthropic.MessagesResponse, error)
	StreamMessages(ctx context.Context, model string, req *anthropic.MessagesRequest) (io.ReadCloser, error)
}

// Handler serves the health, model-list, and chat-completion routes.
type Handler struct {
	upstream  Upstream
	cfg       *config.Config
	estimator *tokens.Estimator
	store     storage.Store
	logger    *slog.Logger
}

// NewHandler creates a handler. A nil store disables interaction recording
// and a nil logger falls back to the process default.
func NewHandler(upstream Upstream, cfg *config.Config, estimator *tokens.Estimator, store storage.Store, logger *slog.Logger) *Handler {
	if estimator == nil {
		estimator = tokens.NewEstimator()
	}
	if store == nil {
		store = storage.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		upstream:  upstream,
		cfg:       cfg,
		estimator: estimator,
		store:     store,
		logger:    logger,
	}
}

// Health reports liveness and the upstream provider family.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"provider":          "vertex-claude",
		"openai_compatible": true,
	})
}

// ListModels serves the configured model allow-list.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	data := make([]openai.Model, 0, len(h.cfg.Models))
	for _, m := range h.cfg.Models {
		ownedBy := m.OwnedBy
		if ownedBy == "" {
			ownedBy = "anthropic"
		}
		data = append(data, openai.Model{
			ID:      m.ID,
			Object:  "model",
			Created: m.Created,
			OwnedBy: ownedBy,
		})
	}
	writeJSON(w, http.StatusOK, openai.ModelList{Object: "list", Data: data})
}

// ChatCompletions translates one chat completion request into a Messages API
// call and the upstream's answer back, streaming or not.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, badRequest("failed to read request body"))
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		server.AddError(r.Context(), err)
		writeError(w, badRequest("request body is not valid JSON"))
		return
	}

	server.AddLogField(r.Context(), "requested_model", req.Model)

	model, ok := h.cfg.ResolveModel(req.Model)
	if !ok {
		err := unknownModelError(req.Model)
		server.AddError(r.Context(), err)
		writeError(w, err)
		return
	}
	server.AddLogField(r.Context(), "model", model.ID)
	server.AddLogField(r.Context(), "upstream_model", model.Upstream)

	if req.Stream && len(req.Tools) > 0 {
		err := badRequest("streaming is not supported when tools are present")
		server.AddError(r.Context(), err)
		writeError(w, err)
		return
	}

	estimated := h.estimatePrompt(r.Context(), &req)
	if limit := h.cfg.Limits.MaxPromptTokens; limit > 0 && estimated > limit {
		err := badRequest("prompt is estimated at %d tokens, above the configured limit of %d", estimated, limit)
		server.AddError(r.Context(), err)
		writeError(w, err)
		return
	}

	rec := &storage.Interaction{
		ID:                    interactionID(r.Context()),
		Model:                 model.ID,
		UpstreamModel:         model.Upstream,
		Stream:                req.Stream,
		EstimatedPromptTokens: estimated,
		RequestBody:           json.RawMessage(body),
	}

	upstreamReq := codec.EncodeRequest(&req, h.cfg.Vertex.DefaultMaxTokens)

	if req.Stream {
		h.streamCompletion(w, r, model, upstreamReq, rec, start)
		return
	}
	h.completion(w, r, model, upstreamReq, rec, start)
}

// completion handles the non-streaming path.
func (h *Handler) completion(w http.ResponseWriter, r *http.Request, model config.ModelConfig, upstreamReq *anthropic.MessagesRequest, rec *storage.Interaction, start time.Time) {
	ctx, cancel := context.WithTimeout(r.Context(), completionTimeout)
	defer cancel()

	resp, err := h.upstream.CreateMessage(ctx, model.Upstream, upstreamReq)
	if err != nil {
		h.failInteraction(r.Context(), rec, err, start)
		server.AddError(r.Context(), err)
		h.logger.Error("upstream request failed",
			"request_id", rec.ID,
			"model", model.Upstream,
			"error", err)
		writeError(w, err)
		return
	}

	out := codec.DecodeResponse(resp, model.ID)

	rec.Status = storage.StatusCompleted
	if reason := codec.FinishReason(resp.StopReason); reason != nil {
		rec.FinishReason = *reason
	}
	if out.Usage != nil {
		rec.PromptTokens = out.Usage.PromptTokens
		rec.CompletionTokens = out.Usage.CompletionTokens
	}
	if encoded, err := json.Marshal(out); err == nil {
		rec.ResponseBody = encoded
	}
	rec.Duration = time.Since(start)
	h.record(r.Context(), rec)

	writeJSON(w, http.StatusOK, out)
}

// streamCompletion handles the streaming path. Once the SSE headers are out,
// every failure is reported in-band as a terminal error chunk; the transport
// status can no longer change.
func (h *Handler) streamCompletion(w http.ResponseWriter, r *http.Request, model config.ModelConfig, upstreamReq *anthropic.MessagesRequest, rec *storage.Interaction, start time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		err := errors.New("response writer does not support streaming")
		server.AddError(r.Context(), err)
		writeError(w, err)
		return
	}

	upstream, err := h.upstream.StreamMessages(r.Context(), model.Upstream, upstreamReq)
	if err != nil {
		h.failInteraction(r.Context(), rec, err, start)
		server.AddError(r.Context(), err)
		h.logger.Error("upstream stream failed",
			"request_id", rec.ID,
			"model", model.Upstream,
			"error", err)
		writeError(w, err)
		return
	}
	defer upstream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	transcoder := codec.NewTranscoder("chatcmpl-"+uuid.NewString(), model.ID)

	var streamErr error
	buf := make([]byte, 4096)
	for !transcoder.Done() {
		n, readErr := upstream.Read(buf)
		if n > 0 {
			if err := writeChunks(w, flusher, transcoder.Feed(buf[:n])); err != nil {
				streamErr = err
				break
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				_ = writeChunks(w, flusher, transcoder.Finish())
			} else {
				streamErr = readErr
				_ = writeChunks(w, flusher, transcoder.Fail())
			}
			break
		}
	}

	fmt.Fprintf(w, "data: %s\n\n", codec.DoneMarker)
	flusher.Flush()

	rec.Duration = time.Since(start)
	if streamErr != nil {
		rec.Status = storage.StatusError
		rec.ErrorMessage = streamErr.Error()
		rec.FinishReason = "error"
		if errors.Is(streamErr, context.Canceled) {
			h.logger.Info("client disconnected mid-stream", "request_id", rec.ID)
		} else {
			server.AddError(r.Context(), streamErr)
			h.logger.Error("stream transport failed",
				"request_id", rec.ID,
				"model", model.Upstream,
				"error", streamErr)
		}
	} else {
		rec.Status = storage.StatusCompleted
		rec.FinishReason = "stop"
	}
	h.record(r.Context(), rec)
}

// estimatePrompt never fails a request; an estimator error only disables the
// size limit for this request.
func (h *Handler) estimatePrompt(ctx context.Context, req *openai.ChatCompletionRequest) int {
	estimated, err := h.estimator.EstimatePrompt(req)
	if err != nil {
		h.logger.Warn("prompt token estimation failed",
			"request_id", server.GetRequestID(ctx),
			"error", err)
		return 0
	}
	server.AddLogField(ctx, "estimated_prompt_tokens", strconv.Itoa(estimated))
	return estimated
}

func (h *Handler) failInteraction(ctx context.Context, rec *storage.Interaction, err error, start time.Time) {
	rec.Status = storage.StatusError
	rec.ErrorMessage = err.Error()
	rec.Duration = time.Since(start)
	h.record(ctx, rec)
}

// record persists the interaction, detached from the request's cancellation
// so a client disconnect cannot lose the row. Failures are logged, never
// surfaced.
func (h *Handler) record(ctx context.Context, rec *storage.Interaction) {
	if err := h.store.RecordInteraction(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Error("failed to record interaction",
			"request_id", rec.ID,
			"error", err)
	}
}

// writeChunks serializes chunks onto the SSE stream, flushing after each one
// so a slow client applies backpressure to the upstream read loop.
func writeChunks(w io.Writer, flusher http.Flusher, chunks []openai.ChatCompletionChunk) error {
	for i := range chunks {
		data, err := json.Marshal(&chunks[i])
		if err != nil {
			return fmt.Errorf("failed to marshal chunk: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
		flusher.Flush()
	}
	return nil
}

// interactionID reuses the request id so records correlate with log lines.
func interactionID(ctx context.Context) string {
	if id := server.GetRequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// unknownModelError names the model the client asked for; an absent model
// with no configured default gets its own message.
func unknownModelError(model string) *RequestError {
	if model == "" {
		return badRequest("model is required and no default model is configured")
	}
	return badRequest("model %q is not available", model)
}
