package codec

import (
	"bytes"
	"strings"
	"time"

	"github.com/tjfontaine/vertex-claude-gateway/internal/api/anthropic"
	"github.com/tjfontaine/vertex-claude-gateway/internal/api/openai"
)

const dataPrefix = "data:"

// DoneMarker is the literal terminal payload of a downstream stream.
const DoneMarker = "[DONE]"

// Transcoder converts an upstream Messages SSE byte stream into chat
// completion chunks. Callers feed it raw transport reads in arrival order and
// write the returned chunks downstream before reading more, which keeps the
// client's backpressure on the upstream connection.
//
// Feed tolerates events split at any byte offset and skips events it cannot
// parse; a broken event must not abort a live stream.
type Transcoder struct {
	streamID string
	model    string
	buf      []byte
	started  bool // assistant role marker already emitted
	done     bool // terminal chunk emitted, stream is over
}

// NewTranscoder creates a transcoder for one stream. streamID is stamped on
// every chunk; model is echoed back as the client named it.
func NewTranscoder(streamID, model string) *Transcoder {
	return &Transcoder{streamID: streamID, model: model}
}

// Feed appends one transport read and returns the chunks completed by it.
// Partial trailing bytes are retained for the next call. Once the terminal
// chunk has been produced, Feed consumes nothing and returns nothing.
func (t *Transcoder) Feed(p []byte) []openai.ChatCompletionChunk {
	if t.done {
		return nil
	}
	t.buf = append(t.buf, p...)

	var chunks []openai.ChatCompletionChunk
	for {
		event, rest, ok := splitEvent(t.buf)
		if !ok {
			break
		}
		t.buf = rest

		if chunk := t.handleEvent(event); chunk != nil {
			chunks = append(chunks, *chunk)
		}
		if t.done {
			break
		}
	}
	return chunks
}

// Finish ends the stream after upstream end-of-input. If no message_stop
// arrived, the terminal stop chunk is synthesized so the downstream stream
// never hangs open.
func (t *Transcoder) Finish() []openai.ChatCompletionChunk {
	if t.done {
		return nil
	}
	t.done = true
	return []openai.ChatCompletionChunk{t.terminal("stop")}
}

// Fail ends the stream after an upstream transport error. A stream that has
// already stopped cleanly ignores the error.
func (t *Transcoder) Fail() []openai.ChatCompletionChunk {
	if t.done {
		return nil
	}
	t.done = true
	return []openai.ChatCompletionChunk{t.terminal("error")}
}

// Done reports whether the terminal chunk has been emitted. The caller sends
// the terminal marker and closes the downstream stream when it flips true.
func (t *Transcoder) Done() bool {
	return t.done
}

// splitEvent cuts the first complete SSE event off the buffer. Events are
// delimited by a blank line, with either line-feed convention.
func splitEvent(buf []byte) (event, rest []byte, ok bool) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case lf == -1 && crlf == -1:
		return nil, nil, false
	case crlf != -1 && (lf == -1 || crlf < lf):
		return buf[:crlf], buf[crlf+4:], true
	default:
		return buf[:lf], buf[lf+2:], true
	}
}

// handleEvent parses one complete event and returns the chunk it produces,
// if any.
func (t *Transcoder) handleEvent(raw []byte) *openai.ChatCompletionChunk {
	data, ok := dataLine(raw)
	if !ok || data == DoneMarker {
		return nil
	}

	event, err := anthropic.DecodeEvent([]byte(data))
	if err != nil {
		// Malformed event; skip it and keep the stream alive.
		return nil
	}

	switch ev := event.(type) {
	case anthropic.TextDelta:
		if ev.Text == "" {
			return nil
		}
		delta := openai.ChunkDelta{Content: ev.Text}
		if !t.started {
			delta.Role = "assistant"
			t.started = true
		}
		chunk := t.chunk(delta, nil)
		return &chunk

	case anthropic.MessageStop:
		t.done = true
		chunk := t.terminal("stop")
		return &chunk

	case anthropic.InputJSONDelta:
		// Tool-call deltas cannot be translated incrementally; requests
		// that could produce them are rejected before streaming starts.
		return nil

	case anthropic.ThinkingDelta:
		// Reasoning traces are never forwarded.
		return nil

	default:
		return nil
	}
}

// dataLine extracts the payload of the first data line in an event.
func dataLine(event []byte) (string, bool) {
	for _, line := range strings.Split(string(event), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, dataPrefix) {
			return strings.TrimSpace(line[len(dataPrefix):]), true
		}
	}
	return "", false
}

func (t *Transcoder) terminal(reason string) openai.ChatCompletionChunk {
	return t.chunk(openai.ChunkDelta{}, &reason)
}

func (t *Transcoder) chunk(delta openai.ChunkDelta, finishReason *string) openai.ChatCompletionChunk {
	return openai.ChatCompletionChunk{
		ID:      t.streamID,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   t.model,
		Choices: []openai.ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
}
