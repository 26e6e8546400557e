package anthropic

import "encoding/json"

// StreamEvent is one decoded server-sent event from a streaming Messages
// response. The set of variants is closed; event types the transcoder has no
// use for decode to OtherEvent so new upstream event kinds cannot break a
// stream.
type StreamEvent interface {
	streamEvent()
}

// TextDelta carries a fragment of assistant text.
type TextDelta struct {
	Text string
}

// InputJSONDelta carries a fragment of tool input JSON. The transcoder
// ignores these; streaming tool calls are rejected before a stream starts.
type InputJSONDelta struct {
	PartialJSON string
}

// ThinkingDelta carries a fragment of extended thinking. Never forwarded.
type ThinkingDelta struct {
	Thinking string
}

// MessageStop marks the normal end of a message.
type MessageStop struct{}

// OtherEvent is any well-formed event outside the variants above, kept with
// its type tag for logging.
type OtherEvent struct {
	Type string
}

func (TextDelta) streamEvent()      {}
func (InputJSONDelta) streamEvent() {}
func (ThinkingDelta) streamEvent()  {}
func (MessageStop) streamEvent()    {}
func (OtherEvent) streamEvent()     {}

type eventEnvelope struct {
	Type  string `json:"type"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
	} `json:"delta"`
}

// DecodeEvent parses the JSON payload of a single server-sent event. The only
// error it returns is malformed JSON; every recognizable shape maps to a
// variant.
func DecodeEvent(data []byte) (StreamEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "content_block_delta":
		switch env.Delta.Type {
		case "text_delta":
			return TextDelta{Text: env.Delta.Text}, nil
		case "input_json_delta":
			return InputJSONDelta{PartialJSON: env.Delta.PartialJSON}, nil
		case "thinking_delta":
			return ThinkingDelta{Thinking: env.Delta.Thinking}, nil
		default:
			return OtherEvent{Type: env.Type + "/" + env.Delta.Type}, nil
		}
	case "message_stop":
		return MessageStop{}, nil
	default:
		return OtherEvent{Type: env.Type}, nil
	}
}
