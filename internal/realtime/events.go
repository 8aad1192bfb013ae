package realtime

import "encoding/json"

// Provider event types relayed over the control channel. Inbound events originate at the model
// and are forwarded by the browser; outbound events are written back for the browser to send on.
const (
	EventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventResponseDone           = "response.done"
	EventSpeechStarted          = "input_audio_buffer.speech_started"
	EventSpeechStopped          = "input_audio_buffer.speech_stopped"
	EventError                  = "error"

	EventSessionUpdate  = "session.update"
	EventResponseCreate = "response.create"
	EventItemCreate     = "conversation.item.create"

	// EventCoachBound is local to the relay and tells the browser which session it joined.
	EventCoachBound = "coach.session.bound"
)

// InboundEvent holds the fields the engine reads from provider events. Everything else is ignored.
type InboundEvent struct {
	Type       string           `json:"type"`
	EventID    string           `json:"event_id,omitempty"`
	ItemID     string           `json:"item_id,omitempty"`
	Transcript string           `json:"transcript,omitempty"`
	Response   *ResponsePayload `json:"response,omitempty"`
	Error      *ErrorPayload    `json:"error,omitempty"`
}

type ResponsePayload struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
	Output []OutputItem `json:"output,omitempty"`
}

// OutputItem is either a message (Content set) or a function call (Name, CallID, Arguments set).
type OutputItem struct {
	ID        string        `json:"id,omitempty"`
	Type      string        `json:"type"`
	Role      string        `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
}

type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type ErrorPayload struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OutboundEvent is any event the engine writes. Fields are populated per type.
type OutboundEvent struct {
	Type     string         `json:"type"`
	Session  map[string]any `json:"session,omitempty"`
	Response map[string]any `json:"response,omitempty"`
	Item     map[string]any `json:"item,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Created   *bool  `json:"created,omitempty"`
}

func functionCallOutput(callID string, output json.RawMessage) OutboundEvent {
	return OutboundEvent{
		Type: EventItemCreate,
		Item: map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  string(output),
		},
	}
}

func systemMessage(text string) OutboundEvent {
	return OutboundEvent{
		Type: EventItemCreate,
		Item: map[string]any{
			"type": "message",
			"role": "system",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}
}

func responseCreate(instructions string) OutboundEvent {
	ev := OutboundEvent{Type: EventResponseCreate}
	if instructions != "" {
		ev.Response = map[string]any{"instructions": instructions}
	}
	return ev
}
