package transport

import "encoding/json"

// Inbound envelope types.
const (
	TypeControl = "control"
	TypeText    = "text"
	TypeEvent   = "event"
)

// ControlStopAudio instructs the playback engine to halt everything in flight.
const ControlStopAudio = "stop_audio"

// System state names carried by event messages.
const (
	StateTranscriptionStart = "transcription_start"
	StateAgentResponseStart = "get_agent_response_start"
	StateTTSStart           = "tts_start"
)

// envelope is the inbound JSON message shape. Fields beyond Type are
// populated per type.
type envelope struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
}

// stopSignal is the outbound utterance-end message.
type stopSignal struct {
	Event string `json:"event"`
}

var stopPayload, _ = json.Marshal(stopSignal{Event: "stop"})

// MessageKind tags a decoded inbound message.
type MessageKind int

const (
	// KindAudio carries one complete synthesized clip.
	KindAudio MessageKind = iota
	// KindControl carries a control event such as stop_audio.
	KindControl
	// KindText carries a conversation entry.
	KindText
	// KindEvent carries a server pipeline state name.
	KindEvent
)

// Message is one decoded inbound protocol message.
type Message struct {
	Kind    MessageKind
	Audio   []byte // KindAudio
	Event   string // KindControl, KindEvent
	Role    string // KindText
	Content string // KindText
}

// decodeText parses one inbound text payload. ok is false for malformed JSON
// and unknown types; both are dropped, never fatal.
func decodeText(data []byte) (Message, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, false
	}
	switch env.Type {
	case TypeControl:
		return Message{Kind: KindControl, Event: env.Event}, true
	case TypeText:
		return Message{Kind: KindText, Role: env.Role, Content: env.Text}, true
	case TypeEvent:
		return Message{Kind: KindEvent, Event: env.Event}, true
	default:
		return Message{}, false
	}
}
