package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeEvent is pushed by the server for every playback/recording
	// status change
	TypeEvent MessageType = "event"

	// TypeCommand is sent by a client to start or stop a profile
	TypeCommand MessageType = "command"

	// TypeStateRequest is sent by a client to request the full profile
	// and run state
	TypeStateRequest MessageType = "state_req"

	// TypeStateResponse is sent by the server with the full state
	TypeStateResponse MessageType = "state_resp"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventPayload is the payload for TypeEvent
type EventPayload struct {
	Kind      string      `json:"kind"`
	ProfileID string      `json:"profile_id,omitempty"`
	StepIndex int         `json:"step_index,omitempty"`
	Step      interface{} `json:"step,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Time      int64       `json:"time"` // unix milliseconds
}

// CommandPayload is the payload for TypeCommand
type CommandPayload struct {
	Action    string `json:"action"` // "start" or "stop"
	ProfileID string `json:"profile_id"`
}

// StateResponsePayload is the payload for TypeStateResponse
type StateResponsePayload struct {
	Profiles interface{} `json:"profiles"`
	Running  []string    `json:"running"` // profile ids with active playback
}
