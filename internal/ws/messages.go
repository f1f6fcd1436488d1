// Package ws carries the bidirectional client protocol: a flat message
// envelope, a registry of connected channels, and the per-process session
// that coordinates agent runs against those channels.
package ws

import "time"

// Inbound message types.
const (
	TypeStartAgent = "start_agent"
	TypeStopAgent  = "stop_agent"
	TypeRunAPI     = "run_api"
)

// Outbound message types.
const (
	TypeStatus        = "status"
	TypeMessage       = "message"
	TypeScreenshot    = "screenshot"
	TypeAgentComplete = "agent_complete"
	TypeError         = "error"
	TypeAPILog        = "api_log"
	TypeAPIResponse   = "api_response"
)

// Message is the wire envelope. Timestamp is epoch seconds with
// fractional precision, stamped at construction.
type Message struct {
	Type      string  `json:"type"`
	Payload   any     `json:"payload"`
	Timestamp float64 `json:"timestamp"`
}

func NewMessage(msgType string, payload any) Message {
	return Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AgentMessagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Action  string `json:"action,omitempty"`
}

type ScreenshotPayload struct {
	ImageData string `json:"image_data"`
	Step      int    `json:"step"`
}

type APILogPayload struct {
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
	Level     string  `json:"level"`
}

type APIResponsePayload struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
}

type RunAPIPayload struct {
	Endpoint string `json:"endpoint"`
}
