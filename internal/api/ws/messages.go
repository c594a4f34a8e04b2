package ws

import (
	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

// Message types
const (
	TypeScreenshot      = "screenshot"
	TypeScreenshotError = "screenshot_error"
	TypeAccepted        = "accepted"
	TypeSystem          = "system"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeError           = "error"
)

// Inbound is a client frame.
type Inbound struct {
	Type      string           `json:"type"`
	RequestID string           `json:"requestId,omitempty"`
	Options   *capture.Options `json:"options,omitempty"`
}

// Outbound is a server frame. Fields are set per type.
type Outbound struct {
	Type         string `json:"type"`
	Message      string `json:"message,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	JobID        string `json:"jobId,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	State        string `json:"state,omitempty"`
	URL          string `json:"url,omitempty"`
	Screenshot   string `json:"screenshot,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// DecodeInbound parses a client frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var msg Inbound
	err := sonic.Unmarshal(data, &msg)
	return msg, err
}

// DecodeOutbound parses a server frame.
func DecodeOutbound(data []byte) (Outbound, error) {
	var msg Outbound
	err := sonic.Unmarshal(data, &msg)
	return msg, err
}

// Encode serializes a frame. Screenshot frames carry megabytes of base64.
func Encode(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}
