package websockets

import "time"

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeNotification carries a copy of a notification to staff dashboards.
	MessageTypeNotification MessageType = "notification"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// NotificationPayload is the payload for a notification message.
type NotificationPayload struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}
