// Package dto contains data transfer objects for external APIs
// Separating DTOs from handlers prevents import cycles
package dto

// WebhookRequest is the top-level webhook payload from the messaging platform
type WebhookRequest struct {
	Destination string  `json:"destination"` // Bot channel identifier
	Events      []Event `json:"events"`      // Event batch for this delivery
}

// Event types delivered by the platform. Anything else is routed to the
// default prompt reply.
const (
	EventTypeMessage  = "message"
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
)

// MessageTypeImage is the only message subtype the diagnosis pipeline handles
const MessageTypeImage = "image"

// Event is a single platform event within a webhook delivery
type Event struct {
	Type       string        `json:"type"`
	ReplyToken string        `json:"replyToken,omitempty"` // Single-use, absent on unfollow
	Timestamp  int64         `json:"timestamp"`            // Unix milliseconds
	Source     EventSource   `json:"source"`
	Message    *EventMessage `json:"message,omitempty"` // Present only for message events
}

// EventSource identifies who triggered the event
type EventSource struct {
	Type   string `json:"type"` // "user", "group", "room"
	UserID string `json:"userId"`
}

// EventMessage carries the message payload of a message event
type EventMessage struct {
	ID   string `json:"id"`   // Message ID, used to fetch attachment content
	Type string `json:"type"` // "image", "text", "sticker", ...
	Text string `json:"text,omitempty"`
}

// IsImageMessage reports whether this event should enter the diagnosis pipeline
func (e *Event) IsImageMessage() bool {
	return e.Type == EventTypeMessage && e.Message != nil && e.Message.Type == MessageTypeImage
}

// IsFollowChange reports whether this event toggles the user's follow state
func (e *Event) IsFollowChange() bool {
	return e.Type == EventTypeFollow || e.Type == EventTypeUnfollow
}

// MessageID extracts the message ID, empty for non-message events
func (e *Event) MessageID() string {
	if e.Message != nil {
		return e.Message.ID
	}
	return ""
}
