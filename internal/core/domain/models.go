// Package domain contains core business entities
// Following Hexagonal Architecture: These models are infrastructure-agnostic
package domain

import "time"

// DetectedFace is one face returned by the detection service, reduced to the
// attributes the diagnosis needs
type DetectedFace struct {
	RectangleLeft float64 `json:"rectangle_left"` // Left edge of the face box, drives left-to-right ordering
	Age           int     `json:"age"`
	Gender        string  `json:"gender"`        // Raw service value: "Male" or "Female"
	BeautyMale    float64 `json:"beauty_male"`   // 0-100 score when judged as male
	BeautyFemale  float64 `json:"beauty_female"` // 0-100 score when judged as female
}

// Gender constants as reported by the detection service
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// ReplyMessage is a single outgoing message in a reply batch
// Wire shape matches the messaging platform's reply API
type ReplyMessage struct {
	Type string `json:"type"` // Always "text" in this system
	Text string `json:"text"`
}

// MessageTypeText is the only message kind this bot produces
const MessageTypeText = "text"

// NewTextMessage builds a text reply message
func NewTextMessage(text string) ReplyMessage {
	return ReplyMessage{
		Type: MessageTypeText,
		Text: text,
	}
}

// MaxReplyMessages is the platform limit per reply token
const MaxReplyMessages = 5

// UserState is the per-user record kept in the state store,
// keyed by the platform user ID
type UserState struct {
	IsBlocked bool      `json:"is_blocked"` // true once the user unfollows
	UpdatedAt time.Time `json:"updated_at"` // Store-assigned write time
}

// EventAudit represents the audit trail for dispatched webhook events
// Intentionally carries no message content: only event type and outcome
type EventAudit struct {
	ID        int64     `json:"id" db:"id"`
	EventType string    `json:"event_type" db:"event_type"` // "message", "follow", ...
	Status    string    `json:"status" db:"status"`         // "processed", "failed", "rejected"
	ErrorLog  *string   `json:"error_log,omitempty" db:"error_log"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AuditStatus constants for event lifecycle
const (
	AuditStatusProcessed = "processed"
	AuditStatusFailed    = "failed"
	AuditStatusRejected  = "rejected" // Delivery dropped at the signature gate
)
