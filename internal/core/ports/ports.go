// Package ports defines interfaces for dependency inversion
// Following Hexagonal Architecture: Core defines contracts, Adapters implement them
package ports

import (
	"context"

	"facebot/internal/core/domain"
)

// ContentFetcher retrieves binary attachment content from the messaging
// platform and hands it back transport-ready
type ContentFetcher interface {
	// FetchContent downloads the attachment behind a message ID and returns
	// it base64-encoded. Transport errors and non-success statuses surface
	// as a fetch error; there is no local recovery.
	FetchContent(ctx context.Context, messageID string) (string, error)
}

// FaceAnalyzer submits an image to the remote detection service
type FaceAnalyzer interface {
	// Detect analyzes a base64-encoded image and returns the detected faces.
	// An empty slice is a valid zero-face result, not an error.
	Detect(ctx context.Context, imageBase64 string) ([]domain.DetectedFace, error)
}

// ReplySender delivers reply messages bound to a single-use reply token
type ReplySender interface {
	// Reply sends 1-5 messages for the given token. The token is single-use,
	// so a failure here is terminal for the event.
	Reply(ctx context.Context, replyToken string, messages []domain.ReplyMessage) error
}

// UserStateRepository tracks follow/unfollow state per user
type UserStateRepository interface {
	// SetFollowState upserts the user's record: is_blocked = !following plus
	// a store-assigned timestamp. Other fields on the record are untouched.
	SetFollowState(ctx context.Context, userID string, following bool) error
}

// AuditRepository persists processing outcomes of webhook events
// Audit rows carry no message content, only event type and status
type AuditRepository interface {
	// SaveEvent appends one audit row
	SaveEvent(ctx context.Context, audit *domain.EventAudit) error

	// PurgeOlderThan deletes up to limit audit rows older than the cutoff,
	// returning the number of rows removed. Used by the retention watchdog.
	PurgeOlderThan(ctx context.Context, cutoffDays int, limit int) (int64, error)
}
