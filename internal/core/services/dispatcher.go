// Package services contains core business logic
// Following Hexagonal Architecture: Services orchestrate domain logic using ports
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"facebot/internal/adapters/dto"
	"facebot/internal/core/domain"
	"facebot/internal/core/ports"
)

// Dispatcher routes webhook events to their pipelines and guarantees each
// reply-bearing event gets exactly one reply attempt, success or failure
type Dispatcher struct {
	fetcher  ports.ContentFetcher
	analyzer ports.FaceAnalyzer
	sender   ports.ReplySender
	users    ports.UserStateRepository
	audit    ports.AuditRepository
}

// NewDispatcher creates a new dispatcher instance with dependencies injected
func NewDispatcher(
	fetcher ports.ContentFetcher,
	analyzer ports.FaceAnalyzer,
	sender ports.ReplySender,
	users ports.UserStateRepository,
	audit ports.AuditRepository,
) *Dispatcher {
	return &Dispatcher{
		fetcher:  fetcher,
		analyzer: analyzer,
		sender:   sender,
		users:    users,
		audit:    audit,
	}
}

// Dispatch fans out one goroutine per event and waits for the fan-out.
// Events in a batch are independent: they run concurrently and no reply
// ordering is guaranteed across events. Each event's own pipeline is
// strictly sequential.
//
// The HTTP handler calls this in a detached goroutine after acknowledging
// the delivery, so nothing here blocks the webhook response.
func (d *Dispatcher) Dispatch(ctx context.Context, events []dto.Event) {
	var wg sync.WaitGroup
	for i := range events {
		event := events[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			// One misbehaving event must not take down the batch
			defer func() {
				if r := recover(); r != nil {
					slog.Error("PANIC recovered in event pipeline",
						"panic", r,
						"event_type", event.Type,
					)
				}
			}()
			d.handleEvent(ctx, &event)
		}()
	}
	wg.Wait()
}

// handleEvent routes a single event to the correct pipeline
func (d *Dispatcher) handleEvent(ctx context.Context, event *dto.Event) {
	switch {
	case event.IsFollowChange():
		d.handleFollowChange(ctx, event)
	case event.IsImageMessage():
		d.handleImageMessage(ctx, event)
	default:
		// Non-image messages and unknown event types get the fixed prompt
		d.sendReply(ctx, event, []domain.ReplyMessage{domain.NewTextMessage(MsgPrompt)})
	}
}

// handleImageMessage runs the fetch -> analyze -> format pipeline.
// Any step failing substitutes the fixed error message; the reply is sent
// either way. Zero faces and >5 faces are valid outcomes with their own
// user-facing texts, not failures.
func (d *Dispatcher) handleImageMessage(ctx context.Context, event *dto.Event) {
	messages, err := d.runDiagnosis(ctx, event.MessageID())
	if err != nil {
		slog.Error("Diagnosis pipeline failed",
			"error", err,
			"message_id", event.MessageID(),
			"user_id", event.Source.UserID,
		)
		messages = []domain.ReplyMessage{domain.NewTextMessage(MsgPipelineError)}
	}
	d.sendReply(ctx, event, messages)
}

// runDiagnosis is the sequential image pipeline up to (not including) the reply
func (d *Dispatcher) runDiagnosis(ctx context.Context, messageID string) ([]domain.ReplyMessage, error) {
	imageBase64, err := d.fetcher.FetchContent(ctx, messageID)
	if err != nil {
		return nil, err
	}

	faces, err := d.analyzer.Detect(ctx, imageBase64)
	if err != nil {
		return nil, err
	}

	return FormatDiagnosis(faces), nil
}

// handleFollowChange maps follow/unfollow onto a state-store write.
// A store failure is logged and audited, never surfaced to the platform:
// there is no reply token worth spending on it.
func (d *Dispatcher) handleFollowChange(ctx context.Context, event *dto.Event) {
	following := event.Type == dto.EventTypeFollow

	if err := d.users.SetFollowState(ctx, event.Source.UserID, following); err != nil {
		slog.Error("Failed to update follow state",
			"error", err,
			"user_id", event.Source.UserID,
			"following", following,
		)
		d.recordAudit(event.Type, domain.AuditStatusFailed, err)
		return
	}

	slog.Info("Follow state updated",
		"user_id", event.Source.UserID,
		"following", following,
	)
	d.recordAudit(event.Type, domain.AuditStatusProcessed, nil)
}

// sendReply performs the single reply attempt for an event. The reply token
// is single-use, so a failure here is terminal: logged and audited, no retry.
func (d *Dispatcher) sendReply(ctx context.Context, event *dto.Event, messages []domain.ReplyMessage) {
	if err := d.sender.Reply(ctx, event.ReplyToken, messages); err != nil {
		slog.Error("Failed to send reply",
			"error", err,
			"event_type", event.Type,
			"message_count", len(messages),
		)
		d.recordAudit(event.Type, domain.AuditStatusFailed, err)
		return
	}
	d.recordAudit(event.Type, domain.AuditStatusProcessed, nil)
}

// recordAudit appends an audit row without blocking the pipeline.
// Fire and forget: the process may legitimately finish the event before
// this write lands, a lost audit row is acceptable.
func (d *Dispatcher) recordAudit(eventType, status string, cause error) {
	audit := &domain.EventAudit{
		EventType: eventType,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		msg := cause.Error()
		audit.ErrorLog = &msg
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("PANIC in audit write", "panic", r)
			}
		}()

		if err := d.audit.SaveEvent(context.Background(), audit); err != nil {
			slog.Warn("Failed to save event audit (async)",
				"error", err,
				"event_type", eventType,
				"status", status,
			)
		}
	}()
}
