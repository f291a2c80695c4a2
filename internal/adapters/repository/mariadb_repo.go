// Package repository implements data persistence adapters
// Following Hexagonal Architecture: Adapters implement ports defined in core
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"facebot/internal/core/domain"
	"facebot/internal/core/ports"
)

// Ensure MariaDBRepository implements the required interfaces
var _ ports.AuditRepository = (*MariaDBRepository)(nil)

// MariaDBRepository implements the webhook event audit log.
// Rows record event type and processing outcome only, never message content.
type MariaDBRepository struct {
	db *sql.DB
}

// NewMariaDBRepository creates a new MariaDB repository instance
func NewMariaDBRepository(db *sql.DB) *MariaDBRepository {
	return &MariaDBRepository{
		db: db,
	}
}

// SaveEvent appends one audit row
func (r *MariaDBRepository) SaveEvent(ctx context.Context, audit *domain.EventAudit) error {
	query := `
		INSERT INTO event_audit (event_type, status, error_log, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		audit.EventType,
		audit.Status,
		audit.ErrorLog,
		audit.CreatedAt,
	)

	if err != nil {
		slog.Error("Failed to save event audit",
			"error", err,
			"event_type", audit.EventType,
			"status", audit.Status,
		)
		return fmt.Errorf("save event audit: %w", err)
	}

	slog.Debug("Event audit saved",
		"event_type", audit.EventType,
		"status", audit.Status,
	)

	return nil
}

// PurgeOlderThan deletes up to limit audit rows past the retention window.
// Batched so the watchdog never takes a long lock on the table.
func (r *MariaDBRepository) PurgeOlderThan(ctx context.Context, cutoffDays int, limit int) (int64, error) {
	query := `
		DELETE FROM event_audit
		WHERE created_at < DATE_SUB(NOW(), INTERVAL ? DAY)
		LIMIT ?
	`

	result, err := r.db.ExecContext(ctx, query, cutoffDays, limit)
	if err != nil {
		slog.Error("Failed to purge event audit",
			"error", err,
			"cutoff_days", cutoffDays,
		)
		return 0, fmt.Errorf("purge event audit: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
