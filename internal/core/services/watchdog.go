// Package services contains core business logic services
// Following Hexagonal Architecture: Core layer is independent of infrastructure
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"facebot/internal/core/ports"
)

// Watchdog retention policy
const (
	watchdogInterval   = 10 * time.Minute
	diskPurgeThreshold = 70.0 // percent
	auditRetentionDays = 7
	purgeBatchSize     = 1000
)

// RunWatchdog starts the audit-log auto-purge background service.
// Old audit rows are only deleted when disk usage crosses the threshold
// AND the rows are past the retention window.
func RunWatchdog(audit ports.AuditRepository) {
	ticker := time.NewTicker(watchdogInterval)

	go func() {
		for range ticker.C {
			ctx := context.Background()

			usage, err := disk.UsageWithContext(ctx, "/")
			if err != nil {
				slog.Warn("Watchdog disk check failed", "error", err)
				continue
			}

			if usage.UsedPercent < diskPurgeThreshold {
				slog.Debug("Watchdog resource check OK",
					"disk_percent", usage.UsedPercent,
				)
				continue
			}

			slog.Info("Watchdog purging old audit rows",
				"disk_percent", usage.UsedPercent,
				"retention_days", auditRetentionDays,
			)

			purged, err := audit.PurgeOlderThan(ctx, auditRetentionDays, purgeBatchSize)
			if err != nil {
				slog.Error("Watchdog purge failed", "error", err)
				continue
			}

			slog.Info("Watchdog purge completed", "rows_purged", purged)
		}
	}()

	slog.Info("Watchdog service started", "interval", watchdogInterval)
}
