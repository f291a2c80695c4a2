// Package handler implements HTTP request handlers for the status surface
package handler

import (
	"log/slog"
	"math"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatusHandler exposes liveness and system metrics
type StatusHandler struct {
	startedAt time.Time
}

// NewStatusHandler creates a new status handler instance
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{
		startedAt: time.Now(),
	}
}

// SystemMetricsResponse represents system health data
type SystemMetricsResponse struct {
	CPUPercent      float64 `json:"cpu_percent"`
	RAMUsedGB       float64 `json:"ram_used_gb"`
	RAMTotalGB      float64 `json:"ram_total_gb"`
	RAMPercent      float64 `json:"ram_percent"`
	DiskPercent     float64 `json:"disk_percent"`
	GoroutinesCount int     `json:"goroutines_count"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
}

// HandleHealth is the liveness endpoint
// GET /
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, "Face diagnosis bot is running", nil)
}

// HandleMetrics returns current system health metrics
// GET /status
func (h *StatusHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// CPU usage (average over 1 second)
	var cpuPercent float64
	if cpuPercents, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	// Memory stats
	var ramUsedGB, ramTotalGB, ramPercent float64
	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		ramUsedGB = float64(memStat.Used) / 1024 / 1024 / 1024
		ramTotalGB = float64(memStat.Total) / 1024 / 1024 / 1024
		ramPercent = memStat.UsedPercent
	}

	// Disk stats (root partition)
	var diskPercent float64
	if diskStat, err := disk.UsageWithContext(ctx, "/"); err == nil {
		diskPercent = diskStat.UsedPercent
	}

	response := SystemMetricsResponse{
		CPUPercent:      roundTo2Decimals(cpuPercent),
		RAMUsedGB:       roundTo2Decimals(ramUsedGB),
		RAMTotalGB:      roundTo2Decimals(ramTotalGB),
		RAMPercent:      roundTo2Decimals(ramPercent),
		DiskPercent:     roundTo2Decimals(diskPercent),
		GoroutinesCount: runtime.NumGoroutine(),
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
	}

	slog.Debug("System metrics retrieved",
		"cpu_percent", response.CPUPercent,
		"ram_percent", response.RAMPercent,
	)

	WriteJSON(w, http.StatusOK, "Success", response)
}

// roundTo2Decimals keeps metric payloads readable
func roundTo2Decimals(v float64) float64 {
	return math.Round(v*100) / 100
}
