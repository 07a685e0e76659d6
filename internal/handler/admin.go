package handler

import (
	"net/http"
	"runtime"
	"time"

	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	reconcile *service.ReconcileService
	dbType    string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(reconcile *service.ReconcileService, dbType string) *AdminHandler {
	return &AdminHandler{
		reconcile: reconcile,
		dbType:    dbType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Store stats
	storeStats, err := h.reconcile.Stats(ctx)
	if err == nil {
		storeStats["status"] = "connected"
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
