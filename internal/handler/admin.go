package handler

import (
	"net/http"
	"runtime"
	"time"

	"bgshelf-api/internal/service"
	"bgshelf-api/pkg/response"
)

// SnapshotStats reports on the snapshot store.
type SnapshotStats interface {
	Stats() (map[string]interface{}, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	snapshots SnapshotStats
	sync      *service.SyncService // nil when the mirror database is disabled
	dbType    string
	lockType  string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(snapshots SnapshotStats, sync *service.SyncService, dbType, lockType string) *AdminHandler {
	return &AdminHandler{
		snapshots: snapshots,
		sync:      sync,
		dbType:    dbType,
		lockType:  lockType,
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
	stats["lock_type"] = h.lockType

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

	// Snapshot store
	if h.snapshots != nil {
		snapStats, err := h.snapshots.Stats()
		if err == nil {
			stats["snapshots"] = snapStats
		} else {
			stats["snapshots"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	}

	// Mirror database
	if h.sync != nil {
		dbStats, err := h.sync.Stats(ctx)
		if err == nil {
			dbStats["status"] = "connected"
			dbStats["type"] = h.dbType
			stats["sync_db"] = dbStats
		} else {
			stats["sync_db"] = map[string]interface{}{
				"status": "error",
				"type":   h.dbType,
				"error":  err.Error(),
			}
		}
	} else {
		stats["sync_db"] = map[string]interface{}{
			"status": "not_configured",
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
