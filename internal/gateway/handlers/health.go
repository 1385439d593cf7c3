package handlers

import (
	"net/http"
	"sync"
	"time"
)

var (
	startTime time.Time
	startOnce sync.Once
)

// InitStartTime records the server start time. Later calls are no-ops.
func InitStartTime() {
	startOnce.Do(func() {
		startTime = time.Now()
	})
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Identity string `json:"identity"`
	Uptime   int64  `json:"uptime"`
}

// HealthHandler reports liveness together with the provider identity the
// server answers with.
func HealthHandler(version, identity string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(0)
		if !startTime.IsZero() {
			uptime = int64(time.Since(startTime).Seconds())
		}

		SendJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  version,
			Identity: identity,
			Uptime:   uptime,
		})
	}
}
