package http

import (
	"net/http"

	"github.com/m-mizutani/upwatch/pkg/domain/model"
	"github.com/m-mizutani/upwatch/pkg/domain/types"
)

// handleHealth reports liveness together with the scan state of scans
func handleHealth(scans *ScanHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:   "healthy",
			Service:  types.ServiceName,
			Version:  types.Version,
			Scanning: scans.running.Load(),
		}
		if report := scans.latestReport(); report != nil {
			finished := report.FinishedAt
			status.LastScan = &finished
		}
		writeJSON(w, r, status, http.StatusOK)
	}
}
