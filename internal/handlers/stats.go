package handlers

import (
	"net/http"

	"github.com/librarian/apiserver/internal/services"
	"go.uber.org/zap"
)

// Stats serves the dashboard summary.
func Stats(statsService *services.StatsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := statsService.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err, "failed to compute stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}
