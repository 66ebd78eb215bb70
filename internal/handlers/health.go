package handlers

import (
	"net/http"
	"time"

	"github.com/siocraft/finance-tracker-api/internal/services"
)

// HealthResponse is returned by the liveness probe
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2023-12-01T10:30:00Z"`
}

// Health reports that the process is serving
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} handlers.HealthResponse
// @Router /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	services.SendJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}
