package handlers

import (
	"net/http"
	"time"

	"gridbot/internal/models"
	"gridbot/internal/service"
)

// StatusHandler отдает сводное состояние бота
//
// Endpoints:
// - GET /api/v1/status - сводка: сетки, биржа, kill switch, uptime
type StatusHandler struct {
	grids     service.GridServiceInterface
	exchange  string
	startedAt time.Time
	version   string
}

// NewStatusHandler создает новый StatusHandler
func NewStatusHandler(grids service.GridServiceInterface, exchangeName, version string) *StatusHandler {
	return &StatusHandler{
		grids:     grids,
		exchange:  exchangeName,
		startedAt: time.Now(),
		version:   version,
	}
}

// StatusResponse сводное состояние бота
type StatusResponse struct {
	Exchange      string                 `json:"exchange"`
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	GridsTotal    int                    `json:"grids_total"`
	GridsRunning  int                    `json:"grids_running"`
	GridsPaused   int                    `json:"grids_paused"`
	GridsStopped  int                    `json:"grids_stopped"`
	KillSwitch    models.KillSwitchState `json:"kill_switch"`
	TotalPnl      float64                `json:"total_pnl"`
}

// GetStatus возвращает сводку по боту
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	runtimes := h.grids.ListGrids()
	risk := h.grids.RiskStatus()

	resp := StatusResponse{
		Exchange:      h.exchange,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		GridsTotal:    len(runtimes),
		KillSwitch:    risk.KillSwitch,
	}

	for _, rt := range runtimes {
		switch rt.Status {
		case models.GridStatusRunning:
			resp.GridsRunning++
		case models.GridStatusPaused:
			resp.GridsPaused++
		case models.GridStatusStopped:
			resp.GridsStopped++
		}
		resp.TotalPnl += rt.RealizedPnl
	}

	respondWithJSON(w, http.StatusOK, resp)
}
