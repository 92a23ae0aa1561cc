package handlers

import (
	"net/http"

	"gridbot/internal/service"
)

// RiskHandler отвечает за мониторинг и управление риск-менеджментом
//
// Endpoints:
// - GET /api/v1/risk             - текущее состояние риск-менеджера
// - POST /api/v1/risk/kill       - ручной kill switch (останавливает все сетки)
// - POST /api/v1/risk/reset-kill - сброс kill switch после разбора инцидента
type RiskHandler struct {
	grids service.GridServiceInterface
}

// NewRiskHandler создает новый RiskHandler
func NewRiskHandler(grids service.GridServiceInterface) *RiskHandler {
	return &RiskHandler{grids: grids}
}

// KillRequest структура запроса на активацию kill switch
type KillRequest struct {
	Reason string `json:"reason"`
}

// GetRiskStatus возвращает состояние риск-менеджера
// GET /api/v1/risk
//
// Включает kill switch, просадку, error rate API и сработавшие
// предохранители волатильности.
func (h *RiskHandler) GetRiskStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.grids.RiskStatus())
}

// Kill активирует kill switch вручную
// POST /api/v1/risk/kill
//
// Все running сетки останавливаются, их ордера отменяются.
// Kill switch - защелка: новые сетки не запустятся до сброса.
func (h *RiskHandler) Kill(w http.ResponseWriter, r *http.Request) {
	var req KillRequest
	// Тело опционально, reason по умолчанию подставит сервис
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	stopped := h.grids.Kill(r.Context(), req.Reason)

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "kill switch activated",
		Data:    stopped,
	})
}

// ResetKill сбрасывает kill switch
// POST /api/v1/risk/reset-kill
//
// Сетки не перезапускаются автоматически, оператор запускает их сам.
func (h *RiskHandler) ResetKill(w http.ResponseWriter, r *http.Request) {
	h.grids.ResetKill()
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "kill switch reset"})
}
