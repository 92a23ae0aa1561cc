package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"gridbot/internal/models"
	"gridbot/internal/service"
)

// GridHandler отвечает за управление сетками
//
// Endpoints:
// - POST /api/v1/grids                  - создание сетки
// - GET /api/v1/grids                   - список сеток (runtime состояние)
// - GET /api/v1/grids/{symbol}          - состояние конкретной сетки
// - PATCH /api/v1/grids/{symbol}        - обновление стоп-уровней и фильтра BTC
// - DELETE /api/v1/grids/{symbol}       - удаление остановленной сетки
// - POST /api/v1/grids/{symbol}/start   - запуск (лестница строится заново)
// - POST /api/v1/grids/{symbol}/pause   - пауза (ордера отменяются, уровни сохраняются)
// - POST /api/v1/grids/{symbol}/resume  - возобновление из паузы
// - POST /api/v1/grids/{symbol}/stop    - остановка
// - POST /api/v1/grids/{symbol}/rebalance - пересборка лестницы под новые границы
// - POST /api/v1/grids/pause-all        - пауза всех running сеток
// - POST /api/v1/grids/resume-all       - возобновление всех paused сеток
type GridHandler struct {
	grids service.GridServiceInterface
}

// NewGridHandler создает новый GridHandler
func NewGridHandler(grids service.GridServiceInterface) *GridHandler {
	return &GridHandler{grids: grids}
}

// CreateGridRequest структура запроса на создание сетки
type CreateGridRequest struct {
	Symbol           string  `json:"symbol"`        // BTCUSDT
	LowerBound       float64 `json:"lower_bound"`   // нижняя граница диапазона
	UpperBound       float64 `json:"upper_bound"`   // верхняя граница диапазона
	LevelCount       int     `json:"level_count"`   // количество уровней
	TotalCapital     float64 `json:"total_capital"` // капитал сетки в USDT
	StopLoss         float64 `json:"stop_loss"`     // опционально
	TakeProfit       float64 `json:"take_profit"`   // опционально
	BTCFilterEnabled bool    `json:"btc_filter"`    // не покупать при слабом BTC
}

// UpdateGridRequest структура запроса на обновление сетки
type UpdateGridRequest struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	BTCFilter  bool    `json:"btc_filter"`
}

// RebalanceRequest структура запроса на пересборку лестницы
type RebalanceRequest struct {
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// CreateGrid создает новую сетку
// POST /api/v1/grids
//
// Response:
// - 201 Created: сетка создана в статусе stopped
// - 400 Bad Request: невалидные параметры
// - 409 Conflict: сетка уже существует или достигнут лимит
func (h *GridHandler) CreateGrid(w http.ResponseWriter, r *http.Request) {
	var req CreateGridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	cfg := &models.GridConfig{
		Symbol:           req.Symbol,
		LowerBound:       req.LowerBound,
		UpperBound:       req.UpperBound,
		LevelCount:       req.LevelCount,
		TotalCapital:     req.TotalCapital,
		StopLoss:         req.StopLoss,
		TakeProfit:       req.TakeProfit,
		BTCFilterEnabled: req.BTCFilterEnabled,
	}

	if err := h.grids.CreateGrid(r.Context(), cfg); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, cfg)
}

// GetGrids возвращает runtime состояние всех сеток
// GET /api/v1/grids
//
// Query Parameters:
// - status: фильтр по статусу (stopped, running, paused)
func (h *GridHandler) GetGrids(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")

	runtimes := h.grids.ListGrids()
	response := make([]*models.GridRuntime, 0, len(runtimes))
	for _, rt := range runtimes {
		if statusFilter != "" && rt.Status != statusFilter {
			continue
		}
		response = append(response, rt)
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetGrid возвращает состояние конкретной сетки
// GET /api/v1/grids/{symbol}
func (h *GridHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	runtime, err := h.grids.GetGrid(symbol)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, runtime)
}

// UpdateGrid обновляет стоп-уровни и фильтр BTC
// PATCH /api/v1/grids/{symbol}
func (h *GridHandler) UpdateGrid(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req UpdateGridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if err := h.grids.UpdateGrid(r.Context(), symbol, req.StopLoss, req.TakeProfit, req.BTCFilter); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "grid updated"})
}

// DeleteGrid удаляет остановленную сетку
// DELETE /api/v1/grids/{symbol}
func (h *GridHandler) DeleteGrid(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if err := h.grids.DeleteGrid(r.Context(), symbol); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "grid deleted"})
}

// StartGrid запускает сетку
// POST /api/v1/grids/{symbol}/start
func (h *GridHandler) StartGrid(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.grids.StartGrid, "grid started")
}

// PauseGrid ставит сетку на паузу
// POST /api/v1/grids/{symbol}/pause
func (h *GridHandler) PauseGrid(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.grids.PauseGrid, "grid paused")
}

// ResumeGrid возобновляет сетку из паузы
// POST /api/v1/grids/{symbol}/resume
func (h *GridHandler) ResumeGrid(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.grids.ResumeGrid, "grid resumed")
}

// StopGrid останавливает сетку
// POST /api/v1/grids/{symbol}/stop
func (h *GridHandler) StopGrid(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.grids.StopGrid, "grid stopped")
}

// Rebalance пересобирает лестницу под новые границы
// POST /api/v1/grids/{symbol}/rebalance
func (h *GridHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	if err := h.grids.Rebalance(r.Context(), symbol, req.LowerBound, req.UpperBound); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "grid rebalanced"})
}

// PauseAll ставит на паузу все running сетки
// POST /api/v1/grids/pause-all
func (h *GridHandler) PauseAll(w http.ResponseWriter, r *http.Request) {
	affected := h.grids.PauseAll(r.Context())
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "grids paused", Data: affected})
}

// ResumeAll возобновляет все paused сетки
// POST /api/v1/grids/resume-all
func (h *GridHandler) ResumeAll(w http.ResponseWriter, r *http.Request) {
	affected := h.grids.ResumeAll(r.Context())
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "grids resumed", Data: affected})
}

// lifecycle - общий каркас для start/pause/resume/stop
func (h *GridHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, symbol string) error, message string) {
	symbol := mux.Vars(r)["symbol"]

	if err := op(r.Context(), symbol); err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: message})
}
