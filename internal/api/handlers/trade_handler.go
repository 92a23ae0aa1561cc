package handlers

import (
	"net/http"
	"strconv"

	"gridbot/internal/service"
)

// TradeHandler отдает историю сделок и статистику PnL
//
// Endpoints:
// - GET /api/v1/trades       - история сделок
// - GET /api/v1/trades/stats - статистика за период
type TradeHandler struct {
	trades service.TradeServiceInterface
}

// NewTradeHandler создает новый TradeHandler
func NewTradeHandler(trades service.TradeServiceInterface) *TradeHandler {
	return &TradeHandler{trades: trades}
}

// GetTrades возвращает историю сделок
// GET /api/v1/trades
//
// Query Parameters:
// - symbol: фильтр по инструменту (опционально)
// - limit: количество записей (по умолчанию 100, максимум 500)
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	trades, err := h.trades.GetTrades(r.Context(), symbol, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trades)
}

// GetTradeStats возвращает статистику сделок за период
// GET /api/v1/trades/stats
//
// Query Parameters:
// - period: day, week, month, year, all (по умолчанию day)
func (h *TradeHandler) GetTradeStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	stats, err := h.trades.GetStats(r.Context(), period)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
