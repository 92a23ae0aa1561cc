package handlers

import (
	"io"
	"net/http"
	"strconv"

	"gridbot/internal/service"
)

// SignalHandler принимает webhook от TradingView и отдает историю сигналов
//
// Endpoints:
// - POST /api/v1/webhook/tradingview - прием сигнала
// - GET /api/v1/signals              - история сигналов
// - GET /api/v1/signals/stats        - агрегированная статистика
type SignalHandler struct {
	signals service.SignalServiceInterface
}

// NewSignalHandler создает новый SignalHandler
func NewSignalHandler(signals service.SignalServiceInterface) *SignalHandler {
	return &SignalHandler{signals: signals}
}

// Webhook принимает сигнал от TradingView
// POST /api/v1/webhook/tradingview
//
// Подпись HMAC-SHA256 передается в заголовке X-Webhook-Signature.
// Тело - JSON alert от TradingView. Ответ всегда содержит сигнал
// и причину пропуска, если сигнал не был исполнен.
//
// Response:
// - 200 OK: сигнал принят (исполнен или пропущен, см. поле reason)
// - 400 Bad Request: невалидный payload
// - 401 Unauthorized: подпись не совпала
func (h *SignalHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", err.Error())
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	result, err := h.signals.ProcessWebhook(r.Context(), body, signature)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetSignals возвращает историю принятых сигналов
// GET /api/v1/signals
//
// Query Parameters:
// - limit: количество записей (по умолчанию 50, максимум 200)
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 200 {
		limit = 200
	}

	respondWithJSON(w, http.StatusOK, h.signals.History(limit))
}

// GetSignalStats возвращает статистику по сигналам
// GET /api/v1/signals/stats
func (h *SignalHandler) GetSignalStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.signals.Stats())
}
