package handlers

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"gridbot/internal/bot"
	"gridbot/internal/service"
	"gridbot/internal/signal"
	"gridbot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondWithError отправляет JSON ответ с ошибкой
func respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleServiceError транслирует ошибки сервисов в HTTP статусы
func handleServiceError(w http.ResponseWriter, err error) {
	var transition *bot.StateTransitionError

	switch {
	case errors.Is(err, service.ErrGridNotFound):
		respondWithError(w, http.StatusNotFound, "grid_not_found", "Grid not found", "")

	case errors.Is(err, service.ErrGridAlreadyExists):
		respondWithError(w, http.StatusConflict, "grid_exists", "Grid for this symbol already exists", "")

	case errors.Is(err, service.ErrGridNotStopped):
		respondWithError(w, http.StatusConflict, "grid_not_stopped", "Grid must be stopped to delete", "")

	case errors.Is(err, service.ErrMaxGridsReached):
		respondWithError(w, http.StatusConflict, "max_grids_reached", "Maximum number of grids reached", "")

	case errors.As(err, &transition):
		respondWithError(w, http.StatusConflict, "invalid_transition", err.Error(), "")

	case errors.Is(err, utils.ErrEmptySymbol),
		errors.Is(err, utils.ErrInvalidSymbol),
		errors.Is(err, utils.ErrInvalidBounds),
		errors.Is(err, utils.ErrInvalidLevelCount),
		errors.Is(err, utils.ErrInvalidCapital),
		errors.Is(err, utils.ErrInvalidStopLoss):
		respondWithError(w, http.StatusBadRequest, "validation_failed", err.Error(), "")

	case errors.Is(err, signal.ErrInvalidSignature):
		respondWithError(w, http.StatusUnauthorized, "invalid_signature", "Invalid webhook signature", "")

	case errors.Is(err, signal.ErrEmptyPayload),
		errors.Is(err, signal.ErrInvalidPayload),
		errors.Is(err, signal.ErrMissingSymbol):
		respondWithError(w, http.StatusBadRequest, "invalid_payload", err.Error(), "")

	default:
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", err.Error())
	}
}
