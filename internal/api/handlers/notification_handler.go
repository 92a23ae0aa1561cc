package handlers

import (
	"net/http"
	"strconv"

	"gridbot/internal/models"
	"gridbot/internal/service"
)

// NotificationHandler отдает журнал событий бота
//
// Endpoints:
// - GET /api/v1/notifications - журнал событий с фильтрацией по типу
type NotificationHandler struct {
	notifications service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(notifications service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                    `json:"total"`
}

// GetNotifications возвращает журнал событий
//
// GET /api/v1/notifications
//
// Query Parameters:
// - type: фильтр по типу (GRID_START, GRID_STOP, BUY_FILLED, SELL_FILLED,
//   STOP_LOSS, TAKE_PROFIT, KILL_SWITCH, BREAKER, ERROR)
// - limit: количество записей (по умолчанию 100, максимум 500)
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	notifType := r.URL.Query().Get("type")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	notifications, err := h.notifications.GetNotifications(r.Context(), notifType, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}
