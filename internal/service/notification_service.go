package service

import (
	"context"
	"strings"

	"gridbot/internal/models"
	"gridbot/internal/repository"
	"gridbot/pkg/utils"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationStore - персистентность уведомлений
type NotificationStore interface {
	Create(ctx context.Context, notif *models.Notification) error
	List(ctx context.Context, limit int) ([]*models.Notification, error)
	ListByType(ctx context.Context, notifType string, limit int) ([]*models.Notification, error)
}

// NotificationService - журнал событий бота
//
// Основной режим работы: Run дренирует канал уведомлений движка,
// пишет каждое событие в БД и рассылает WebSocket клиентам.
type NotificationService struct {
	repo  NotificationStore
	wsHub WebSocketBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений
//
// Вызывается после инициализации Hub в main.go
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Run дренирует канал уведомлений движка до отмены контекста
func (s *NotificationService) Run(ctx context.Context, events <-chan *models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-events:
			if !ok {
				return
			}
			if err := s.CreateNotification(ctx, notif); err != nil {
				utils.Error("failed to store notification",
					utils.String("type", notif.Type), utils.Err(err))
			}
		}
	}
}

// CreateNotification сохраняет уведомление и рассылает клиентам
func (s *NotificationService) CreateNotification(ctx context.Context, notif *models.Notification) error {
	if s.repo != nil {
		if err := s.repo.Create(ctx, notif); err != nil {
			return err
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}
	return nil
}

// GetNotifications возвращает последние уведомления
//
// notifType == "" - все типы, новые сверху
func (s *NotificationService) GetNotifications(ctx context.Context, notifType string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	if s.repo == nil {
		return nil, nil
	}

	notifType = strings.ToUpper(strings.TrimSpace(notifType))
	if notifType != "" {
		return s.repo.ListByType(ctx, notifType, limit)
	}
	return s.repo.List(ctx, limit)
}

// Проверка реализации интерфейса репозиторием
var _ NotificationStore = (*repository.NotificationRepository)(nil)
