package service

import (
	"context"

	"gridbot/internal/bot"
	"gridbot/internal/models"
	"gridbot/internal/repository"
)

// GridServiceInterface определяет интерфейс сервиса сеток для handlers
type GridServiceInterface interface {
	CreateGrid(ctx context.Context, cfg *models.GridConfig) error
	GetGrid(symbol string) (*models.GridRuntime, error)
	ListGrids() []*models.GridRuntime
	GetGridConfig(ctx context.Context, symbol string) (*models.GridConfig, error)
	DeleteGrid(ctx context.Context, symbol string) error
	StartGrid(ctx context.Context, symbol string) error
	PauseGrid(ctx context.Context, symbol string) error
	ResumeGrid(ctx context.Context, symbol string) error
	StopGrid(ctx context.Context, symbol string) error
	PauseAll(ctx context.Context) []string
	ResumeAll(ctx context.Context) []string
	Rebalance(ctx context.Context, symbol string, lower, upper float64) error
	UpdateGrid(ctx context.Context, symbol string, stopLoss, takeProfit float64, btcFilter bool) error
	Kill(ctx context.Context, reason string) []string
	ResetKill()
	RiskStatus() *models.RiskStatus
}

// SignalServiceInterface определяет интерфейс сервиса сигналов для handlers
type SignalServiceInterface interface {
	ProcessWebhook(ctx context.Context, body []byte, signature string) (*SignalResult, error)
	History(limit int) []*models.Signal
	Stats() models.SignalStats
}

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetNotifications(ctx context.Context, notifType string, limit int) ([]*models.Notification, error)
}

// TradeServiceInterface определяет интерфейс сервиса сделок
type TradeServiceInterface interface {
	GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error)
	GetStats(ctx context.Context, period string) (*models.TradeStats, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ GridServiceInterface = (*GridService)(nil)
var _ SignalServiceInterface = (*SignalService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)
var _ TradeServiceInterface = (*TradeService)(nil)

// Движок принимает репозитории через узкие интерфейсы
var _ bot.GridStore = (*repository.GridRepository)(nil)
var _ bot.TradeRecorder = (*repository.TradeRepository)(nil)
