package service

import (
	"context"

	"gridbot/internal/models"
	"gridbot/internal/repository"
	"gridbot/pkg/utils"
)

// TradeService - доступ к журналу исполнений
type TradeService struct {
	repo *repository.TradeRepository
}

// NewTradeService создает новый экземпляр сервиса сделок
func NewTradeService(repo *repository.TradeRepository) *TradeService {
	return &TradeService{repo: repo}
}

// GetTrades возвращает последние сделки, новые сверху
func (s *TradeService) GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	if symbol != "" {
		symbol = utils.NormalizeSymbol(symbol)
	}
	return s.repo.List(ctx, symbol, limit)
}

// GetStats возвращает агрегаты сделок за период
//
// Неизвестный период трактуется как day
func (s *TradeService) GetStats(ctx context.Context, period string) (*models.TradeStats, error) {
	p := utils.PeriodType(period)
	switch p {
	case utils.PeriodDay, utils.PeriodWeek, utils.PeriodMonth, utils.PeriodYear, utils.PeriodAll:
	default:
		p = utils.PeriodDay
	}
	return s.repo.GetStats(ctx, p)
}
