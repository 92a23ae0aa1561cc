package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRepository - журнал исполненных ордеров сетки
//
// Каждое исполнение (buy или sell) пишется отдельной строкой.
// P/L заполнен только у sell-сделок: qty × шаг сетки.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Record записывает исполненную сделку
func (r *TradeRepository) Record(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades (symbol, side, level_index, price, qty, pnl, order_id, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = time.Now()
	}

	return r.db.QueryRowContext(
		ctx,
		query,
		trade.Symbol,
		trade.Side,
		trade.LevelIndex,
		trade.Price,
		trade.Qty,
		trade.Pnl,
		trade.OrderID,
		trade.ExecutedAt,
	).Scan(&trade.ID)
}

// List возвращает последние сделки, новые первыми
//
// symbol == "" - сделки по всем инструментам
func (r *TradeRepository) List(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error

	if symbol == "" {
		query := `
			SELECT id, symbol, side, level_index, price, qty, pnl, order_id, executed_at
			FROM trades
			ORDER BY executed_at DESC
			LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit)
	} else {
		query := `
			SELECT id, symbol, side, level_index, price, qty, pnl, order_id, executed_at
			FROM trades
			WHERE symbol = $1
			ORDER BY executed_at DESC
			LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, symbol, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade := &models.Trade{}
		err := rows.Scan(
			&trade.ID,
			&trade.Symbol,
			&trade.Side,
			&trade.LevelIndex,
			&trade.Price,
			&trade.Qty,
			&trade.Pnl,
			&trade.OrderID,
			&trade.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetStats возвращает агрегаты сделок за период (day/week/month/year/all)
func (r *TradeRepository) GetStats(ctx context.Context, period utils.PeriodType) (*models.TradeStats, error) {
	tr := utils.GetPeriodRange(period)

	stats := &models.TradeStats{
		Period:      string(period),
		PnlBySymbol: make(map[string]float64),
	}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE side = 'buy'),
		       COUNT(*) FILTER (WHERE side = 'sell'),
		       COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE executed_at >= $1 AND executed_at <= $2`

	err := r.db.QueryRowContext(ctx, query, tr.Start, tr.End).Scan(
		&stats.TotalTrades,
		&stats.BuyTrades,
		&stats.SellTrades,
		&stats.TotalPnl,
	)
	if err != nil {
		return nil, err
	}

	bySymbol := `
		SELECT symbol, COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE executed_at >= $1 AND executed_at <= $2
		GROUP BY symbol`

	rows, err := r.db.QueryContext(ctx, bySymbol, tr.Start, tr.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var symbol string
		var pnl float64
		if err := rows.Scan(&symbol, &pnl); err != nil {
			return nil, err
		}
		stats.PnlBySymbol[symbol] = pnl
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOlderThan удаляет сделки старше указанного момента
//
// Используется для очистки журнала, возвращает число удаленных строк
func (r *TradeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM trades WHERE executed_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
