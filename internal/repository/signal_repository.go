package repository

import (
	"context"
	"database/sql"
	"time"

	"gridbot/internal/models"
)

// SignalRepository - журнал принятых вебхук-сигналов
//
// Кольцо истории в обработчике живет в памяти и теряется при
// перезапуске; таблица сохраняет полный журнал для аудита.
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository создает новый экземпляр репозитория
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Create записывает принятый сигнал
func (r *SignalRepository) Create(ctx context.Context, sig *models.Signal) error {
	query := `
		INSERT INTO signals (symbol, action, price, zone, message, validated, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if sig.ReceivedAt.IsZero() {
		sig.ReceivedAt = time.Now()
	}

	return r.db.QueryRowContext(
		ctx,
		query,
		sig.Symbol,
		sig.Action,
		sig.Price,
		sig.Zone,
		sig.Message,
		sig.Validated,
		sig.ReceivedAt,
	).Scan(&sig.ID)
}

// List возвращает последние сигналы, новые первыми
func (r *SignalRepository) List(ctx context.Context, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, symbol, action, price, zone, message, validated, received_at
		FROM signals
		ORDER BY received_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		sig := &models.Signal{}
		if err := rows.Scan(
			&sig.ID,
			&sig.Symbol,
			&sig.Action,
			&sig.Price,
			&sig.Zone,
			&sig.Message,
			&sig.Validated,
			&sig.ReceivedAt,
		); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// DeleteOlderThan удаляет сигналы старше отметки, возвращает количество
func (r *SignalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM signals WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
