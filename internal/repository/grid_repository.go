package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gridbot/internal/models"
)

// Ошибки репозитория сеток
var (
	ErrGridNotFound = errors.New("grid not found")
	ErrGridExists   = errors.New("grid already exists")
)

const gridColumns = `id, symbol, lower_bound, upper_bound, level_count, total_capital, stop_loss, take_profit, btc_filter_enabled, status, realized_pnl, created_at, updated_at`

// GridRepository - работа с таблицей grids
type GridRepository struct {
	db *sql.DB
}

// NewGridRepository создает новый экземпляр репозитория
func NewGridRepository(db *sql.DB) *GridRepository {
	return &GridRepository{db: db}
}

// Create создает новую сетку
func (r *GridRepository) Create(ctx context.Context, grid *models.GridConfig) error {
	query := `
		INSERT INTO grids (symbol, lower_bound, upper_bound, level_count, total_capital, stop_loss, take_profit, btc_filter_enabled, status, realized_pnl, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	now := time.Now()
	grid.CreatedAt = now
	grid.UpdatedAt = now

	if grid.Status == "" {
		grid.Status = models.GridStatusStopped
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		grid.Symbol,
		grid.LowerBound,
		grid.UpperBound,
		grid.LevelCount,
		grid.TotalCapital,
		grid.StopLoss,
		grid.TakeProfit,
		grid.BTCFilterEnabled,
		grid.Status,
		grid.RealizedPnl,
		grid.CreatedAt,
		grid.UpdatedAt,
	).Scan(&grid.ID)

	if err != nil {
		if isGridUniqueViolation(err) {
			return ErrGridExists
		}
		return err
	}

	return nil
}

// GetBySymbol возвращает сетку по символу
func (r *GridRepository) GetBySymbol(ctx context.Context, symbol string) (*models.GridConfig, error) {
	query := `
		SELECT ` + gridColumns + `
		FROM grids
		WHERE symbol = $1`

	grid := &models.GridConfig{}
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(
		&grid.ID,
		&grid.Symbol,
		&grid.LowerBound,
		&grid.UpperBound,
		&grid.LevelCount,
		&grid.TotalCapital,
		&grid.StopLoss,
		&grid.TakeProfit,
		&grid.BTCFilterEnabled,
		&grid.Status,
		&grid.RealizedPnl,
		&grid.CreatedAt,
		&grid.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGridNotFound
		}
		return nil, err
	}

	return grid, nil
}

// List возвращает все сетки
func (r *GridRepository) List(ctx context.Context) ([]*models.GridConfig, error) {
	query := `
		SELECT ` + gridColumns + `
		FROM grids
		ORDER BY created_at`

	return r.queryGrids(ctx, query)
}

// ListByStatus возвращает сетки с заданным статусом
func (r *GridRepository) ListByStatus(ctx context.Context, status string) ([]*models.GridConfig, error) {
	query := `
		SELECT ` + gridColumns + `
		FROM grids
		WHERE status = $1
		ORDER BY created_at`

	return r.queryGrids(ctx, query, status)
}

func (r *GridRepository) queryGrids(ctx context.Context, query string, args ...interface{}) ([]*models.GridConfig, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grids []*models.GridConfig
	for rows.Next() {
		grid := &models.GridConfig{}
		err := rows.Scan(
			&grid.ID,
			&grid.Symbol,
			&grid.LowerBound,
			&grid.UpperBound,
			&grid.LevelCount,
			&grid.TotalCapital,
			&grid.StopLoss,
			&grid.TakeProfit,
			&grid.BTCFilterEnabled,
			&grid.Status,
			&grid.RealizedPnl,
			&grid.CreatedAt,
			&grid.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		grids = append(grids, grid)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return grids, nil
}

// Update обновляет параметры сетки
func (r *GridRepository) Update(ctx context.Context, grid *models.GridConfig) error {
	query := `
		UPDATE grids
		SET lower_bound = $1, upper_bound = $2, level_count = $3, total_capital = $4,
		    stop_loss = $5, take_profit = $6, btc_filter_enabled = $7, updated_at = $8
		WHERE symbol = $9`

	grid.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(
		ctx,
		query,
		grid.LowerBound,
		grid.UpperBound,
		grid.LevelCount,
		grid.TotalCapital,
		grid.StopLoss,
		grid.TakeProfit,
		grid.BTCFilterEnabled,
		grid.UpdatedAt,
		grid.Symbol,
	)
	if err != nil {
		return err
	}

	return requireGridAffected(result)
}

// UpdateStatus обновляет статус сетки
func (r *GridRepository) UpdateStatus(ctx context.Context, symbol, status string) error {
	if status != models.GridStatusStopped && status != models.GridStatusRunning && status != models.GridStatusPaused {
		return errors.New("invalid status: must be 'stopped', 'running' or 'paused'")
	}

	query := `
		UPDATE grids
		SET status = $1, updated_at = $2
		WHERE symbol = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), symbol)
	if err != nil {
		return err
	}

	return requireGridAffected(result)
}

// UpdatePnl обновляет накопленный P/L сетки
func (r *GridRepository) UpdatePnl(ctx context.Context, symbol string, realizedPnl float64) error {
	query := `
		UPDATE grids
		SET realized_pnl = $1, updated_at = $2
		WHERE symbol = $3`

	result, err := r.db.ExecContext(ctx, query, realizedPnl, time.Now(), symbol)
	if err != nil {
		return err
	}

	return requireGridAffected(result)
}

// Delete удаляет сетку
func (r *GridRepository) Delete(ctx context.Context, symbol string) error {
	query := `DELETE FROM grids WHERE symbol = $1`

	result, err := r.db.ExecContext(ctx, query, symbol)
	if err != nil {
		return err
	}

	return requireGridAffected(result)
}

// requireGridAffected возвращает ErrGridNotFound, если запрос не тронул строк
func requireGridAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrGridNotFound
	}
	return nil
}

// isGridUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isGridUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
