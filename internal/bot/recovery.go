package bot

import (
	"context"
	"fmt"
	"time"

	"gridbot/internal/config"
	"gridbot/internal/exchange"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// RecoveryManager отвечает за восстановление работы бота после перезапуска.
//
// Функциональность:
// - Чтение конфигурации сеток из БД при старте
// - Разворачивание стартового набора сеток при пустой БД
// - Отмена осиротевших ордеров на бирже (ID прошлого процесса потеряны)
// - Регистрация сеток в движке и стоп-уровней в риск-менеджере
// - Перезапуск сеток, которые были running на момент остановки
// - Уведомление оператора о результатах восстановления
type RecoveryManager struct {
	cfg *config.Config

	store GridStore
	exch  exchange.Exchange

	engine *Engine
	risk   *RiskManager

	recoveryTimeout time.Duration
}

// NewRecoveryManager создает менеджер восстановления
func NewRecoveryManager(
	cfg *config.Config,
	store GridStore,
	exch exchange.Exchange,
	engine *Engine,
	risk *RiskManager,
) *RecoveryManager {
	return &RecoveryManager{
		cfg:             cfg,
		store:           store,
		exch:            exch,
		engine:          engine,
		risk:            risk,
		recoveryTimeout: 30 * time.Second,
	}
}

// RecoveryResult содержит результаты восстановления
type RecoveryResult struct {
	GridsLoaded     int
	GridsSeeded     int
	GridsRestarted  int
	OrdersCancelled int
	Failed          map[string]error
}

// Recover восстанавливает состояние сеток
//
// Ордера прошлого процесса отменяются целиком: их ID не переживают
// перезапуск, а заново выставить лестницу дешевле, чем угадывать
// принадлежность ордеров уровням.
func (rm *RecoveryManager) Recover(ctx context.Context) (*RecoveryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, rm.recoveryTimeout)
	defer cancel()

	result := &RecoveryResult{Failed: make(map[string]error)}

	grids, err := rm.loadOrSeed(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("recovery: failed to load grids: %w", err)
	}
	result.GridsLoaded = len(grids)

	for _, cfg := range grids {
		if err := rm.recoverGrid(ctx, cfg, result); err != nil {
			result.Failed[cfg.Symbol] = err
			utils.Error("grid recovery failed",
				utils.Symbol(cfg.Symbol), utils.Err(err))
		}
	}

	utils.Info("recovery finished",
		utils.Int("loaded", result.GridsLoaded),
		utils.Int("seeded", result.GridsSeeded),
		utils.Int("restarted", result.GridsRestarted),
		utils.Int("orders_cancelled", result.OrdersCancelled),
		utils.Int("failed", len(result.Failed)),
	)

	if result.GridsRestarted > 0 || len(result.Failed) > 0 {
		severity := models.SeverityInfo
		if len(result.Failed) > 0 {
			severity = models.SeverityWarn
		}
		tryEnqueueNotification(rm.engine.notificationChan, &models.Notification{
			Timestamp: time.Now(),
			Type:      models.NotificationTypeResume,
			Severity:  severity,
			Message:   fmt.Sprintf("🔄 Восстановление: %d сеток загружено, %d перезапущено, %d с ошибками", result.GridsLoaded, result.GridsRestarted, len(result.Failed)),
		})
	}

	return result, nil
}

// loadOrSeed читает сетки из БД, при пустой таблице разворачивает
// стартовый набор
func (rm *RecoveryManager) loadOrSeed(ctx context.Context, result *RecoveryResult) ([]*models.GridConfig, error) {
	if rm.store == nil {
		// In-memory режим: работаем сразу со стартовым набором
		seeds := config.SeedGrids()
		result.GridsSeeded = len(seeds)
		return seeds, nil
	}

	grids, err := rm.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(grids) > 0 {
		return grids, nil
	}

	seeds := config.SeedGrids()
	for _, seed := range seeds {
		if err := rm.store.Create(ctx, seed); err != nil {
			return nil, fmt.Errorf("failed to seed grid %s: %w", seed.Symbol, err)
		}
	}
	result.GridsSeeded = len(seeds)

	utils.Info("seeded default grids", utils.Int("count", len(seeds)))
	return seeds, nil
}

// recoverGrid восстанавливает одну сетку
func (rm *RecoveryManager) recoverGrid(ctx context.Context, cfg *models.GridConfig, result *RecoveryResult) error {
	wasRunning := cfg.Status == models.GridStatusRunning

	// Осиротевшие ордера прошлого процесса
	cancelled, err := rm.cancelOrphanedOrders(ctx, cfg.Symbol)
	if err != nil {
		utils.Warn("failed to cancel orphaned orders",
			utils.Symbol(cfg.Symbol), utils.Err(err))
	}
	result.OrdersCancelled += cancelled

	// Running из БД поднимаем через обычный StartGrid:
	// регистрация идет в stopped, лестница строится заново
	if wasRunning {
		cfg.Status = models.GridStatusStopped
	}

	if _, err := rm.engine.AddGrid(cfg); err != nil {
		return err
	}

	if cfg.StopLoss > 0 {
		rm.risk.SetStopLevel(cfg.Symbol, cfg.StopLoss)
	}

	if wasRunning {
		if err := rm.engine.StartGrid(ctx, cfg.Symbol); err != nil {
			return fmt.Errorf("failed to restart grid: %w", err)
		}
		result.GridsRestarted++
	}

	return nil
}

// cancelOrphanedOrders отменяет все открытые ордера символа на бирже
func (rm *RecoveryManager) cancelOrphanedOrders(ctx context.Context, symbol string) (int, error) {
	orders, err := rm.exch.GetOpenOrders(ctx, symbol)
	rm.risk.RecordAPIRequest(err != nil)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range orders {
		err := rm.exch.CancelOrder(ctx, symbol, order.ID)
		rm.risk.RecordAPIRequest(err != nil)
		if err != nil {
			utils.Warn("failed to cancel orphaned order",
				utils.Symbol(symbol), utils.OrderID(order.ID), utils.Err(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
