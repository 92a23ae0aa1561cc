package bot

import (
	"sync"
	"time"

	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// GridState - runtime состояние одной сетки
//
// Все поля кроме Config защищены mu. Config после регистрации
// меняется только под mu (Rebalance, UpdateConfig).
type GridState struct {
	Config *models.GridConfig

	// Уровни сетки: len = LevelCount, верхняя цена диапазона
	// уровнем не является (sell последнего уровня выходит на нее)
	Levels []*models.GridLevel

	CurrentPrice float64
	LastUpdate   time.Time

	// Накопленные счетчики исполнений за все время жизни сетки
	TotalBuys  int
	TotalSells int

	mu sync.Mutex

	// atomic флаг для быстрой проверки без Lock
	// 1 = сетка в статусе running, 0 = нет
	isRunning int32
}

// newGridState создает состояние сетки с построенными уровнями
func newGridState(cfg *models.GridConfig) *GridState {
	return &GridState{
		Config: cfg,
		Levels: buildLevels(cfg),
	}
}

// buildLevels строит лестницу уровней из конфигурации
//
// Цены лестницы: LevelCount+1 значений от нижней до верхней границы.
// Уровнями становятся все кроме верхней цены. Объем уровня - капитал
// на уровень по цене уровня, 8 знаков.
func buildLevels(cfg *models.GridConfig) []*models.GridLevel {
	prices := cfg.GridPrices()
	if prices == nil {
		return nil
	}

	capital := cfg.CapitalPerLevel()
	levels := make([]*models.GridLevel, 0, len(prices)-1)
	for i, price := range prices[:len(prices)-1] {
		levels = append(levels, &models.GridLevel{
			Index: i,
			Price: price,
			Qty:   utils.RoundToPrecision(capital/price, utils.PricePrecision),
		})
	}
	return levels
}

// runtimeLocked возвращает копию состояния для сериализации
// Вызывающий должен держать g.mu
func (g *GridState) runtimeLocked() *models.GridRuntime {
	rt := &models.GridRuntime{
		Symbol:       g.Config.Symbol,
		Status:       g.Config.Status,
		CurrentPrice: g.CurrentPrice,
		RealizedPnl:  g.Config.RealizedPnl,
		Levels:       make([]models.GridLevel, len(g.Levels)),
		TotalBuys:    g.TotalBuys,
		TotalSells:   g.TotalSells,
		LastUpdate:   g.LastUpdate,
	}

	for i, lvl := range g.Levels {
		rt.Levels[i] = *lvl
		if lvl.Filled {
			rt.FilledLevels++
		}
		if lvl.BuyOrderID != "" {
			rt.PendingBuys++
		}
		if lvl.SellOrderID != "" {
			rt.PendingSells++
		}
	}
	return rt
}

// Runtime возвращает копию состояния сетки
func (g *GridState) Runtime() *models.GridRuntime {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runtimeLocked()
}

// resetLevelsLocked перестраивает лестницу заново
// Вызывающий должен держать g.mu и предварительно отменить ордера
func (g *GridState) resetLevelsLocked() {
	g.Levels = buildLevels(g.Config)
}
