package models

import (
	"time"

	"gridbot/pkg/utils"
)

// GridConfig представляет конфигурацию сетки для одного инструмента
type GridConfig struct {
	ID               int       `json:"id" db:"id"`
	Symbol           string    `json:"symbol" db:"symbol"`                       // BTCUSDT
	LowerBound       float64   `json:"lower_bound" db:"lower_bound"`             // нижняя граница диапазона
	UpperBound       float64   `json:"upper_bound" db:"upper_bound"`             // верхняя граница диапазона
	LevelCount       int       `json:"level_count" db:"level_count"`             // количество уровней
	TotalCapital     float64   `json:"total_capital" db:"total_capital"`         // капитал сетки в USDT
	StopLoss         float64   `json:"stop_loss" db:"stop_loss"`                 // цена аварийной остановки
	TakeProfit       float64   `json:"take_profit" db:"take_profit"`             // цена фиксации прибыли (0 = не задан)
	BTCFilterEnabled bool      `json:"btc_filter" db:"btc_filter_enabled"`       // не покупать при слабом BTC
	Status           string    `json:"status" db:"status"`                       // stopped, running, paused
	RealizedPnl      float64   `json:"realized_pnl" db:"realized_pnl"`           // накопленный P/L
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Статусы сетки
const (
	GridStatusStopped = "stopped"
	GridStatusRunning = "running"
	GridStatusPaused  = "paused"
)

// Spacing возвращает шаг между соседними уровнями сетки
func (c *GridConfig) Spacing() float64 {
	return utils.GridSpacing(c.LowerBound, c.UpperBound, c.LevelCount)
}

// CapitalPerLevel возвращает капитал на один уровень
func (c *GridConfig) CapitalPerLevel() float64 {
	if c.LevelCount <= 0 {
		return 0
	}
	return c.TotalCapital / float64(c.LevelCount)
}

// GridPrices возвращает все цены сетки (LevelCount+1 значений, 8 знаков)
func (c *GridConfig) GridPrices() []float64 {
	return utils.GridPrices(c.LowerBound, c.UpperBound, c.LevelCount)
}

// GridLevel представляет один уровень сетки
//
// Жизненный цикл уровня:
//  1. пустой -> размещен buy-ордер ниже рынка
//  2. buy исполнен -> Filled=true, размещен sell-ордер на шаг выше
//  3. sell исполнен -> P/L += Qty×Spacing, уровень возвращается в п.1
type GridLevel struct {
	Index       int     `json:"index"`
	Price       float64 `json:"price"`
	Qty         float64 `json:"qty"`
	BuyOrderID  string  `json:"buy_order_id,omitempty"`
	SellOrderID string  `json:"sell_order_id,omitempty"`
	Filled      bool    `json:"filled"`
}

// GridRuntime представляет runtime состояние сетки
//
// Копия внутреннего состояния движка, безопасная для сериализации
type GridRuntime struct {
	Symbol       string      `json:"symbol"`
	Status       string      `json:"status"`
	CurrentPrice float64     `json:"current_price"`
	RealizedPnl  float64     `json:"realized_pnl"`
	Levels       []GridLevel `json:"levels,omitempty"`
	FilledLevels int         `json:"filled_levels"`
	PendingBuys  int         `json:"pending_buys"`
	PendingSells int         `json:"pending_sells"`
	TotalBuys    int         `json:"total_buys"`
	TotalSells   int         `json:"total_sells"`
	LastUpdate   time.Time   `json:"last_update"`
}
