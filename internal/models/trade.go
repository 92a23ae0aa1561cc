package models

import "time"

// Trade представляет запись об исполненном ордере сетки
type Trade struct {
	ID         int       `json:"id" db:"id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Side       string    `json:"side" db:"side"`               // buy, sell
	LevelIndex int       `json:"level_index" db:"level_index"` // индекс уровня сетки
	Price      float64   `json:"price" db:"price"`
	Qty        float64   `json:"qty" db:"qty"`
	Pnl        float64   `json:"pnl" db:"pnl"`                 // для sell: qty × spacing, для buy: 0
	OrderID    string    `json:"order_id" db:"order_id"`
	ExecutedAt time.Time `json:"executed_at" db:"executed_at"`
}

// Стороны сделки
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeStats представляет агрегированную статистику сделок за период
type TradeStats struct {
	Period      string             `json:"period"` // day, week, month, year, all
	TotalTrades int                `json:"total_trades"`
	BuyTrades   int                `json:"buy_trades"`
	SellTrades  int                `json:"sell_trades"`
	TotalPnl    float64            `json:"total_pnl"`
	PnlBySymbol map[string]float64 `json:"pnl_by_symbol"`
}
