package exchange

import (
	"context"
	"time"
)

// Exchange определяет унифицированный интерфейс спотового шлюза биржи
type Exchange interface {
	// Connect устанавливает соединение с биржей
	Connect(apiKey, secret string) error

	// GetName возвращает имя биржи
	GetName() string

	// GetBalance получает баланс спотового аккаунта в USDT
	GetBalance(ctx context.Context) (float64, error)

	// GetTicker получает текущую цену актива
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)

	// GetKlines получает свечи для символа
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*Kline, error)

	// PlaceLimitOrder размещает лимитный ордер
	PlaceLimitOrder(ctx context.Context, symbol, side string, qty, price float64) (*Order, error)

	// CancelOrder отменяет ордер по ID
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// GetOpenOrders возвращает открытые ордера по символу
	// Пустой символ = все открытые ордера
	GetOpenOrders(ctx context.Context, symbol string) ([]*Order, error)

	// SubscribeTicker подписывается на обновления цен через WebSocket
	SubscribeTicker(symbol string, callback func(*Ticker)) error

	// Close закрывает соединения с биржей
	Close() error
}

// Ticker содержит информацию о текущей цене
type Ticker struct {
	Symbol    string    `json:"symbol"`
	BidPrice  float64   `json:"bid_price"`  // лучшая цена покупки
	AskPrice  float64   `json:"ask_price"`  // лучшая цена продажи
	LastPrice float64   `json:"last_price"` // последняя сделка
	Volume24h float64   `json:"volume_24h"` // объем за 24 часа
	Timestamp time.Time `json:"timestamp"`
}

// Kline представляет одну свечу
type Kline struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Order представляет ордер
type Order struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"` // "buy" или "sell"
	Type         string    `json:"type"` // "limit" или "market"
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	FilledQty    float64   `json:"filled_qty"`
	AvgFillPrice float64   `json:"avg_fill_price"`
	Status       string    `json:"status"` // "new", "filled", "partial", "cancelled"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange string
	Code     string
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Side constants for orders (используются при размещении ордеров)
const (
	SideBuy  = "buy"  // покупка
	SideSell = "sell" // продажа
)

// Order status constants
const (
	OrderStatusNew       = "new"
	OrderStatusFilled    = "filled"
	OrderStatusPartial   = "partial"
	OrderStatusCancelled = "cancelled"
	OrderStatusRejected  = "rejected"
)
