package models

import "time"

// Signal представляет нормализованный сигнал из TradingView webhook
type Signal struct {
	ID         int       `json:"id" db:"id"`
	Symbol     string    `json:"symbol" db:"symbol"`         // нормализован (BTCUSDT)
	Action     string    `json:"action" db:"action"`         // buy, sell, long, short, close
	Price      float64   `json:"price" db:"price"`           // цена из алерта (0 = не передана)
	Zone       string    `json:"zone,omitempty" db:"zone"`   // контекст: support, resistance...
	Message    string    `json:"message,omitempty" db:"message"`
	Validated  bool      `json:"validated" db:"validated"`   // подпись проверена
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}

// Действия сигнала (allow-list)
const (
	SignalActionBuy   = "buy"
	SignalActionSell  = "sell"
	SignalActionLong  = "long"
	SignalActionShort = "short"
	SignalActionClose = "close"
)

// Действия над сеткой, в которые транслируются сигналы
const (
	GridActionResume = "resume"
	GridActionPause  = "pause"
	GridActionStop   = "stop"
	GridActionNone   = "none"
)

// SignalStats - агрегированная статистика обработки сигналов
type SignalStats struct {
	Total      int            `json:"total"`
	Validated  int            `json:"validated"`
	Executed   int            `json:"executed"`
	ByAction   map[string]int `json:"by_action"`
	LastSignal *time.Time     `json:"last_signal,omitempty"`
}
