package models

import "time"

// Notification представляет уведомление о событии
type Notification struct {
	ID        int                    `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`           // FILL, SL, KILL, BREAKER, PAUSE, RESUME, SIGNAL, ERROR
	Severity  string                 `json:"severity" db:"severity"`   // info, warn, error
	Symbol    string                 `json:"symbol,omitempty" db:"symbol"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeFill    = "FILL"    // исполнение ордера сетки
	NotificationTypeSL      = "SL"      // срабатывание Stop Loss
	NotificationTypeTP      = "TP"      // достижение Take Profit
	NotificationTypeKill    = "KILL"    // срабатывание kill switch
	NotificationTypeBreaker = "BREAKER" // волатильный предохранитель
	NotificationTypePause   = "PAUSE"   // пауза сетки
	NotificationTypeResume  = "RESUME"  // возобновление сетки
	NotificationTypeSignal  = "SIGNAL"  // внешний сигнал TradingView
	NotificationTypeError   = "ERROR"   // ошибка API/ордера
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
