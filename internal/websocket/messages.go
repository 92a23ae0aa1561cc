package websocket

import (
	"time"

	"gridbot/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeGridUpdate - обновление состояния сетки
	// Отправляется после каждого прохода движка по running сетке
	MessageTypeGridUpdate MessageType = "gridUpdate"

	// MessageTypeNotification - новое уведомление
	// Отправляется при событиях: исполнение, SL, TP, kill switch, ошибки
	MessageTypeNotification MessageType = "notification"

	// MessageTypeBalanceUpdate - обновление баланса биржи
	// Отправляется раз в минуту
	MessageTypeBalanceUpdate MessageType = "balanceUpdate"

	// MessageTypeRiskUpdate - состояние риск-менеджера
	// Отправляется вместе с обновлением баланса
	MessageTypeRiskUpdate MessageType = "riskUpdate"

	// MessageTypePriceUpdate - свежий тик из фида цен
	MessageTypePriceUpdate MessageType = "priceUpdate"

	// MessageTypeSignal - принятый внешний сигнал TradingView
	MessageTypeSignal MessageType = "signal"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// GridUpdateMessage - сообщение об обновлении состояния сетки
//
// Содержит полный runtime снимок: статус, текущую цену, уровни,
// накопленный P/L и счетчики открытых ордеров.
type GridUpdateMessage struct {
	BaseMessage
	Symbol string              `json:"symbol"`
	Data   *models.GridRuntime `json:"data"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// BalanceUpdateMessage - сообщение об обновлении баланса биржи
type BalanceUpdateMessage struct {
	BaseMessage
	Exchange string  `json:"exchange"`
	Balance  float64 `json:"balance"`
}

// RiskUpdateMessage - сообщение с состоянием риск-менеджера
//
// Включает kill switch, просадку, error rate API и сработавшие
// предохранители. Frontend подсвечивает критичные состояния.
type RiskUpdateMessage struct {
	BaseMessage
	Data *models.RiskStatus `json:"data"`
}

// PriceUpdateMessage - сообщение с текущей ценой инструмента
type PriceUpdateMessage struct {
	BaseMessage
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// SignalMessage - сообщение о принятом сигнале TradingView
type SignalMessage struct {
	BaseMessage
	Data *models.Signal `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewGridUpdateMessage создает сообщение обновления сетки
func NewGridUpdateMessage(symbol string, runtime *models.GridRuntime) *GridUpdateMessage {
	return &GridUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeGridUpdate,
			Timestamp: time.Now(),
		},
		Symbol: symbol,
		Data:   runtime,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: notif,
	}
}

// NewBalanceUpdateMessage создает сообщение обновления баланса
func NewBalanceUpdateMessage(exchange string, balance float64) *BalanceUpdateMessage {
	return &BalanceUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeBalanceUpdate,
			Timestamp: time.Now(),
		},
		Exchange: exchange,
		Balance:  balance,
	}
}

// NewRiskUpdateMessage создает сообщение состояния риск-менеджера
func NewRiskUpdateMessage(status *models.RiskStatus) *RiskUpdateMessage {
	return &RiskUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRiskUpdate,
			Timestamp: time.Now(),
		},
		Data: status,
	}
}

// NewPriceUpdateMessage создает сообщение с тиком цены
func NewPriceUpdateMessage(symbol string, price float64) *PriceUpdateMessage {
	return &PriceUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePriceUpdate,
			Timestamp: time.Now(),
		},
		Symbol: symbol,
		Price:  price,
	}
}

// NewSignalMessage создает сообщение о сигнале
func NewSignalMessage(sig *models.Signal) *SignalMessage {
	return &SignalMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSignal,
			Timestamp: time.Now(),
		},
		Data: sig,
	}
}
