package utils

import (
	"go.uber.org/zap"
)

// fields.go - конструкторы типизированных полей для логирования
//
// Единые имена полей во всем проекте упрощают поиск по логам.

// ============ Доменные конструкторы полей ============

// Exchange - название биржи
func Exchange(name string) zap.Field {
	return zap.String("exchange", name)
}

// Symbol - торговый символ
func Symbol(symbol string) zap.Field {
	return zap.String("symbol", symbol)
}

// Level - индекс уровня сетки
func Level(idx int) zap.Field {
	return zap.Int("level", idx)
}

// OrderID - идентификатор ордера на бирже
func OrderID(id string) zap.Field {
	return zap.String("order_id", id)
}

// Price - цена
func Price(price float64) zap.Field {
	return zap.Float64("price", price)
}

// Qty - объем в монетах актива
func Qty(qty float64) zap.Field {
	return zap.Float64("qty", qty)
}

// Spacing - шаг сетки
func Spacing(spacing float64) zap.Field {
	return zap.Float64("spacing", spacing)
}

// PNL - прибыль/убыток
func PNL(pnl float64) zap.Field {
	return zap.Float64("pnl", pnl)
}

// Side - направление ордера (buy, sell)
func Side(side string) zap.Field {
	return zap.String("side", side)
}

// State - состояние сетки (stopped, running, paused)
func State(state string) zap.Field {
	return zap.String("state", state)
}

// Latency - задержка в миллисекундах
func Latency(ms float64) zap.Field {
	return zap.Float64("latency_ms", ms)
}

// RequestID - идентификатор запроса
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// Component - название компонента
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// ============ Переэкспорт стандартных конструкторов zap ============
// Чтобы не импортировать zap в каждом пакете

func String(key, value string) zap.Field      { return zap.String(key, value) }
func Int(key string, value int) zap.Field     { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field { return zap.Int64(key, value) }
func Float64(key string, value float64) zap.Field {
	return zap.Float64(key, value)
}
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }
func Err(err error) zap.Field               { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field {
	return zap.Any(key, value)
}

// fieldsToInterface конвертирует zap.Field в плоский слайс key/value пар
// Используется для sugar-логирования
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		var value interface{}
		switch {
		case f.Interface != nil:
			value = f.Interface
		case f.String != "":
			value = f.String
		default:
			value = f.Integer
		}
		result = append(result, f.Key, value)
	}
	return result
}
