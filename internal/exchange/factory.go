package exchange

import (
	"fmt"
	"strings"
)

// SupportedExchanges - список поддерживаемых бирж
// "mock" - режим бумажной торговли без реальных ордеров
var SupportedExchanges = []string{
	"bybit",
	"mock",
}

// NewExchange создает новый экземпляр биржи по имени
func NewExchange(name string, requestsPerSecond float64) (Exchange, error) {
	name = strings.ToLower(name)

	switch name {
	case "bybit":
		return NewBybit(requestsPerSecond), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли биржа
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedExchanges {
		if name == supported {
			return true
		}
	}
	return false
}
