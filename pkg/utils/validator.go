package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности параметров сетки и внешних данных (webhook,
// API запросы) до того, как они попадут в торговый движок.
//
// Возвращает error с описанием проблемы или nil

// Ошибки валидации
var (
	ErrEmptySymbol       = errors.New("symbol is empty")
	ErrInvalidSymbol     = errors.New("invalid symbol format")
	ErrInvalidBounds     = errors.New("upper bound must be greater than lower bound")
	ErrInvalidLevelCount = errors.New("level count must be at least 1")
	ErrInvalidCapital    = errors.New("total capital must be greater than 0")
	ErrInvalidStopLoss   = errors.New("stop loss must be below lower bound")
	ErrEmptyAPIKey       = errors.New("api key is empty")
	ErrEmptyAPISecret    = errors.New("api secret is empty")
	ErrUnknownExchange   = errors.New("unknown exchange")
)

// supportedQuotes - поддерживаемые валюты котировки
var supportedQuotes = []string{"USDT", "USDC"}

// supportedExchanges - поддерживаемые биржи
var supportedExchanges = map[string]bool{
	"bybit": true,
	"mock":  true,
}

// ValidateSymbol проверяет формат торгового символа (BTCUSDT)
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptySymbol
	}

	upper := strings.ToUpper(symbol)
	if upper != symbol {
		return ErrInvalidSymbol
	}

	for _, quote := range supportedQuotes {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			return nil
		}
	}
	return ErrInvalidSymbol
}

// NormalizeSymbol приводит символ к каноническому виду
//
// Upper-case; если валюта котировки не указана, добавляется USDT.
// "btc" -> "BTCUSDT", "MNTUSDT" -> "MNTUSDT"
func NormalizeSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if upper == "" {
		return ""
	}

	for _, quote := range supportedQuotes {
		if strings.HasSuffix(upper, quote) {
			return upper
		}
	}
	return upper + "USDT"
}

// ExtractBaseCurrency возвращает базовую валюту символа ("BTCUSDT" -> "BTC")
func ExtractBaseCurrency(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, quote := range supportedQuotes {
		if strings.HasSuffix(upper, quote) {
			return strings.TrimSuffix(upper, quote)
		}
	}
	return upper
}

// ExtractQuoteCurrency возвращает валюту котировки ("BTCUSDT" -> "USDT")
func ExtractQuoteCurrency(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, quote := range supportedQuotes {
		if strings.HasSuffix(upper, quote) {
			return quote
		}
	}
	return ""
}

// ValidateBounds проверяет границы ценового диапазона сетки
func ValidateBounds(lower, upper float64) error {
	if lower <= 0 || upper <= lower {
		return ErrInvalidBounds
	}
	return nil
}

// ValidateLevelCount проверяет количество уровней сетки
//
// Один уровень - вырожденная, но рабочая сетка: buy на нижней
// границе, sell на верхней
func ValidateLevelCount(levels int) error {
	if levels < 1 {
		return ErrInvalidLevelCount
	}
	return nil
}

// ValidateCapital проверяет суммарный капитал сетки
func ValidateCapital(capital float64) error {
	if capital <= 0 {
		return ErrInvalidCapital
	}
	return nil
}

// ValidateStopLoss проверяет уровень stop loss относительно нижней границы
// Нулевой stop loss означает "не задан" и допустим
func ValidateStopLoss(stopLoss, lower float64) error {
	if stopLoss == 0 {
		return nil
	}
	if stopLoss < 0 || stopLoss >= lower {
		return ErrInvalidStopLoss
	}
	return nil
}

// ValidateAPIKey выполняет базовую проверку API ключа
func ValidateAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return ErrEmptyAPIKey
	}
	return nil
}

// ValidateAPISecret выполняет базовую проверку API секрета
func ValidateAPISecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return ErrEmptyAPISecret
	}
	return nil
}

// ValidateExchange проверяет, что биржа поддерживается
func ValidateExchange(exchange string) error {
	if !supportedExchanges[strings.ToLower(exchange)] {
		return ErrUnknownExchange
	}
	return nil
}

// GetSupportedExchanges возвращает список поддерживаемых бирж
func GetSupportedExchanges() []string {
	result := make([]string, 0, len(supportedExchanges))
	for name := range supportedExchanges {
		result = append(result, name)
	}
	return result
}

// ============ Агрегация ошибок валидации ============

// ValidationErrors собирает несколько ошибок валидации в одну
type ValidationErrors struct {
	Errors []error
}

// AddError добавляет ошибку (nil игнорируется)
func (v *ValidationErrors) AddError(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// HasErrors возвращает true если есть хотя бы одна ошибка
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error реализует интерфейс error
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Unwrap возвращает вложенные ошибки для errors.Is
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
