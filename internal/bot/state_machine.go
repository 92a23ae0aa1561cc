package bot

import "gridbot/internal/models"

// ValidTransitions определяет допустимые переходы между статусами сетки
var ValidTransitions = map[string][]string{
	models.GridStatusStopped: {models.GridStatusRunning},
	models.GridStatusRunning: {models.GridStatusPaused, models.GridStatusStopped},
	models.GridStatusPaused:  {models.GridStatusRunning, models.GridStatusStopped},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание статуса для UI
func StateInfo(s string) string {
	switch s {
	case models.GridStatusStopped:
		return "Сетка остановлена, ордера отменены"
	case models.GridStatusRunning:
		return "Сетка активна (торговый цикл работает)"
	case models.GridStatusPaused:
		return "Сетка на паузе, ордера отменены, уровни сохранены"
	default:
		return "Неизвестное состояние"
	}
}

// IsActive возвращает true если по сетке идет торговый цикл
func IsActive(s string) bool {
	return s == models.GridStatusRunning
}

// HasLiveOrders возвращает true если статус допускает открытые ордера
func HasLiveOrders(s string) bool {
	return s == models.GridStatusRunning
}

// StateTransitionError описывает недопустимый переход статуса
type StateTransitionError struct {
	Symbol string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return "invalid grid state transition " + e.From + " -> " + e.To + " for " + e.Symbol
}

// TryTransition выполняет переход статуса с проверкой допустимости
// При недопустимом переходе статус не меняется
func TryTransition(rt *models.GridRuntime, to string) error {
	if !CanTransition(rt.Status, to) {
		return &StateTransitionError{Symbol: rt.Symbol, From: rt.Status, To: to}
	}
	rt.Status = to
	return nil
}

// ForceTransition меняет статус без проверки
// Используется при восстановлении состояния из БД
func ForceTransition(rt *models.GridRuntime, to string) {
	rt.Status = to
}
