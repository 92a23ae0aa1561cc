package bot

import (
	"fmt"
	"sync"
	"time"

	"gridbot/internal/config"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// RiskManager - централизованный менеджер рисков
//
// Функции:
// - Kill switch: односторонняя защелка, сброс только явной командой
// - Контроль просадки капитала от стартового значения
// - Контроль накопленной доли ошибок API, окно недавних ошибок для
//   диагностики
// - Волатильный предохранитель по каждому инструменту
// - Stop Loss уровни инструментов для вердикта ShouldTrade
// - Генерация уведомлений о критических событиях
//
// Порядок вердикта ShouldTrade:
//  1. kill switch уже сработал -> запрет
//  2. общие условия (просадка, ошибки API, предохранители) -> срыв защелки
//  3. цена ниже Stop Loss инструмента -> запрет покупок по нему
//  4. сорван предохранитель инструмента -> запрет покупок по нему
type RiskManager struct {
	mu sync.RWMutex

	killSwitch models.KillSwitchState

	initialEquity float64
	currentEquity float64

	// Накопленные счетчики запросов API за все время работы,
	// порог kill switch считается по ним
	apiRequests int
	apiErrors   int

	// Времена недавних ошибок API в скользящем окне, только
	// для диагностики в статусе
	recentErrors []time.Time

	// История цен по инструментам для оценки волатильности
	priceHistory map[string][]float64

	// Stop Loss уровни инструментов
	stopLevels map[string]float64

	// Канал для уведомлений
	notificationChan chan<- *models.Notification

	cfg config.RiskConfig
}

// NewRiskManager создает риск-менеджер
func NewRiskManager(cfg config.RiskConfig, notificationChan chan<- *models.Notification) *RiskManager {
	return &RiskManager{
		initialEquity:    cfg.InitialEquity,
		currentEquity:    cfg.InitialEquity,
		priceHistory:     make(map[string][]float64),
		stopLevels:       make(map[string]float64),
		notificationChan: notificationChan,
		cfg:              cfg,
	}
}

// ============ Учет событий ============

// SetEquity обновляет текущий капитал
func (r *RiskManager) SetEquity(equity float64) {
	r.mu.Lock()
	r.currentEquity = equity
	r.mu.Unlock()

	DrawdownPercent.Set(utils.DrawdownPct(r.initialEquity, equity))
}

// SetStopLevel регистрирует Stop Loss уровень инструмента
func (r *RiskManager) SetStopLevel(symbol string, level float64) {
	r.mu.Lock()
	if level > 0 {
		r.stopLevels[symbol] = level
	} else {
		delete(r.stopLevels, symbol)
	}
	r.mu.Unlock()
}

// RecordAPIRequest учитывает результат запроса к бирже
//
// Счетчики накопительные, ошибки дополнительно попадают
// в скользящее окно
func (r *RiskManager) RecordAPIRequest(isError bool) {
	now := time.Now()

	r.mu.Lock()
	r.apiRequests++
	if isError {
		r.apiErrors++
		r.recentErrors = append(r.recentErrors, now)
	}
	r.pruneRecentErrorsLocked(now)
	requests, errors := r.apiRequests, r.apiErrors
	r.mu.Unlock()

	if requests > 0 {
		APIErrorRate.Set(float64(errors) / float64(requests) * 100)
	}
}

// pruneRecentErrorsLocked убирает ошибки старше окна
// Вызывающий должен держать r.mu
func (r *RiskManager) pruneRecentErrorsLocked(now time.Time) {
	cutoff := now.Add(-r.cfg.APIErrorWindow)
	firstValid := 0
	for firstValid < len(r.recentErrors) && r.recentErrors[firstValid].Before(cutoff) {
		firstValid++
	}
	if firstValid > 0 {
		r.recentErrors = append(r.recentErrors[:0], r.recentErrors[firstValid:]...)
	}
}

// RecordPrice добавляет цену в историю инструмента
//
// История ограничена PriceHistoryLimit последними значениями
func (r *RiskManager) RecordPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}

	r.mu.Lock()
	history := append(r.priceHistory[symbol], price)
	if len(history) > r.cfg.PriceHistoryLimit {
		history = history[len(history)-r.cfg.PriceHistoryLimit:]
	}
	r.priceHistory[symbol] = history
	r.mu.Unlock()
}

// ============ Оценки ============

// Drawdown возвращает текущую просадку в процентах
func (r *RiskManager) Drawdown() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return utils.DrawdownPct(r.initialEquity, r.currentEquity)
}

// APIErrorRate возвращает накопленную статистику запросов API
func (r *RiskManager) APIErrorRate() (requests, errors int, ratePct float64) {
	r.mu.RLock()
	requests, errors = r.apiRequests, r.apiErrors
	r.mu.RUnlock()

	if requests == 0 {
		return 0, 0, 0
	}
	return requests, errors, float64(errors) / float64(requests) * 100
}

// RecentAPIErrors возвращает число ошибок API в скользящем окне
func (r *RiskManager) RecentAPIErrors() int {
	now := time.Now()

	r.mu.Lock()
	r.pruneRecentErrorsLocked(now)
	n := len(r.recentErrors)
	r.mu.Unlock()
	return n
}

// Volatility возвращает волатильность инструмента в процентах
//
// Оценка: максимальное отклонение последних цен от их средней.
// При недостатке данных возвращает 0.
func (r *RiskManager) Volatility(symbol string) float64 {
	r.mu.RLock()
	history := r.priceHistory[symbol]
	if len(history) < r.cfg.VolatilityMinSamples {
		r.mu.RUnlock()
		return 0
	}

	window := r.cfg.VolatilityWindow
	if window <= 0 || window > len(history) {
		window = len(history)
	}
	recent := make([]float64, window)
	copy(recent, history[len(history)-window:])
	r.mu.RUnlock()

	return utils.MaxDeviationPct(recent)
}

// breakerTripped возвращает true, если предохранитель инструмента сорван
func (r *RiskManager) breakerTripped(symbol string) bool {
	return r.Volatility(symbol) > r.cfg.VolatilityThresholdPct
}

// TrippedBreakers возвращает инструменты с сорванным предохранителем
func (r *RiskManager) TrippedBreakers() []string {
	r.mu.RLock()
	symbols := make([]string, 0, len(r.priceHistory))
	for symbol := range r.priceHistory {
		symbols = append(symbols, symbol)
	}
	r.mu.RUnlock()

	tripped := make([]string, 0)
	for _, symbol := range symbols {
		if r.breakerTripped(symbol) {
			tripped = append(tripped, symbol)
		}
	}

	VolatilityBreakers.Set(float64(len(tripped)))
	return tripped
}

// ============ Kill switch ============

// KillSwitch возвращает копию состояния защелки
func (r *RiskManager) KillSwitch() models.KillSwitchState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.killSwitch
}

// TriggerKill срывает защелку
//
// Повторный вызов при уже сорванной защелке не меняет причину
func (r *RiskManager) TriggerKill(reason string) {
	r.mu.Lock()
	if r.killSwitch.Triggered {
		r.mu.Unlock()
		return
	}
	now := time.Now()
	r.killSwitch = models.KillSwitchState{
		Triggered:   true,
		Reason:      reason,
		TriggeredAt: &now,
	}
	r.mu.Unlock()

	KillSwitchState.Set(1)
	utils.Error("kill switch triggered", utils.String("reason", reason))

	tryEnqueueNotification(r.notificationChan, &models.Notification{
		Timestamp: now,
		Type:      models.NotificationTypeKill,
		Severity:  models.SeverityError,
		Message:   fmt.Sprintf("🚨 Kill switch: %s. Торговля остановлена до ручного сброса.", reason),
		Meta:      map[string]interface{}{"reason": reason},
	})
}

// ResetKill сбрасывает защелку (только явная команда оператора)
func (r *RiskManager) ResetKill() {
	r.mu.Lock()
	wasTriggered := r.killSwitch.Triggered
	r.killSwitch = models.KillSwitchState{}
	r.mu.Unlock()

	KillSwitchState.Set(0)
	if wasTriggered {
		utils.Warn("kill switch reset by operator")
	}
}

// CheckConditions проверяет общие условия и срывает защелку
//
// Возвращает причину срабатывания и флаг
func (r *RiskManager) CheckConditions() (string, bool) {
	// 1. Просадка капитала
	if dd := r.Drawdown(); dd >= r.cfg.MaxDrawdownPct {
		reason := fmt.Sprintf("drawdown %.2f%% exceeds limit %.2f%%", dd, r.cfg.MaxDrawdownPct)
		r.TriggerKill(reason)
		return reason, true
	}

	// 2. Накопленная доля ошибок API: значима только при
	// достаточном числе запросов
	requests, _, ratePct := r.APIErrorRate()
	if requests > r.cfg.MinAPIRequests && ratePct >= r.cfg.MaxAPIErrorRatePct {
		reason := fmt.Sprintf("API error rate %.2f%% over %d requests", ratePct, requests)
		r.TriggerKill(reason)
		return reason, true
	}

	// 3. Волатильные предохранители по нескольким инструментам сразу
	if tripped := r.TrippedBreakers(); len(tripped) >= r.cfg.MaxTrippedBreakers {
		reason := fmt.Sprintf("volatility breakers tripped on %d instruments", len(tripped))
		r.TriggerKill(reason)
		return reason, true
	}

	return "", false
}

// ============ Вердикт ============

// ShouldTrade возвращает разрешение на выставление ордеров
//
// false отменяет весь проход размещения по инструменту. Отмена
// уже открытых ордеров вердиктом не блокируется
func (r *RiskManager) ShouldTrade(symbol string, price float64) (bool, string) {
	// 1. Защелка уже сорвана
	if ks := r.KillSwitch(); ks.Triggered {
		return false, "kill switch: " + ks.Reason
	}

	// 2. Общие условия срывают защелку прямо сейчас
	if reason, triggered := r.CheckConditions(); triggered {
		return false, "kill switch: " + reason
	}

	// 3. Цена ниже Stop Loss инструмента
	r.mu.RLock()
	stopLevel, hasStop := r.stopLevels[symbol]
	r.mu.RUnlock()
	if hasStop && price > 0 && price <= stopLevel {
		return false, fmt.Sprintf("price %v at or below stop level %v", price, stopLevel)
	}

	// 4. Волатильный предохранитель инструмента
	if r.breakerTripped(symbol) {
		vol := r.Volatility(symbol)
		r.notifyBreaker(symbol, vol)
		return false, fmt.Sprintf("volatility breaker: %.2f%% > %.2f%%", vol, r.cfg.VolatilityThresholdPct)
	}

	return true, ""
}

// notifyBreaker отправляет уведомление о сорванном предохранителе
func (r *RiskManager) notifyBreaker(symbol string, volatility float64) {
	tryEnqueueNotification(r.notificationChan, &models.Notification{
		Timestamp: time.Now(),
		Type:      models.NotificationTypeBreaker,
		Severity:  models.SeverityWarn,
		Symbol:    symbol,
		Message:   fmt.Sprintf("⚡ %s: волатильность %.2f%% выше порога %.2f%%, покупки приостановлены", symbol, volatility, r.cfg.VolatilityThresholdPct),
		Meta:      map[string]interface{}{"volatility": volatility, "threshold": r.cfg.VolatilityThresholdPct},
	})
}

// Status возвращает снимок состояния риск-менеджера
func (r *RiskManager) Status() *models.RiskStatus {
	requests, errors, ratePct := r.APIErrorRate()
	recentErrors := r.RecentAPIErrors()
	tripped := r.TrippedBreakers()

	r.mu.RLock()
	symbols := make([]string, 0, len(r.priceHistory))
	for symbol := range r.priceHistory {
		symbols = append(symbols, symbol)
	}
	status := &models.RiskStatus{
		KillSwitch:      r.killSwitch,
		InitialEquity:   r.initialEquity,
		CurrentEquity:   r.currentEquity,
		DrawdownPct:     utils.DrawdownPct(r.initialEquity, r.currentEquity),
		APIRequests:     requests,
		APIErrors:       errors,
		APIErrorRatePct: ratePct,
		RecentAPIErrors: recentErrors,
		TrippedBreakers: tripped,
		UpdatedAt:       time.Now(),
	}
	r.mu.RUnlock()

	volatility := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		volatility[symbol] = r.Volatility(symbol)
	}
	status.VolatilityBySym = volatility

	return status
}
