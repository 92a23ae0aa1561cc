package signal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"gridbot/internal/config"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки обработки сигналов
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrEmptyPayload     = errors.New("empty webhook payload")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrMissingSymbol    = errors.New("webhook payload has no symbol")
)

// Payload - сырой формат алерта TradingView
//
// TradingView шлет либо ticker, либо symbol в зависимости от шаблона
type Payload struct {
	Symbol  string  `json:"symbol"`
	Ticker  string  `json:"ticker"`
	Action  string  `json:"action"`
	Price   float64 `json:"price"`
	Zone    string  `json:"zone"` // контекст алерта: support, resistance...
	Message string  `json:"message"`
}

// Handler - прием и нормализация вебхук-сигналов TradingView
//
// Конвейер:
//  1. Проверка подписи HMAC-SHA256 (пропускается без секрета)
//  2. Парсинг и нормализация символа (MNT -> MNTUSDT)
//  3. Определение действия: allow-list, затем эвристика по тексту
//  4. Запись в кольцо истории и статистику
//
// Сигнал транслируется в действие над сеткой:
// buy/long -> resume, sell/short -> pause, close -> stop
type Handler struct {
	secret string
	cfg    config.SignalConfig

	mu      sync.RWMutex
	history []*models.Signal
	stats   models.SignalStats
	seq     int
}

// NewHandler создает обработчик сигналов
func NewHandler(secret string, cfg config.SignalConfig) *Handler {
	return &Handler{
		secret: secret,
		cfg:    cfg,
		stats:  models.SignalStats{ByAction: make(map[string]int)},
	}
}

// ValidateSignature проверяет подпись тела запроса
//
// Подпись: HMAC-SHA256(secret, body) в hex. Сравнение за
// постоянное время. Без настроенного секрета проверка пропускается.
func (h *Handler) ValidateSignature(body []byte, signature string) bool {
	if h.secret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Process проверяет подпись, разбирает алерт и записывает сигнал
//
// Невалидная подпись - ошибка без записи в историю: мусорные
// запросы не должны засорять статистику.
func (h *Handler) Process(body []byte, signature string) (*models.Signal, error) {
	if !h.ValidateSignature(body, signature) {
		utils.Warn("webhook signature mismatch")
		return nil, ErrInvalidSignature
	}

	sig, err := h.parse(body)
	if err != nil {
		return nil, err
	}
	sig.Validated = true

	h.record(sig)

	utils.Info("signal received",
		utils.Symbol(sig.Symbol),
		utils.String("action", sig.Action),
		utils.Price(sig.Price),
	)
	return sig, nil
}

// parse разбирает тело алерта в нормализованный сигнал
func (h *Handler) parse(body []byte) (*models.Signal, error) {
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrInvalidPayload
	}

	raw := payload.Symbol
	if raw == "" {
		raw = payload.Ticker
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingSymbol
	}
	symbol := utils.NormalizeSymbol(raw)

	return &models.Signal{
		Symbol:     symbol,
		Action:     resolveAction(payload.Action, payload.Message),
		Price:      payload.Price,
		Zone:       strings.ToLower(strings.TrimSpace(payload.Zone)),
		Message:    payload.Message,
		ReceivedAt: time.Now(),
	}, nil
}

// resolveAction определяет действие сигнала
//
// Сначала allow-list, затем эвристика по тексту алерта:
// упоминание buy - покупка, иначе продажа
func resolveAction(action, message string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case models.SignalActionBuy, models.SignalActionSell,
		models.SignalActionLong, models.SignalActionShort,
		models.SignalActionClose:
		return action
	}

	if strings.Contains(strings.ToLower(message), "buy") {
		return models.SignalActionBuy
	}
	return models.SignalActionSell
}

// record добавляет сигнал в кольцо истории и статистику
func (h *Handler) record(sig *models.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	sig.ID = h.seq

	h.history = append(h.history, sig)
	if len(h.history) > h.cfg.HistoryLimit {
		h.history = h.history[len(h.history)-h.cfg.HistoryLimit:]
	}

	h.stats.Total++
	if sig.Validated {
		h.stats.Validated++
	}
	h.stats.ByAction[sig.Action]++
	receivedAt := sig.ReceivedAt
	h.stats.LastSignal = &receivedAt
}

// ShouldExecute решает, действовать ли по сигналу
//
// Условия:
// - сигнал прошел валидацию
// - цена сигнала расходится с рынком не более чем на порог
//   (проверка пропускается, если цена не передана)
// - сигнал не старше максимального возраста
func (h *Handler) ShouldExecute(sig *models.Signal, marketPrice float64) (bool, string) {
	if sig == nil || !sig.Validated {
		return false, "signal is not validated"
	}

	if sig.Price > 0 && marketPrice > 0 {
		deviation := utils.Abs(sig.Price-marketPrice) / marketPrice * 100
		if deviation > h.cfg.MaxPriceDeviationPct {
			return false, "signal price deviates too far from market"
		}
	}

	if age := time.Since(sig.ReceivedAt); age > h.cfg.MaxAge {
		return false, "signal is stale"
	}

	return true, ""
}

// GridActionFor транслирует действие сигнала в действие над сеткой
func GridActionFor(action string) string {
	switch action {
	case models.SignalActionBuy, models.SignalActionLong:
		return models.GridActionResume
	case models.SignalActionSell, models.SignalActionShort:
		return models.GridActionPause
	case models.SignalActionClose:
		return models.GridActionStop
	default:
		return models.GridActionNone
	}
}

// MarkExecuted учитывает исполненный сигнал
func (h *Handler) MarkExecuted() {
	h.mu.Lock()
	h.stats.Executed++
	h.mu.Unlock()
}

// History возвращает последние сигналы, новые в конце
//
// limit <= 0 возвращает всю историю
func (h *Handler) History(limit int) []*models.Signal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.Signal, n)
	copy(out, h.history[len(h.history)-n:])
	return out
}

// Stats возвращает копию статистики
func (h *Handler) Stats() models.SignalStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ByAction = make(map[string]int, len(h.stats.ByAction))
	for k, v := range h.stats.ByAction {
		stats.ByAction[k] = v
	}
	if h.stats.LastSignal != nil {
		last := *h.stats.LastSignal
		stats.LastSignal = &last
	}
	return stats
}
