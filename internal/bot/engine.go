package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gridbot/internal/config"
	"gridbot/internal/exchange"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// Engine - главный движок грид-бота
//
// Архитектура:
// - Периодический торговый цикл (по умолчанию раз в 5 секунд)
// - Каждый проход по running сетке: цена -> сверка исполнений -> ордера
// - Сетки независимы, проход по ним выполняется параллельно
// - Исполнения определяются сверкой сохраненных ID с открытыми ордерами биржи
//
// Поток данных:
// Ticker → PriceSource → Engine.runCycle → checkFills/placeGridOrders → Exchange
type Engine struct {
	cfg *config.Config

	// Подключенная биржа
	exch exchange.Exchange

	// Источник текущих цен (кэш PriceFeed)
	prices PriceSource

	// Риск-менеджер: kill switch, просадка, волатильность
	risk *RiskManager

	// Активные сетки по символу
	grids   map[string]*GridState
	gridsMu sync.RWMutex

	// Персистентность (nil допустим - чистый in-memory режим)
	store  GridStore
	trades TradeRecorder

	// WebSocket hub для отправки данных клиентам
	wsHub WebSocketHub

	// Канал уведомлений, читается NotificationService
	notificationChan chan *models.Notification

	shutdown chan struct{}

	// atomic счетчик running сеток
	runningGrids int64
}

// PriceSource - источник текущих цен
//
// Реализуется пакетом internal/ingest (PriceFeed): кэш последних
// тиков, обновляемый опросом и WS-подпиской.
type PriceSource interface {
	// LastPrice возвращает последнюю известную цену из кэша
	LastPrice(symbol string) (float64, bool)

	// FetchPrice синхронно запрашивает цену у биржи и обновляет кэш
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// GridStore - персистентность состояния сеток
//
// Реализуется repository.GridRepository
type GridStore interface {
	List(ctx context.Context) ([]*models.GridConfig, error)
	Create(ctx context.Context, cfg *models.GridConfig) error
	UpdateStatus(ctx context.Context, symbol, status string) error
	UpdatePnl(ctx context.Context, symbol string, realizedPnl float64) error
}

// TradeRecorder - журнал исполнений
//
// Реализуется repository.TradeRepository
type TradeRecorder interface {
	Record(ctx context.Context, trade *models.Trade) error
}

// WebSocketHub - интерфейс для отправки данных клиентам
//
// Реализуется пакетом internal/websocket/Hub
type WebSocketHub interface {
	// BroadcastGridUpdate отправляет состояние сетки после каждого прохода
	BroadcastGridUpdate(symbol string, runtime *models.GridRuntime)

	// BroadcastNotification отправляет уведомление о событии
	BroadcastNotification(notif *models.Notification)

	// BroadcastBalanceUpdate отправляет обновление баланса биржи
	BroadcastBalanceUpdate(exchange string, balance float64)

	// BroadcastRiskUpdate отправляет состояние риск-менеджера
	BroadcastRiskUpdate(status *models.RiskStatus)
}

// NewEngine создает движок
//
// Риск-менеджер без собственного канала уведомлений подключается
// к каналу движка: события kill switch и breaker уходят в общий поток.
func NewEngine(cfg *config.Config, exch exchange.Exchange, prices PriceSource, risk *RiskManager, wsHub WebSocketHub) *Engine {
	e := &Engine{
		cfg:              cfg,
		exch:             exch,
		prices:           prices,
		risk:             risk,
		grids:            make(map[string]*GridState),
		wsHub:            wsHub,
		notificationChan: make(chan *models.Notification, 1000),
		shutdown:         make(chan struct{}),
	}
	if risk != nil && risk.notificationChan == nil {
		risk.notificationChan = e.notificationChan
	}
	return e
}

// SetStore подключает персистентность сеток
func (e *Engine) SetStore(store GridStore) {
	e.store = store
}

// SetTradeRecorder подключает журнал исполнений
func (e *Engine) SetTradeRecorder(trades TradeRecorder) {
	e.trades = trades
}

// Notifications возвращает канал уведомлений движка
func (e *Engine) Notifications() <-chan *models.Notification {
	return e.notificationChan
}

// Run запускает торговый цикл, блокируется до отмены контекста
func (e *Engine) Run(ctx context.Context) error {
	cycleTicker := time.NewTicker(e.cfg.Trading.CycleInterval)
	balanceTicker := time.NewTicker(e.cfg.Trading.BalanceUpdateFreq)
	defer cycleTicker.Stop()
	defer balanceTicker.Stop()

	utils.Info("trading engine started",
		utils.Exchange(e.exch.GetName()),
		utils.Any("cycle_interval", e.cfg.Trading.CycleInterval.String()),
	)

	for {
		select {
		case <-ctx.Done():
			close(e.shutdown)
			return ctx.Err()
		case <-cycleTicker.C:
			e.runCycle(ctx)
		case <-balanceTicker.C:
			e.updateEquity(ctx)
		}
	}
}

// runCycle выполняет один проход по всем running сеткам
//
// Сетки обрабатываются параллельно: каждая защищена своим mutex,
// ордера по разным символам независимы.
func (e *Engine) runCycle(ctx context.Context) {
	e.gridsMu.RLock()
	active := make([]*GridState, 0, len(e.grids))
	for _, g := range e.grids {
		if atomic.LoadInt32(&g.isRunning) == 1 {
			active = append(active, g)
		}
	}
	e.gridsMu.RUnlock()

	if len(active) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, g := range active {
		wg.Add(1)
		go func(g *GridState) {
			defer wg.Done()
			e.processGrid(ctx, g)
		}(g)
	}
	wg.Wait()

	e.publishGridCounts()
}

// processGrid - один проход торгового цикла по сетке
func (e *Engine) processGrid(ctx context.Context, g *GridState) {
	started := time.Now()
	symbol := g.Config.Symbol

	price, err := e.currentPrice(ctx, symbol)
	if err != nil {
		utils.Warn("failed to refresh price, skipping cycle",
			utils.Symbol(symbol), utils.Err(err))
		return
	}
	e.risk.RecordPrice(symbol, price)

	g.mu.Lock()
	defer g.mu.Unlock()

	// Статус мог измениться пока ждали цену
	if g.Config.Status != models.GridStatusRunning {
		return
	}

	g.CurrentPrice = price
	g.LastUpdate = time.Now()
	EventsProcessed.WithLabelValues("price_update").Inc()

	// Аварийная остановка: цена пробила Stop Loss вниз
	if g.Config.StopLoss > 0 && price <= g.Config.StopLoss {
		e.executeStopLossLocked(ctx, g, price)
		return
	}

	// Фиксация: цена достигла Take Profit
	if g.Config.TakeProfit > 0 && price >= g.Config.TakeProfit {
		e.executeTakeProfitLocked(ctx, g, price)
		return
	}

	e.checkFillsLocked(ctx, g)
	e.placeGridOrdersLocked(ctx, g)

	GridFilledLevels.WithLabelValues(symbol).Set(float64(countFilled(g.Levels)))
	RecordCycle(symbol, float64(time.Since(started).Milliseconds()))

	if e.wsHub != nil {
		e.wsHub.BroadcastGridUpdate(symbol, g.runtimeLocked())
	}
}

// currentPrice берет цену из кэша, при промахе запрашивает биржу
func (e *Engine) currentPrice(ctx context.Context, symbol string) (float64, error) {
	if e.prices != nil {
		if price, ok := e.prices.LastPrice(symbol); ok {
			return price, nil
		}
		return e.prices.FetchPrice(ctx, symbol)
	}

	ticker, err := e.exch.GetTicker(ctx, symbol)
	e.risk.RecordAPIRequest(err != nil)
	if err != nil {
		return 0, err
	}
	return ticker.LastPrice, nil
}

// executeStopLossLocked отменяет все ордера и останавливает сетку
func (e *Engine) executeStopLossLocked(ctx context.Context, g *GridState, price float64) {
	symbol := g.Config.Symbol
	utils.Error("stop loss breached, stopping grid",
		utils.Symbol(symbol),
		utils.Price(price),
		utils.Float64("stop_loss", g.Config.StopLoss),
	)

	e.cancelAllOrdersLocked(ctx, g)
	g.Config.Status = models.GridStatusStopped
	atomic.StoreInt32(&g.isRunning, 0)
	atomic.AddInt64(&e.runningGrids, -1)
	e.persistStatus(symbol, models.GridStatusStopped)

	RecordStopLoss(symbol)
	e.notify(&models.Notification{
		Type:     models.NotificationTypeSL,
		Severity: models.SeverityError,
		Symbol:   symbol,
		Message:  fmt.Sprintf("🛑 %s: цена %s пробила Stop Loss %s, сетка остановлена", symbol, formatPrice(price), formatPrice(g.Config.StopLoss)),
		Meta:     map[string]interface{}{"price": price, "stop_loss": g.Config.StopLoss},
	})
}

// executeTakeProfitLocked фиксирует прибыль и останавливает сетку
func (e *Engine) executeTakeProfitLocked(ctx context.Context, g *GridState, price float64) {
	symbol := g.Config.Symbol
	utils.Info("take profit reached, stopping grid",
		utils.Symbol(symbol),
		utils.Price(price),
		utils.Float64("take_profit", g.Config.TakeProfit),
	)

	e.cancelAllOrdersLocked(ctx, g)
	g.Config.Status = models.GridStatusStopped
	atomic.StoreInt32(&g.isRunning, 0)
	atomic.AddInt64(&e.runningGrids, -1)
	e.persistStatus(symbol, models.GridStatusStopped)

	e.notify(&models.Notification{
		Type:     models.NotificationTypeTP,
		Severity: models.SeverityInfo,
		Symbol:   symbol,
		Message:  fmt.Sprintf("🎯 %s: цена %s достигла Take Profit %s, прибыль зафиксирована (P/L %.2f USDT)", symbol, formatPrice(price), formatPrice(g.Config.TakeProfit), g.Config.RealizedPnl),
		Meta:     map[string]interface{}{"price": price, "take_profit": g.Config.TakeProfit, "realized_pnl": g.Config.RealizedPnl},
	})
}

// updateEquity обновляет капитал для риск-менеджера и UI
func (e *Engine) updateEquity(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	balance, err := e.exch.GetBalance(reqCtx)
	e.risk.RecordAPIRequest(err != nil)
	if err != nil {
		utils.Warn("failed to fetch balance", utils.Err(err))
		UpdateExchangeStatus(e.exch.GetName(), false, 0)
		return
	}

	e.risk.SetEquity(balance)
	UpdateExchangeStatus(e.exch.GetName(), true, balance)

	if e.wsHub != nil {
		e.wsHub.BroadcastBalanceUpdate(e.exch.GetName(), balance)
		e.wsHub.BroadcastRiskUpdate(e.risk.Status())
	}
}

// publishGridCounts обновляет метрики количества сеток по статусам
func (e *Engine) publishGridCounts() {
	var running, paused, stopped int

	e.gridsMu.RLock()
	for _, g := range e.grids {
		g.mu.Lock()
		switch g.Config.Status {
		case models.GridStatusRunning:
			running++
		case models.GridStatusPaused:
			paused++
		default:
			stopped++
		}
		g.mu.Unlock()
	}
	e.gridsMu.RUnlock()

	UpdateGridCounts(running, paused, stopped)
}

// ============ Регистрация сеток ============

// AddGrid регистрирует сетку в движке
//
// Сетка добавляется в статусе из конфигурации, но торговый цикл
// по ней не идет до StartGrid/ResumeGrid. Running статус из БД
// поднимает Recovery.
func (e *Engine) AddGrid(cfg *models.GridConfig) (*GridState, error) {
	g := newGridState(cfg)
	if g.Levels == nil {
		return nil, fmt.Errorf("invalid grid bounds for %s: [%v, %v] levels=%d",
			cfg.Symbol, cfg.LowerBound, cfg.UpperBound, cfg.LevelCount)
	}

	e.gridsMu.Lock()
	if _, exists := e.grids[cfg.Symbol]; exists {
		e.gridsMu.Unlock()
		return nil, fmt.Errorf("grid for %s already registered", cfg.Symbol)
	}
	e.grids[cfg.Symbol] = g
	e.gridsMu.Unlock()

	utils.Info("grid registered",
		utils.Symbol(cfg.Symbol),
		utils.Float64("lower", cfg.LowerBound),
		utils.Float64("upper", cfg.UpperBound),
		utils.Int("levels", cfg.LevelCount),
		utils.Float64("capital", cfg.TotalCapital),
	)
	return g, nil
}

// RemoveGrid снимает сетку с движка, предварительно отменив ордера
func (e *Engine) RemoveGrid(ctx context.Context, symbol string) error {
	e.gridsMu.Lock()
	g, ok := e.grids[symbol]
	if !ok {
		e.gridsMu.Unlock()
		return fmt.Errorf("grid for %s not found", symbol)
	}
	delete(e.grids, symbol)
	e.gridsMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Config.Status == models.GridStatusRunning {
		atomic.StoreInt32(&g.isRunning, 0)
		atomic.AddInt64(&e.runningGrids, -1)
	}
	e.cancelAllOrdersLocked(ctx, g)
	return nil
}

// getGrid возвращает состояние сетки по символу
func (e *Engine) getGrid(symbol string) (*GridState, bool) {
	e.gridsMu.RLock()
	g, ok := e.grids[symbol]
	e.gridsMu.RUnlock()
	return g, ok
}

// ============ Жизненный цикл сетки ============

// StartGrid запускает сетку из stopped: лестница строится заново
func (e *Engine) StartGrid(ctx context.Context, symbol string) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	// Защелка снимается только оператором, до сброса запуск запрещен
	if e.risk != nil && e.risk.KillSwitch().Triggered {
		return fmt.Errorf("kill switch is active, reset it before starting %s", symbol)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Config.Status != models.GridStatusStopped {
		return &StateTransitionError{Symbol: symbol, From: g.Config.Status, To: models.GridStatusRunning}
	}

	price, err := e.currentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("cannot start %s without market price: %w", symbol, err)
	}
	g.CurrentPrice = price
	g.LastUpdate = time.Now()
	g.resetLevelsLocked()

	g.Config.Status = models.GridStatusRunning
	atomic.StoreInt32(&g.isRunning, 1)
	atomic.AddInt64(&e.runningGrids, 1)
	e.persistStatus(symbol, models.GridStatusRunning)

	e.placeGridOrdersLocked(ctx, g)

	utils.Info("grid started", utils.Symbol(symbol), utils.Price(price))
	e.notify(&models.Notification{
		Type:     models.NotificationTypeResume,
		Severity: models.SeverityInfo,
		Symbol:   symbol,
		Message:  fmt.Sprintf("▶️ %s: сетка запущена по цене %s", symbol, formatPrice(price)),
	})
	return nil
}

// PauseGrid ставит сетку на паузу: ордера отменяются, уровни сохраняются
func (e *Engine) PauseGrid(ctx context.Context, symbol string) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	// Сначала сбрасываем флаг, чтобы цикл не трогал сетку
	atomic.StoreInt32(&g.isRunning, 0)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Config.Status != models.GridStatusRunning {
		return &StateTransitionError{Symbol: symbol, From: g.Config.Status, To: models.GridStatusPaused}
	}

	cancelled := e.cancelAllOrdersLocked(ctx, g)
	g.Config.Status = models.GridStatusPaused
	atomic.AddInt64(&e.runningGrids, -1)
	e.persistStatus(symbol, models.GridStatusPaused)

	utils.Info("grid paused", utils.Symbol(symbol), utils.Int("cancelled", cancelled))
	e.notify(&models.Notification{
		Type:     models.NotificationTypePause,
		Severity: models.SeverityInfo,
		Symbol:   symbol,
		Message:  fmt.Sprintf("⏸️ %s: сетка на паузе, отменено ордеров: %d", symbol, cancelled),
		Meta:     map[string]interface{}{"cancelled": cancelled},
	})
	return nil
}

// ResumeGrid возобновляет сетку из паузы: уровни сохранены,
// заполненные уровни снова получат sell-ордера
func (e *Engine) ResumeGrid(ctx context.Context, symbol string) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Config.Status != models.GridStatusPaused {
		return &StateTransitionError{Symbol: symbol, From: g.Config.Status, To: models.GridStatusRunning}
	}

	price, err := e.currentPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("cannot resume %s without market price: %w", symbol, err)
	}
	g.CurrentPrice = price
	g.LastUpdate = time.Now()

	g.Config.Status = models.GridStatusRunning
	atomic.StoreInt32(&g.isRunning, 1)
	atomic.AddInt64(&e.runningGrids, 1)
	e.persistStatus(symbol, models.GridStatusRunning)

	e.placeGridOrdersLocked(ctx, g)

	utils.Info("grid resumed", utils.Symbol(symbol), utils.Price(price))
	e.notify(&models.Notification{
		Type:     models.NotificationTypeResume,
		Severity: models.SeverityInfo,
		Symbol:   symbol,
		Message:  fmt.Sprintf("▶️ %s: сетка возобновлена по цене %s", symbol, formatPrice(price)),
	})
	return nil
}

// StopGrid останавливает сетку: все ордера отменяются
func (e *Engine) StopGrid(ctx context.Context, symbol string) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	atomic.StoreInt32(&g.isRunning, 0)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Config.Status == models.GridStatusStopped {
		return &StateTransitionError{Symbol: symbol, From: g.Config.Status, To: models.GridStatusStopped}
	}

	wasRunning := g.Config.Status == models.GridStatusRunning
	cancelled := e.cancelAllOrdersLocked(ctx, g)
	g.Config.Status = models.GridStatusStopped
	if wasRunning {
		atomic.AddInt64(&e.runningGrids, -1)
	}
	e.persistStatus(symbol, models.GridStatusStopped)

	utils.Info("grid stopped", utils.Symbol(symbol), utils.Int("cancelled", cancelled))
	e.notify(&models.Notification{
		Type:     models.NotificationTypePause,
		Severity: models.SeverityWarn,
		Symbol:   symbol,
		Message:  fmt.Sprintf("⏹️ %s: сетка остановлена, отменено ордеров: %d (P/L %.2f USDT)", symbol, cancelled, g.Config.RealizedPnl),
		Meta:     map[string]interface{}{"cancelled": cancelled, "realized_pnl": g.Config.RealizedPnl},
	})
	return nil
}

// PauseAll ставит на паузу все running сетки
func (e *Engine) PauseAll(ctx context.Context) []string {
	return e.forEachSymbol(func(symbol string) error {
		return e.PauseGrid(ctx, symbol)
	})
}

// ResumeAll возобновляет все paused сетки
func (e *Engine) ResumeAll(ctx context.Context) []string {
	return e.forEachSymbol(func(symbol string) error {
		return e.ResumeGrid(ctx, symbol)
	})
}

// StopAll останавливает все сетки (используется kill switch)
func (e *Engine) StopAll(ctx context.Context) []string {
	return e.forEachSymbol(func(symbol string) error {
		return e.StopGrid(ctx, symbol)
	})
}

// forEachSymbol применяет операцию к каждой сетке, возвращает
// символы, для которых операция прошла
func (e *Engine) forEachSymbol(op func(symbol string) error) []string {
	e.gridsMu.RLock()
	symbols := make([]string, 0, len(e.grids))
	for symbol := range e.grids {
		symbols = append(symbols, symbol)
	}
	e.gridsMu.RUnlock()

	affected := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if err := op(symbol); err == nil {
			affected = append(affected, symbol)
		}
	}
	return affected
}

// Rebalance пересобирает лестницу сетки под новые границы
//
// Старые ордера отменяются, уровни строятся заново. Если сетка
// была running, ордера выставляются сразу по новой лестнице.
func (e *Engine) Rebalance(ctx context.Context, symbol string, lower, upper float64) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	if err := utils.ValidateBounds(lower, upper); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e.cancelAllOrdersLocked(ctx, g)
	g.Config.LowerBound = lower
	g.Config.UpperBound = upper
	g.resetLevelsLocked()

	if g.Config.Status == models.GridStatusRunning {
		price, err := e.currentPrice(ctx, symbol)
		if err != nil {
			return fmt.Errorf("rebalance %s: cannot refresh price: %w", symbol, err)
		}
		g.CurrentPrice = price
		g.LastUpdate = time.Now()
		e.placeGridOrdersLocked(ctx, g)
	}

	utils.Info("grid rebalanced",
		utils.Symbol(symbol),
		utils.Float64("lower", lower),
		utils.Float64("upper", upper),
	)
	return nil
}

// UpdateGridConfig обновляет торговые параметры сетки
//
// Границы и количество уровней меняются через Rebalance,
// здесь только стоп-уровни и фильтр BTC.
func (e *Engine) UpdateGridConfig(symbol string, stopLoss, takeProfit float64, btcFilter bool) error {
	g, ok := e.getGrid(symbol)
	if !ok {
		return fmt.Errorf("grid for %s not found", symbol)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.Config.StopLoss = stopLoss
	g.Config.TakeProfit = takeProfit
	g.Config.BTCFilterEnabled = btcFilter
	if stopLoss > 0 {
		e.risk.SetStopLevel(symbol, stopLoss)
	}
	return nil
}

// ============ Проекции состояния ============

// GetGridRuntime возвращает копию состояния сетки
func (e *Engine) GetGridRuntime(symbol string) *models.GridRuntime {
	g, ok := e.getGrid(symbol)
	if !ok {
		return nil
	}
	return g.Runtime()
}

// ListRuntimes возвращает состояния всех сеток
func (e *Engine) ListRuntimes() []*models.GridRuntime {
	e.gridsMu.RLock()
	grids := make([]*GridState, 0, len(e.grids))
	for _, g := range e.grids {
		grids = append(grids, g)
	}
	e.gridsMu.RUnlock()

	runtimes := make([]*models.GridRuntime, 0, len(grids))
	for _, g := range grids {
		runtimes = append(runtimes, g.Runtime())
	}
	return runtimes
}

// RunningGrids возвращает количество running сеток
func (e *Engine) RunningGrids() int64 {
	return atomic.LoadInt64(&e.runningGrids)
}

// ============ Вспомогательные методы ============

// persistStatus сохраняет статус сетки в БД (если store подключен)
func (e *Engine) persistStatus(symbol, status string) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdateStatus(ctx, symbol, status); err != nil {
		utils.Error("failed to persist grid status",
			utils.Symbol(symbol), utils.State(status), utils.Err(err))
	}
}

// persistPnl сохраняет накопленный P/L сетки
func (e *Engine) persistPnl(symbol string, realizedPnl float64) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdatePnl(ctx, symbol, realizedPnl); err != nil {
		utils.Error("failed to persist grid pnl",
			utils.Symbol(symbol), utils.PNL(realizedPnl), utils.Err(err))
	}
}

// notify отправляет уведомление в канал и WebSocket клиентам
func (e *Engine) notify(notif *models.Notification) {
	notif.Timestamp = time.Now()

	tryEnqueueNotification(e.notificationChan, notif)

	if e.wsHub != nil {
		e.wsHub.BroadcastNotification(notif)
	}
}

// formatPrice форматирует цену без хвостовых нулей
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func countFilled(levels []*models.GridLevel) int {
	n := 0
	for _, lvl := range levels {
		if lvl.Filled {
			n++
		}
	}
	return n
}
