package ingest

import (
	"context"
	"sync"
	"time"

	"gridbot/internal/exchange"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// RequestRecorder учитывает запросы к бирже для риск-менеджера
type RequestRecorder interface {
	RecordAPIRequest(isError bool)
}

// Subscriber получает каждый новый тик
type Subscriber func(tick models.PriceTick)

// PriceFeed - кэш последних цен с подпиской на обновления
//
// Два источника данных:
// - WebSocket подписка биржи (основной, push)
// - Периодический опрос REST (резервный, работает всегда)
//
// Кэш отдает копии тиков, подписчики изолированы друг от друга:
// паника одного не валит рассылку остальным.
type PriceFeed struct {
	exch     exchange.Exchange
	recorder RequestRecorder

	symbols   []string
	symbolsMu sync.RWMutex

	ticks   map[string]models.PriceTick
	ticksMu sync.RWMutex

	subscribers []Subscriber
	subMu       sync.RWMutex

	pollInterval time.Duration
}

// NewPriceFeed создает фид для набора инструментов
func NewPriceFeed(exch exchange.Exchange, recorder RequestRecorder, symbols []string, pollInterval time.Duration) *PriceFeed {
	return &PriceFeed{
		exch:         exch,
		recorder:     recorder,
		symbols:      append([]string(nil), symbols...),
		ticks:        make(map[string]models.PriceTick),
		pollInterval: pollInterval,
	}
}

// AddSymbol добавляет инструмент в опрос
func (f *PriceFeed) AddSymbol(symbol string) {
	f.symbolsMu.Lock()
	defer f.symbolsMu.Unlock()

	for _, s := range f.symbols {
		if s == symbol {
			return
		}
	}
	f.symbols = append(f.symbols, symbol)

	// WS подписка для нового инструмента
	if err := f.exch.SubscribeTicker(symbol, f.onTicker); err != nil {
		utils.Warn("ws subscribe failed, falling back to polling",
			utils.Symbol(symbol), utils.Err(err))
	}
}

// Symbols возвращает копию списка инструментов
func (f *PriceFeed) Symbols() []string {
	f.symbolsMu.RLock()
	defer f.symbolsMu.RUnlock()
	return append([]string(nil), f.symbols...)
}

// Subscribe регистрирует получателя тиков
func (f *PriceFeed) Subscribe(sub Subscriber) {
	f.subMu.Lock()
	f.subscribers = append(f.subscribers, sub)
	f.subMu.Unlock()
}

// LastPrice возвращает последнюю цену из кэша
func (f *PriceFeed) LastPrice(symbol string) (float64, bool) {
	f.ticksMu.RLock()
	tick, ok := f.ticks[symbol]
	f.ticksMu.RUnlock()
	if !ok {
		return 0, false
	}
	return tick.Price, true
}

// LastTick возвращает копию последнего тика
func (f *PriceFeed) LastTick(symbol string) (models.PriceTick, bool) {
	f.ticksMu.RLock()
	tick, ok := f.ticks[symbol]
	f.ticksMu.RUnlock()
	return tick, ok
}

// FetchPrice синхронно запрашивает цену и обновляет кэш
func (f *PriceFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	ticker, err := f.exch.GetTicker(ctx, symbol)
	f.recordRequest(err != nil)
	if err != nil {
		return 0, err
	}

	tick := tickerToTick(ticker)
	f.storeTick(tick)
	return tick.Price, nil
}

// FetchAll опрашивает все инструменты параллельно
//
// Частичные сбои не прерывают опрос: недоступный инструмент
// логируется, остальные обновляются.
func (f *PriceFeed) FetchAll(ctx context.Context) {
	symbols := f.Symbols()
	if len(symbols) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if _, err := f.FetchPrice(ctx, symbol); err != nil {
				utils.Debug("price poll failed",
					utils.Symbol(symbol), utils.Err(err))
			}
		}(symbol)
	}
	wg.Wait()
}

// Run запускает фид: WS подписки и резервный опрос
func (f *PriceFeed) Run(ctx context.Context) error {
	for _, symbol := range f.Symbols() {
		if err := f.exch.SubscribeTicker(symbol, f.onTicker); err != nil {
			utils.Warn("ws subscribe failed, falling back to polling",
				utils.Symbol(symbol), utils.Err(err))
		}
	}

	// Первичное наполнение кэша
	f.FetchAll(ctx)

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.FetchAll(ctx)
		}
	}
}

// onTicker - callback WS подписки
func (f *PriceFeed) onTicker(ticker *exchange.Ticker) {
	if ticker == nil || ticker.LastPrice <= 0 {
		return
	}
	f.storeTick(tickerToTick(ticker))
}

// storeTick обновляет кэш и рассылает тик подписчикам
func (f *PriceFeed) storeTick(tick models.PriceTick) {
	f.ticksMu.Lock()
	f.ticks[tick.Symbol] = tick
	f.ticksMu.Unlock()

	f.subMu.RLock()
	subscribers := make([]Subscriber, len(f.subscribers))
	copy(subscribers, f.subscribers)
	f.subMu.RUnlock()

	for _, sub := range subscribers {
		f.notifyOne(sub, tick)
	}
}

// notifyOne вызывает подписчика с изоляцией паник
func (f *PriceFeed) notifyOne(sub Subscriber, tick models.PriceTick) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("price feed subscriber panicked",
				utils.Symbol(tick.Symbol), utils.Any("panic", r))
		}
	}()
	sub(tick)
}

func (f *PriceFeed) recordRequest(isError bool) {
	if f.recorder != nil {
		f.recorder.RecordAPIRequest(isError)
	}
}

func tickerToTick(ticker *exchange.Ticker) models.PriceTick {
	ts := ticker.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.PriceTick{
		Symbol:    ticker.Symbol,
		Price:     ticker.LastPrice,
		Bid:       ticker.BidPrice,
		Ask:       ticker.AskPrice,
		Volume24h: ticker.Volume24h,
		Timestamp: ts,
	}
}
