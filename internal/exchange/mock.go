package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Mock реализует интерфейс Exchange без обращений к реальной бирже
//
// Используется для бумажной торговли и в тестах. Лимитные ордера
// исполняются при пересечении цены: buy - когда рынок опускается до
// цены ордера, sell - когда поднимается.
type Mock struct {
	mu sync.RWMutex

	prices  map[string]float64
	balance float64

	// Открытые ордера по ID
	orders map[string]*Order

	orderSeq int64

	tickerCallbacks map[string]func(*Ticker)
}

// Стартовые цены бумажного режима
var mockDefaultPrices = map[string]float64{
	"BTCUSDT":  97250.0,
	"MNTUSDT":  1.08,
	"DOGEUSDT": 0.137,
	"PEPEUSDT": 0.00000445,
}

// NewMock создает мок-биржу с балансом 34000 USDT
func NewMock() *Mock {
	prices := make(map[string]float64, len(mockDefaultPrices))
	for k, v := range mockDefaultPrices {
		prices[k] = v
	}
	return &Mock{
		prices:          prices,
		balance:         34000.0,
		orders:          make(map[string]*Order),
		tickerCallbacks: make(map[string]func(*Ticker)),
	}
}

func (m *Mock) Connect(apiKey, secret string) error {
	return nil
}

func (m *Mock) GetName() string {
	return "mock"
}

func (m *Mock) GetBalance(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance, nil
}

// SetPrice задает цену инструмента и исполняет пересеченные ордера
// Используется тестами и симуляцией
func (m *Mock) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	m.prices[symbol] = price

	// Исполняем лимитные ордера, которые пересекла цена
	for _, order := range m.orders {
		if order.Symbol != symbol || order.Status != OrderStatusNew {
			continue
		}
		crossed := (order.Side == SideBuy && price <= order.Price) ||
			(order.Side == SideSell && price >= order.Price)
		if crossed {
			order.Status = OrderStatusFilled
			order.FilledQty = order.Quantity
			order.AvgFillPrice = order.Price
			order.UpdatedAt = time.Now()
		}
	}
	m.mu.Unlock()

	m.mu.RLock()
	callback, ok := m.tickerCallbacks[symbol]
	m.mu.RUnlock()
	if ok && callback != nil {
		callback(&Ticker{Symbol: symbol, LastPrice: price, Timestamp: time.Now()})
	}
}

func (m *Mock) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	m.mu.RLock()
	price, ok := m.prices[symbol]
	m.mu.RUnlock()

	if !ok {
		return nil, &ExchangeError{
			Exchange: "mock",
			Code:     "10001",
			Message:  fmt.Sprintf("unknown symbol %s", symbol),
		}
	}

	// Небольшой шум, чтобы цена не была мертвой
	jitter := price * 0.0002 * (rand.Float64()*2 - 1)

	return &Ticker{
		Symbol:    symbol,
		LastPrice: price + jitter,
		BidPrice:  price * 0.9995,
		AskPrice:  price * 1.0005,
		Timestamp: time.Now(),
	}, nil
}

func (m *Mock) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*Kline, error) {
	m.mu.RLock()
	price, ok := m.prices[symbol]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	if limit <= 0 {
		limit = 200
	}

	klines := make([]*Kline, limit)
	now := time.Now()
	for i := 0; i < limit; i++ {
		drift := price * 0.001 * (rand.Float64()*2 - 1)
		open := price + drift
		closePrice := price - drift
		klines[i] = &Kline{
			OpenTime: now.Add(-time.Duration(limit-i) * time.Minute),
			Open:     open,
			High:     open * 1.001,
			Low:      closePrice * 0.999,
			Close:    closePrice,
			Volume:   rand.Float64() * 1000,
		}
	}
	return klines, nil
}

func (m *Mock) PlaceLimitOrder(ctx context.Context, symbol, side string, qty, price float64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.prices[symbol]; !ok {
		return nil, &ExchangeError{
			Exchange: "mock",
			Code:     "10001",
			Message:  fmt.Sprintf("unknown symbol %s", symbol),
		}
	}

	id := "mock-" + strconv.FormatInt(atomic.AddInt64(&m.orderSeq, 1), 10)
	now := time.Now()
	order := &Order{
		ID:        id,
		Symbol:    symbol,
		Side:      side,
		Type:      "limit",
		Quantity:  qty,
		Price:     price,
		Status:    OrderStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.orders[id] = order

	copied := *order
	return &copied, nil
}

func (m *Mock) CancelOrder(ctx context.Context, symbol, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return &ExchangeError{
			Exchange: "mock",
			Code:     "110001",
			Message:  "order not found",
		}
	}
	order.Status = OrderStatusCancelled
	order.UpdatedAt = time.Now()
	return nil
}

func (m *Mock) GetOpenOrders(ctx context.Context, symbol string) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]*Order, 0)
	for _, order := range m.orders {
		if order.Status != OrderStatusNew {
			continue
		}
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		copied := *order
		orders = append(orders, &copied)
	}
	return orders, nil
}

func (m *Mock) SubscribeTicker(symbol string, callback func(*Ticker)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickerCallbacks[symbol] = callback
	return nil
}

func (m *Mock) Close() error {
	return nil
}
