package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"gridbot/internal/exchange"
	"gridbot/internal/models"
)

type countingRecorder struct {
	mu       sync.Mutex
	requests int
	errors   int
}

func (c *countingRecorder) RecordAPIRequest(isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	if isError {
		c.errors++
	}
}

// TestFetchPrice_UpdatesCache проверяет наполнение кэша
func TestFetchPrice_UpdatesCache(t *testing.T) {
	mock := exchange.NewMock()
	mock.SetPrice("BTCUSDT", 97000)

	recorder := &countingRecorder{}
	feed := NewPriceFeed(mock, recorder, []string{"BTCUSDT"}, time.Second)

	if _, ok := feed.LastPrice("BTCUSDT"); ok {
		t.Fatal("cache should be empty before first fetch")
	}

	price, err := feed.FetchPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchPrice() error: %v", err)
	}
	if price <= 0 {
		t.Errorf("FetchPrice() = %v, want positive", price)
	}

	cached, ok := feed.LastPrice("BTCUSDT")
	if !ok {
		t.Fatal("cache miss after fetch")
	}
	if cached != price {
		t.Errorf("cached price = %v, want %v", cached, price)
	}

	if recorder.requests != 1 || recorder.errors != 0 {
		t.Errorf("recorder = %d/%d, want 1/0", recorder.requests, recorder.errors)
	}
}

// TestFetchPrice_RecordsError проверяет учет ошибок API
func TestFetchPrice_RecordsError(t *testing.T) {
	mock := exchange.NewMock()
	recorder := &countingRecorder{}
	feed := NewPriceFeed(mock, recorder, nil, time.Second)

	if _, err := feed.FetchPrice(context.Background(), "UNKNOWNUSDT"); err == nil {
		t.Fatal("FetchPrice() for unknown symbol should fail")
	}
	if recorder.errors != 1 {
		t.Errorf("recorder errors = %d, want 1", recorder.errors)
	}
}

// TestFetchAll_PartialFailure проверяет устойчивость к частичным сбоям
func TestFetchAll_PartialFailure(t *testing.T) {
	mock := exchange.NewMock()
	mock.SetPrice("BTCUSDT", 97000)

	feed := NewPriceFeed(mock, nil, []string{"BTCUSDT", "UNKNOWNUSDT"}, time.Second)
	feed.FetchAll(context.Background())

	if _, ok := feed.LastPrice("BTCUSDT"); !ok {
		t.Error("known symbol should be cached despite the failing one")
	}
	if _, ok := feed.LastPrice("UNKNOWNUSDT"); ok {
		t.Error("failed symbol should not appear in cache")
	}
}

// TestSubscribe_FanOut проверяет рассылку тиков подписчикам
func TestSubscribe_FanOut(t *testing.T) {
	mock := exchange.NewMock()
	mock.SetPrice("BTCUSDT", 97000)

	feed := NewPriceFeed(mock, nil, []string{"BTCUSDT"}, time.Second)

	var mu sync.Mutex
	received := make([]models.PriceTick, 0)
	feed.Subscribe(func(tick models.PriceTick) {
		mu.Lock()
		received = append(received, tick)
		mu.Unlock()
	})

	if _, err := feed.FetchPrice(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("FetchPrice() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("subscriber received %d ticks, want 1", len(received))
	}
	if received[0].Symbol != "BTCUSDT" {
		t.Errorf("tick symbol = %s, want BTCUSDT", received[0].Symbol)
	}
}

// TestSubscribe_PanicIsolation проверяет изоляцию паникующего подписчика
func TestSubscribe_PanicIsolation(t *testing.T) {
	mock := exchange.NewMock()
	mock.SetPrice("BTCUSDT", 97000)

	feed := NewPriceFeed(mock, nil, []string{"BTCUSDT"}, time.Second)

	feed.Subscribe(func(tick models.PriceTick) {
		panic("bad subscriber")
	})

	var delivered bool
	feed.Subscribe(func(tick models.PriceTick) {
		delivered = true
	})

	if _, err := feed.FetchPrice(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("FetchPrice() error: %v", err)
	}
	if !delivered {
		t.Error("healthy subscriber should receive the tick despite the panicking one")
	}
}

// TestWSPush проверяет обновление кэша через WS callback
func TestWSPush(t *testing.T) {
	mock := exchange.NewMock()
	mock.SetPrice("BTCUSDT", 97000)

	feed := NewPriceFeed(mock, nil, nil, time.Second)
	feed.AddSymbol("BTCUSDT")

	// AddSymbol подписался на тикер, SetPrice дергает callback
	mock.SetPrice("BTCUSDT", 97500)

	price, ok := feed.LastPrice("BTCUSDT")
	if !ok {
		t.Fatal("cache miss after ws push")
	}
	if price != 97500 {
		t.Errorf("cached price = %v, want 97500", price)
	}
}

// TestAddSymbol_Dedup проверяет дедупликацию инструментов
func TestAddSymbol_Dedup(t *testing.T) {
	mock := exchange.NewMock()
	feed := NewPriceFeed(mock, nil, []string{"BTCUSDT"}, time.Second)

	feed.AddSymbol("BTCUSDT")
	feed.AddSymbol("DOGEUSDT")
	feed.AddSymbol("DOGEUSDT")

	symbols := feed.Symbols()
	if len(symbols) != 2 {
		t.Errorf("Symbols() = %v, want 2 unique entries", symbols)
	}
}
