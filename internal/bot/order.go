package bot

import (
	"context"
	"fmt"
	"time"

	"gridbot/internal/exchange"
	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

// ============================================================
// Работа с ордерами сетки
// ============================================================
//
// Биржа - источник истины по исполнениям. Движок не подписывается
// на приватные стримы: каждый цикл он сверяет сохраненные ID ордеров
// со списком открытых ордеров биржи. Исчезнувший из списка ордер
// считается исполненным.

// checkFillsLocked сверяет ордера уровней с открытыми ордерами биржи
// Вызывающий должен держать g.mu
func (e *Engine) checkFillsLocked(ctx context.Context, g *GridState) {
	symbol := g.Config.Symbol

	openOrders, err := e.exch.GetOpenOrders(ctx, symbol)
	e.risk.RecordAPIRequest(err != nil)
	if err != nil {
		utils.Warn("failed to fetch open orders, skipping fill check",
			utils.Symbol(symbol), utils.Err(err))
		return
	}
	EventsProcessed.WithLabelValues("fill_check").Inc()

	openIDs := make(map[string]struct{}, len(openOrders))
	for _, order := range openOrders {
		openIDs[order.ID] = struct{}{}
	}

	spacing := g.Config.Spacing()

	for _, lvl := range g.Levels {
		// Buy исчез из открытых - уровень куплен
		if lvl.BuyOrderID != "" {
			if _, open := openIDs[lvl.BuyOrderID]; !open {
				orderID := lvl.BuyOrderID
				lvl.BuyOrderID = ""
				lvl.Filled = true
				g.TotalBuys++

				utils.Info("buy order filled",
					utils.Symbol(symbol),
					utils.Level(lvl.Index),
					utils.Price(lvl.Price),
					utils.Qty(lvl.Qty),
					utils.OrderID(orderID),
				)
				RecordFill(symbol, exchange.SideBuy, 0)
				e.recordTrade(ctx, symbol, exchange.SideBuy, lvl.Index, lvl.Price, lvl.Qty, 0, orderID)
				e.notify(&models.Notification{
					Type:     models.NotificationTypeFill,
					Severity: models.SeverityInfo,
					Symbol:   symbol,
					Message:  fmt.Sprintf("✅ %s: куплен уровень %d по %s (%s)", symbol, lvl.Index, formatPrice(lvl.Price), formatQty(lvl.Qty)),
					Meta:     map[string]interface{}{"level": lvl.Index, "price": lvl.Price, "qty": lvl.Qty, "side": exchange.SideBuy},
				})
			}
		}

		// Sell исчез из открытых - шаг сетки закрыт, фиксируем P/L
		if lvl.SellOrderID != "" {
			if _, open := openIDs[lvl.SellOrderID]; !open {
				orderID := lvl.SellOrderID
				sellPrice := utils.RoundToPrecision(lvl.Price+spacing, utils.PricePrecision)
				pnl := utils.RoundToPrecision(lvl.Qty*spacing, utils.PricePrecision)

				lvl.SellOrderID = ""
				lvl.Filled = false
				g.TotalSells++

				g.Config.RealizedPnl += pnl

				utils.Info("sell order filled, level recycled",
					utils.Symbol(symbol),
					utils.Level(lvl.Index),
					utils.Price(sellPrice),
					utils.Qty(lvl.Qty),
					utils.PNL(pnl),
					utils.OrderID(orderID),
				)
				RecordFill(symbol, exchange.SideSell, pnl)
				e.recordTrade(ctx, symbol, exchange.SideSell, lvl.Index, sellPrice, lvl.Qty, pnl, orderID)
				e.persistPnl(symbol, g.Config.RealizedPnl)
				e.notify(&models.Notification{
					Type:     models.NotificationTypeFill,
					Severity: models.SeverityInfo,
					Symbol:   symbol,
					Message:  fmt.Sprintf("💰 %s: продан уровень %d по %s, P/L +%.4f USDT", symbol, lvl.Index, formatPrice(sellPrice), pnl),
					Meta:     map[string]interface{}{"level": lvl.Index, "price": sellPrice, "qty": lvl.Qty, "pnl": pnl, "side": exchange.SideSell},
				})
			}
		}
	}
}

// placeGridOrdersLocked выставляет недостающие ордера по уровням
// Вызывающий должен держать g.mu
//
// Правила:
// - отрицательный вердикт риск-менеджера отменяет весь проход:
//   ни buy, ни sell в этом цикле не выставляются
// - buy на незаполненный уровень без открытого buy, если цена уровня
//   ниже рынка
// - sell на заполненный уровень выше рынка без открытого sell,
//   на шаг выше цены уровня
func (e *Engine) placeGridOrdersLocked(ctx context.Context, g *GridState) {
	symbol := g.Config.Symbol
	spacing := g.Config.Spacing()

	if allowed, reason := e.risk.ShouldTrade(symbol, g.CurrentPrice); !allowed {
		utils.Debug("order placement blocked by risk manager",
			utils.Symbol(symbol), utils.String("reason", reason))
		return
	}

	// Фильтр BTC: пока BTC вне своего диапазона, новые покупки по
	// отмеченным альтам не открываются, sell-ордера не трогаем
	// Для самой BTC сетки фильтр не применяется
	buysBlocked := false
	if g.Config.BTCFilterEnabled && symbol != "BTCUSDT" && !e.btcHealthy() {
		buysBlocked = true
		utils.Debug("buys blocked by BTC filter", utils.Symbol(symbol))
	}

	for _, lvl := range g.Levels {
		if !lvl.Filled && lvl.BuyOrderID == "" && lvl.Price < g.CurrentPrice && !buysBlocked {
			order, err := e.placeLimit(ctx, symbol, exchange.SideBuy, lvl.Qty, lvl.Price)
			if err != nil {
				utils.Warn("failed to place buy order",
					utils.Symbol(symbol), utils.Level(lvl.Index),
					utils.Price(lvl.Price), utils.Err(err))
				continue
			}
			lvl.BuyOrderID = order.ID
		}

		if lvl.Filled && lvl.SellOrderID == "" && lvl.Price > g.CurrentPrice {
			sellPrice := utils.RoundToPrecision(lvl.Price+spacing, utils.PricePrecision)
			order, err := e.placeLimit(ctx, symbol, exchange.SideSell, lvl.Qty, sellPrice)
			if err != nil {
				utils.Warn("failed to place sell order",
					utils.Symbol(symbol), utils.Level(lvl.Index),
					utils.Price(sellPrice), utils.Err(err))
				continue
			}
			lvl.SellOrderID = order.ID
		}
	}
}

// placeLimit выставляет лимитный ордер с таймаутом и метриками
func (e *Engine) placeLimit(ctx context.Context, symbol, side string, qty, price float64) (*exchange.Order, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Trading.OrderTimeout)
	defer cancel()

	started := time.Now()
	order, err := e.exch.PlaceLimitOrder(reqCtx, symbol, side, qty, price)
	e.risk.RecordAPIRequest(err != nil)
	OrderExecutionLatency.WithLabelValues(e.exch.GetName(), side).
		Observe(float64(time.Since(started).Milliseconds()))

	if err != nil {
		return nil, err
	}

	RecordOrderPlaced(symbol, side)
	utils.Debug("limit order placed",
		utils.Symbol(symbol),
		utils.Side(side),
		utils.Price(price),
		utils.Qty(qty),
		utils.OrderID(order.ID),
	)
	return order, nil
}

// cancelAllOrdersLocked отменяет все открытые ордера инструмента
// и возвращает число успешно отмененных
// Вызывающий должен держать g.mu
//
// Список ордеров берется с биржи, а не из уровней: отменяются и
// осиротевшие ордера, не привязанные к уровням. Ошибка отмены
// одного ордера не прерывает остальные - ордер мог исполниться
// между циклом и отменой. Ссылки уровней очищаются в любом случае.
func (e *Engine) cancelAllOrdersLocked(ctx context.Context, g *GridState) int {
	symbol := g.Config.Symbol
	cancelled := 0

	openOrders, err := e.exch.GetOpenOrders(ctx, symbol)
	e.risk.RecordAPIRequest(err != nil)
	if err != nil {
		utils.Warn("failed to fetch open orders, cancelling by stored references",
			utils.Symbol(symbol), utils.Err(err))
		for _, lvl := range g.Levels {
			if lvl.BuyOrderID != "" && e.cancelOrder(ctx, symbol, lvl.BuyOrderID) {
				cancelled++
			}
			if lvl.SellOrderID != "" && e.cancelOrder(ctx, symbol, lvl.SellOrderID) {
				cancelled++
			}
		}
	} else {
		for _, order := range openOrders {
			if e.cancelOrder(ctx, symbol, order.ID) {
				cancelled++
			}
		}
	}

	for _, lvl := range g.Levels {
		lvl.BuyOrderID = ""
		lvl.SellOrderID = ""
	}

	utils.Info("open orders cancelled",
		utils.Symbol(symbol), utils.Int("cancelled", cancelled))
	return cancelled
}

// cancelOrder отменяет один ордер, логируя ошибки
func (e *Engine) cancelOrder(ctx context.Context, symbol, orderID string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Trading.OrderTimeout)
	defer cancel()

	err := e.exch.CancelOrder(reqCtx, symbol, orderID)
	e.risk.RecordAPIRequest(err != nil)
	if err != nil {
		utils.Warn("failed to cancel order",
			utils.Symbol(symbol), utils.OrderID(orderID), utils.Err(err))
		return false
	}
	return true
}

// btcHealthy возвращает true, пока BTC торгуется внутри диапазона
// собственной сетки. Используется фильтром покупок по альтам.
//
// Неизвестная цена BTC (еще не наблюдалась) блокирует: фильтр
// не дает покупать вслепую.
func (e *Engine) btcHealthy() bool {
	btcGrid, ok := e.getGrid("BTCUSDT")
	if !ok {
		return true
	}

	btcGrid.mu.Lock()
	lower := btcGrid.Config.LowerBound
	upper := btcGrid.Config.UpperBound
	lastKnown := btcGrid.CurrentPrice
	btcGrid.mu.Unlock()

	btcPrice := lastKnown
	if e.prices != nil {
		if price, ok := e.prices.LastPrice("BTCUSDT"); ok {
			btcPrice = price
		}
	}
	if btcPrice <= 0 {
		return false
	}

	return btcPrice >= lower && btcPrice <= upper
}

// recordTrade пишет исполнение в журнал сделок
func (e *Engine) recordTrade(ctx context.Context, symbol, side string, levelIndex int, price, qty, pnl float64, orderID string) {
	if e.trades == nil {
		return
	}

	trade := &models.Trade{
		Symbol:     symbol,
		Side:       side,
		LevelIndex: levelIndex,
		Price:      price,
		Qty:        qty,
		Pnl:        pnl,
		OrderID:    orderID,
		ExecutedAt: time.Now(),
	}
	if err := e.trades.Record(ctx, trade); err != nil {
		utils.Error("failed to record trade",
			utils.Symbol(symbol), utils.OrderID(orderID), utils.Err(err))
	}
}

// formatQty форматирует объем без хвостовых нулей
func formatQty(qty float64) string {
	return formatPrice(qty)
}
