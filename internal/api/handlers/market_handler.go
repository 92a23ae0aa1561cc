package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gridbot/internal/exchange"
	"gridbot/internal/ingest"
	"gridbot/pkg/utils"
)

// MarketHandler отдает рыночные данные из кеша фида и с биржи
//
// Endpoints:
// - GET /api/v1/prices          - последние цены всех отслеживаемых символов
// - GET /api/v1/klines/{symbol} - свечи с биржи
type MarketHandler struct {
	feed *ingest.PriceFeed
	exch exchange.Exchange
}

// NewMarketHandler создает новый MarketHandler
func NewMarketHandler(feed *ingest.PriceFeed, exch exchange.Exchange) *MarketHandler {
	return &MarketHandler{feed: feed, exch: exch}
}

// GetPrices возвращает последние известные цены
// GET /api/v1/prices
//
// Цены берутся из кеша фида, запросы к бирже не делаются.
func (h *MarketHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	prices := make(map[string]float64)
	for _, symbol := range h.feed.Symbols() {
		if price, ok := h.feed.LastPrice(symbol); ok {
			prices[symbol] = price
		}
	}

	respondWithJSON(w, http.StatusOK, prices)
}

// GetKlines возвращает свечи для символа
// GET /api/v1/klines/{symbol}
//
// Query Parameters:
// - interval: интервал свечи (1, 5, 15, 60, D), по умолчанию 60
// - limit: количество свечей (по умолчанию 200, максимум 1000)
func (h *MarketHandler) GetKlines(w http.ResponseWriter, r *http.Request) {
	symbol := utils.NormalizeSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondWithError(w, http.StatusBadRequest, "validation_failed", "Symbol is required", "")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "60"
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	klines, err := h.exch.GetKlines(r.Context(), symbol, interval, limit)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "exchange_error", "Failed to fetch klines", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, klines)
}
