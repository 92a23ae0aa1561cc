package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"gridbot/pkg/ratelimit"
	"gridbot/pkg/retry"
	"gridbot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	bybitBaseURL    = "https://api.bybit.com"
	bybitWSPublic   = "wss://stream.bybit.com/v5/public/spot"
	bybitRecvWindow = "5000"
	bybitCategory   = "spot"
)

// Bybit реализует интерфейс Exchange для спотового рынка Bybit (API v5)
type Bybit struct {
	apiKey    string
	secretKey string

	httpClient *http.Client

	// Ограничитель частоты запросов к REST API
	limiter *ratelimit.RateLimiter

	// WebSocket manager с автоматическим переподключением
	wsManager *WSReconnectManager

	// Callbacks
	tickerCallbacks map[string]func(*Ticker)
	callbackMu      sync.RWMutex

	// State
	connected bool
	closeChan chan struct{}
}

// NewBybit создает новый экземпляр Bybit
// Использует глобальный HTTP клиент с connection pooling и оптимизированными таймаутами
func NewBybit(requestsPerSecond float64) *Bybit {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Bybit{
		httpClient:      GetGlobalHTTPClient().GetClient(),
		limiter:         ratelimit.NewRateLimiter(requestsPerSecond, requestsPerSecond),
		tickerCallbacks: make(map[string]func(*Ticker)),
		closeChan:       make(chan struct{}),
	}
}

// sign создает подпись для запроса к Bybit API v5
func (b *Bybit) sign(timestamp string, params string) string {
	message := timestamp + b.apiKey + bybitRecvWindow + params
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет HTTP запрос к Bybit API
// Запросы проходят через rate limiter и retry с экспоненциальным backoff
func (b *Bybit) doRequest(ctx context.Context, method, endpoint string, params map[string]string, signed bool) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cfg := retry.NetworkConfig()
	cfg.RetryIf = retry.IsRetryable

	var body []byte
	err := retry.Do(ctx, func() error {
		var reqErr error
		body, reqErr = b.doRequestOnce(ctx, method, endpoint, params, signed)
		return reqErr
	}, cfg)
	return body, err
}

func (b *Bybit) doRequestOnce(ctx context.Context, method, endpoint string, params map[string]string, signed bool) ([]byte, error) {
	var reqBody string
	var reqURL string

	if method == http.MethodGet {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		reqBody = query.Encode()
		if reqBody != "" {
			reqURL = bybitBaseURL + endpoint + "?" + reqBody
		} else {
			reqURL = bybitBaseURL + endpoint
		}
	} else {
		reqURL = bybitBaseURL + endpoint
		if len(params) > 0 {
			jsonBytes, _ := json.Marshal(params)
			reqBody = string(jsonBytes)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(reqBody))
	if err != nil {
		return nil, retry.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		signature := b.sign(timestamp, reqBody)

		req.Header.Set("X-BAPI-API-KEY", b.apiKey)
		req.Header.Set("X-BAPI-SIGN", signature)
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Проверяем базовый ответ
	var baseResp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
	}
	if err := json.Unmarshal(body, &baseResp); err != nil {
		return nil, err
	}

	if baseResp.RetCode != 0 {
		// Ошибки бизнес-логики (неверные параметры, недостаток средств)
		// повторять бессмысленно
		return nil, retry.Permanent(&ExchangeError{
			Exchange: "bybit",
			Code:     strconv.Itoa(baseResp.RetCode),
			Message:  baseResp.RetMsg,
		})
	}

	return body, nil
}

func (b *Bybit) Connect(apiKey, secret string) error {
	b.apiKey = apiKey
	b.secretKey = secret

	// Проверяем подключение через получение баланса
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := b.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Bybit: %w", err)
	}

	b.connected = true
	return nil
}

func (b *Bybit) GetName() string {
	return "bybit"
}

func (b *Bybit) GetBalance(ctx context.Context) (float64, error) {
	params := map[string]string{
		"accountType": "UNIFIED",
		"coin":        "USDT",
	}

	body, err := b.doRequest(ctx, http.MethodGet, "/v5/account/wallet-balance", params, true)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Result struct {
			List []struct {
				Coin []struct {
					Coin   string `json:"coin"`
					Equity string `json:"equity"`
				} `json:"coin"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	if len(resp.Result.List) > 0 && len(resp.Result.List[0].Coin) > 0 {
		for _, coin := range resp.Result.List[0].Coin {
			if coin.Coin == "USDT" {
				equity, _ := strconv.ParseFloat(coin.Equity, 64)
				return equity, nil
			}
		}
	}

	return 0, nil
}

func (b *Bybit) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	params := map[string]string{
		"category": bybitCategory,
		"symbol":   symbol,
	}

	body, err := b.doRequest(ctx, http.MethodGet, "/v5/market/tickers", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			List []struct {
				Symbol     string `json:"symbol"`
				Bid1Price  string `json:"bid1Price"`
				Ask1Price  string `json:"ask1Price"`
				LastPrice  string `json:"lastPrice"`
				Volume24h  string `json:"volume24h"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("ticker not found for %s", symbol)
	}

	t := resp.Result.List[0]
	bidPrice, _ := strconv.ParseFloat(t.Bid1Price, 64)
	askPrice, _ := strconv.ParseFloat(t.Ask1Price, 64)
	lastPrice, _ := strconv.ParseFloat(t.LastPrice, 64)
	volume, _ := strconv.ParseFloat(t.Volume24h, 64)

	return &Ticker{
		Symbol:    t.Symbol,
		BidPrice:  bidPrice,
		AskPrice:  askPrice,
		LastPrice: lastPrice,
		Volume24h: volume,
		Timestamp: time.Now(),
	}, nil
}

func (b *Bybit) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*Kline, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	params := map[string]string{
		"category": bybitCategory,
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}

	body, err := b.doRequest(ctx, http.MethodGet, "/v5/market/kline", params, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			// Каждая свеча: [startTime, open, high, low, close, volume, turnover]
			List [][]string `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	klines := make([]*Kline, 0, len(resp.Result.List))
	for _, row := range resp.Result.List {
		if len(row) < 6 {
			continue
		}
		startMs, _ := strconv.ParseInt(row[0], 10, 64)
		open, _ := strconv.ParseFloat(row[1], 64)
		high, _ := strconv.ParseFloat(row[2], 64)
		low, _ := strconv.ParseFloat(row[3], 64)
		closePrice, _ := strconv.ParseFloat(row[4], 64)
		volume, _ := strconv.ParseFloat(row[5], 64)

		klines = append(klines, &Kline{
			OpenTime: time.UnixMilli(startMs),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePrice,
			Volume:   volume,
		})
	}

	return klines, nil
}

func (b *Bybit) PlaceLimitOrder(ctx context.Context, symbol, side string, qty, price float64) (*Order, error) {
	// Конвертируем side в формат Bybit
	bybitSide := "Buy"
	if side == SideSell {
		bybitSide = "Sell"
	}

	params := map[string]string{
		"category":    bybitCategory,
		"symbol":      symbol,
		"side":        bybitSide,
		"orderType":   "Limit",
		"qty":         strconv.FormatFloat(qty, 'f', -1, 64),
		"price":       strconv.FormatFloat(price, 'f', -1, 64),
		"timeInForce": "GTC",
	}

	body, err := b.doRequest(ctx, http.MethodPost, "/v5/order/create", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			OrderId     string `json:"orderId"`
			OrderLinkId string `json:"orderLinkId"`
		} `json:"result"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Order{
		ID:        resp.Result.OrderId,
		Symbol:    symbol,
		Side:      side,
		Type:      "limit",
		Quantity:  qty,
		Price:     price,
		Status:    OrderStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (b *Bybit) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]string{
		"category": bybitCategory,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	_, err := b.doRequest(ctx, http.MethodPost, "/v5/order/cancel", params, true)
	return err
}

func (b *Bybit) GetOpenOrders(ctx context.Context, symbol string) ([]*Order, error) {
	params := map[string]string{
		"category": bybitCategory,
	}
	if symbol != "" {
		params["symbol"] = symbol
	} else {
		params["settleCoin"] = "USDT"
	}

	body, err := b.doRequest(ctx, http.MethodGet, "/v5/order/realtime", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result struct {
			List []struct {
				OrderId     string `json:"orderId"`
				Symbol      string `json:"symbol"`
				Side        string `json:"side"`
				OrderType   string `json:"orderType"`
				Qty         string `json:"qty"`
				Price       string `json:"price"`
				CumExecQty  string `json:"cumExecQty"`
				AvgPrice    string `json:"avgPrice"`
				OrderStatus string `json:"orderStatus"`
				CreatedTime string `json:"createdTime"`
				UpdatedTime string `json:"updatedTime"`
			} `json:"list"`
		} `json:"result"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	orders := make([]*Order, 0, len(resp.Result.List))
	for _, o := range resp.Result.List {
		qty, _ := strconv.ParseFloat(o.Qty, 64)
		price, _ := strconv.ParseFloat(o.Price, 64)
		filledQty, _ := strconv.ParseFloat(o.CumExecQty, 64)
		avgPrice, _ := strconv.ParseFloat(o.AvgPrice, 64)
		createdMs, _ := strconv.ParseInt(o.CreatedTime, 10, 64)
		updatedMs, _ := strconv.ParseInt(o.UpdatedTime, 10, 64)

		side := SideBuy
		if o.Side == "Sell" {
			side = SideSell
		}

		orders = append(orders, &Order{
			ID:           o.OrderId,
			Symbol:       o.Symbol,
			Side:         side,
			Type:         strings.ToLower(o.OrderType),
			Quantity:     qty,
			Price:        price,
			FilledQty:    filledQty,
			AvgFillPrice: avgPrice,
			Status:       mapBybitOrderStatus(o.OrderStatus),
			CreatedAt:    time.UnixMilli(createdMs),
			UpdatedAt:    time.UnixMilli(updatedMs),
		})
	}

	return orders, nil
}

// mapBybitOrderStatus переводит статус Bybit в унифицированный
func mapBybitOrderStatus(status string) string {
	switch status {
	case "New", "Created", "Untriggered":
		return OrderStatusNew
	case "PartiallyFilled":
		return OrderStatusPartial
	case "Filled":
		return OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled", "Deactivated":
		return OrderStatusCancelled
	case "Rejected":
		return OrderStatusRejected
	default:
		return strings.ToLower(status)
	}
}

func (b *Bybit) SubscribeTicker(symbol string, callback func(*Ticker)) error {
	b.callbackMu.Lock()
	b.tickerCallbacks[symbol] = callback
	b.callbackMu.Unlock()

	// Создаём WSReconnectManager если ещё не создан
	if b.wsManager == nil {
		config := DefaultWSReconnectConfig()
		b.wsManager = NewWSReconnectManager("bybit-public", bybitWSPublic, config)

		b.wsManager.SetOnMessage(b.handlePublicMessage)

		b.wsManager.SetOnConnect(func() {
			utils.Info("bybit public websocket connected", utils.Exchange("bybit"))
		})

		b.wsManager.SetOnDisconnect(func(err error) {
			if err != nil {
				utils.Warn("bybit public websocket disconnected",
					utils.Exchange("bybit"), utils.Err(err))
			}
		})

		if err := b.wsManager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to WebSocket: %w", err)
		}
	}

	// Формируем сообщение подписки
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"tickers." + symbol},
	}

	// Добавляем подписку для восстановления после переподключения
	b.wsManager.AddSubscription(subMsg)

	return b.wsManager.Send(subMsg)
}

// handlePublicMessage обрабатывает одно сообщение из публичного WebSocket
func (b *Bybit) handlePublicMessage(message []byte) {
	var msg struct {
		Topic string `json:"topic"`
		Data  struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
		} `json:"data"`
	}

	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if strings.HasPrefix(msg.Topic, "tickers.") {
		symbol := msg.Data.Symbol

		b.callbackMu.RLock()
		callback, ok := b.tickerCallbacks[symbol]
		b.callbackMu.RUnlock()

		if ok && callback != nil {
			lastPrice, _ := strconv.ParseFloat(msg.Data.LastPrice, 64)
			volume, _ := strconv.ParseFloat(msg.Data.Volume24h, 64)

			callback(&Ticker{
				Symbol:    symbol,
				LastPrice: lastPrice,
				Volume24h: volume,
				Timestamp: time.Now(),
			})
		}
	}
}

func (b *Bybit) Close() error {
	// Закрываем closeChan только если он ещё не закрыт
	select {
	case <-b.closeChan:
		// Уже закрыт
	default:
		close(b.closeChan)
	}

	if b.wsManager != nil {
		b.wsManager.Close()
		b.wsManager = nil
	}

	b.connected = false
	return nil
}
