package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridbot/internal/api/handlers"
	"gridbot/internal/api/middleware"
	"gridbot/internal/exchange"
	"gridbot/internal/ingest"
	"gridbot/internal/service"
	"gridbot/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	GridService         service.GridServiceInterface
	SignalService       service.SignalServiceInterface
	NotificationService service.NotificationServiceInterface
	TradeService        service.TradeServiceInterface

	Feed     *ingest.PriceFeed
	Exchange exchange.Exchange
	Hub      *websocket.Hub

	ExchangeName string
	Version      string

	// bcrypt-хэш пароля для debug endpoints
	DebugPasswordHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /grids/
//	│   ├── GET / - список сеток
//	│   ├── POST / - создать сетку
//	│   ├── GET /{symbol} - состояние сетки
//	│   ├── PATCH /{symbol} - обновить стоп-уровни
//	│   ├── DELETE /{symbol} - удалить сетку
//	│   ├── POST /{symbol}/start|pause|resume|stop - управление
//	│   ├── POST /{symbol}/rebalance - пересборка лестницы
//	│   ├── POST /pause-all - пауза всех
//	│   └── POST /resume-all - возобновление всех
//	├── /risk/
//	│   ├── GET / - состояние риск-менеджера
//	│   ├── POST /kill - ручной kill switch
//	│   └── POST /reset-kill - сброс kill switch
//	├── /webhook/tradingview - POST, прием сигналов
//	├── /signals/
//	│   ├── GET / - история сигналов
//	│   └── GET /stats - статистика сигналов
//	├── /trades/
//	│   ├── GET / - история сделок
//	│   └── GET /stats - PnL за период
//	├── /notifications - GET, журнал событий
//	├── /prices - GET, последние цены из фида
//	├── /klines/{symbol} - GET, свечи с биржи
//	└── /status - GET, сводка по боту
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics   - Prometheus метрики
// /health    - проверка живости
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var gridHandler *handlers.GridHandler
	var riskHandler *handlers.RiskHandler
	var statusHandler *handlers.StatusHandler
	if deps != nil && deps.GridService != nil {
		gridHandler = handlers.NewGridHandler(deps.GridService)
		riskHandler = handlers.NewRiskHandler(deps.GridService)
		statusHandler = handlers.NewStatusHandler(deps.GridService, deps.ExchangeName, deps.Version)
	}

	var signalHandler *handlers.SignalHandler
	if deps != nil && deps.SignalService != nil {
		signalHandler = handlers.NewSignalHandler(deps.SignalService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	var tradeHandler *handlers.TradeHandler
	if deps != nil && deps.TradeService != nil {
		tradeHandler = handlers.NewTradeHandler(deps.TradeService)
	}

	var marketHandler *handlers.MarketHandler
	if deps != nil && deps.Feed != nil && deps.Exchange != nil {
		marketHandler = handlers.NewMarketHandler(deps.Feed, deps.Exchange)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Grid routes
	if gridHandler != nil {
		api.HandleFunc("/grids", gridHandler.GetGrids).Methods("GET")
		api.HandleFunc("/grids", gridHandler.CreateGrid).Methods("POST")
		api.HandleFunc("/grids/pause-all", gridHandler.PauseAll).Methods("POST")
		api.HandleFunc("/grids/resume-all", gridHandler.ResumeAll).Methods("POST")
		api.HandleFunc("/grids/{symbol}", gridHandler.GetGrid).Methods("GET")
		api.HandleFunc("/grids/{symbol}", gridHandler.UpdateGrid).Methods("PATCH")
		api.HandleFunc("/grids/{symbol}", gridHandler.DeleteGrid).Methods("DELETE")
		api.HandleFunc("/grids/{symbol}/start", gridHandler.StartGrid).Methods("POST")
		api.HandleFunc("/grids/{symbol}/pause", gridHandler.PauseGrid).Methods("POST")
		api.HandleFunc("/grids/{symbol}/resume", gridHandler.ResumeGrid).Methods("POST")
		api.HandleFunc("/grids/{symbol}/stop", gridHandler.StopGrid).Methods("POST")
		api.HandleFunc("/grids/{symbol}/rebalance", gridHandler.Rebalance).Methods("POST")
	}

	// Risk routes
	if riskHandler != nil {
		api.HandleFunc("/risk", riskHandler.GetRiskStatus).Methods("GET")
		api.HandleFunc("/risk/kill", riskHandler.Kill).Methods("POST")
		api.HandleFunc("/risk/reset-kill", riskHandler.ResetKill).Methods("POST")
	}

	// Signal routes
	if signalHandler != nil {
		api.HandleFunc("/webhook/tradingview", signalHandler.Webhook).Methods("POST")
		api.HandleFunc("/signals", signalHandler.GetSignals).Methods("GET")
		api.HandleFunc("/signals/stats", signalHandler.GetSignalStats).Methods("GET")
	}

	// Trade routes
	if tradeHandler != nil {
		api.HandleFunc("/trades", tradeHandler.GetTrades).Methods("GET")
		api.HandleFunc("/trades/stats", tradeHandler.GetTradeStats).Methods("GET")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	}

	// Market data routes
	if marketHandler != nil {
		api.HandleFunc("/prices", marketHandler.GetPrices).Methods("GET")
		api.HandleFunc("/klines/{symbol}", marketHandler.GetKlines).Methods("GET")
	}

	// Status route
	if statusHandler != nil {
		api.HandleFunc("/status", statusHandler.GetStatus).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики, защищены debug auth
	metrics := router.PathPrefix("/metrics").Subrouter()
	if deps != nil {
		metrics.Use(middleware.DebugAuth(deps.DebugPasswordHash))
	}
	metrics.Handle("", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
