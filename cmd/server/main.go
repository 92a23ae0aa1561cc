package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"gridbot/internal/api"
	"gridbot/internal/bot"
	"gridbot/internal/config"
	"gridbot/internal/exchange"
	"gridbot/internal/ingest"
	"gridbot/internal/models"
	"gridbot/internal/repository"
	"gridbot/internal/service"
	tvsignal "gridbot/internal/signal"
	"gridbot/internal/websocket"
	"gridbot/pkg/utils"
)

const version = "1.0.0"

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		utils.Fatal("failed to connect to database",
			utils.String("dsn", cfg.Database.DSNWithoutPassword()),
			utils.Err(err),
		)
	}
	defer db.Close()

	utils.Info("connected to database",
		utils.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Инициализация репозиториев
	gridRepo := repository.NewGridRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Подключение к бирже
	exch, err := exchange.NewExchange(cfg.Exchange.Name, cfg.Exchange.RequestsPerSecond)
	if err != nil {
		utils.Fatal("failed to create exchange client", utils.Err(err))
	}
	if err := exch.Connect(cfg.Exchange.APIKey, cfg.Exchange.APISecret); err != nil {
		utils.Fatal("failed to connect to exchange",
			utils.Exchange(cfg.Exchange.Name), utils.Err(err))
	}
	utils.Info("connected to exchange", utils.Exchange(exch.GetName()))

	// Риск-менеджер: канал уведомлений подключит движок
	risk := bot.NewRiskManager(cfg.Risk, nil)

	// WebSocket hub для real-time обновлений
	hub := websocket.NewHub()
	go hub.Run()

	// Фид цен: история волатильности в риск-менеджер, тики клиентам
	feed := ingest.NewPriceFeed(exch, risk, nil, cfg.Trading.PricePollInterval)
	feed.Subscribe(func(tick models.PriceTick) {
		risk.RecordPrice(tick.Symbol, tick.Price)
		hub.BroadcastPriceUpdate(tick.Symbol, tick.Price)
	})

	// Торговый движок
	engine := bot.NewEngine(cfg, exch, feed, risk, hub)
	engine.SetStore(gridRepo)
	engine.SetTradeRecorder(tradeRepo)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Восстановление сеток после перезапуска
	recovery := bot.NewRecoveryManager(cfg, gridRepo, exch, engine, risk)
	result, err := recovery.Recover(rootCtx)
	if err != nil {
		utils.Fatal("recovery failed", utils.Err(err))
	}

	// Все восстановленные инструменты попадают в опрос цен
	for _, rt := range engine.ListRuntimes() {
		feed.AddSymbol(rt.Symbol)
	}
	utils.Info("grids recovered",
		utils.Int("loaded", result.GridsLoaded),
		utils.Int("restarted", result.GridsRestarted),
	)

	// Инициализация сервисов
	gridService := service.NewGridService(gridRepo, engine, risk)
	signalHandler := tvsignal.NewHandler(cfg.Security.WebhookSecret, cfg.Signals)
	signalService := service.NewSignalService(signalHandler, engine, feed)
	signalService.SetStore(signalRepo)
	signalService.SetWebSocketHub(hub)
	tradeService := service.NewTradeService(tradeRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetWebSocketHub(hub)

	// Фоновые горутины: фид цен, движок, дренаж уведомлений
	go func() {
		if err := feed.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			utils.Error("price feed stopped", utils.Err(err))
		}
	}()
	go func() {
		if err := engine.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			utils.Error("trading engine stopped", utils.Err(err))
		}
	}()
	go notificationService.Run(rootCtx, engine.Notifications())

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		GridService:         gridService,
		SignalService:       signalService,
		NotificationService: notificationService,
		TradeService:        tradeService,
		Feed:                feed,
		Exchange:            exch,
		Hub:                 hub,
		ExchangeName:        exch.GetName(),
		Version:             version,
		DebugPasswordHash:   cfg.Security.DebugPasswordHash,
	}

	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		utils.Info("starting server", utils.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				utils.Fatal("server failed", utils.Err(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				utils.Fatal("server failed", utils.Err(err))
			}
		}
	}()

	// Graceful shutdown
	<-rootCtx.Done()
	utils.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Error("server forced to shutdown", utils.Err(err))
	}

	if err := exch.Close(); err != nil {
		utils.Warn("error closing exchange connection", utils.Err(err))
	}

	utils.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
