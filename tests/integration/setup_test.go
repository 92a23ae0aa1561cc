// Package integration contains integration tests for the grid trading bot.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: repositories against a real PostgreSQL
//
// Tests skip themselves when the test database is unreachable.
// Configure via TEST_DB_* environment variables.
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"gridbot/internal/api"
	"gridbot/internal/bot"
	"gridbot/internal/config"
	"gridbot/internal/exchange"
	"gridbot/internal/ingest"
	"gridbot/internal/repository"
	"gridbot/internal/service"
	"gridbot/internal/signal"
	"gridbot/internal/websocket"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *websocket.Hub
	Exchange *exchange.Mock
	Engine   *bot.Engine
	Feed     *ingest.PriceFeed
	Repos    *TestRepositories
	Services *TestServices
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Grid         *repository.GridRepository
	Trade        *repository.TradeRepository
	Signal       *repository.SignalRepository
	Notification *repository.NotificationRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Grid         *service.GridService
	Signal       *service.SignalService
	Trade        *service.TradeService
	Notification *service.NotificationService
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "gridbot_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// botConfig returns the application config used by integration tests
func botConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			CycleInterval:     5 * time.Second,
			PricePollInterval: time.Second,
			OrderTimeout:      30 * time.Second,
			BalanceUpdateFreq: time.Minute,
		},
		Risk: config.RiskConfig{
			InitialEquity:          34000,
			MaxDrawdownPct:         30,
			MaxAPIErrorRatePct:     2,
			APIErrorWindow:         5 * time.Minute,
			MinAPIRequests:         100,
			VolatilityThresholdPct: 5,
			VolatilityMinSamples:   10,
			VolatilityWindow:       10,
			PriceHistoryLimit:      100,
			MaxTrippedBreakers:     2,
		},
		Signals: config.SignalConfig{
			MaxPriceDeviationPct: 1,
			MaxAge:               60 * time.Second,
			HistoryLimit:         1000,
		},
	}
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	cfg := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	db, err := sql.Open(cfg.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
//
// Uses the mock exchange: orders fill instantly against in-memory state,
// no network access is needed.
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	cfg := botConfig()

	hub := websocket.NewHub()
	go hub.Run()

	exch := exchange.NewMock()
	exch.SetPrice("BTCUSDT", 97100)

	repos := &TestRepositories{
		Grid:         repository.NewGridRepository(db),
		Trade:        repository.NewTradeRepository(db),
		Signal:       repository.NewSignalRepository(db),
		Notification: repository.NewNotificationRepository(db),
	}

	risk := bot.NewRiskManager(cfg.Risk, nil)
	feed := ingest.NewPriceFeed(exch, risk, nil, cfg.Trading.PricePollInterval)

	engine := bot.NewEngine(cfg, exch, feed, risk, hub)
	engine.SetStore(repos.Grid)
	engine.SetTradeRecorder(repos.Trade)

	notificationSvc := service.NewNotificationService(repos.Notification)
	notificationSvc.SetWebSocketHub(hub)

	signalSvc := service.NewSignalService(signal.NewHandler("", cfg.Signals), engine, feed)
	signalSvc.SetStore(repos.Signal)
	signalSvc.SetWebSocketHub(hub)

	services := &TestServices{
		Grid:         service.NewGridService(repos.Grid, engine, risk),
		Signal:       signalSvc,
		Trade:        service.NewTradeService(repos.Trade),
		Notification: notificationSvc,
	}

	deps := &api.Dependencies{
		GridService:         services.Grid,
		SignalService:       services.Signal,
		NotificationService: services.Notification,
		TradeService:        services.Trade,
		Feed:                feed,
		Exchange:            exch,
		Hub:                 hub,
		ExchangeName:        exch.GetName(),
		Version:             "test",
	}
	router := api.SetupRoutes(deps)

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Exchange: exch,
		Engine:   engine,
		Feed:     feed,
		Repos:    repos,
		Services: services,
		Cleanup:  cleanup,
	}
}

// initTestTables creates tables for testing
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS grids (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) UNIQUE NOT NULL,
			lower_bound DECIMAL(20, 8) NOT NULL,
			upper_bound DECIMAL(20, 8) NOT NULL,
			level_count INT NOT NULL,
			total_capital DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) DEFAULT 0,
			take_profit DECIMAL(20, 8) DEFAULT 0,
			btc_filter_enabled BOOLEAN DEFAULT false,
			status VARCHAR(20) DEFAULT 'stopped',
			realized_pnl DECIMAL(20, 8) DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(10) NOT NULL,
			level_index INT NOT NULL DEFAULT 0,
			price DECIMAL(20, 8) NOT NULL,
			qty DECIMAL(20, 8) NOT NULL,
			pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			order_id VARCHAR(64) DEFAULT '',
			executed_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			action VARCHAR(10) NOT NULL,
			price DECIMAL(20, 8) DEFAULT 0,
			zone VARCHAR(32) DEFAULT '',
			message TEXT DEFAULT '',
			validated BOOLEAN DEFAULT false,
			received_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			symbol VARCHAR(20),
			message TEXT NOT NULL,
			meta JSONB
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"trades",
		"signals",
		"notifications",
		"grids",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}

// TruncateTable truncates a specific table for testing
func TruncateTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tableName))
	return err
}
