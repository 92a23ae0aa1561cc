package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gridbot/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Exchange ExchangeConfig
	Trading  TradingConfig
	Risk     RiskConfig
	Signals  SignalConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
//
// EncryptionKey опционален: если задан, API_SECRET в окружении
// считается зашифрованным (AES-256-GCM, base64) и расшифровывается
// при загрузке конфигурации.
type SecurityConfig struct {
	WebhookSecret     string // подпись вебхуков TradingView (HMAC-SHA256)
	EncryptionKey     string
	DebugPasswordHash string // bcrypt хэш пароля для debug эндпоинтов
}

// ExchangeConfig - подключение к бирже
type ExchangeConfig struct {
	Name              string // bybit или mock (бумажная торговля)
	APIKey            string
	APISecret         string
	RequestsPerSecond float64
}

// TradingConfig - параметры торгового цикла
type TradingConfig struct {
	CycleInterval     time.Duration // проход по running сеткам
	PricePollInterval time.Duration // опрос цен в PriceFeed
	OrderTimeout      time.Duration // таймаут отправки ордера
	BalanceUpdateFreq time.Duration // обновление баланса для UI
}

// RiskConfig - пороги риск-менеджера
type RiskConfig struct {
	InitialEquity          float64       // стартовый капитал для расчета просадки
	MaxDrawdownPct         float64       // просадка, срывающая kill switch
	MaxAPIErrorRatePct     float64       // доля ошибок API в окне
	APIErrorWindow         time.Duration // скользящее окно учета запросов
	MinAPIRequests         int           // порог значимости статистики ошибок
	VolatilityThresholdPct float64       // максимальное отклонение от средней
	VolatilityMinSamples   int           // минимум цен для оценки волатильности
	VolatilityWindow       int           // сколько последних цен оценивать
	PriceHistoryLimit      int           // глубина хранения истории цен
	MaxTrippedBreakers     int           // инструментов с сорванным breaker для kill
}

// SignalConfig - обработка вебхук-сигналов
type SignalConfig struct {
	MaxPriceDeviationPct float64       // расхождение цены сигнала с рынком
	MaxAge               time.Duration // максимальный возраст сигнала
	HistoryLimit         int           // размер кольца истории сигналов
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "gridbot"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			WebhookSecret:     getEnv("TRADINGVIEW_WEBHOOK_SECRET", ""),
			EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),
			DebugPasswordHash: getEnv("DEBUG_PASSWORD_HASH", ""),
		},
		Exchange: ExchangeConfig{
			Name:              getEnv("EXCHANGE", "mock"),
			APIKey:            getEnv("API_KEY", ""),
			APISecret:         getEnv("API_SECRET", ""),
			RequestsPerSecond: getEnvAsFloat("EXCHANGE_RPS", 10),
		},
		Trading: TradingConfig{
			CycleInterval:     getEnvAsDuration("CYCLE_INTERVAL", 5*time.Second),
			PricePollInterval: getEnvAsDuration("PRICE_POLL_INTERVAL", 1*time.Second),
			OrderTimeout:      getEnvAsDuration("ORDER_TIMEOUT", 30*time.Second),
			BalanceUpdateFreq: getEnvAsDuration("BALANCE_UPDATE_FREQ", 1*time.Minute),
		},
		Risk: RiskConfig{
			InitialEquity:          getEnvAsFloat("INITIAL_EQUITY", 34000),
			MaxDrawdownPct:         getEnvAsFloat("MAX_DRAWDOWN_PCT", 30),
			MaxAPIErrorRatePct:     getEnvAsFloat("MAX_API_ERROR_RATE_PCT", 2),
			APIErrorWindow:         getEnvAsDuration("API_ERROR_WINDOW", 5*time.Minute),
			MinAPIRequests:         getEnvAsInt("MIN_API_REQUESTS", 100),
			VolatilityThresholdPct: getEnvAsFloat("VOLATILITY_THRESHOLD_PCT", 5),
			VolatilityMinSamples:   getEnvAsInt("VOLATILITY_MIN_SAMPLES", 10),
			VolatilityWindow:       getEnvAsInt("VOLATILITY_WINDOW", 10),
			PriceHistoryLimit:      getEnvAsInt("PRICE_HISTORY_LIMIT", 100),
			MaxTrippedBreakers:     getEnvAsInt("MAX_TRIPPED_BREAKERS", 2),
		},
		Signals: SignalConfig{
			MaxPriceDeviationPct: getEnvAsFloat("SIGNAL_MAX_PRICE_DEVIATION_PCT", 1),
			MaxAge:               getEnvAsDuration("SIGNAL_MAX_AGE", 60*time.Second),
			HistoryLimit:         getEnvAsInt("SIGNAL_HISTORY_LIMIT", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	// Если задан ключ шифрования, API_SECRET хранится зашифрованным
	if cfg.Security.EncryptionKey != "" && cfg.Exchange.APISecret != "" {
		secret, err := crypto.DecryptWithKeyString(cfg.Exchange.APISecret, cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt API_SECRET: %w", err)
		}
		cfg.Exchange.APISecret = secret
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	if c.Security.EncryptionKey != "" && len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	// На реальной бирже ключи обязательны, mock работает без них
	if c.Exchange.Name != "mock" {
		if c.Exchange.APIKey == "" {
			return fmt.Errorf("API_KEY is required for exchange %s", c.Exchange.Name)
		}
		if c.Exchange.APISecret == "" {
			return fmt.Errorf("API_SECRET is required for exchange %s", c.Exchange.Name)
		}
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Exchange.RequestsPerSecond <= 0 {
		return fmt.Errorf("EXCHANGE_RPS must be positive, got %v", c.Exchange.RequestsPerSecond)
	}

	if c.Trading.CycleInterval <= 0 {
		return fmt.Errorf("CYCLE_INTERVAL must be positive, got %v", c.Trading.CycleInterval)
	}

	if c.Trading.PricePollInterval <= 0 {
		return fmt.Errorf("PRICE_POLL_INTERVAL must be positive, got %v", c.Trading.PricePollInterval)
	}

	if c.Trading.OrderTimeout <= 0 {
		return fmt.Errorf("ORDER_TIMEOUT must be positive, got %v", c.Trading.OrderTimeout)
	}

	if c.Risk.InitialEquity <= 0 {
		return fmt.Errorf("INITIAL_EQUITY must be positive, got %v", c.Risk.InitialEquity)
	}

	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct > 100 {
		return fmt.Errorf("MAX_DRAWDOWN_PCT must be in (0, 100], got %v", c.Risk.MaxDrawdownPct)
	}

	if c.Risk.MaxAPIErrorRatePct <= 0 {
		return fmt.Errorf("MAX_API_ERROR_RATE_PCT must be positive, got %v", c.Risk.MaxAPIErrorRatePct)
	}

	if c.Risk.VolatilityMinSamples < 2 {
		return fmt.Errorf("VOLATILITY_MIN_SAMPLES must be at least 2, got %d", c.Risk.VolatilityMinSamples)
	}

	if c.Risk.PriceHistoryLimit < c.Risk.VolatilityWindow {
		return fmt.Errorf("PRICE_HISTORY_LIMIT (%d) must not be less than VOLATILITY_WINDOW (%d)",
			c.Risk.PriceHistoryLimit, c.Risk.VolatilityWindow)
	}

	if c.Signals.HistoryLimit < 1 {
		return fmt.Errorf("SIGNAL_HISTORY_LIMIT must be at least 1, got %d", c.Signals.HistoryLimit)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
