package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка структурированного логирования (zap)
//
// Назначение:
// Единая инициализация logger для всех компонентов бота.
//
// Возможности:
// - Форматы: json (production), text (console)
// - Уровни: debug, info, warn, error, fatal
// - Вывод: stderr по умолчанию, либо файл (Output)
// - Глобальный logger для мест, куда неудобно прокидывать зависимость

// LogConfig - конфигурация логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // путь к файлу; пусто = stderr
	Development bool   // режим разработки (stacktrace на warn, caller)
}

// Logger оборачивает zap.Logger и его sugar-вариант
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// parseLevel преобразует строковый уровень в zapcore.Level
// Неизвестные значения приводят к info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создает logger по конфигурации
//
// При некорректном Output (нет директории, нет прав) делает fallback
// на stderr вместо паники - бот должен стартовать в любом случае
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	// Конфигурация encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	// Выбор назначения вывода
	sink := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			sink = zapcore.AddSync(file)
		}
		// При ошибке остаемся на stderr
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// Sugar возвращает sugar-вариант logger (printf-style API)
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// With возвращает новый logger с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// ============ Контекстные helpers ============

// WithComponent добавляет название компонента (engine, risk, ingest, signal)
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(zap.String("component", component))
}

// WithExchange добавляет название биржи
func (l *Logger) WithExchange(exchange string) *Logger {
	return l.With(zap.String("exchange", exchange))
}

// WithSymbol добавляет торговый символ
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(zap.String("symbol", symbol))
}

// WithLevel добавляет индекс уровня сетки
func (l *Logger) WithLevel(level int) *Logger {
	return l.With(zap.Int("level", level))
}

// ============ Глобальный logger ============

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitGlobalLogger инициализирует и устанавливает глобальный logger
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный logger
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный logger
// Если не инициализирован - создает logger по умолчанию (info, json)
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============ Глобальные функции логирования ============

// Debug логирует через глобальный logger
func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Debug(msg, fields...)
}

// Info логирует через глобальный logger
func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Info(msg, fields...)
}

// Warn логирует через глобальный logger
func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Warn(msg, fields...)
}

// Error логирует через глобальный logger
func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Error(msg, fields...)
}

// Fatal логирует и завершает процесс
func Fatal(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Fatal(msg, fields...)
}

// ============ Printf-style варианты (через sugar) ============

// Debugf логирует с форматированием
func Debugf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Debugf(template, args...)
}

// Infof логирует с форматированием
func Infof(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Infof(template, args...)
}

// Warnf логирует с форматированием
func Warnf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Warnf(template, args...)
}

// Errorf логирует с форматированием
func Errorf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Errorf(template, args...)
}
