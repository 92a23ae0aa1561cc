package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Повторные попытки с экспоненциальным backoff и jitter.
// Используется клиентом биржи: сетевые сбои повторяются,
// бизнес-ошибки (retCode != 0) оборачиваются в Permanent и
// возвращаются сразу.

// Config - параметры повторов
//
// Задержка: min(InitialDelay * Multiplier^attempt, MaxDelay) +- jitter
type Config struct {
	// MaxRetries - число попыток, включая первую
	// <= 0 означает без ограничения
	MaxRetries int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFactor размывает задержку на +-долю (0..1), чтобы
	// параллельные клиенты не повторяли запросы синхронно
	JitterFactor float64

	// RetryIf решает, повторять ли ошибку. nil повторяет все
	RetryIf func(error) bool

	// OnRetry вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig - 4 попытки: 100ms, 200ms, 400ms
func DefaultConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NetworkConfig - 4 попытки с длинными паузами: 1s, 2s, 4s
//
// Под REST биржи: короткие паузы при сетевых сбоях только
// множат нагрузку на и так деградировавший endpoint
func NetworkConfig() Config {
	return Config{
		MaxRetries:   4,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

func (c *Config) validate() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

func (c *Config) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.JitterFactor > 0 {
		d += d * c.JitterFactor * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do выполняет операцию с повторами
//
// Возвращает nil при первом успехе, иначе последнюю ошибку.
// Отмена контекста прерывает ожидание между попытками.
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult выполняет операцию с результатом и повторами
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var lastErr error
	var zero T

	for attempt := 0; cfg.MaxRetries <= 0 || attempt < cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}
		if cfg.MaxRetries > 0 && attempt >= cfg.MaxRetries-1 {
			break
		}

		delay := cfg.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// RetryableError - ошибка, сама знающая, можно ли ее повторять
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable проверяет, имеет ли смысл повторять ошибку
//
// Ошибки без явной классификации повторяются: сетевой сбой
// чаще всего выглядит как анонимная ошибка транспорта
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	type temporary interface {
		Temporary() bool
	}
	var temp temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}

	return true
}

// PermanentError помечает ошибку как неповторяемую
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string   { return e.Err.Error() }
func (e *PermanentError) Unwrap() error   { return e.Err }
func (e *PermanentError) Retryable() bool { return false }

// Permanent оборачивает ошибку, которую повторять бессмысленно
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// TemporaryError помечает ошибку как временную
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string   { return e.Err.Error() }
func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Retryable() bool { return true }
func (e *TemporaryError) Temporary() bool { return true }

// Temporary оборачивает ошибку, которую стоит повторить
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}
