package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ производительности в production

// ============ Метрики латентности ============

// CycleDuration - длительность одного прохода торгового цикла по сетке
var CycleDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "cycle_duration_ms",
		Help:      "Duration of a single grid trading cycle in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"symbol"},
)

// OrderExecutionLatency - время отправки ордера на биржу
var OrderExecutionLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "order_execution_latency_ms",
		Help:      "Time to submit order to exchange in milliseconds",
		Buckets:   []float64{50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"exchange", "side"},
)

// ============ Счётчики событий ============

// EventsProcessed - количество обработанных событий по типам
var EventsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "events_processed_total",
		Help:      "Total number of processed events",
	},
	[]string{"type"}, // price_update, fill_check, order_placed, signal
)

// OrdersPlaced - выставленные лимитные ордера
var OrdersPlaced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "orders_placed_total",
		Help:      "Total number of limit orders placed",
	},
	[]string{"symbol", "side"},
)

// FillsTotal - исполненные ордера по уровням сетки
var FillsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "fills_total",
		Help:      "Total number of filled grid orders",
	},
	[]string{"symbol", "side"},
)

// PnlTotal - суммарный реализованный PNL в USDT
var PnlTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "pnl_total_usdt",
		Help:      "Total realized PnL in USDT",
	},
)

// ============ Метрики состояния ============

// ActiveGrids - количество сеток по статусам
var ActiveGrids = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "active_grids",
		Help:      "Number of grids by status",
	},
	[]string{"status"}, // running, paused, stopped
)

// GridFilledLevels - количество заполненных уровней по сеткам
var GridFilledLevels = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "grid_filled_levels",
		Help:      "Number of filled levels per grid",
	},
	[]string{"symbol"},
)

// ExchangeConnections - статус подключения к бирже
var ExchangeConnections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "exchange",
		Name:      "connection_status",
		Help:      "Exchange connection status (1=connected, 0=disconnected)",
	},
	[]string{"exchange"},
)

// ExchangeBalance - баланс на бирже
var ExchangeBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "exchange",
		Name:      "balance_usdt",
		Help:      "Exchange balance in USDT",
	},
	[]string{"exchange"},
)

// ============ Метрики производительности ============

// BufferOverflows - переполнения буферов каналов
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"}, // notification, price_feed
)

// BufferBacklog - заполненность буферов каналов
var BufferBacklog = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "trading",
		Name:      "buffer_backlog",
		Help:      "Current channel buffer fill level",
	},
	[]string{"buffer"},
)

// ============ Метрики риска ============

// StopLossTriggered - срабатывания стоп-лосса по сеткам
var StopLossTriggered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "risk",
		Name:      "stop_loss_triggered_total",
		Help:      "Number of stop loss triggers",
	},
	[]string{"symbol"},
)

// KillSwitchState - состояние аварийного выключателя (1=triggered)
var KillSwitchState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "risk",
		Name:      "kill_switch_state",
		Help:      "Kill switch state (1=triggered, 0=normal)",
	},
)

// DrawdownPercent - текущая просадка от стартового капитала
var DrawdownPercent = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "risk",
		Name:      "drawdown_percent",
		Help:      "Current drawdown from initial equity in percent",
	},
)

// VolatilityBreakers - количество инструментов с сорванным breaker
var VolatilityBreakers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "risk",
		Name:      "volatility_breakers_tripped",
		Help:      "Number of instruments with tripped volatility breaker",
	},
)

// APIErrorRate - доля ошибок API в скользящем окне
var APIErrorRate = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gridbot",
		Subsystem: "risk",
		Name:      "api_error_rate_percent",
		Help:      "API error rate over the rolling window in percent",
	},
)

// ============ Метрики сигналов ============

// SignalsReceived - принятые вебхук-сигналы
var SignalsReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gridbot",
		Subsystem: "signals",
		Name:      "received_total",
		Help:      "Total number of webhook signals received",
	},
	[]string{"action", "validated"}, // validated: yes, no
)

// ============ Вспомогательные функции ============

// RecordCycle записывает длительность прохода торгового цикла
func RecordCycle(symbol string, durationMs float64) {
	CycleDuration.WithLabelValues(symbol).Observe(durationMs)
}

// RecordOrderPlaced записывает выставленный ордер
func RecordOrderPlaced(symbol, side string) {
	OrdersPlaced.WithLabelValues(symbol, side).Inc()
	EventsProcessed.WithLabelValues("order_placed").Inc()
}

// RecordFill записывает исполнение ордера
func RecordFill(symbol, side string, pnl float64) {
	FillsTotal.WithLabelValues(symbol, side).Inc()
	if pnl != 0 {
		PnlTotal.Add(pnl)
	}
}

// RecordBufferOverflow записывает переполнение буфера
func RecordBufferOverflow(bufferName string) {
	BufferOverflows.WithLabelValues(bufferName).Inc()
}

// RecordBufferBacklog записывает заполненность буфера
func RecordBufferBacklog(bufferName string, capacity, length int) {
	if capacity <= 0 {
		return
	}
	BufferBacklog.WithLabelValues(bufferName).Set(float64(length))
}

// UpdateGridCounts обновляет счётчики сеток по статусам
func UpdateGridCounts(running, paused, stopped int) {
	ActiveGrids.WithLabelValues("running").Set(float64(running))
	ActiveGrids.WithLabelValues("paused").Set(float64(paused))
	ActiveGrids.WithLabelValues("stopped").Set(float64(stopped))
}

// UpdateExchangeStatus обновляет статус биржи
func UpdateExchangeStatus(exchange string, connected bool, balance float64) {
	if connected {
		ExchangeConnections.WithLabelValues(exchange).Set(1)
	} else {
		ExchangeConnections.WithLabelValues(exchange).Set(0)
	}
	ExchangeBalance.WithLabelValues(exchange).Set(balance)
}

// RecordStopLoss записывает срабатывание стоп-лосса
func RecordStopLoss(symbol string) {
	StopLossTriggered.WithLabelValues(symbol).Inc()
}

// RecordSignal записывает принятый сигнал
func RecordSignal(action string, validated bool) {
	validatedStr := "no"
	if validated {
		validatedStr = "yes"
	}
	SignalsReceived.WithLabelValues(action, validatedStr).Inc()
	EventsProcessed.WithLabelValues("signal").Inc()
}
