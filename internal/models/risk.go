package models

import "time"

// KillSwitchState представляет состояние аварийного выключателя
//
// Выключатель - одностороння защелка: после срабатывания торговля
// останавливается до явного сброса оператором
type KillSwitchState struct {
	Triggered   bool       `json:"triggered"`
	Reason      string     `json:"reason,omitempty"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
}

// RiskStatus - снимок состояния риск-менеджера для API
type RiskStatus struct {
	KillSwitch        KillSwitchState    `json:"kill_switch"`
	InitialEquity     float64            `json:"initial_equity"`
	CurrentEquity     float64            `json:"current_equity"`
	DrawdownPct       float64            `json:"drawdown_pct"`
	APIRequests       int                `json:"api_requests"`        // всего запросов с запуска
	APIErrors         int                `json:"api_errors"`          // всего ошибок с запуска
	APIErrorRatePct   float64            `json:"api_error_rate_pct"`  // накопленная доля ошибок
	RecentAPIErrors   int                `json:"recent_api_errors"`   // ошибки в 5-минутном окне
	TrippedBreakers   []string           `json:"tripped_breakers"`   // инструменты с сработавшим предохранителем
	VolatilityBySym   map[string]float64 `json:"volatility_by_symbol"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
