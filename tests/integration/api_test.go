// API Integration Tests
//
// These tests verify the complete HTTP request/response cycle through all
// layers: Handler -> Service -> Engine/Repository -> Database.
// The mock exchange fills orders against in-memory state, so no network
// access is needed beyond the test database.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"gridbot/internal/models"
)

// doJSON sends a JSON request and decodes the response body into out
func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// ============================================================
// Grid Lifecycle API Tests
// ============================================================

func TestGridAPI_Lifecycle(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	createReq := map[string]interface{}{
		"symbol":        "BTCUSDT",
		"lower_bound":   95500,
		"upper_bound":   99000,
		"level_count":   12,
		"total_capital": 25000,
		"stop_loss":     94800,
	}
	var created models.GridConfig
	if code := doJSON(t, http.MethodPost, base+"/grids", createReq, &created); code != http.StatusCreated {
		t.Fatalf("create grid: status %d", code)
	}
	if created.Status != models.GridStatusStopped {
		t.Errorf("new grid status = %q, want stopped", created.Status)
	}

	// Дубликат отклоняется
	if code := doJSON(t, http.MethodPost, base+"/grids", createReq, nil); code != http.StatusConflict {
		t.Errorf("duplicate grid: status %d, want 409", code)
	}

	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/start", nil, nil); code != http.StatusOK {
		t.Fatalf("start grid: status %d", code)
	}

	var runtime models.GridRuntime
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusRunning {
		t.Errorf("grid status after start = %q, want running", runtime.Status)
	}
	if runtime.PendingBuys == 0 {
		t.Error("running grid should have pending buy orders")
	}

	var status struct {
		Exchange     string  `json:"exchange"`
		GridsTotal   int     `json:"grids_total"`
		GridsRunning int     `json:"grids_running"`
		TotalPnl     float64 `json:"total_pnl"`
	}
	doJSON(t, http.MethodGet, base+"/status", nil, &status)
	if status.GridsTotal != 1 || status.GridsRunning != 1 {
		t.Errorf("unexpected status counts: %+v", status)
	}
	if status.Exchange != ts.Exchange.GetName() {
		t.Errorf("exchange = %q, want %q", status.Exchange, ts.Exchange.GetName())
	}

	// Повторный запуск running сетки - невалидный переход
	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/start", nil, nil); code != http.StatusConflict {
		t.Errorf("start running grid: status %d, want 409", code)
	}

	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/pause", nil, nil); code != http.StatusOK {
		t.Fatalf("pause grid: status %d", code)
	}
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusPaused {
		t.Errorf("grid status after pause = %q, want paused", runtime.Status)
	}

	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/resume", nil, nil); code != http.StatusOK {
		t.Fatalf("resume grid: status %d", code)
	}

	// Удаление торгующей сетки запрещено
	if code := doJSON(t, http.MethodDelete, base+"/grids/BTCUSDT", nil, nil); code != http.StatusConflict {
		t.Errorf("delete running grid: status %d, want 409", code)
	}

	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/stop", nil, nil); code != http.StatusOK {
		t.Fatalf("stop grid: status %d", code)
	}
	if code := doJSON(t, http.MethodDelete, base+"/grids/BTCUSDT", nil, nil); code != http.StatusOK {
		t.Fatalf("delete grid: status %d", code)
	}
	if code := doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, nil); code != http.StatusNotFound {
		t.Errorf("get deleted grid: status %d, want 404", code)
	}
}

func TestGridAPI_Validation(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "inverted bounds",
			body: map[string]interface{}{
				"symbol": "BTCUSDT", "lower_bound": 99000, "upper_bound": 95500,
				"level_count": 12, "total_capital": 25000,
			},
		},
		{
			name: "zero levels",
			body: map[string]interface{}{
				"symbol": "BTCUSDT", "lower_bound": 95500, "upper_bound": 99000,
				"level_count": 0, "total_capital": 25000,
			},
		},
		{
			name: "missing symbol",
			body: map[string]interface{}{
				"lower_bound": 95500, "upper_bound": 99000,
				"level_count": 12, "total_capital": 25000,
			},
		},
		{
			name: "negative capital",
			body: map[string]interface{}{
				"symbol": "BTCUSDT", "lower_bound": 95500, "upper_bound": 99000,
				"level_count": 12, "total_capital": -100,
			},
		},
		{
			name: "stop loss above lower bound",
			body: map[string]interface{}{
				"symbol": "BTCUSDT", "lower_bound": 95500, "upper_bound": 99000,
				"level_count": 12, "total_capital": 25000, "stop_loss": 96000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, base+"/grids", tt.body, nil); code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", code)
			}
		})
	}
}

func TestGridAPI_Rebalance(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	createReq := map[string]interface{}{
		"symbol":        "BTCUSDT",
		"lower_bound":   95500,
		"upper_bound":   99000,
		"level_count":   12,
		"total_capital": 25000,
	}
	if code := doJSON(t, http.MethodPost, base+"/grids", createReq, nil); code != http.StatusCreated {
		t.Fatalf("create grid: status %d", code)
	}
	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/start", nil, nil); code != http.StatusOK {
		t.Fatalf("start grid: status %d", code)
	}

	rebalance := map[string]interface{}{
		"lower_bound": 96000,
		"upper_bound": 99500,
	}
	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/rebalance", rebalance, nil); code != http.StatusOK {
		t.Fatalf("rebalance: status %d", code)
	}

	var runtime models.GridRuntime
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusRunning {
		t.Errorf("rebalance should keep the grid running, got %q", runtime.Status)
	}
	for _, lvl := range runtime.Levels {
		if lvl.Price < 96000 || lvl.Price > 99500 {
			t.Errorf("level price %v outside rebalanced bounds [96000, 99500]", lvl.Price)
		}
	}
}

// ============================================================
// Webhook Signal Tests
// ============================================================

func TestSignalAPI_Webhook(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	// Наполняем кэш цен до обработки сигнала
	if _, err := ts.Feed.FetchPrice(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("failed to warm price cache: %v", err)
	}

	createReq := map[string]interface{}{
		"symbol":        "BTCUSDT",
		"lower_bound":   95500,
		"upper_bound":   99000,
		"level_count":   12,
		"total_capital": 25000,
	}
	if code := doJSON(t, http.MethodPost, base+"/grids", createReq, nil); code != http.StatusCreated {
		t.Fatalf("create grid: status %d", code)
	}

	// Buy сигнал поднимает остановленную сетку
	signalBody := map[string]interface{}{
		"symbol": "BTCUSDT",
		"action": "buy",
		"price":  97100,
	}
	var result struct {
		Executed   bool   `json:"executed"`
		GridAction string `json:"grid_action"`
		Reason     string `json:"reason"`
	}
	if code := doJSON(t, http.MethodPost, base+"/webhook/tradingview", signalBody, &result); code != http.StatusOK {
		t.Fatalf("webhook: status %d", code)
	}
	if result.GridAction != models.GridActionResume {
		t.Errorf("grid action = %q, want resume", result.GridAction)
	}
	if !result.Executed {
		t.Fatalf("signal not executed, reason: %q", result.Reason)
	}

	var runtime models.GridRuntime
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusRunning {
		t.Errorf("grid status after buy signal = %q, want running", runtime.Status)
	}

	// Sell сигнал ставит на паузу
	signalBody["action"] = "sell"
	if code := doJSON(t, http.MethodPost, base+"/webhook/tradingview", signalBody, &result); code != http.StatusOK {
		t.Fatalf("webhook sell: status %d", code)
	}
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusPaused {
		t.Errorf("grid status after sell signal = %q, want paused", runtime.Status)
	}

	// Close сигнал останавливает
	signalBody["action"] = "close"
	if code := doJSON(t, http.MethodPost, base+"/webhook/tradingview", signalBody, &result); code != http.StatusOK {
		t.Fatalf("webhook close: status %d", code)
	}
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusStopped {
		t.Errorf("grid status after close signal = %q, want stopped", runtime.Status)
	}

	var history []*models.Signal
	doJSON(t, http.MethodGet, base+"/signals", nil, &history)
	if len(history) != 3 {
		t.Errorf("expected 3 signals in history, got %d", len(history))
	}

	var stats models.SignalStats
	doJSON(t, http.MethodGet, base+"/signals/stats", nil, &stats)
	if stats.Total != 3 || stats.Executed != 3 {
		t.Errorf("signal stats = %+v, want 3 total, 3 executed", stats)
	}
}

func TestSignalAPI_Webhook_PriceDeviation(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	if _, err := ts.Feed.FetchPrice(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("failed to warm price cache: %v", err)
	}

	createReq := map[string]interface{}{
		"symbol":        "BTCUSDT",
		"lower_bound":   95500,
		"upper_bound":   99000,
		"level_count":   12,
		"total_capital": 25000,
	}
	if code := doJSON(t, http.MethodPost, base+"/grids", createReq, nil); code != http.StatusCreated {
		t.Fatalf("create grid: status %d", code)
	}

	// Цена сигнала на 10% ниже рынка - сигнал игнорируется
	signalBody := map[string]interface{}{
		"symbol": "BTCUSDT",
		"action": "buy",
		"price":  87000,
	}
	var result struct {
		Executed bool   `json:"executed"`
		Reason   string `json:"reason"`
	}
	if code := doJSON(t, http.MethodPost, base+"/webhook/tradingview", signalBody, &result); code != http.StatusOK {
		t.Fatalf("webhook: status %d", code)
	}
	if result.Executed {
		t.Error("deviating signal should not execute")
	}
	if result.Reason == "" {
		t.Error("skip reason should be reported")
	}

	var runtime models.GridRuntime
	doJSON(t, http.MethodGet, base+"/grids/BTCUSDT", nil, &runtime)
	if runtime.Status != models.GridStatusStopped {
		t.Errorf("grid status = %q, want stopped", runtime.Status)
	}
}

// ============================================================
// Risk API Tests
// ============================================================

func TestRiskAPI_KillSwitch(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	ts.Exchange.SetPrice("ETHUSDT", 3420)

	grids := []map[string]interface{}{
		{
			"symbol": "BTCUSDT", "lower_bound": 95500, "upper_bound": 99000,
			"level_count": 12, "total_capital": 25000,
		},
		{
			"symbol": "ETHUSDT", "lower_bound": 3200, "upper_bound": 3600,
			"level_count": 8, "total_capital": 5000,
		},
	}
	for _, g := range grids {
		if code := doJSON(t, http.MethodPost, base+"/grids", g, nil); code != http.StatusCreated {
			t.Fatalf("create grid %v: status %d", g["symbol"], code)
		}
		url := fmt.Sprintf("%s/grids/%v/start", base, g["symbol"])
		if code := doJSON(t, http.MethodPost, url, nil, nil); code != http.StatusOK {
			t.Fatalf("start grid %v: status %d", g["symbol"], code)
		}
	}

	// Kill switch останавливает все сетки
	if code := doJSON(t, http.MethodPost, base+"/risk/kill", map[string]string{"reason": "integration test"}, nil); code != http.StatusOK {
		t.Fatalf("kill: status %d", code)
	}

	var risk models.RiskStatus
	doJSON(t, http.MethodGet, base+"/risk", nil, &risk)
	if !risk.KillSwitch.Triggered {
		t.Error("kill switch should be triggered")
	}
	if risk.KillSwitch.Reason != "integration test" {
		t.Errorf("kill reason = %q", risk.KillSwitch.Reason)
	}

	var all []*models.GridRuntime
	doJSON(t, http.MethodGet, base+"/grids", nil, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 grids, got %d", len(all))
	}
	for _, g := range all {
		if g.Status != models.GridStatusStopped {
			t.Errorf("grid %s status = %q, want stopped after kill", g.Symbol, g.Status)
		}
	}

	// Запуск при сорванной защелке отклоняется
	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/start", nil, nil); code == http.StatusOK {
		t.Error("start should fail while kill switch is triggered")
	}

	// Сброс защелки возвращает управление оператору
	if code := doJSON(t, http.MethodPost, base+"/risk/reset-kill", nil, nil); code != http.StatusOK {
		t.Fatalf("reset-kill: status %d", code)
	}
	doJSON(t, http.MethodGet, base+"/risk", nil, &risk)
	if risk.KillSwitch.Triggered {
		t.Error("kill switch should be reset")
	}
	if code := doJSON(t, http.MethodPost, base+"/grids/BTCUSDT/start", nil, nil); code != http.StatusOK {
		t.Errorf("start after reset: status %d", code)
	}
}

func TestRiskAPI_Status(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	var risk models.RiskStatus
	if code := doJSON(t, http.MethodGet, ts.Server.URL+"/api/v1/risk", nil, &risk); code != http.StatusOK {
		t.Fatalf("get risk status: status %d", code)
	}
	if risk.InitialEquity != 34000 {
		t.Errorf("initial equity = %v, want 34000", risk.InitialEquity)
	}
	if risk.KillSwitch.Triggered {
		t.Error("kill switch should not be triggered initially")
	}
}

// ============================================================
// Trades and Notifications API Tests
// ============================================================

func TestTradeAPI_EmptyHistory(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	var trades []*models.Trade
	if code := doJSON(t, http.MethodGet, base+"/trades", nil, &trades); code != http.StatusOK {
		t.Fatalf("get trades: status %d", code)
	}
	if len(trades) != 0 {
		t.Errorf("expected empty trades, got %d", len(trades))
	}

	var stats models.TradeStats
	if code := doJSON(t, http.MethodGet, base+"/trades/stats?period=all", nil, &stats); code != http.StatusOK {
		t.Fatalf("get trade stats: status %d", code)
	}
	if stats.TotalTrades != 0 {
		t.Errorf("expected zero trades in stats, got %d", stats.TotalTrades)
	}
}

func TestNotificationAPI_List(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	notification := &models.Notification{
		Type:     models.NotificationTypeFill,
		Severity: models.SeverityInfo,
		Symbol:   "BTCUSDT",
		Message:  "тестовое уведомление",
	}
	if err := ts.Repos.Notification.Create(context.Background(), notification); err != nil {
		t.Fatalf("failed to create notification: %v", err)
	}

	var resp struct {
		Notifications []*models.Notification `json:"notifications"`
		Total         int                    `json:"total"`
	}
	if code := doJSON(t, http.MethodGet, ts.Server.URL+"/api/v1/notifications", nil, &resp); code != http.StatusOK {
		t.Fatalf("get notifications: status %d", code)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 notification, got %d", resp.Total)
	}
	if resp.Notifications[0].Type != models.NotificationTypeFill {
		t.Errorf("notification type = %q, want FILL", resp.Notifications[0].Type)
	}
}

// ============================================================
// Market Data and Health Tests
// ============================================================

func TestMarketAPI_Klines(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	base := ts.Server.URL + "/api/v1"

	resp, err := http.Get(base + "/klines/BTCUSDT?interval=60&limit=10")
	if err != nil {
		t.Fatalf("klines request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("klines status = %d", resp.StatusCode)
	}

	var klines []*models.Kline
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		t.Fatalf("failed to decode klines: %v", err)
	}
	if len(klines) == 0 {
		t.Error("expected at least one kline from mock exchange")
	}
}

func TestAPI_Health(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	resp, err := http.Get(ts.Server.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}
