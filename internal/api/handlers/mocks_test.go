package handlers

import (
	"context"
	"errors"
	"time"

	"gridbot/internal/models"
	"gridbot/internal/service"
)

// ============ Общие ошибки для mock сервисов ============

var ErrMockDatabase = errors.New("mock database error")

// ============ MockGridService ============

// MockGridService - stateful mock GridServiceInterface для handler тестов
type MockGridService struct {
	grids      map[string]*models.GridRuntime
	configs    map[string]*models.GridConfig
	riskStatus *models.RiskStatus
	killed     []string

	// Инъекция ошибок: ключ - имя операции
	errs map[string]error
}

func NewMockGridService() *MockGridService {
	return &MockGridService{
		grids:   make(map[string]*models.GridRuntime),
		configs: make(map[string]*models.GridConfig),
		riskStatus: &models.RiskStatus{
			InitialEquity: 34000,
			CurrentEquity: 34000,
			UpdatedAt:     time.Now(),
		},
		errs: make(map[string]error),
	}
}

func (m *MockGridService) SetError(op string, err error) {
	m.errs[op] = err
}

func (m *MockGridService) AddGrid(symbol, status string) {
	m.grids[symbol] = &models.GridRuntime{Symbol: symbol, Status: status}
	m.configs[symbol] = &models.GridConfig{Symbol: symbol, Status: status}
}

func (m *MockGridService) CreateGrid(ctx context.Context, cfg *models.GridConfig) error {
	if err := m.errs["create"]; err != nil {
		return err
	}
	if _, ok := m.grids[cfg.Symbol]; ok {
		return service.ErrGridAlreadyExists
	}
	cfg.Status = models.GridStatusStopped
	m.AddGrid(cfg.Symbol, models.GridStatusStopped)
	return nil
}

func (m *MockGridService) GetGrid(symbol string) (*models.GridRuntime, error) {
	if err := m.errs["get"]; err != nil {
		return nil, err
	}
	rt, ok := m.grids[symbol]
	if !ok {
		return nil, service.ErrGridNotFound
	}
	return rt, nil
}

func (m *MockGridService) ListGrids() []*models.GridRuntime {
	out := make([]*models.GridRuntime, 0, len(m.grids))
	for _, rt := range m.grids {
		out = append(out, rt)
	}
	return out
}

func (m *MockGridService) GetGridConfig(ctx context.Context, symbol string) (*models.GridConfig, error) {
	cfg, ok := m.configs[symbol]
	if !ok {
		return nil, service.ErrGridNotFound
	}
	return cfg, nil
}

func (m *MockGridService) DeleteGrid(ctx context.Context, symbol string) error {
	if err := m.errs["delete"]; err != nil {
		return err
	}
	rt, ok := m.grids[symbol]
	if !ok {
		return service.ErrGridNotFound
	}
	if rt.Status != models.GridStatusStopped {
		return service.ErrGridNotStopped
	}
	delete(m.grids, symbol)
	delete(m.configs, symbol)
	return nil
}

func (m *MockGridService) setStatus(symbol, status string) error {
	rt, ok := m.grids[symbol]
	if !ok {
		return service.ErrGridNotFound
	}
	rt.Status = status
	return nil
}

func (m *MockGridService) StartGrid(ctx context.Context, symbol string) error {
	if err := m.errs["start"]; err != nil {
		return err
	}
	return m.setStatus(symbol, models.GridStatusRunning)
}

func (m *MockGridService) PauseGrid(ctx context.Context, symbol string) error {
	if err := m.errs["pause"]; err != nil {
		return err
	}
	return m.setStatus(symbol, models.GridStatusPaused)
}

func (m *MockGridService) ResumeGrid(ctx context.Context, symbol string) error {
	if err := m.errs["resume"]; err != nil {
		return err
	}
	return m.setStatus(symbol, models.GridStatusRunning)
}

func (m *MockGridService) StopGrid(ctx context.Context, symbol string) error {
	if err := m.errs["stop"]; err != nil {
		return err
	}
	return m.setStatus(symbol, models.GridStatusStopped)
}

func (m *MockGridService) PauseAll(ctx context.Context) []string {
	var affected []string
	for symbol, rt := range m.grids {
		if rt.Status == models.GridStatusRunning {
			rt.Status = models.GridStatusPaused
			affected = append(affected, symbol)
		}
	}
	return affected
}

func (m *MockGridService) ResumeAll(ctx context.Context) []string {
	var affected []string
	for symbol, rt := range m.grids {
		if rt.Status == models.GridStatusPaused {
			rt.Status = models.GridStatusRunning
			affected = append(affected, symbol)
		}
	}
	return affected
}

func (m *MockGridService) Rebalance(ctx context.Context, symbol string, lower, upper float64) error {
	if err := m.errs["rebalance"]; err != nil {
		return err
	}
	if _, ok := m.grids[symbol]; !ok {
		return service.ErrGridNotFound
	}
	return nil
}

func (m *MockGridService) UpdateGrid(ctx context.Context, symbol string, stopLoss, takeProfit float64, btcFilter bool) error {
	if err := m.errs["update"]; err != nil {
		return err
	}
	cfg, ok := m.configs[symbol]
	if !ok {
		return service.ErrGridNotFound
	}
	cfg.StopLoss = stopLoss
	cfg.TakeProfit = takeProfit
	cfg.BTCFilterEnabled = btcFilter
	return nil
}

func (m *MockGridService) Kill(ctx context.Context, reason string) []string {
	m.riskStatus.KillSwitch = models.KillSwitchState{
		Triggered: true,
		Reason:    reason,
	}
	var stopped []string
	for symbol, rt := range m.grids {
		if rt.Status != models.GridStatusStopped {
			rt.Status = models.GridStatusStopped
			stopped = append(stopped, symbol)
		}
	}
	m.killed = stopped
	return stopped
}

func (m *MockGridService) ResetKill() {
	m.riskStatus.KillSwitch = models.KillSwitchState{}
}

func (m *MockGridService) RiskStatus() *models.RiskStatus {
	return m.riskStatus
}

var _ service.GridServiceInterface = (*MockGridService)(nil)

// ============ MockSignalService ============

type MockSignalService struct {
	result  *service.SignalResult
	err     error
	history []*models.Signal
	stats   models.SignalStats
}

func NewMockSignalService() *MockSignalService {
	return &MockSignalService{
		result: &service.SignalResult{
			Signal: &models.Signal{
				Symbol:     "BTCUSDT",
				Action:     models.SignalActionBuy,
				Validated:  true,
				ReceivedAt: time.Now(),
			},
			GridAction: models.GridActionResume,
			Executed:   true,
		},
	}
}

func (m *MockSignalService) ProcessWebhook(ctx context.Context, body []byte, signature string) (*service.SignalResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *MockSignalService) History(limit int) []*models.Signal {
	if limit > 0 && limit < len(m.history) {
		return m.history[:limit]
	}
	return m.history
}

func (m *MockSignalService) Stats() models.SignalStats {
	return m.stats
}

var _ service.SignalServiceInterface = (*MockSignalService)(nil)

// ============ MockTradeService ============

type MockTradeService struct {
	trades []*models.Trade
	stats  *models.TradeStats
	err    error
}

func NewMockTradeService() *MockTradeService {
	return &MockTradeService{
		stats: &models.TradeStats{Period: "day"},
	}
}

func (m *MockTradeService) GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	if m.err != nil {
		return nil, m.err
	}
	if symbol == "" {
		return m.trades, nil
	}
	var filtered []*models.Trade
	for _, tr := range m.trades {
		if tr.Symbol == symbol {
			filtered = append(filtered, tr)
		}
	}
	return filtered, nil
}

func (m *MockTradeService) GetStats(ctx context.Context, period string) (*models.TradeStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

var _ service.TradeServiceInterface = (*MockTradeService)(nil)

// ============ MockNotificationService ============

type MockNotificationService struct {
	notifications []*models.Notification
	err           error
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, notifType string, limit int) ([]*models.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	if notifType == "" {
		return m.notifications, nil
	}
	var filtered []*models.Notification
	for _, n := range m.notifications {
		if n.Type == notifType {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

var _ service.NotificationServiceInterface = (*MockNotificationService)(nil)
