package service

import (
	"context"
	"errors"

	"gridbot/internal/bot"
	"gridbot/internal/models"
	"gridbot/internal/repository"
	"gridbot/pkg/utils"
)

// Ошибки сервиса сеток
var (
	ErrGridNotFound      = errors.New("grid not found")
	ErrGridAlreadyExists = errors.New("grid for this symbol already exists")
	ErrGridNotStopped    = errors.New("grid must be stopped to delete")
	ErrMaxGridsReached   = errors.New("maximum number of grids reached")
)

// MaxGrids - максимальное количество одновременных сеток
const MaxGrids = 20

// GridService - бизнес-логика управления сетками
//
// Связывает три слоя:
// - repository.GridRepository: персистентность конфигураций
// - bot.Engine: торговый цикл и runtime состояние
// - bot.RiskManager: kill switch и стоп-уровни
type GridService struct {
	repo   *repository.GridRepository
	engine *bot.Engine
	risk   *bot.RiskManager
}

// NewGridService создает новый экземпляр сервиса сеток
func NewGridService(repo *repository.GridRepository, engine *bot.Engine, risk *bot.RiskManager) *GridService {
	return &GridService{
		repo:   repo,
		engine: engine,
		risk:   risk,
	}
}

// CreateGrid создает сетку: валидация, БД, регистрация в движке
//
// Сетка создается в статусе stopped, торговля начинается
// после явного StartGrid.
func (s *GridService) CreateGrid(ctx context.Context, cfg *models.GridConfig) error {
	cfg.Symbol = utils.NormalizeSymbol(cfg.Symbol)
	if err := validateGridParams(cfg); err != nil {
		return err
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) >= MaxGrids {
		return ErrMaxGridsReached
	}

	cfg.Status = models.GridStatusStopped
	if err := s.repo.Create(ctx, cfg); err != nil {
		if errors.Is(err, repository.ErrGridExists) {
			return ErrGridAlreadyExists
		}
		return err
	}

	if _, err := s.engine.AddGrid(cfg); err != nil {
		return err
	}
	if cfg.StopLoss > 0 {
		s.risk.SetStopLevel(cfg.Symbol, cfg.StopLoss)
	}
	return nil
}

// GetGrid возвращает runtime состояние сетки
func (s *GridService) GetGrid(symbol string) (*models.GridRuntime, error) {
	runtime := s.engine.GetGridRuntime(utils.NormalizeSymbol(symbol))
	if runtime == nil {
		return nil, ErrGridNotFound
	}
	return runtime, nil
}

// ListGrids возвращает runtime состояния всех сеток
func (s *GridService) ListGrids() []*models.GridRuntime {
	return s.engine.ListRuntimes()
}

// GetGridConfig возвращает сохраненную конфигурацию сетки
func (s *GridService) GetGridConfig(ctx context.Context, symbol string) (*models.GridConfig, error) {
	cfg, err := s.repo.GetBySymbol(ctx, utils.NormalizeSymbol(symbol))
	if err != nil {
		if errors.Is(err, repository.ErrGridNotFound) {
			return nil, ErrGridNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// DeleteGrid удаляет сетку из движка и БД
//
// Удалять можно только остановленную сетку: живые ордера
// должны быть отменены через StopGrid.
func (s *GridService) DeleteGrid(ctx context.Context, symbol string) error {
	symbol = utils.NormalizeSymbol(symbol)

	runtime := s.engine.GetGridRuntime(symbol)
	if runtime == nil {
		return ErrGridNotFound
	}
	if runtime.Status != models.GridStatusStopped {
		return ErrGridNotStopped
	}

	if err := s.engine.RemoveGrid(ctx, symbol); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, symbol); err != nil && !errors.Is(err, repository.ErrGridNotFound) {
		return err
	}
	return nil
}

// StartGrid запускает сетку (лестница строится заново)
func (s *GridService) StartGrid(ctx context.Context, symbol string) error {
	return s.engine.StartGrid(ctx, utils.NormalizeSymbol(symbol))
}

// PauseGrid ставит сетку на паузу
func (s *GridService) PauseGrid(ctx context.Context, symbol string) error {
	return s.engine.PauseGrid(ctx, utils.NormalizeSymbol(symbol))
}

// ResumeGrid возобновляет сетку из паузы
func (s *GridService) ResumeGrid(ctx context.Context, symbol string) error {
	return s.engine.ResumeGrid(ctx, utils.NormalizeSymbol(symbol))
}

// StopGrid останавливает сетку
func (s *GridService) StopGrid(ctx context.Context, symbol string) error {
	return s.engine.StopGrid(ctx, utils.NormalizeSymbol(symbol))
}

// PauseAll ставит на паузу все running сетки
func (s *GridService) PauseAll(ctx context.Context) []string {
	return s.engine.PauseAll(ctx)
}

// ResumeAll возобновляет все paused сетки
func (s *GridService) ResumeAll(ctx context.Context) []string {
	return s.engine.ResumeAll(ctx)
}

// Rebalance пересобирает лестницу под новые границы
func (s *GridService) Rebalance(ctx context.Context, symbol string, lower, upper float64) error {
	symbol = utils.NormalizeSymbol(symbol)

	if err := utils.ValidateBounds(lower, upper); err != nil {
		return err
	}
	if err := s.engine.Rebalance(ctx, symbol, lower, upper); err != nil {
		return err
	}

	// Движок принял новые границы, синхронизируем БД
	cfg, err := s.repo.GetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrGridNotFound) {
			return nil
		}
		return err
	}
	cfg.LowerBound = lower
	cfg.UpperBound = upper
	return s.repo.Update(ctx, cfg)
}

// UpdateGrid обновляет стоп-уровни и фильтр BTC
func (s *GridService) UpdateGrid(ctx context.Context, symbol string, stopLoss, takeProfit float64, btcFilter bool) error {
	symbol = utils.NormalizeSymbol(symbol)

	cfg, err := s.GetGridConfig(ctx, symbol)
	if err != nil {
		return err
	}
	if err := utils.ValidateStopLoss(stopLoss, cfg.LowerBound); err != nil {
		return err
	}

	if err := s.engine.UpdateGridConfig(symbol, stopLoss, takeProfit, btcFilter); err != nil {
		return err
	}

	cfg.StopLoss = stopLoss
	cfg.TakeProfit = takeProfit
	cfg.BTCFilterEnabled = btcFilter
	return s.repo.Update(ctx, cfg)
}

// Kill активирует kill switch и останавливает все сетки
func (s *GridService) Kill(ctx context.Context, reason string) []string {
	if reason == "" {
		reason = "manual kill switch"
	}
	s.risk.TriggerKill(reason)
	return s.engine.StopAll(ctx)
}

// ResetKill сбрасывает kill switch
//
// Сетки остаются остановленными, перезапуск - явными командами.
func (s *GridService) ResetKill() {
	s.risk.ResetKill()
}

// RiskStatus возвращает состояние риск-менеджера
func (s *GridService) RiskStatus() *models.RiskStatus {
	return s.risk.Status()
}

// validateGridParams проверяет все параметры конфигурации сетки
func validateGridParams(cfg *models.GridConfig) error {
	v := &utils.ValidationErrors{}
	v.AddError(utils.ValidateSymbol(cfg.Symbol))
	v.AddError(utils.ValidateBounds(cfg.LowerBound, cfg.UpperBound))
	v.AddError(utils.ValidateLevelCount(cfg.LevelCount))
	v.AddError(utils.ValidateCapital(cfg.TotalCapital))
	v.AddError(utils.ValidateStopLoss(cfg.StopLoss, cfg.LowerBound))
	if v.HasErrors() {
		return v
	}
	return nil
}
