package service

import (
	"context"
	"errors"
	"fmt"

	"gridbot/internal/bot"
	"gridbot/internal/models"
	"gridbot/internal/signal"
	"gridbot/pkg/utils"
)

// SignalResult - итог обработки вебхука
type SignalResult struct {
	Signal     *models.Signal `json:"signal"`
	GridAction string         `json:"grid_action"`        // resume, pause, stop, none
	Executed   bool           `json:"executed"`           // действие применено к сетке
	SkipReason string         `json:"reason,omitempty"`   // почему действие не применено
}

// SignalService - конвейер вебхук -> действие над сеткой
//
// Сигнал TradingView не торгует напрямую: он управляет режимом
// сетки. buy/long возобновляет, sell/short ставит на паузу,
// close останавливает.
type SignalService struct {
	handler *signal.Handler
	engine  *bot.Engine
	prices  bot.PriceSource

	store SignalStore
	wsHub SignalBroadcaster
}

// SignalStore - журнал сигналов в БД
type SignalStore interface {
	Create(ctx context.Context, sig *models.Signal) error
}

// SignalBroadcaster - рассылка принятых сигналов WebSocket клиентам
type SignalBroadcaster interface {
	BroadcastSignal(sig *models.Signal)
}

// NewSignalService создает новый экземпляр сервиса сигналов
func NewSignalService(handler *signal.Handler, engine *bot.Engine, prices bot.PriceSource) *SignalService {
	return &SignalService{
		handler: handler,
		engine:  engine,
		prices:  prices,
	}
}

// SetStore подключает журнал сигналов в БД
func (s *SignalService) SetStore(store SignalStore) {
	s.store = store
}

// SetWebSocketHub подключает broadcast принятых сигналов
func (s *SignalService) SetWebSocketHub(hub SignalBroadcaster) {
	s.wsHub = hub
}

// ProcessWebhook обрабатывает тело вебхука TradingView
//
// Шаги:
//  1. Подпись, парсинг, запись в историю (signal.Handler)
//  2. Фильтры исполнения: свежесть и расхождение с рынком
//  3. Трансляция действия и применение к сетке
func (s *SignalService) ProcessWebhook(ctx context.Context, body []byte, signature string) (*SignalResult, error) {
	sig, err := s.handler.Process(body, signature)
	if err != nil {
		bot.RecordSignal("invalid", false)
		return nil, err
	}
	bot.RecordSignal(sig.Action, true)
	s.persistAndBroadcast(ctx, sig)

	result := &SignalResult{
		Signal:     sig,
		GridAction: signal.GridActionFor(sig.Action),
	}

	marketPrice := s.marketPrice(sig.Symbol)
	if ok, reason := s.handler.ShouldExecute(sig, marketPrice); !ok {
		result.SkipReason = reason
		utils.Warn("signal skipped",
			utils.Symbol(sig.Symbol),
			utils.String("action", sig.Action),
			utils.String("reason", reason),
		)
		return result, nil
	}

	if err := s.applyGridAction(ctx, sig.Symbol, result.GridAction); err != nil {
		result.SkipReason = err.Error()
		return result, nil
	}

	if result.GridAction != models.GridActionNone {
		result.Executed = true
		s.handler.MarkExecuted()
	}
	return result, nil
}

// applyGridAction применяет действие сигнала к сетке
//
// resume по остановленной сетке превращается в start: сигнал
// buy должен поднимать сетку из любого неторгующего состояния.
func (s *SignalService) applyGridAction(ctx context.Context, symbol, action string) error {
	switch action {
	case models.GridActionResume:
		err := s.engine.ResumeGrid(ctx, symbol)
		var transition *bot.StateTransitionError
		if errors.As(err, &transition) && transition.From == models.GridStatusStopped {
			return s.engine.StartGrid(ctx, symbol)
		}
		return err
	case models.GridActionPause:
		return s.engine.PauseGrid(ctx, symbol)
	case models.GridActionStop:
		return s.engine.StopGrid(ctx, symbol)
	case models.GridActionNone:
		return nil
	default:
		return fmt.Errorf("unknown grid action %q", action)
	}
}

// persistAndBroadcast пишет сигнал в журнал БД и рассылает клиентам
//
// Ошибка записи не блокирует обработку: кольцо истории в памяти
// остается источником для API
func (s *SignalService) persistAndBroadcast(ctx context.Context, sig *models.Signal) {
	if s.store != nil {
		if err := s.store.Create(ctx, sig); err != nil {
			utils.Error("failed to store signal",
				utils.Symbol(sig.Symbol), utils.Err(err))
		}
	}
	if s.wsHub != nil {
		s.wsHub.BroadcastSignal(sig)
	}
}

// marketPrice возвращает текущую цену для проверки расхождения
func (s *SignalService) marketPrice(symbol string) float64 {
	if s.prices == nil {
		return 0
	}
	price, ok := s.prices.LastPrice(symbol)
	if !ok {
		return 0
	}
	return price
}

// History возвращает последние сигналы
func (s *SignalService) History(limit int) []*models.Signal {
	return s.handler.History(limit)
}

// Stats возвращает статистику обработки сигналов
func (s *SignalService) Stats() models.SignalStats {
	return s.handler.Stats()
}
