package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"gridbot/internal/models"
	"gridbot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ============ sync.Pool для JSON буферов ============
// Убирает аллокации при каждом Broadcast

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time обновления состояния сеток без polling.
//
// Типы сообщений:
// - gridUpdate: состояние сетки после прохода движка
// - notification: новое уведомление
// - balanceUpdate: обновление баланса биржи
// - riskUpdate: состояние риск-менеджера
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastGridUpdate(symbol, runtime)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast.
//
// Список клиентов копируется под коротким RLock, отправка идет
// без блокировки, медленные клиенты удаляются под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			utils.Debug("websocket client connected", utils.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			utils.Debug("websocket client disconnected", utils.Int("total", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			// Отправляем без блокировки, чтобы не тормозить register/unregister
			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает обрабатывать сообщения
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				utils.Warn("removed slow websocket clients",
					utils.Int("removed", len(toRemove)),
					utils.Int("total", total),
				)
			}
		}
	}
}

// Broadcast сериализует сообщение и рассылает его всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		utils.Error("failed to marshal broadcast message", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные, буфер вернется в пул
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastGridUpdate отправляет состояние сетки
func (h *Hub) BroadcastGridUpdate(symbol string, runtime *models.GridRuntime) {
	h.Broadcast(NewGridUpdateMessage(symbol, runtime))
}

// BroadcastNotification отправляет новое уведомление
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastBalanceUpdate отправляет обновление баланса биржи
func (h *Hub) BroadcastBalanceUpdate(exchange string, balance float64) {
	h.Broadcast(NewBalanceUpdateMessage(exchange, balance))
}

// BroadcastRiskUpdate отправляет состояние риск-менеджера
func (h *Hub) BroadcastRiskUpdate(status *models.RiskStatus) {
	h.Broadcast(NewRiskUpdateMessage(status))
}

// BroadcastPriceUpdate отправляет тик цены
func (h *Hub) BroadcastPriceUpdate(symbol string, price float64) {
	h.Broadcast(NewPriceUpdateMessage(symbol, price))
}

// BroadcastSignal отправляет принятый внешний сигнал
func (h *Hub) BroadcastSignal(sig *models.Signal) {
	h.Broadcast(NewSignalMessage(sig))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
