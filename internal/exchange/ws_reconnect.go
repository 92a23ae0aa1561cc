package exchange

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"gridbot/pkg/utils"
)

// Переподключение WebSocket с exponential backoff.
// Поток тикеров - единственный источник цен для сеток, поэтому
// разрыв соединения должен восстанавливаться без участия оператора,
// с повторной подпиской на все каналы.

// WSReconnectConfig - параметры переподключения
type WSReconnectConfig struct {
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	MaxRetries     int // 0 - без ограничения
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

// DefaultWSReconnectConfig - задержки 2s, 4s, 8s, 16s
func DefaultWSReconnectConfig() WSReconnectConfig {
	return WSReconnectConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     10,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

// WSConnectionState - состояние соединения
type WSConnectionState int32

const (
	WSStateDisconnected WSConnectionState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateClosed
)

func (s WSConnectionState) String() string {
	switch s {
	case WSStateDisconnected:
		return "disconnected"
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// WSReconnectManager держит WebSocket соединение с биржей,
// переподключаясь при разрывах и восстанавливая подписки
type WSReconnectManager struct {
	name   string
	wsURL  string
	config WSReconnectConfig

	conn   *websocket.Conn
	connMu sync.RWMutex

	state      int32 // atomic WSConnectionState
	retryCount int32 // atomic

	closeChan chan struct{}

	onMessage    func([]byte)
	onConnect    func()
	onDisconnect func(error)
	callbackMu   sync.RWMutex

	// Сообщения подписок переотправляются после каждого reconnect
	subscriptions   []interface{}
	subscriptionsMu sync.RWMutex
}

// NewWSReconnectManager создает менеджер, name попадает в логи
func NewWSReconnectManager(name, wsURL string, config WSReconnectConfig) *WSReconnectManager {
	return &WSReconnectManager{
		name:          name,
		wsURL:         wsURL,
		config:        config,
		closeChan:     make(chan struct{}),
		subscriptions: make([]interface{}, 0),
	}
}

// SetOnMessage устанавливает обработчик входящих сообщений
func (m *WSReconnectManager) SetOnMessage(handler func([]byte)) {
	m.callbackMu.Lock()
	m.onMessage = handler
	m.callbackMu.Unlock()
}

// SetOnConnect устанавливает обработчик события подключения
func (m *WSReconnectManager) SetOnConnect(handler func()) {
	m.callbackMu.Lock()
	m.onConnect = handler
	m.callbackMu.Unlock()
}

// SetOnDisconnect устанавливает обработчик события отключения
func (m *WSReconnectManager) SetOnDisconnect(handler func(error)) {
	m.callbackMu.Lock()
	m.onDisconnect = handler
	m.callbackMu.Unlock()
}

// AddSubscription запоминает подписку для восстановления после reconnect
func (m *WSReconnectManager) AddSubscription(sub interface{}) {
	m.subscriptionsMu.Lock()
	m.subscriptions = append(m.subscriptions, sub)
	m.subscriptionsMu.Unlock()
}

// GetState возвращает текущее состояние соединения
func (m *WSReconnectManager) GetState() WSConnectionState {
	return WSConnectionState(atomic.LoadInt32(&m.state))
}

// Connect устанавливает соединение и запускает чтение
func (m *WSReconnectManager) Connect() error {
	select {
	case <-m.closeChan:
		return fmt.Errorf("manager is closed")
	default:
	}

	atomic.StoreInt32(&m.state, int32(WSStateConnecting))

	if err := m.dial(); err != nil {
		atomic.StoreInt32(&m.state, int32(WSStateDisconnected))
		return err
	}

	atomic.StoreInt32(&m.state, int32(WSStateConnected))
	atomic.StoreInt32(&m.retryCount, 0)

	m.callbackMu.RLock()
	onConnect := m.onConnect
	m.callbackMu.RUnlock()
	if onConnect != nil {
		onConnect()
	}

	go m.readPump()
	go m.pingPump()

	utils.Info("websocket connected",
		utils.String("ws", m.name),
		utils.String("url", m.wsURL))

	return nil
}

func (m *WSReconnectManager) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.ConnectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}

	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()

	// Ошибка переподписки не фатальна, каналы можно восстановить позже
	if err := m.resubscribe(); err != nil {
		utils.Warn("websocket resubscribe failed",
			utils.String("ws", m.name),
			utils.Err(err))
	}

	return nil
}

func (m *WSReconnectManager) resubscribe() error {
	m.subscriptionsMu.RLock()
	subs := make([]interface{}, len(m.subscriptions))
	copy(subs, m.subscriptions)
	m.subscriptionsMu.RUnlock()

	m.connMu.RLock()
	conn := m.conn
	m.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no connection")
	}

	for _, sub := range subs {
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("resubscribe error: %w", err)
		}
	}

	if len(subs) > 0 {
		utils.Info("websocket subscriptions restored",
			utils.String("ws", m.name),
			utils.Int("channels", len(subs)))
	}

	return nil
}

func (m *WSReconnectManager) readPump() {
	defer m.handleDisconnect(nil)

	for {
		select {
		case <-m.closeChan:
			return
		default:
		}

		m.connMu.RLock()
		conn := m.conn
		m.connMu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(err)
			return
		}

		m.callbackMu.RLock()
		onMessage := m.onMessage
		m.callbackMu.RUnlock()

		if onMessage != nil {
			onMessage(message)
		}
	}
}

func (m *WSReconnectManager) pingPump() {
	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closeChan:
			return
		case <-ticker.C:
			m.connMu.RLock()
			conn := m.conn
			m.connMu.RUnlock()

			if conn == nil || m.GetState() != WSStateConnected {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(m.config.PongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				utils.Warn("websocket ping failed",
					utils.String("ws", m.name),
					utils.Err(err))
				m.handleDisconnect(err)
				return
			}
		}
	}
}

func (m *WSReconnectManager) handleDisconnect(err error) {
	select {
	case <-m.closeChan:
		return
	default:
	}

	// readPump и pingPump могут заметить разрыв одновременно
	state := m.GetState()
	if state == WSStateReconnecting || state == WSStateClosed {
		return
	}

	atomic.StoreInt32(&m.state, int32(WSStateReconnecting))

	m.connMu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connMu.Unlock()

	m.callbackMu.RLock()
	onDisconnect := m.onDisconnect
	m.callbackMu.RUnlock()
	if onDisconnect != nil {
		onDisconnect(err)
	}

	if err != nil {
		utils.Warn("websocket disconnected",
			utils.String("ws", m.name),
			utils.Err(err))
	}

	go m.reconnectLoop()
}

func (m *WSReconnectManager) reconnectLoop() {
	delay := m.config.InitialDelay

	for {
		select {
		case <-m.closeChan:
			return
		default:
		}

		retryCount := atomic.AddInt32(&m.retryCount, 1)

		if m.config.MaxRetries > 0 && int(retryCount) > m.config.MaxRetries {
			utils.Error("websocket reconnect attempts exhausted",
				utils.String("ws", m.name),
				utils.Int("max_retries", m.config.MaxRetries))
			atomic.StoreInt32(&m.state, int32(WSStateDisconnected))
			return
		}

		utils.Info("websocket reconnecting",
			utils.String("ws", m.name),
			utils.String("delay", delay.String()),
			utils.Int("attempt", int(retryCount)))

		select {
		case <-m.closeChan:
			return
		case <-time.After(delay):
		}

		if err := m.dial(); err != nil {
			utils.Warn("websocket reconnect failed",
				utils.String("ws", m.name),
				utils.Err(err))

			delay = delay * 2
			if delay > m.config.MaxDelay {
				delay = m.config.MaxDelay
			}
			continue
		}

		atomic.StoreInt32(&m.state, int32(WSStateConnected))
		atomic.StoreInt32(&m.retryCount, 0)

		m.callbackMu.RLock()
		onConnect := m.onConnect
		m.callbackMu.RUnlock()
		if onConnect != nil {
			onConnect()
		}

		utils.Info("websocket reconnected", utils.String("ws", m.name))

		go m.readPump()
		go m.pingPump()

		return
	}
}

// Send отправляет JSON-сообщение через соединение
func (m *WSReconnectManager) Send(msg interface{}) error {
	if m.GetState() != WSStateConnected {
		return fmt.Errorf("not connected (state: %s)", m.GetState())
	}

	m.connMu.RLock()
	conn := m.conn
	m.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no connection")
	}

	return conn.WriteJSON(msg)
}

// Close останавливает переподключение и закрывает соединение
func (m *WSReconnectManager) Close() error {
	select {
	case <-m.closeChan:
		return nil
	default:
		close(m.closeChan)
	}

	atomic.StoreInt32(&m.state, int32(WSStateClosed))

	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}

	return nil
}
