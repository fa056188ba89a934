package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"homelink/internal/domain/entity"
	"homelink/internal/domain/service"
	"homelink/internal/usecase"
	"homelink/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Messaging is the slice of the messaging use case the socket protocol
// drives.
type Messaging interface {
	SendMessage(ctx context.Context, actor usecase.Actor, input usecase.SendMessageInput) (*entity.Message, error)
	MarkMessageRead(ctx context.Context, actor usecase.Actor, conversationID, messageID string) (*entity.Message, error)
	MarkConversationRead(ctx context.Context, actor usecase.Actor, conversationID string) (int, error)
	WatchConversation(ctx context.Context, actor usecase.Actor, conversationID string, render func([]*usecase.MessageView)) (service.Unsubscribe, error)
	WatchInbox(ctx context.Context, actor usecase.Actor, render func([]*usecase.ConversationView)) (service.Unsubscribe, error)
}

// Client is one socket. A user may hold several at once.
type Client struct {
	Actor usecase.Actor
	Conn  *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	send   chan []byte
	closed bool
	rooms  map[string]service.Unsubscribe
}

func NewClient(actor usecase.Actor, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Actor:  actor,
		Conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]service.Unsubscribe),
	}
}

// enqueue queues a frame without blocking. A client too slow to drain its
// buffer is disconnected.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		logger.Warn("WebSocket: send buffer full for %s, dropping connection", c.Actor.UserID)
		c.closeLocked()
		return false
	}
}

func (c *Client) joinRoom(conversationID string, unsubscribe service.Unsubscribe) {
	c.mu.Lock()
	previous := c.rooms[conversationID]
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		return
	}
	c.rooms[conversationID] = unsubscribe
	c.mu.Unlock()

	if previous != nil {
		previous()
	}
}

func (c *Client) leaveRoom(conversationID string) bool {
	c.mu.Lock()
	unsubscribe, ok := c.rooms[conversationID]
	delete(c.rooms, conversationID)
	c.mu.Unlock()

	if ok {
		unsubscribe()
	}
	return ok
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for id, unsubscribe := range c.rooms {
		unsubscribe()
		delete(c.rooms, id)
	}
	close(c.send)
}

// Manager tracks live sockets and serves the socket protocol over the
// messaging use case.
type Manager struct {
	messaging Messaging

	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager(messaging Messaging) *Manager {
	return &Manager{
		messaging:  messaging,
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the registration loop until ctx ends, then closes every
// remaining client.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				go m.watchInbox(client)

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				close(m.done)
				m.mutex.Lock()
				for _, set := range m.clients {
					for client := range set {
						client.close()
					}
				}
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				return
			}
		}
	}()
}

func (m *Manager) add(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	set, ok := m.clients[client.Actor.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[client.Actor.UserID] = set
	}
	set[client] = struct{}{}
	logger.Info("WebSocket: client registered for %s (%d open)", client.Actor.UserID, len(set))
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	if set, ok := m.clients[client.Actor.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(m.clients, client.Actor.UserID)
		}
	}
	m.mutex.Unlock()

	client.close()
	logger.Info("WebSocket: client unregistered for %s", client.Actor.UserID)
}

// Connect hands a new client to the registration loop. It reports false
// once the manager has stopped.
func (m *Manager) Connect(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		client.close()
		return false
	}
}

// IsOnline reports whether userID holds at least one open socket.
func (m *Manager) IsOnline(userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID]) > 0
}

func (m *Manager) ConnectionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	count := 0
	for _, set := range m.clients {
		count += len(set)
	}
	return count
}

// ReadPump reads frames until the socket fails, then unregisters.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
			c.close()
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.Actor.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump drains the send queue and keeps the socket alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.Actor.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
