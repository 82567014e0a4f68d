package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MessageInit          = "init"
	MessageGrocery       = "grocery"
	MessageVehicles      = "vehicles"
	MessageMaintenance   = "maintenance"
	MessageRestaurants   = "restaurants"
	MessageAICalls       = "ai_calls"
	MessageCalendar      = "calendar"
	MessageCalendarState = "calendar_state"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected browser. New clients get an
// init message built from the snapshot provider.
type Hub struct {
	mutex      sync.RWMutex
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	snapshot   func() map[string]any
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (hub *Hub) SetSnapshotProvider(provider func() map[string]any) {
	hub.snapshot = provider
}

// Run serves registrations and broadcasts until ctx is done.
func (hub *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			hub.mutex.Lock()
			for c := range hub.clients {
				close(c.send)
				delete(hub.clients, c)
			}
			hub.mutex.Unlock()
			return

		case c := <-hub.register:
			hub.mutex.Lock()
			hub.clients[c] = true
			total := len(hub.clients)
			hub.mutex.Unlock()
			slog.Debug("websocket client connected", "clients", total)
			hub.sendInit(c)

		case c := <-hub.unregister:
			hub.mutex.Lock()
			if _, ok := hub.clients[c]; ok {
				delete(hub.clients, c)
				close(c.send)
			}
			total := len(hub.clients)
			hub.mutex.Unlock()
			slog.Debug("websocket client disconnected", "clients", total)

		case message := <-hub.broadcast:
			hub.mutex.Lock()
			for c := range hub.clients {
				select {
				case c.send <- message:
				default:
					// slow consumer
					close(c.send)
					delete(hub.clients, c)
				}
			}
			hub.mutex.Unlock()
		}
	}
}

func (hub *Hub) sendInit(c *client) {
	if hub.snapshot == nil {
		return
	}
	data, err := json.Marshal(Message{Type: MessageInit, Data: hub.snapshot()})
	if err != nil {
		slog.Error("encoding init message", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("dropping init message, client buffer full")
	}
}

// Broadcast queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (hub *Hub) Broadcast(messageType string, data any) {
	encoded, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		slog.Error("encoding broadcast message", "type", messageType, "error", err)
		return
	}
	select {
	case hub.broadcast <- encoded:
	default:
		slog.Warn("dropping broadcast, queue full", "type", messageType)
	}
}

func (hub *Hub) ClientCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

// Forward broadcasts every value published by subscribe under messageType.
func Forward[T any](hub *Hub, messageType string, subscribe func(func(T)) func()) func() {
	return subscribe(func(value T) {
		hub.Broadcast(messageType, value)
	})
}

func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrading websocket", "error", err)
		return
	}

	c := &client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer)}
	hub.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump only watches for close and pong frames.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
