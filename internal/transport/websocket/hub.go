package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medcenter/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 32
	eventQueueSize = 256
)

// TokenParser validates an access token and returns its subject.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (int64, domain.UserRole, error)
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	UserID int64
	Role   domain.UserRole
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *VisitHub
}

// VisitHub pushes visit events to the connected patient and doctor of each
// visit. A user may hold several connections at once.
type VisitHub struct {
	clients map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	events     chan domain.VisitEvent
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *zap.Logger
	mutex    sync.RWMutex
}

func NewVisitHub(logger *zap.Logger, allowedOrigins []string) *VisitHub {
	h := &VisitHub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan domain.VisitEvent, eventQueueSize),
		done:       make(chan struct{}),
		logger:     logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run serves registrations and delivers events until ctx is done. All
// connections are closed on exit.
func (h *VisitHub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]struct{})
			}
			h.clients[client.UserID][client] = struct{}{}
			h.mutex.Unlock()
			h.logger.Info("клиент подключен",
				zap.Int64("userID", client.UserID),
				zap.String("role", string(client.Role)))

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("клиент отключен", zap.Int64("userID", client.UserID))

		case event := <-h.events:
			h.deliver(event)

		case <-ctx.Done():
			h.mutex.Lock()
			for userID, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, userID)
			}
			h.mutex.Unlock()
			h.logger.Info("хаб событий визитов остановлен")
			return
		}
	}
}

// Publish queues an event for delivery. It never blocks: when the queue is
// full the event is dropped.
func (h *VisitHub) Publish(event domain.VisitEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("очередь событий переполнена, событие пропущено",
			zap.String("type", string(event.Type)),
			zap.Int64("visitID", event.VisitID))
	}
}

// ConnectedClients returns the number of open connections of a user.
func (h *VisitHub) ConnectedClients(userID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients[userID])
}

func (h *VisitHub) deliver(event domain.VisitEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ошибка сериализации события", zap.Error(err))
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, userID := range event.Recipients {
		for client := range h.clients[userID] {
			select {
			case client.Send <- message:
			default:
				h.logger.Warn("клиент не успевает читать события",
					zap.Int64("userID", userID),
					zap.Int64("visitID", event.VisitID))
			}
		}
	}
}

func (h *VisitHub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; ok {
		delete(set, client)
		close(client.Send)
	}
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
}

// Handler upgrades the request to a websocket for the user identified by
// the token query parameter. Browsers cannot set headers on websocket
// requests, so the bearer header is not used here.
func (h *VisitHub) Handler(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "требуется токен"})
			return
		}

		userID, role, err := parser.ParseToken(c.Request.Context(), token)
		if err != nil {
			h.logger.Debug("отклонено подключение websocket", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "недействительный токен"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("ошибка установки websocket соединения", zap.Error(err))
			return
		}

		client := &Client{
			UserID: userID,
			Role:   role,
			Conn:   conn,
			Send:   make(chan []byte, sendBufferSize),
			Hub:    h,
		}

		select {
		case h.register <- client:
		case <-h.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump only drains control frames; clients do not send events.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("ошибка websocket", zap.Int64("userID", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Warn("ошибка отправки события",
					zap.Int64("userID", c.UserID),
					zap.Error(err))
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
