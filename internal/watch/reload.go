package watch

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message types sent to viewer pages
const (
	MessageReload = "reload"
	MessageError  = "error"
)

// ReloadMessage tells viewer pages that the schema changed or failed to reload
type ReloadMessage struct {
	Type        string   `json:"type"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Models      int      `json:"models,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Timestamp   int64    `json:"timestamp"`
}

// ReloadServer keeps the websocket connections of open viewer pages and broadcasts
// ReloadMessages to them. All writes happen on its run goroutine.
type ReloadServer struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *ReloadMessage
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewReloadServer creates and starts a reload server. Cross-origin pages may connect when
// their origin is in allowedOrigins ("*" allows any).
func NewReloadServer(allowedOrigins []string, logger *zap.Logger) *ReloadServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	rs := &ReloadServer{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *ReloadMessage, 16),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, allowedOrigins)
			},
		},
	}

	go rs.run()
	return rs
}

// checkOrigin allows same-host pages and the configured origins
func checkOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (rs *ReloadServer) run() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-rs.done:
			return

		case conn := <-rs.register:
			rs.mutex.Lock()
			rs.connections[conn] = true
			count := len(rs.connections)
			rs.mutex.Unlock()
			rs.logger.Debug("viewer connected", zap.Int("connections", count))

		case conn := <-rs.unregister:
			rs.drop(conn)

		case message := <-rs.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				rs.logger.Error("failed to encode reload message", zap.Error(err))
				continue
			}
			rs.writeAll(websocket.TextMessage, data)

		case <-ticker.C:
			rs.writeAll(websocket.PingMessage, nil)
		}
	}
}

func (rs *ReloadServer) writeAll(messageType int, data []byte) {
	rs.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range rs.connections {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(messageType, data); err != nil {
			failed = append(failed, conn)
		}
	}
	rs.mutex.RUnlock()

	for _, conn := range failed {
		rs.drop(conn)
	}
}

func (rs *ReloadServer) drop(conn *websocket.Conn) {
	rs.mutex.Lock()
	if rs.connections[conn] {
		delete(rs.connections, conn)
		conn.Close()
	}
	count := len(rs.connections)
	rs.mutex.Unlock()
	rs.logger.Debug("viewer disconnected", zap.Int("connections", count))
}

// HandleWebSocket upgrades a viewer page's request
func (rs *ReloadServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		rs.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case rs.register <- conn:
	case <-rs.done:
		conn.Close()
		return
	}
	go rs.read(conn)
}

// read drains the connection so pongs and close frames are processed
func (rs *ReloadServer) read(conn *websocket.Conn) {
	defer func() {
		select {
		case rs.unregister <- conn:
		case <-rs.done:
		}
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				rs.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

func (rs *ReloadServer) send(message *ReloadMessage) {
	message.Timestamp = time.Now().Unix()
	select {
	case rs.broadcast <- message:
	case <-rs.done:
	}
}

// NotifyReload tells pages to refetch the schema
func (rs *ReloadServer) NotifyReload(fingerprint string, models int) {
	rs.send(&ReloadMessage{Type: MessageReload, Fingerprint: fingerprint, Models: models})
}

// NotifyError tells pages that a reload failed; they keep showing the previous schema
func (rs *ReloadServer) NotifyError(errs []string) {
	rs.send(&ReloadMessage{Type: MessageError, Errors: errs})
}

// ConnectionCount returns the number of open connections
func (rs *ReloadServer) ConnectionCount() int {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()
	return len(rs.connections)
}

// Close stops the server and closes every connection
func (rs *ReloadServer) Close() {
	rs.closeOnce.Do(func() {
		close(rs.done)

		rs.mutex.Lock()
		defer rs.mutex.Unlock()
		for conn := range rs.connections {
			conn.Close()
		}
		rs.connections = make(map[*websocket.Conn]bool)
	})
}
