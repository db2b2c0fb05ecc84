package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/touron/internal/gateway"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	// Audio uploads ride the socket as base64, so the limit is generous.
	readLimit = 8 << 20
)

// wsConn adapts one websocket connection to the router's Conn. gorilla
// permits a single concurrent writer, so Send serializes writes.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) Send(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(event)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

type Server struct {
	router   *gateway.Router
	upgrader websocket.Upgrader
}

func NewServer(router *gateway.Router) *Server {
	return &Server{
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from a separately served frontend.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	slog.Info("client connected", "remote_addr", r.RemoteAddr)
	s.readLoop(&wsConn{ws: ws})
}

// readLoop drains one connection until it drops. A malformed frame is
// answered with an error event and skipped; only transport errors end the
// loop and pause the sessions served by this connection.
func (s *Server) readLoop(conn *wsConn) {
	defer func() {
		s.router.ConnClosed(conn)
		_ = conn.Close()
	}()
	conn.ws.SetReadLimit(readLimit)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "error", err)
			} else {
				slog.Info("client disconnected")
			}
			return
		}
		var ev gateway.InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("discarding malformed event", "error", err)
			_ = conn.Send(gateway.ErrorPayload{Type: gateway.TypeError, Message: "malformed event payload"})
			continue
		}
		s.router.Dispatch(conn, ev)
	}
}
