// Package websocket is the WebSocket transport adapter (spec.md §6): one
// binary frame carries one JSON-encoded protocol message. Grounded on the
// teacher's internal/network.TCPServer for the accept-loop/session-spawn
// shape, generalized onto github.com/gorilla/websocket for the handshake,
// binary framing and ping/pong handling the teacher's raw-TCP server never
// needed.
package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	sessionactor "github.com/phuhao00/roomrealm/internal/actor"
	"github.com/phuhao00/roomrealm/internal/actor/messages"
	"github.com/phuhao00/roomrealm/internal/logging"
	"github.com/phuhao00/roomrealm/internal/protocol"
	"github.com/phuhao00/roomrealm/internal/registry"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The core is transport-agnostic about origin policy; admission control
	// lives in the session actor's login handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves one WebSocket endpoint and spawns one session actor per
// accepted connection.
type Server struct {
	address     string
	path        string
	tlsConfig   *tls.Config
	system      *actor.ActorSystem
	bearerToken string
	players     *registry.PlayerRegistry
	rooms       *registry.RoomRegistry

	httpServer *http.Server
}

func NewServer(address, path string, tlsConfig *tls.Config, system *actor.ActorSystem, bearerToken string, players *registry.PlayerRegistry, rooms *registry.RoomRegistry) *Server {
	s := &Server{
		address:     address,
		path:        path,
		tlsConfig:   tlsConfig,
		system:      system,
		bearerToken: bearerToken,
		players:     players,
		rooms:       rooms,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleUpgrade)
	s.httpServer = &http.Server{Addr: address, Handler: mux, TLSConfig: tlsConfig}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("websocket: listen %s: %w", s.address, err)
	}
	logging.Infof("websocket: listening on %s%s (tls=%v)", s.address, s.path, s.tlsConfig != nil)
	go func() {
		var serveErr error
		if s.tlsConfig != nil {
			serveErr = s.httpServer.ServeTLS(ln, "", "")
		} else {
			serveErr = s.httpServer.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logging.Errorf("websocket: serve error: %v", serveErr)
		}
	}()
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("websocket: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	connID := uuid.NewString()
	props := sessionactor.PropsForSession(s.bearerToken, s.players, s.rooms)
	pid := s.system.Root.Spawn(props)
	logging.Debugf("websocket: conn=%s %s spawned session %s", connID, r.RemoteAddr, pid.Id)

	writer := newSocketWriter(conn)
	s.system.Root.Send(pid, &messages.Connected{Writer: writer})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go writer.pingLoop()
	s.readLoop(conn, pid, connID)
}

func (s *Server) readLoop(conn *websocket.Conn, pid *actor.PID, connID string) {
	defer conn.Close()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logging.Debugf("websocket: conn=%s closed: %v", connID, err)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: err.Error()})
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warnf("websocket: conn=%s malformed message: %v", connID, err)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: "malformed message: " + err.Error()})
			return
		}
		logging.Debugf("websocket: conn=%s received frame (%d bytes)", connID, len(data))
		s.system.Root.Send(pid, &messages.InboundClientMessage{Msg: &msg})
	}
}

// Stop shuts down the HTTP server, refusing new upgrades; already-upgraded
// connections tear down through their own read-loop error path when the
// peer disconnects or the process exits.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Warnf("websocket: shutdown error: %v", err)
	}
}

// socketWriter implements messages.OutputWriter over a *websocket.Conn, and
// also owns the periodic ping heartbeat since gorilla/websocket requires all
// writes (including control frames) to come from a single goroutine.
type socketWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	stop   chan struct{}
}

func newSocketWriter(conn *websocket.Conn) *socketWriter {
	return &socketWriter{conn: conn, stop: make(chan struct{})}
}

func (w *socketWriter) Send(msg *protocol.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("websocket: encode outbound message: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("websocket: connection closed")
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *socketWriter) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			if w.closed {
				w.mu.Unlock()
				return
			}
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := w.conn.WriteMessage(websocket.PingMessage, nil)
			w.mu.Unlock()
			if err != nil {
				return
			}
		case <-w.stop:
			return
		}
	}
}

func (w *socketWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.stop)
	w.conn.Close()
}
