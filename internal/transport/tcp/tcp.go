// Package tcp is the length-prefixed framed TCP transport adapter
// (spec.md §6): each frame is a 4-byte big-endian length prefix followed by
// a JSON-encoded protocol message. It is grounded directly on the teacher's
// internal/network.TCPServer, generalized from the teacher's ad hoc
// ClientMessage/ClientConnected/ClientDisconnected trio onto the session
// actor's messages.Connected/InboundClientMessage/TransportClosed contract.
package tcp

import (
	"bufio"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	sessionactor "github.com/phuhao00/roomrealm/internal/actor"
	"github.com/phuhao00/roomrealm/internal/actor/messages"
	"github.com/phuhao00/roomrealm/internal/logging"
	"github.com/phuhao00/roomrealm/internal/protocol"
	"github.com/phuhao00/roomrealm/internal/registry"
)

const (
	maxMessageSize   = 1 * 1024 * 1024
	lengthPrefixSize = 4
)

// Server accepts framed TCP connections and spawns one session actor per
// connection.
type Server struct {
	address     string
	tlsConfig   *tls.Config
	system      *actor.ActorSystem
	bearerToken string
	players     *registry.PlayerRegistry
	rooms       *registry.RoomRegistry

	listener net.Listener
	wg       sync.WaitGroup
	shutdown chan struct{}
}

func NewServer(address string, tlsConfig *tls.Config, system *actor.ActorSystem, bearerToken string, players *registry.PlayerRegistry, rooms *registry.RoomRegistry) *Server {
	return &Server{
		address:     address,
		tlsConfig:   tlsConfig,
		system:      system,
		bearerToken: bearerToken,
		players:     players,
		rooms:       rooms,
		shutdown:    make(chan struct{}),
	}
}

// Start begins listening and accepting connections in the background.
func (s *Server) Start() error {
	var listener net.Listener
	var err error
	if s.tlsConfig != nil {
		listener, err = tls.Listen("tcp", s.address, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", s.address)
	}
	if err != nil {
		return fmt.Errorf("tcp: listen %s: %w", s.address, err)
	}
	s.listener = listener
	logging.Infof("tcp: listening on %s (tls=%v)", s.address, s.tlsConfig != nil)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				logging.Debugf("tcp: accept loop shutting down")
				return
			default:
				logging.Warnf("tcp: accept error: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.NewString()
	props := sessionactor.PropsForSession(s.bearerToken, s.players, s.rooms)
	pid := s.system.Root.Spawn(props)
	logging.Debugf("tcp: conn=%s %s spawned session %s", connID, conn.RemoteAddr(), pid.Id)

	writer := newFramedWriter(conn)
	s.system.Root.Send(pid, &messages.Connected{Writer: writer})

	reader := bufio.NewReader(conn)
	lenBuf := make([]byte, lengthPrefixSize)
	for {
		if _, err := io.ReadFull(reader, lenBuf); err != nil {
			logging.Debugf("tcp: conn=%s closed: %v", connID, err)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: err.Error()})
			return
		}

		n := binary.BigEndian.Uint32(lenBuf)
		if n == 0 || n > maxMessageSize {
			logging.Warnf("tcp: conn=%s invalid frame length %d", connID, n)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: "invalid frame length"})
			return
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(reader, payload); err != nil {
			logging.Debugf("tcp: conn=%s closed: %v", connID, err)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: err.Error()})
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logging.Warnf("tcp: conn=%s malformed message: %v", connID, err)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: "malformed message: " + err.Error()})
			return
		}
		logging.Debugf("tcp: conn=%s received frame (%d bytes)", connID, n)
		s.system.Root.Send(pid, &messages.InboundClientMessage{Msg: &msg})

		select {
		case <-s.shutdown:
			logging.Debugf("tcp: conn=%s server shutdown", connID)
			s.system.Root.Send(pid, &messages.TransportClosed{Reason: "server shutdown"})
			return
		default:
		}
	}
}

// Stop stops accepting new connections and waits (with a bounded timeout)
// for in-flight connection handlers to drain.
func (s *Server) Stop() {
	close(s.shutdown)
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Infof("tcp: all connections drained")
	case <-time.After(10 * time.Second):
		logging.Warnf("tcp: shutdown timed out waiting for connections to drain")
	}
}

// framedWriter implements messages.OutputWriter by length-prefixing each
// JSON-encoded ServerMessage onto the underlying connection. Writes are
// serialized with a mutex since a session actor and the read loop's
// TransportClosed cleanup can both touch it.
type framedWriter struct {
	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

func newFramedWriter(conn net.Conn) *framedWriter {
	return &framedWriter{conn: conn}
}

func (w *framedWriter) Send(msg *protocol.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("tcp: encode outbound message: %w", err)
	}
	if len(data) > maxMessageSize {
		return fmt.Errorf("tcp: outbound message too large (%d bytes)", len(data))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("tcp: connection closed")
	}

	lenBuf := make([]byte, lengthPrefixSize)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := w.conn.Write(lenBuf); err != nil {
		return err
	}
	_, err = w.conn.Write(data)
	return err
}

func (w *framedWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.conn.Close()
}
