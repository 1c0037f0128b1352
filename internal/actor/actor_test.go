package actor_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/phuhao00/roomrealm/internal/protocol"
)

var errWriterClosed = errors.New("fakeWriter: closed")

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// protoactor-go's default dispatcher and deadletter throttler start
		// background goroutines at process init that outlive any one test.
		goleak.IgnoreTopFunction("github.com/asynkron/protoactor-go/actor.(*goroutineScheduler).start.func1"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
}

// fakeWriter is a test double for messages.OutputWriter that records every
// ServerMessage it's asked to send on a buffered channel tests can drain.
type fakeWriter struct {
	mu     sync.Mutex
	sent   chan *protocol.ServerMessage
	closed bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{sent: make(chan *protocol.ServerMessage, 64)}
}

func (w *fakeWriter) Send(msg *protocol.ServerMessage) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return errWriterClosed
	}
	w.sent <- msg
	return nil
}

func (w *fakeWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *fakeWriter) next(t *testing.T, timeout time.Duration) *protocol.ServerMessage {
	t.Helper()
	select {
	case msg := <-w.sent:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}
