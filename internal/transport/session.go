// Package transport owns the persistent duplex socket to the voice server.
package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/sawt-voice/sawt/internal/errors"
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the observable connection state. Err is set only for StateError.
type Status struct {
	State State
	Err   string
}

const (
	inboundBuffer = 64

	// maxClipBytes bounds one inbound message. Synthesized clips arrive as a
	// single binary frame, so the default websocket read limit is far too small.
	maxClipBytes = 8 << 20
)

// Session owns one websocket connection: lifecycle, outbound sends, and
// decoding of inbound frames into typed messages. Reconnection is never
// automatic; after Closed or Error a fresh Connect must be requested.
type Session struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	status  Status
	loading bool
	cancel  context.CancelFunc

	inbound chan Message
}

// New creates an idle session.
func New() *Session {
	return &Session{
		status:  Status{State: StateIdle},
		inbound: make(chan Message, inboundBuffer),
	}
}

// Inbound returns decoded server messages in socket-delivery order.
func (s *Session) Inbound() <-chan Message { return s.inbound }

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Loading reports whether a round trip is outstanding: true from the moment a
// non-stop payload is sent until the next audio or control payload arrives.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Connect dials url and starts the read loop. A transport-level failure
// leaves the session in StateError with a human-readable diagnostic.
func (s *Session) Connect(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.status.State == StateConnecting || s.status.State == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.status = Status{State: StateConnecting}
	s.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		s.mu.Lock()
		s.status = Status{State: StateError, Err: err.Error()}
		s.mu.Unlock()
		return errors.Wrapf(err, errors.CodeConnFailed, "dial %s", url)
	}
	conn.SetReadLimit(maxClipBytes)

	// The read loop outlives the dial context; Close cancels it.
	readCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.status = Status{State: StateConnected}
	s.loading = false
	s.mu.Unlock()
	slog.Info("connected", "url", url)

	go s.readLoop(readCtx, conn)
	return nil
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			s.onDisconnect(ctx, err)
			return
		}

		var msg Message
		if typ == websocket.MessageBinary {
			msg = Message{Kind: KindAudio, Audio: data}
		} else {
			var ok bool
			msg, ok = decodeText(data)
			if !ok {
				slog.Debug("dropping unrecognized message", "bytes", len(data))
				continue
			}
		}

		if msg.Kind == KindAudio || msg.Kind == KindControl {
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
		}

		select {
		case s.inbound <- msg:
		case <-ctx.Done():
			s.onDisconnect(ctx, ctx.Err())
			return
		}
	}
}

func (s *Session) onDisconnect(ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = nil
	if s.status.State != StateConnected {
		// Close already recorded the terminal state.
		return
	}
	if ctx.Err() != nil || websocket.CloseStatus(err) != -1 {
		s.status = Status{State: StateClosed}
		slog.Info("connection closed")
	} else {
		s.status = Status{State: StateError, Err: err.Error()}
		slog.Warn("connection error", "error", err)
	}
}

// SendAudio transmits one PCM16 frame. A defined no-op unless connected.
func (s *Session) SendAudio(pcm []byte) {
	s.send(websocket.MessageBinary, pcm, true)
}

// SendStop signals the end of the current utterance. Does not mark loading.
func (s *Session) SendStop() {
	s.send(websocket.MessageText, stopPayload, false)
}

func (s *Session) send(typ websocket.MessageType, data []byte, marksLoading bool) {
	s.mu.Lock()
	if s.status.State != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	if marksLoading {
		s.loading = true
	}
	s.mu.Unlock()

	if err := conn.Write(context.Background(), typ, data); err != nil {
		slog.Debug("send failed", "error", err)
	}
}

// Close ends the session. Safe to call repeatedly and in any state.
func (s *Session) Close() {
	s.mu.Lock()
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	if s.status.State == StateConnected || s.status.State == StateConnecting {
		s.status = Status{State: StateClosed}
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "session end")
	}
}
