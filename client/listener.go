package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	authenticateEvent  = "authenticate"
	authenticatedEvent = "authenticated"
	errorEvent         = "error"

	handshakeTimeout = 10 * time.Second
)

// ErrNoSession is returned when the listener has no token to authenticate with
var ErrNoSession = errors.New("no active session")

// Handler receives the data of one realtime event
type Handler func(data json.RawMessage)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Listener keeps a websocket connection to the realtime endpoint open for the
// session in its store and dispatches events to handlers. Delivery is
// at-most-once: after every (re)connect the OnConnect callback runs so the
// caller can refetch whatever it may have missed.
type Listener struct {
	url     string
	session *SessionStore
	dialer  *websocket.Dialer
	logger  *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	mu        sync.RWMutex
	handlers  map[string][]Handler
	onConnect func()

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewListener creates a listener for an API base URL such as
// http://host:5174; the websocket URL is derived from it
func NewListener(baseURL string, session *SessionStore, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		url:        websocketURL(baseURL),
		session:    session,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:     logger.With(slog.String("component", "listener")),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
		handlers:   make(map[string][]Handler),
	}
}

func websocketURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// On registers h for event. Handlers run on the listener's read goroutine.
func (l *Listener) On(event string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[event] = append(l.handlers[event], h)
}

// OnConnect sets the callback run after every successful authentication
func (l *Listener) OnConnect(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConnect = fn
}

// Send writes an event on the current connection
func (l *Listener) Send(event string, data any) error {
	l.connMu.Lock()
	conn := l.conn
	l.connMu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}
	return l.write(conn, event, data)
}

// JoinRoom asks the server to add this connection to room
func (l *Listener) JoinRoom(room string) error {
	return l.Send("join-room", room)
}

// Run connects and reconnects with exponential backoff until ctx is done
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.minBackoff
	for {
		connected, err := l.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = l.minBackoff
		}
		l.logger.Debug("realtime connection lost", slog.Any("error", err), slog.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.maxBackoff)
	}
}

// runOnce serves one connection. connected reports whether it authenticated.
func (l *Listener) runOnce(ctx context.Context) (connected bool, err error) {
	token := l.session.Token()
	if token == "" {
		return false, ErrNoSession
	}

	conn, resp, err := l.dialer.DialContext(ctx, l.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.url, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		l.setConn(nil)
		_ = conn.Close()
	}()

	if err := l.authenticate(conn, token); err != nil {
		return false, err
	}
	l.setConn(conn)

	l.mu.RLock()
	onConnect := l.onConnect
	l.mu.RUnlock()
	if onConnect != nil {
		onConnect()
	}

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return true, err
		}
		l.dispatch(f)
	}
}

func (l *Listener) authenticate(conn *websocket.Conn, token string) error {
	if err := l.write(conn, authenticateEvent, token); err != nil {
		return err
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
		switch f.Event {
		case authenticatedEvent:
			return nil
		case errorEvent:
			var payload struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(f.Data, &payload)
			return fmt.Errorf("authenticate: %s", payload.Message)
		default:
			// broadcasts may arrive before the acknowledgement
			l.dispatch(f)
		}
	}
}

func (l *Listener) dispatch(f frame) {
	l.mu.RLock()
	handlers := l.handlers[f.Event]
	l.mu.RUnlock()

	for _, h := range handlers {
		h(f.Data)
	}
}

func (l *Listener) write(conn *websocket.Conn, event string, data any) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return conn.WriteJSON(frame{Event: event, Data: raw})
}

func (l *Listener) setConn(conn *websocket.Conn) {
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
}
