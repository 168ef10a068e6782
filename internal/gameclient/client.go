package gameclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live session with the game server.
type Client interface {
	// ID identifies this session in logs and stale-event checks.
	ID() uuid.UUID

	// SetHandlers registers the observer set and starts event
	// delivery. Delivery begins on the first call; later calls
	// replace the set.
	SetHandlers(h Handlers)

	// SendChat sends a chat line. Best-effort; the session is not
	// torn down on failure.
	SendChat(text string) error

	// Detach drops all observers. No event is delivered after
	// Detach returns.
	Detach()

	// Close performs the close handshake and releases the socket.
	Close() error
}

// client implements the Client interface over a WebSocket event feed.
type client struct {
	id     uuid.UUID
	logger *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// Observer set; guarded so Detach is atomic w.r.t. delivery
	handlersMu sync.Mutex
	handlers   Handlers
	detached   bool

	startLoop sync.Once
	endOnce   sync.Once

	// State
	mu         sync.Mutex
	closed     bool
	kickReason string
}

// Dial connects to the server and performs the offline-mode hello.
// The returned session delivers no events until SetHandlers is called.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Auth == "" {
		cfg.Auth = AuthOffline
	}

	url := fmt.Sprintf("ws://%s:%d", cfg.Host, cfg.Port)
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	id := uuid.New()
	c := &client{
		id:     id,
		logger: logger.With("session", id.String()),
		conn:   conn,
		done:   make(chan struct{}),
	}

	// Keep the connection alive if the server drives pings.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	hello := frame{
		Type:     frameLogin,
		Username: cfg.Username,
		Version:  cfg.Version,
		Auth:     cfg.Auth,
	}
	if err := c.writeFrame(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	c.logger.Debug("session established", "url", url, "username", cfg.Username)

	return c, nil
}

// ID returns the session identifier.
func (c *client) ID() uuid.UUID {
	return c.id
}

// SetHandlers registers observers and starts the read loop.
func (c *client) SetHandlers(h Handlers) {
	c.handlersMu.Lock()
	c.handlers = h
	c.detached = false
	c.handlersMu.Unlock()

	c.startLoop.Do(func() {
		go c.readLoop()
	})
}

// Detach drops all observers. Delivery in progress finishes first, so
// no callback runs after Detach returns.
func (c *client) Detach() {
	c.handlersMu.Lock()
	c.handlers = Handlers{}
	c.detached = true
	c.handlersMu.Unlock()
}

// SendChat sends a chat frame.
func (c *client) SendChat(text string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.mu.Unlock()

	return c.writeFrame(frame{Type: frameChat, Message: text})
}

// Close performs the close handshake and releases the socket.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)

	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func (c *client) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames and dispatches them to the observer set until
// the transport drops or Close is called.
func (c *client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
			}
			c.finish(err)
			return
		}

		c.dispatch(data)
	}
}

// dispatch decodes one frame and invokes the matching observer.
func (c *client) dispatch(data []byte) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.detached {
		return
	}
	h := c.handlers

	var f frame
	if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
		if h.OnRaw != nil {
			h.OnRaw(data)
		}
		return
	}

	switch f.Type {
	case frameLogin:
		if h.OnLogin != nil {
			h.OnLogin(LoginInfo{Username: f.Username, X: f.X, Y: f.Y, Z: f.Z})
		}
	case frameSpawn:
		if h.OnSpawn != nil {
			h.OnSpawn(SpawnInfo{GameMode: f.GameMode, Difficulty: f.Difficulty})
		}
	case frameChat:
		if h.OnChat != nil {
			h.OnChat(ChatMessage{Sender: f.Sender, Text: f.Message})
		}
	case frameKick:
		c.mu.Lock()
		c.kickReason = f.Reason
		c.mu.Unlock()
		if h.OnKicked != nil {
			h.OnKicked(f.Reason)
		}
	case frameDeath:
		if h.OnDeath != nil {
			h.OnDeath()
		}
	default:
		if h.OnRaw != nil {
			h.OnRaw(data)
		}
	}
}

// finish reports the terminal error (if any) and fires the end event
// exactly once. A read error following a kick frame is the expected
// transport drop, not a runtime error.
func (c *client) finish(err error) {
	c.mu.Lock()
	kickReason := c.kickReason
	c.mu.Unlock()

	reason := endReason(err, kickReason)

	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.detached {
		return
	}
	h := c.handlers

	if kickReason == "" && !isExpectedClose(err) {
		if h.OnError != nil {
			h.OnError(err)
		}
	}

	c.endOnce.Do(func() {
		if h.OnEnd != nil {
			h.OnEnd(reason)
		}
	})
}

// endReason derives the end-event reason from the terminal error.
func endReason(err error, kickReason string) string {
	if kickReason != "" {
		return kickReason
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Text != "" {
			return ce.Text
		}
		return "connection closed"
	}
	if err != nil {
		return err.Error()
	}
	return "unknown"
}

// isExpectedClose reports whether the error is a clean close handshake.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
	)
}
