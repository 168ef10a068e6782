package keeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/afkbot/internal/gameclient"
)

// NotInitialized is the identity placeholder reported before the
// first successful login.
const NotInitialized = "not initialized"

// Status values reported in snapshots.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// DialFunc constructs a new session. Swapped out in tests.
type DialFunc func(ctx context.Context, cfg gameclient.Config, logger *slog.Logger) (gameclient.Client, error)

// Config holds keeper settings.
type Config struct {
	Host           string
	Port           int
	Username       string
	Version        string
	ReconnectDelay time.Duration
}

// Snapshot is the point-in-time projection of connection state served
// by the status endpoint. Computed fresh on every call, never stored.
type Snapshot struct {
	Status    string
	Bot       string
	Uptime    float64 // Seconds since Start
	Timestamp time.Time
}

// Keeper supervises one session to the game server.
type Keeper struct {
	cfg    Config
	dial   DialFunc
	logger *slog.Logger

	ctx context.Context

	// All connection state behind one mutex; observers fire from the
	// session read loop and the retry timer fires from its own
	// goroutine.
	mu        sync.Mutex
	current   gameclient.Client
	connected bool
	identity  string
	retry     *time.Timer
	closed    bool
	startedAt time.Time
}

// New creates a Keeper. A nil dial uses the real gameclient.
func New(cfg Config, dial DialFunc, logger *slog.Logger) *Keeper {
	if logger == nil {
		logger = slog.Default()
	}
	if dial == nil {
		dial = gameclient.Dial
	}

	return &Keeper{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
	}
}

// Start records the start time and makes the first connection attempt.
// It never fails; a failed attempt schedules a reconnect like any
// later disconnection.
func (k *Keeper) Start(ctx context.Context) {
	k.mu.Lock()
	k.ctx = ctx
	k.startedAt = time.Now()
	k.mu.Unlock()

	k.initiate()
}

// Stop tears down the keeper. Idempotent and unconditional: teardown
// errors are logged at debug level and swallowed so shutdown always
// runs to completion.
func (k *Keeper) Stop() {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return
	}
	k.closed = true
	if k.retry != nil {
		k.retry.Stop()
		k.retry = nil
	}
	cur := k.current
	k.current = nil
	k.connected = false
	k.mu.Unlock()

	if cur != nil {
		cur.Detach()
		if err := cur.Close(); err != nil {
			k.logger.Debug("session teardown failed during stop", "error", err)
		}
	}

	k.logger.Info("keeper stopped")
}

// Status derives the current snapshot.
func (k *Keeper) Status() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	status := StatusDisconnected
	if k.connected {
		status = StatusConnected
	}

	bot := k.identity
	if bot == "" {
		bot = NotInitialized
	}

	var uptime float64
	if !k.startedAt.IsZero() {
		uptime = time.Since(k.startedAt).Seconds()
	}

	return Snapshot{
		Status:    status,
		Bot:       bot,
		Uptime:    uptime,
		Timestamp: time.Now(),
	}
}

// initiate replaces the current session with a fresh one. Any pending
// reconnect timer is cancelled first, and the previous session is
// detached before the replacement exists so no stale event can reach
// the shared state.
func (k *Keeper) initiate() {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return
	}
	if k.retry != nil {
		k.retry.Stop()
		k.retry = nil
	}
	old := k.current
	k.current = nil
	ctx := k.ctx
	k.mu.Unlock()

	if old != nil {
		old.Detach()
		if err := old.Close(); err != nil {
			k.logger.Debug("teardown of previous session failed", "error", err)
		}
	}

	cfg := gameclient.Config{
		Host:     k.cfg.Host,
		Port:     k.cfg.Port,
		Username: k.cfg.Username,
		Version:  k.cfg.Version,
		Auth:     gameclient.AuthOffline,
	}

	client, err := k.dial(ctx, cfg, k.logger)
	if err != nil {
		k.logger.Error("failed to create session",
			"host", k.cfg.Host,
			"port", k.cfg.Port,
			"error", err,
		)
		k.mu.Lock()
		k.connected = false
		k.mu.Unlock()
		k.scheduleReconnect("creation_error")
		return
	}

	k.mu.Lock()
	if k.closed {
		// Stop won the race; tear the fresh session down.
		k.mu.Unlock()
		client.Detach()
		if err := client.Close(); err != nil {
			k.logger.Debug("session teardown failed during stop", "error", err)
		}
		return
	}
	k.current = client
	k.mu.Unlock()

	client.SetHandlers(k.handlers(client))

	k.logger.Info("session created",
		"session", client.ID().String(),
		"host", k.cfg.Host,
		"port", k.cfg.Port,
		"username", k.cfg.Username,
	)
}

// scheduleReconnect arms a one-shot reconnect timer unless one is
// already pending.
func (k *Keeper) scheduleReconnect(reason string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return
	}
	if k.retry != nil {
		k.logger.Debug("reconnect already pending", "reason", reason)
		return
	}

	k.logger.Info("scheduling reconnect",
		"reason", reason,
		"delay", k.cfg.ReconnectDelay,
	)

	k.retry = time.AfterFunc(k.cfg.ReconnectDelay, func() {
		k.mu.Lock()
		k.retry = nil
		closed := k.closed
		k.mu.Unlock()
		if closed {
			return
		}
		k.initiate()
	})
}

// isCurrent reports whether the session is still the supervised one.
// Events from a replaced session arrive on its own read loop and must
// not touch shared state.
func (k *Keeper) isCurrent(c gameclient.Client) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current != nil && k.current.ID() == c.ID()
}

// handlers builds the observer set bound to one session. Every
// observer is a leaf: it mutates state and logs, nothing more.
func (k *Keeper) handlers(c gameclient.Client) gameclient.Handlers {
	logger := k.logger.With("session", c.ID().String())

	return gameclient.Handlers{
		OnLogin: func(info gameclient.LoginInfo) {
			if !k.isCurrent(c) {
				return
			}
			k.mu.Lock()
			k.connected = true
			k.identity = info.Username
			k.mu.Unlock()
			logger.Info("logged in",
				"username", info.Username,
				"x", info.X,
				"y", info.Y,
				"z", info.Z,
			)
		},

		OnSpawn: func(info gameclient.SpawnInfo) {
			if !k.isCurrent(c) {
				return
			}
			logger.Info("spawned in world",
				"game_mode", info.GameMode,
				"difficulty", info.Difficulty,
			)
		},

		OnChat: func(msg gameclient.ChatMessage) {
			if !k.isCurrent(c) {
				return
			}
			k.mu.Lock()
			self := k.identity
			k.mu.Unlock()
			if msg.Sender == self {
				return
			}
			logger.Info("chat", "sender", msg.Sender, "message", msg.Text)
		},

		OnError: func(err error) {
			if !k.isCurrent(c) {
				return
			}
			k.mu.Lock()
			k.connected = false
			k.mu.Unlock()
			// Recovery is deferred to the end event that follows.
			logger.Error("session error", "error", err)
		},

		OnKicked: func(reason string) {
			if !k.isCurrent(c) {
				return
			}
			k.mu.Lock()
			k.connected = false
			k.mu.Unlock()
			logger.Warn("kicked from server", "reason", reason)
		},

		OnEnd: func(reason string) {
			if !k.isCurrent(c) {
				return
			}
			if reason == "" {
				reason = "unknown"
			}
			k.mu.Lock()
			k.connected = false
			k.mu.Unlock()
			logger.Warn("session ended", "reason", reason)
			k.scheduleReconnect(reason)
		},

		OnDeath: func() {
			if !k.isCurrent(c) {
				return
			}
			logger.Info("bot died")
			// Cosmetic only; failure changes nothing.
			if err := c.SendChat("I died x_x"); err != nil {
				logger.Debug("death chat failed", "error", err)
			}
		},

		OnRaw: func(data []byte) {
			logger.Debug("raw server message", "bytes", len(data))
		},
	}
}
