package gameclient

import "errors"

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
)

// AuthOffline is the only authentication mode supported.
const AuthOffline = "offline"

// Config describes a session to establish.
type Config struct {
	Host     string
	Port     int
	Username string
	Version  string // Protocol version identifier
	Auth     string // Defaults to AuthOffline
}

// LoginInfo is delivered once the server accepts the bot identity.
type LoginInfo struct {
	Username string
	X, Y, Z  float64
}

// SpawnInfo is delivered when the bot enters the world.
type SpawnInfo struct {
	GameMode   string
	Difficulty string
}

// ChatMessage is an inbound chat line. Messages authored by the bot
// itself are delivered too; filtering is the observer's job.
type ChatMessage struct {
	Sender string
	Text   string
}

// Handlers is the finite observer set for one session. Nil slots are
// skipped. Events are invoked sequentially from the session's read
// loop, in the order the transport produced them. OnEnd fires exactly
// once per session, after every other event from that session.
type Handlers struct {
	OnLogin  func(LoginInfo)
	OnSpawn  func(SpawnInfo)
	OnChat   func(ChatMessage)
	OnError  func(error)
	OnKicked func(reason string)
	OnEnd    func(reason string)
	OnDeath  func()
	OnRaw    func(data []byte)
}

// frame is the envelope for every message on the event feed, both
// directions. Only the fields relevant to a given type are set.
type frame struct {
	Type       string  `json:"type"`
	Username   string  `json:"username,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Z          float64 `json:"z,omitempty"`
	GameMode   string  `json:"game_mode,omitempty"`
	Difficulty string  `json:"difficulty,omitempty"`
	Sender     string  `json:"sender,omitempty"`
	Message    string  `json:"message,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Version    string  `json:"version,omitempty"`
	Auth       string  `json:"auth,omitempty"`
}

// Frame types on the event feed.
const (
	frameLogin = "login"
	frameSpawn = "spawn"
	frameChat  = "chat"
	frameKick  = "kick"
	frameDeath = "death"
)
