package config

import (
	"log/slog"
	"time"
)

// Config is the root configuration for an afkbot instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bot       BotConfig       `yaml:"bot"`
	HTTP      HTTPConfig      `yaml:"http"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig identifies the remote game server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BotConfig holds the bot identity presented to the server.
type BotConfig struct {
	Username string `yaml:"username"`
	Version  string `yaml:"version"` // Protocol version identifier
}

// HTTPConfig holds the health endpoint listener settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// ReconnectConfig holds reconnect scheduling settings.
type ReconnectConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// SlogLevel maps the configured level string to a slog.Level.
// Unknown values fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
