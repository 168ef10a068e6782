package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerHost     = "localhost"
	DefaultServerPort     = 25565
	DefaultUsername       = "Bot"
	DefaultVersion        = "1.21.4"
	DefaultHTTPPort       = 3000
	DefaultReconnectDelay = 5 * time.Second
	DefaultLogLevel       = "info"
)

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}

	if c.Bot.Username == "" {
		c.Bot.Username = DefaultUsername
	}
	if c.Bot.Version == "" {
		c.Bot.Version = DefaultVersion
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Reconnect.Delay == 0 {
		c.Reconnect.Delay = DefaultReconnectDelay
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
