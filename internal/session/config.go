package session

import "time"

// Config defines connection manager behavior.
type Config struct {
	// Location is passed to the Store on every connect.
	Location string
	// ConnectTimeout bounds the wait for the first terminal lifecycle event.
	// Zero leaves the wait bounded only by the caller context.
	ConnectTimeout time.Duration
	// OnTransition observes every accepted state change. It runs under the
	// manager lock and must not call back into the Manager.
	OnTransition func(from, to State)
}

// DefaultConfig returns manager defaults.
func DefaultConfig() Config {
	return Config{
		Location:       "session_auth_info",
		ConnectTimeout: 30 * time.Second,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Location == "" {
		c.Location = def.Location
	}
	if c.ConnectTimeout < 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	return c
}
