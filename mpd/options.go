package mpd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// Config holds connection settings.
type Config struct {
	// Address is host[:port], an absolute unix socket path or an
	// "@"-prefixed abstract socket name.
	Address  string
	Password string

	DialTimeout    time.Duration
	AuthTimeout    time.Duration
	CommandTimeout time.Duration
	MaxIdleAge     time.Duration

	// Subsystems restricts idle to these subsystems; empty means all.
	Subsystems []Subsystem

	Reconnect ReconnectConfig
}

// DefaultConfig returns settings for a daemon on localhost.
func DefaultConfig() Config {
	return Config{
		Address:        "localhost:" + DefaultPort,
		DialTimeout:    DefaultDialTimeout,
		AuthTimeout:    DefaultAuthTimeout,
		CommandTimeout: DefaultCommandTimeout,
		MaxIdleAge:     DefaultMaxIdleAge,
		Reconnect:      DefaultReconnectConfig(),
	}
}

func (c *Config) validate() error {
	if c.Address == "" {
		return errors.New("mpd: empty address")
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.MaxIdleAge <= 0 {
		c.MaxIdleAge = DefaultMaxIdleAge
	}
	return c.Reconnect.validate()
}

// DialFunc opens the transport to the daemon.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.baseLogger = logger
		}
		return nil
	}
}

// WithMetrics records client activity into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// WithSubsystems restricts idle notifications to subsystems.
func WithSubsystems(subsystems ...Subsystem) Option {
	return func(c *Client) error {
		c.cfg.Subsystems = subsystems
		return nil
	}
}

// WithReconnect replaces the reconnection backoff.
func WithReconnect(rc ReconnectConfig) Option {
	return func(c *Client) error {
		if err := rc.validate(); err != nil {
			return err
		}
		c.cfg.Reconnect = rc
		return nil
	}
}

// WithDialer replaces the function used to open connections.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) error {
		if dial == nil {
			return errors.New("mpd: nil dialer")
		}
		c.dial = dial
		return nil
	}
}

// WithChangeHandler installs the change handler before the first connect.
func WithChangeHandler(fn func(ChangeSet)) Option {
	return func(c *Client) error {
		c.onChange = fn
		return nil
	}
}
