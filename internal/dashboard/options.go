package dashboard

import (
	"log/slog"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithWriteTimeout bounds each frame write. Zero disables the bound.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.writeTimeout = d
	}
}

// WithNamespace connects to a namespace other than "/".
func WithNamespace(ns string) Option {
	return func(c *Client) {
		c.namespace = ns
	}
}
