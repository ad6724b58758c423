// Copyright 2025 Princess B33f Heavy Industries / Dave Shanley
// SPDX-License-Identifier: BSD-2-Clause

package session

import (
	"log/slog"
	"time"

	"github.com/pb33f/lasso/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint       = "ws://localhost:8090/ranch"
	DefaultConnectTimeout = 10 * time.Second
	DefaultPingInterval   = 10 * time.Second
)

// Config is the construction configuration for a Session.
type Config struct {
	// Endpoint is the broker address the engine should dial.
	Endpoint string

	// ConnectHeaders are passed to the engine's CONNECT command.
	ConnectHeaders map[string]string

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration

	// PingInterval drives the engine's auto-ping once connected.
	PingInterval time.Duration

	// Candidates are tried in order when decoding inbound message bodies,
	// first success wins.
	Candidates []model.Candidate

	// Decoder encodes outbound payloads and backs candidate decoding.
	Decoder model.Decoder

	// Handler receives session events. Defaults to a no-op.
	Handler model.EventHandlerFunction

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.Decoder == nil {
		c.Decoder = model.JSONDecoder{}
	}
	if c.Handler == nil {
		c.Handler = func(model.Event) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfig builds a Config from flags and LASSO_* environment variables.
// Candidates, decoder and handler are code-level concerns and stay at their
// defaults, callers populate them on the returned Config.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LASSO")
	v.AutomaticEnv()

	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("timeout", DefaultConnectTimeout)
	v.SetDefault("ping", DefaultPingInterval)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	c := &Config{
		Endpoint:       v.GetString("endpoint"),
		ConnectTimeout: v.GetDuration("timeout"),
		PingInterval:   v.GetDuration("ping"),
	}
	c.applyDefaults()
	return c, nil
}
