package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/client/throttle"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultRequestIDHeader = "X-Request-Id"
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// Config is the file and environment form of a client's options.
type Config struct {
	BaseURL           string            `yaml:"base_url" mapstructure:"base_url"`
	Timeout           time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string            `yaml:"user_agent" mapstructure:"user_agent"`
	BearerToken       string            `yaml:"bearer_token" mapstructure:"bearer_token"`
	Headers           map[string]string `yaml:"headers" mapstructure:"headers"`
	NoFollowRedirects bool              `yaml:"no_follow_redirects" mapstructure:"no_follow_redirects"`
	RequestIDHeader   string            `yaml:"request_id_header" mapstructure:"request_id_header"`
	DisableRequestID  bool              `yaml:"disable_request_id" mapstructure:"disable_request_id"`

	// Throttle is disabled while RPS is zero.
	Throttle throttle.Config `yaml:"throttle" mapstructure:"throttle"`

	Log Log `yaml:"log" mapstructure:"log"`
}

// Log selects the slog handler a client logs through.
type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RequestIDHeader == "" {
		c.RequestIDHeader = defaultRequestIDHeader
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: base_url %q must be an absolute http(s) url", c.BaseURL))
		}
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("config: timeout must not be negative"))
	}

	if c.Throttle != (throttle.Config{}) {
		if err := c.Throttle.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: throttle: %w", err))
		}
	}

	for name := range c.Headers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("config: header names must not be empty"))
			break
		}
	}

	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be one of [text, json] (got: %s)", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Options converts c into client options. Headers are applied in name
// order; the logger is left to the caller.
func (c *Config) Options() []client.Option {
	var opts []client.Option

	if c.BaseURL != "" {
		opts = append(opts, client.WithBaseURL(c.BaseURL))
	}
	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Timeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.BearerToken != "" {
		opts = append(opts, client.WithBearerToken(c.BearerToken))
	}

	names := make([]string, 0, len(c.Headers))
	for name := range c.Headers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts = append(opts, client.WithHeader(name, c.Headers[name]))
	}

	if c.NoFollowRedirects {
		opts = append(opts, client.WithNoFollowRedirects())
	}

	switch {
	case c.DisableRequestID:
		opts = append(opts, client.WithRequestID(""))
	case c.RequestIDHeader != "":
		opts = append(opts, client.WithRequestID(c.RequestIDHeader))
	}

	if c.Throttle.RPS > 0 {
		opts = append(opts, client.WithThrottle(c.Throttle.RPS, c.Throttle.Burst))
	}

	return opts
}

// Logger builds a logger writing to w at the configured level and format.
func (l Log) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	switch l.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}

	return nil, fmt.Errorf("config: unknown log format %q", l.Format)
}

func (l Log) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return level, nil
	}

	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("config: log.level: %w", err)
	}

	return level, nil
}
