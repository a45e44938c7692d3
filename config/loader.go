package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envKeys lists the scalar keys that can be set from the environment.
// Headers are only read from the config file.
var envKeys = []string{
	"base_url",
	"timeout",
	"user_agent",
	"bearer_token",
	"no_follow_redirects",
	"request_id_header",
	"disable_request_id",
	"throttle.rps",
	"throttle.burst",
	"log.level",
	"log.format",
}

// LoaderConfig holds optional file overrides for [Load].
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// LoaderOption is a functional option for [Load].
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets the config file to read. Its format follows the
// file extension (yaml, json, toml).
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets a .env file loaded into the process environment before
// variables are read. Variables already set are not overridden, and a
// missing file is ignored.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix; the default is
// APICLIENT. Nested keys use underscores, e.g. APICLIENT_THROTTLE_RPS.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Load reads the config file, the .env file and the environment, in
// increasing order of precedence, then applies defaults and validates the
// result.
func Load(opts ...LoaderOption) (*Config, error) {
	lc := LoaderConfig{EnvPrefix: "APICLIENT"}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" {
		if err := godotenv.Load(lc.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", lc.EnvFile, err)
		}
	}

	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
