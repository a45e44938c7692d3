// Package apiclient exposes the client builder.
package apiclient

import (
	"os"
	"slices"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/config"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, the default http.Client and http.Transport are used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromConfig builds a client from cfg, logging to stderr as
// cfg.Log describes. opts are applied after the configured options.
func NewClientFromConfig(cfg *config.Config, opts ...client.Option) (*client.Client, error) {
	logger, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}

	return client.Build(slices.Concat(cfg.Options(), []client.Option{client.WithLogger(logger)}, opts)...)
}

// Load reads a config file and the environment and builds a client from
// the result.
func Load(path string, opts ...client.Option) (*client.Client, error) {
	var loadOpts []config.LoaderOption
	if path != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(path))
	}

	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}

	return NewClientFromConfig(cfg, opts...)
}
