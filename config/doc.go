// Package config loads client settings from a config file, a .env file and
// the environment, and converts them into [client.Option] values.
//
// # Usage
//
//	cfg, err := config.Load(
//		config.WithConfigFile("apiclient.yaml"),
//		config.WithEnvFile(".env"),
//	)
//	if err != nil {
//		return err
//	}
//
//	logger, err := cfg.Log.Logger(os.Stderr)
//	if err != nil {
//		return err
//	}
//
//	c, err := client.Build(append(cfg.Options(), client.WithLogger(logger))...)
//
// A YAML file looks like:
//
//	base_url: https://api.example.com/v1
//	timeout: 10s
//	user_agent: inventory-sync/1.4
//	headers:
//	  X-Tenant: acme
//	throttle:
//	  rps: 20
//	  burst: 5
//	log:
//	  level: debug
//	  format: json
//
// Environment variables use the APICLIENT prefix by default:
// APICLIENT_BASE_URL, APICLIENT_TIMEOUT, APICLIENT_THROTTLE_RPS and so on.
package config
