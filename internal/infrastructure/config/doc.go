// Package config handles loading and validating the notice daemon configuration.
//
// This package manages:
//   - Loading daemon settings from a YAML file (optional; defaults apply)
//   - Overriding with NOTICE_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// The MQTT client record edited by users at runtime (server, client id,
// topic, token) lives in config.json and is handled by the store package.
//
// Security Considerations:
//   - The API secret and InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("noticed.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Dir)
package config
