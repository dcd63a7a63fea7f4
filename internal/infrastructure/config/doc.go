// Package config handles loading and validating the MELCloud bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Per-account timing defaults (refresh, rescan, reconnect)
//   - Validation of required fields
//
// Security Considerations:
//   - MELCloud passwords should be set via MELBRIDGE_ACCOUNT_<NAME>_PASSWORD
//   - The config file should have restricted permissions (0600)
//   - Use Redacted() before logging a configuration
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, acc := range cfg.Accounts {
//	    fmt.Println(acc.Name, acc.GetRefreshInterval())
//	}
package config
