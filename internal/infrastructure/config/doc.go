// Package config handles loading and validating schemaloc configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file that sits next to the config file
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Sensitive values (DSNs, broker passwords, tokens) should be set via
//     environment variables or the .env file, not committed YAML
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Migrations.Locations)
package config
