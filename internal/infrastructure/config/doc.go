// Package config handles loading and validating the bridge configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (MQTT_*, INFLUX_*, MAX_SEND_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Set the broker password via MQTT_PASSWORD; keep InfluxDB tokens in a
//     config file with restricted permissions (0600)
//   - Destination URLs are logged with credentials redacted
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("MQTT2INFLUX_CONFIG"))
//	if errors.Is(err, config.ErrNoDestinations) {
//	    // fatal: nowhere to write samples
//	}
package config
