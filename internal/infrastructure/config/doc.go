// Package config loads tracestat configuration from environment variables
// via envconfig. Command-line flags override the values loaded here.
package config
