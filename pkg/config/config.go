// Package config loads process configuration from the environment and route
// certification policies from YAML.
package config

import (
	"os"
	"runtime"
	"strconv"
)

// Config holds process configuration.
type Config struct {
	LogLevel     string
	RoutesFile   string
	Workers      int
	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	workers, err := strconv.Atoi(os.Getenv("HTTPCERT_WORKERS"))
	if err != nil || workers <= 0 {
		workers = runtime.NumCPU()
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:     logLevel,
		RoutesFile:   os.Getenv("HTTPCERT_ROUTES"),
		Workers:      workers,
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint: endpoint,
		OTelInsecure: os.Getenv("OTEL_INSECURE") == "true",
	}
}
