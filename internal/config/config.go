// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Pipeline defaults
const (
	DefaultWorkers                 = 8
	DefaultClassifyCacheMaxItems   = 4096
	DefaultParallelReduceThreshold = 64
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all configuration for the CLI and the MCP server.
type Config struct {
	Workers                 int    // WORKERS, default 8
	ClassifyCacheMaxItems   int    // CLASSIFY_CACHE_MAX_ITEMS, default 4096 (0 disables)
	ParallelReduceThreshold int    // PARALLEL_REDUCE_THRESHOLD, default 64
	FlowFilter              string // FLOW_FILTER, default "" (keep every exchange)
	SkipMalformedPaths      bool   // SKIP_MALFORMED_PATHS, default false

	// Output
	OutputFormat   string // OUTPUT_FORMAT, "json" (default) or "yaml"
	EmitJSONSchema bool   // EMIT_JSON_SCHEMA, default false
	EmitOpenAPI    bool   // EMIT_OPENAPI, default false

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, "text" (default) or "json"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Workers:                 getEnvPositiveInt("WORKERS", DefaultWorkers),
		ClassifyCacheMaxItems:   getEnvInt("CLASSIFY_CACHE_MAX_ITEMS", DefaultClassifyCacheMaxItems),
		ParallelReduceThreshold: getEnvPositiveInt("PARALLEL_REDUCE_THRESHOLD", DefaultParallelReduceThreshold),
		FlowFilter:              getEnvString("FLOW_FILTER", ""),
		SkipMalformedPaths:      getEnvBool("SKIP_MALFORMED_PATHS", false),

		OutputFormat:   getEnvChoice("OUTPUT_FORMAT", FormatJSON, FormatJSON, FormatYAML),
		EmitJSONSchema: getEnvBool("EMIT_JSON_SCHEMA", false),
		EmitOpenAPI:    getEnvBool("EMIT_OPENAPI", false),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvChoice("LOG_FORMAT", "text", "text", "json"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
}

// getEnvChoice returns the lower-cased value when it is one of allowed.
func getEnvChoice(key, defaultVal string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return defaultVal
}
