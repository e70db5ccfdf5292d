// Package config provides environment configuration for the bot.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Slack settings
	SlackBotToken string
	SlackAppToken string

	// Databricks settings
	DatabricksHost  string
	DatabricksToken string
	GenieSpaceID    string

	// Genie polling
	GeniePollInterval time.Duration
	GenieMaxWait      time.Duration
	GenieHTTPTimeout  time.Duration

	// Rendering
	TableMaxRows int

	// Tracker
	TrackerMaxEntries int

	// Ops server
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Slack
		SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),
		SlackAppToken: getEnv("SLACK_APP_TOKEN", ""),

		// Databricks
		DatabricksHost:  strings.TrimRight(getEnv("DATABRICKS_HOST", ""), "/"),
		DatabricksToken: getEnv("DATABRICKS_TOKEN", ""),
		GenieSpaceID:    getEnv("DATABRICKS_GENIE_SPACE_ID", ""),

		// Polling
		GeniePollInterval: getDurationEnv("GENIE_POLL_INTERVAL", 2*time.Second),
		GenieMaxWait:      getDurationEnv("GENIE_MAX_WAIT", 90*time.Second),
		GenieHTTPTimeout:  getDurationEnv("GENIE_HTTP_TIMEOUT", 30*time.Second),

		// Rendering
		TableMaxRows: getIntEnv("TABLE_MAX_ROWS", 15),

		// Tracker
		TrackerMaxEntries: getIntEnv("TRACKER_MAX_ENTRIES", 4096),

		// Ops server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks that all required settings are present. A missing required
// variable is a fatal startup condition, not a runtime error.
func (c *Config) Validate() error {
	required := map[string]string{
		"SLACK_BOT_TOKEN":           c.SlackBotToken,
		"SLACK_APP_TOKEN":           c.SlackAppToken,
		"DATABRICKS_HOST":           c.DatabricksHost,
		"DATABRICKS_TOKEN":          c.DatabricksToken,
		"DATABRICKS_GENIE_SPACE_ID": c.GenieSpaceID,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
