// Package config reads the service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendGraphQL = "graphql"
	BackendMemory  = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend  string
	GraphQLURL   string
	SigninURL    string
	FixturesPath string
	// MemoryTokenSecret signs demo tokens; a random secret is used when empty.
	MemoryTokenSecret string

	// Pipeline
	PageSize       int
	MaxPages       int
	HeuristicsFile string

	// Sessions
	SessionTTL         time.Duration
	SessionMax         int
	CookieSecure       bool
	LoginRatePerMinute int

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:       getEnv("DATA_BACKEND", BackendGraphQL),
		GraphQLURL:        getEnv("GRAPHQL_URL", "https://learn.reboot01.com/api/graphql-engine/v1/graphql"),
		SigninURL:         getEnv("SIGNIN_URL", "https://learn.reboot01.com/api/auth/signin"),
		FixturesPath:      getEnv("FIXTURES_PATH", "./data/fixtures.json"),
		MemoryTokenSecret: getEnv("MEMORY_TOKEN_SECRET", ""),

		PageSize:       getEnvInt("PAGE_SIZE", 1000),
		MaxPages:       getEnvInt("MAX_PAGES", 200),
		HeuristicsFile: getEnv("HEURISTICS_FILE", ""),

		SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionMax:         getEnvInt("SESSION_MAX", 1000),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "xpdash"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "profile.loaded"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendGraphQL, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendGraphQL:
		errors = append(errors, validateHTTPURL("GRAPHQL_URL", c.GraphQLURL)...)
		errors = append(errors, validateHTTPURL("SIGNIN_URL", c.SigninURL)...)
	case BackendMemory:
		if c.FixturesPath == "" {
			errors = append(errors, "fixtures path cannot be empty when using memory backend")
		} else if _, err := os.Stat(c.FixturesPath); err != nil {
			errors = append(errors, fmt.Sprintf("fixtures file not readable: %s", c.FixturesPath))
		}
	}

	if c.PageSize < 1 || c.PageSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 10000", c.PageSize))
	}
	if c.MaxPages < 1 {
		errors = append(errors, fmt.Sprintf("invalid max pages %d: must be at least 1", c.MaxPages))
	}
	if c.HeuristicsFile != "" {
		if _, err := os.Stat(c.HeuristicsFile); err != nil {
			errors = append(errors, fmt.Sprintf("heuristics file does not exist: %s", c.HeuristicsFile))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 7 days", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}
	if c.LoginRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate %d: must be at least 1 per minute", c.LoginRatePerMinute))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(name, raw string) []string {
	if raw == "" {
		return []string{fmt.Sprintf("%s cannot be empty when using graphql backend", name)}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s: %v", name, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme)}
	}
	if u.Host == "" {
		return []string{fmt.Sprintf("invalid %s: missing host", name)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
