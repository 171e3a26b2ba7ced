package backend

import (
	"fmt"

	"xpdash/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type: backendType,

		GraphQLURL: appConfig.GraphQLURL,
		SigninURL:  appConfig.SigninURL,

		FixturesPath: appConfig.FixturesPath,
		TokenTTL:     appConfig.SessionTTL,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}
	if appConfig.MemoryTokenSecret != "" {
		cfg.TokenSecret = []byte(appConfig.MemoryTokenSecret)
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case GraphQLBackend:
		if c.GraphQLURL == "" {
			return fmt.Errorf("GraphQL endpoint is required for graphql backend")
		}
		if c.SigninURL == "" {
			return fmt.Errorf("signin URL is required for graphql backend")
		}
	case MemoryBackend:
		if c.FixturesPath == "" {
			return fmt.Errorf("fixtures path is required for memory backend")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPRoutingKey == "") {
		return fmt.Errorf("AMQP exchange and routing key are required when AMQP URL is set")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{GraphQLBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
