package backend

import (
	"context"
	"crypto/rand"
	"fmt"

	"xpdash/internal/amqp"
	"xpdash/internal/log"
	"xpdash/internal/source/graphql"
	"xpdash/internal/source/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case GraphQLBackend:
		result = f.createGraphQLBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, config, result)
	return result, nil
}

type graphQLBackend struct {
	*graphql.Client
	*graphql.Authenticator
}

func (f *DefaultFactory) createGraphQLBackend(config Config) *BackendResult {
	f.logger.Info("Initialized GraphQL backend",
		"endpoint", config.GraphQLURL,
		"signin_url", config.SigninURL)

	return &BackendResult{
		Backend: graphQLBackend{
			Client:        graphql.New(config.GraphQLURL, nil),
			Authenticator: graphql.NewAuthenticator(config.SigninURL, nil),
		},
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	secret := config.TokenSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}

	store, err := memory.NewFromFile(config.FixturesPath, secret, config.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "fixtures", config.FixturesPath)
	return &BackendResult{Backend: store}, nil
}

// attachPublisher connects to the broker when configured. A broker outage
// only disables events.
func (f *DefaultFactory) attachPublisher(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)
	result.Publisher = client
	result.Cleanup = client.Close
}
