// Package backend builds the data source the dashboard runs against.
package backend

import (
	"context"
	"time"

	"xpdash/internal/amqp"
	"xpdash/internal/source"
)

// Backend signs users in and runs queries with their token.
type Backend interface {
	source.Provider
	source.Authenticator
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function.
// Publisher is nil when events are disabled or the broker is unreachable.
type BackendResult struct {
	Backend   Backend
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// GraphQL specific
	GraphQLURL string
	SigninURL  string

	// Memory specific
	FixturesPath string
	TokenSecret  []byte
	TokenTTL     time.Duration

	// Events, optional
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// BackendType represents the type of backend
type BackendType string

const (
	GraphQLBackend BackendType = "graphql"
	MemoryBackend  BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case GraphQLBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
