// Package source defines the query boundary of the profile pipeline and the
// paginator built on top of it.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Ports for outbound adapters.
type (
	// Executor runs a parameterized query and returns the data payload.
	Executor interface {
		Execute(ctx context.Context, q Query, vars map[string]any) (Data, error)
	}

	// Authenticator exchanges user credentials for a bearer token.
	Authenticator interface {
		SignIn(ctx context.Context, identifier, password string) (token string, err error)
	}

	// Provider binds an Executor to a bearer token.
	Provider interface {
		WithToken(token string) Executor
	}
)

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, q Query, vars map[string]any) (Data, error)

func (f ExecutorFunc) Execute(ctx context.Context, q Query, vars map[string]any) (Data, error) {
	return f(ctx, q, vars)
}

// Query describes one named query. Root is the top-level field holding the
// rows when the query is paginated.
type Query struct {
	Name string
	Text string
	Root string
}

// Data maps top-level field names to their raw JSON values.
type Data map[string]json.RawMessage

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingField       = errors.New("missing field in response")
)

// QueryError carries the message reported by the remote side.
type QueryError struct {
	Query   string
	Status  int
	Message string
	Auth    bool
}

func (e *QueryError) Error() string {
	if e.Query == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Query, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match credential failures.
func (e *QueryError) Is(target error) bool {
	return target == ErrUnauthorized && e.Auth
}

// Decode unmarshals field of d into out.
func Decode(d Data, field string, out any) error {
	raw, ok := d[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}
