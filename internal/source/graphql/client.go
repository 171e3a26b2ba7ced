// Package graphql is the HTTP adapter for the platform GraphQL endpoint.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"xpdash/internal/log"
	"xpdash/internal/metrics"
	"xpdash/internal/source"
)

const (
	DefaultEndpoint  = "https://learn.reboot01.com/api/graphql-engine/v1/graphql"
	DefaultSigninURL = "https://learn.reboot01.com/api/auth/signin"

	maxResponseBytes = 64 << 20
)

// Client talks to a Hasura-style GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Ensure interface conformance
var (
	_ source.Provider = (*Client)(nil)
	_ source.Executor = (*boundClient)(nil)
)

// New creates a client. A nil httpClient uses a pooled default.
func New(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// WithToken returns an Executor that authenticates every request with token.
func (c *Client) WithToken(token string) source.Executor {
	return &boundClient{Client: c, token: token}
}

type boundClient struct {
	*Client
	token string
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   source.Data `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

func (b *boundClient) Execute(ctx context.Context, q source.Query, vars map[string]any) (source.Data, error) {
	if b.token == "" {
		return nil, &source.QueryError{Query: q.Name, Message: "not authenticated", Auth: true}
	}
	start := time.Now()
	data, status, err := b.do(ctx, q, vars)
	metrics.RecordQuery(q.Name, status, time.Since(start).Seconds())
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentGraphQL).DebugContext(ctx, "GraphQL query failed",
			log.FieldQuery, q.Name, log.FieldError, err)
		return nil, err
	}
	return data, nil
}

func (b *boundClient) do(ctx context.Context, q source.Query, vars map[string]any) (source.Data, string, error) {
	body, err := json.Marshal(request{Query: q.Text, Variables: vars})
	if err != nil {
		return nil, "encode", fmt.Errorf("encode %s: %w", q.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "request", fmt.Errorf("build %s request: %w", q.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "transport", fmt.Errorf("post %s: %w", q.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "transport", fmt.Errorf("read %s response: %w", q.Name, err)
	}

	var out response
	decodeErr := json.Unmarshal(raw, &out)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || len(out.Errors) > 0 || decodeErr != nil {
		qe := &source.QueryError{
			Query:   q.Name,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("GraphQL error (%d)", resp.StatusCode),
			Auth:    resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			if first.Message != "" {
				qe.Message = first.Message
			}
			if isAuthError(first.Extensions.Code, first.Message) {
				qe.Auth = true
			}
		}
		status := "error"
		if qe.Auth {
			status = "unauthorized"
		}
		return nil, status, qe
	}
	if out.Data == nil {
		return nil, "error", &source.QueryError{Query: q.Name, Status: resp.StatusCode, Message: "response has no data"}
	}
	return out.Data, "ok", nil
}

func isAuthError(code, message string) bool {
	switch code {
	case "invalid-jwt", "invalid-headers", "access-denied":
		return true
	}
	m := strings.ToLower(message)
	return strings.Contains(m, "jwt") || strings.Contains(m, "unauthorized")
}

// IsUnauthorized reports whether err means the token must be discarded.
func IsUnauthorized(err error) bool {
	return errors.Is(err, source.ErrUnauthorized)
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	// No overall Timeout: cancellation comes from the caller's context.
	return &http.Client{Transport: transport}
}
