package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpdash/internal/source"
)

var userQuery = source.Query{Name: "User", Text: "query { user { id login } }", Root: "user"}

func TestExecute_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, userQuery.Text, body.Query)
		assert.Equal(t, float64(10), body.Variables["limit"])

		_, _ = w.Write([]byte(`{"data":{"user":[{"id":7,"login":"alice"}]}}`))
	}))
	defer srv.Close()

	data, err := New(srv.URL, srv.Client()).WithToken("tok").Execute(context.Background(), userQuery, map[string]any{"limit": 10})

	require.NoError(t, err)
	var users []struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	require.NoError(t, source.Decode(data, "user", &users))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Login)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantAuth bool
	}{
		{
			name:    "graphql error message",
			status:  http.StatusOK,
			body:    `{"errors":[{"message":"field 'foo' not found","extensions":{"code":"validation-failed"}}]}`,
			wantMsg: "field 'foo' not found",
		},
		{
			name:     "expired jwt",
			status:   http.StatusOK,
			body:     `{"errors":[{"message":"Could not verify JWT: JWTExpired","extensions":{"code":"invalid-jwt"}}]}`,
			wantMsg:  "Could not verify JWT: JWTExpired",
			wantAuth: true,
		},
		{
			name:     "unauthorized status without body",
			status:   http.StatusUnauthorized,
			body:     ``,
			wantMsg:  "GraphQL error (401)",
			wantAuth: true,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantMsg: "GraphQL error (502)",
		},
		{
			name:    "missing data",
			status:  http.StatusOK,
			body:    `{}`,
			wantMsg: "response has no data",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, srv.Client()).WithToken("tok").Execute(context.Background(), userQuery, nil)

			require.Error(t, err)
			var qe *source.QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tc.wantMsg, qe.Message)
			assert.Equal(t, tc.wantAuth, IsUnauthorized(err))
		})
	}
}

func TestExecute_NoToken(t *testing.T) {
	_, err := New("http://127.0.0.1:1", nil).WithToken("").Execute(context.Background(), userQuery, nil)
	assert.ErrorIs(t, err, source.ErrUnauthorized)
}

func TestExecute_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, srv.Client()).WithToken("tok").Execute(ctx, userQuery, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
