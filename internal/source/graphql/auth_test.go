package graphql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtLike = "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"

func TestExtractJWT(t *testing.T) {
	cases := map[string]string{
		"bare":          jwtLike,
		"quoted":        `"` + jwtLike + `"`,
		"bearer":        "Bearer " + jwtLike,
		"quoted bearer": `"bearer ` + jwtLike + `"`,
		"json token":    `{"token":"` + jwtLike + `"}`,
		"json jwt":      `{"jwt":"` + jwtLike + `"}`,
		"json access":   `{"access_token":"` + jwtLike + `"}`,
		"json id":       `{"id_token":"` + jwtLike + `"}`,
		"json data":     `{"data":{"token":"` + jwtLike + `"}}`,
		"padded":        "\n  " + jwtLike + "  \n",
	}
	for name, body := range cases {
		assert.Equal(t, jwtLike, ExtractJWT(body), name)
	}
	assert.Equal(t, "", ExtractJWT(""))
	assert.Equal(t, "", ExtractJWT(`{"message":"nope"}`))
}

func TestSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"User does not exist or password incorrect"}`))
			return
		}
		_, _ = w.Write([]byte(`"` + jwtLike + `"`))
	}))
	defer srv.Close()

	auth := NewAuthenticator(srv.URL, srv.Client())

	token, err := auth.SignIn(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, jwtLike, token)

	_, err = auth.SignIn(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_RejectsNonJWT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := NewAuthenticator(srv.URL, srv.Client()).SignIn(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "maintenance")
}

func TestSignIn_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewAuthenticator(srv.URL, srv.Client()).SignIn(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed (500)")
}
