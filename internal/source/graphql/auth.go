package graphql

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"xpdash/internal/source"
)

var (
	ErrInvalidCredentials = source.ErrInvalidCredentials
	ErrInvalidToken       = errors.New("signin did not return a valid JWT")
)

// Authenticator signs users in with HTTP Basic credentials.
type Authenticator struct {
	signinURL  string
	httpClient *http.Client
}

var _ source.Authenticator = (*Authenticator)(nil)

func NewAuthenticator(signinURL string, httpClient *http.Client) *Authenticator {
	if signinURL == "" {
		signinURL = DefaultSigninURL
	}
	if httpClient == nil {
		httpClient = newHTTPClientWithPooling()
	}
	return &Authenticator{signinURL: signinURL, httpClient: httpClient}
}

// SignIn posts the credentials and returns the bearer token from the body.
func (a *Authenticator) SignIn(ctx context.Context, identifier, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.signinURL, nil)
	if err != nil {
		return "", fmt.Errorf("build signin request: %w", err)
	}
	req.Header.Set("Authorization", basicAuth(identifier, password))
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signin: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read signin response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w (%d)", ErrInvalidCredentials, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("login failed (%d)", resp.StatusCode)
		}
		return "", fmt.Errorf("signin: %s", msg)
	}

	token := ExtractJWT(string(raw))
	if strings.Count(token, ".") != 2 {
		return "", fmt.Errorf("%w: response starts with %q", ErrInvalidToken, preview(string(raw)))
	}
	return token, nil
}

func basicAuth(identifier, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(identifier+":"+password))
}

var quoted = regexp.MustCompile(`^"(.+)"$`)

// ExtractJWT pulls a token out of the shapes signin endpoints are known to
// return: a bare token, a quoted string, a "Bearer" value or a JSON object.
func ExtractJWT(body string) string {
	t := strings.TrimSpace(body)
	if t == "" {
		return ""
	}
	t = strings.TrimSpace(quoted.ReplaceAllString(t, "$1"))
	if len(t) >= 7 && strings.EqualFold(t[:7], "bearer ") {
		t = strings.TrimSpace(t[7:])
	}
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		var obj struct {
			Token       string `json:"token"`
			JWT         string `json:"jwt"`
			AccessToken string `json:"access_token"`
			IDToken     string `json:"id_token"`
			Data        struct {
				Token string `json:"token"`
			} `json:"data"`
		}
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			t = firstNonEmpty(obj.Token, obj.JWT, obj.AccessToken, obj.IDToken, obj.Data.Token)
		}
	}
	return strings.TrimSpace(t)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
