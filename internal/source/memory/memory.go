// Package memory serves the profile queries from a fixture file. It backs
// the demo mode and the pipeline tests.
package memory

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"xpdash/internal/core"
	"xpdash/internal/source"
)

// Fixtures is the on-disk format.
type Fixtures struct {
	User         source.UserRow          `json:"user"`
	Password     string                  `json:"password"`
	Transactions []source.TransactionRow `json:"transactions"`
	Progress     []source.ProgressRow    `json:"progress"`
}

type Store struct {
	mu       sync.RWMutex
	fixtures Fixtures
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// Ensure interface conformance
var (
	_ source.Provider      = (*Store)(nil)
	_ source.Authenticator = (*Store)(nil)
	_ source.Executor      = (*session)(nil)
)

var ErrInvalidCredentials = source.ErrInvalidCredentials

// New creates a store. Tokens it issues are signed with secret.
func New(f Fixtures, secret []byte, tokenTTL time.Duration) *Store {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Store{fixtures: f, secret: secret, tokenTTL: tokenTTL, now: time.Now}
}

// NewFromFile loads fixtures from a JSON file.
func NewFromFile(path string, secret []byte, tokenTTL time.Duration) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	if f.User.Login == "" {
		return nil, fmt.Errorf("fixtures %s: user login is required", path)
	}
	return New(f, secret, tokenTTL), nil
}

// SignIn checks the fixture credentials and issues an HS256 token.
func (s *Store) SignIn(_ context.Context, identifier, password string) (string, error) {
	s.mu.RLock()
	user, want := s.fixtures.User, s.fixtures.Password
	s.mu.RUnlock()

	if !strings.EqualFold(identifier, user.Login) ||
		subtle.ConstantTimeCompare([]byte(password), []byte(want)) != 1 {
		return "", ErrInvalidCredentials
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		Issuer:    "xpdash-memory",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// WithToken returns an Executor that rejects every query unless token verifies.
func (s *Store) WithToken(token string) source.Executor {
	return &session{store: s, token: token}
}

type session struct {
	store *Store
	token string
}

func (sess *session) Execute(ctx context.Context, q source.Query, vars map[string]any) (source.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sess.store.verify(sess.token); err != nil {
		return nil, &source.QueryError{Query: q.Name, Status: 401, Message: err.Error(), Auth: true}
	}
	return sess.store.execute(q, vars)
}

func (s *Store) verify(token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("invalid JWT: %w", err)
	}
	return nil
}

func (s *Store) execute(q source.Query, vars map[string]any) (source.Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch q.Name {
	case source.QueryUser.Name:
		return encode(q.Root, []source.UserRow{s.fixtures.User})

	case source.QueryAudit.Name:
		rows := s.filterTx(func(r source.TransactionRow) bool {
			return r.Type == string(core.TxUp) || r.Type == string(core.TxDown)
		})
		return encode(q.Root, page(rows, vars))

	case source.QueryProgress.Name:
		var rows []source.ProgressRow
		for _, r := range s.fixtures.Progress {
			if r.Object != nil && r.Object.Type == core.ObjectTypeProject {
				rows = append(rows, r)
			}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
				return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
			}
			return rows[i].ID < rows[j].ID
		})
		return encode(q.Root, page(rows, vars))

	case source.QueryProjectXP.Name:
		paths := make(map[string]bool)
		for _, p := range toStrings(vars["paths"]) {
			paths[p] = true
		}
		rows := s.filterTx(func(r source.TransactionRow) bool {
			return r.Type == string(core.TxXP) && paths[r.Path]
		})
		return encode(q.Root, page(rows, vars))

	case source.QueryCheckpointCandidates.Name:
		pattern := fmt.Sprint(vars["pattern"])
		lo, hi := toFloat(vars["min"]), toFloat(vars["max"])
		rows := s.filterTx(func(r source.TransactionRow) bool {
			return r.Type == string(core.TxXP) && ilike(r.Path, pattern) && r.Amount >= lo && r.Amount <= hi
		})
		return encode(q.Root, page(rows, vars))

	case source.QueryExerciseXP.Name:
		from, err := toTime(vars["from"])
		if err != nil {
			return nil, &source.QueryError{Query: q.Name, Status: 400, Message: err.Error()}
		}
		rows := s.filterTx(func(r source.TransactionRow) bool {
			return r.Type == string(core.TxXP) && !r.CreatedAt.Before(from)
		})
		return encode(q.Root, page(rows, vars))
	}
	return nil, &source.QueryError{Query: q.Name, Status: 400, Message: "unknown query"}
}

// filterTx returns matching transactions ordered by createdAt, then id.
func (s *Store) filterTx(keep func(source.TransactionRow) bool) []source.TransactionRow {
	var rows []source.TransactionRow
	for _, r := range s.fixtures.Transactions {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

func page[T any](rows []T, vars map[string]any) []T {
	offset := int(toFloat(vars["offset"]))
	if offset < 0 || offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit := int(toFloat(vars["limit"])); limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func encode(root string, rows any) (source.Data, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", root, err)
	}
	return source.Data{root: raw}, nil
}

// ilike implements the SQL ILIKE subset used by the queries: % wildcards only.
func ilike(s, pattern string) bool {
	s, pattern = strings.ToLower(s), strings.ToLower(pattern)
	parts := strings.Split(pattern, "%")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	last := len(parts) - 1
	for i := 1; i < last; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	if last == 0 {
		return s == ""
	}
	return strings.HasSuffix(s, parts[last])
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			out = append(out, fmt.Sprint(x))
		}
		return out
	}
	return nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %v", v)
}
