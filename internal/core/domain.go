package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TxXP   TxType = "xp"
	TxUp   TxType = "up"
	TxDown TxType = "down"
)

// ObjectTypeProject marks progress records that belong to a project.
const ObjectTypeProject = "project"

type (
	TxType string

	// Transaction is a single ledger row reported by the platform.
	Transaction struct {
		ID         int64
		Amount     int64
		CreatedAt  time.Time
		Path       string
		ObjectName string
		Type       TxType
	}

	// Progress is a graded outcome for a learning object at a point in time.
	Progress struct {
		ID         int64
		ObjectID   int64
		ObjectName string
		ObjectType string
		Path       string
		Grade      *float64 // nil while the object is still in progress
		UpdatedAt  time.Time
	}

	User struct {
		ID    int64
		Login string
	}
)

var (
	ErrInvalidTxType  = errors.New("invalid transaction type")
	ErrMissingCreated = errors.New("missing creation time")
	ErrMissingUpdated = errors.New("missing update time")
)

func (t TxType) Valid() bool {
	switch t {
	case TxXP, TxUp, TxDown:
		return true
	default:
		return false
	}
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTxType, t.Type)
	}
	if t.CreatedAt.IsZero() {
		return ErrMissingCreated
	}
	return nil
}

// Abs returns the magnitude of the amount.
func (t Transaction) Abs() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// DedupKey identifies the same row fetched through different queries.
func (t Transaction) DedupKey() string {
	if t.ID != 0 {
		return fmt.Sprintf("id:%d", t.ID)
	}
	return fmt.Sprintf("%s|%d|%d", t.Path, t.CreatedAt.UnixNano(), t.Amount)
}

// ObjectKey is the identity used when keeping one progress record per object.
func (p Progress) ObjectKey() string {
	if p.ObjectID != 0 {
		return fmt.Sprintf("obj:%d", p.ObjectID)
	}
	return "path:" + p.Path
}

func (p Progress) Validate() error {
	if p.UpdatedAt.IsZero() {
		return ErrMissingUpdated
	}
	return nil
}

// IsProject reports whether the record belongs to a project object.
func (p Progress) IsProject() bool {
	return strings.EqualFold(p.ObjectType, ObjectTypeProject)
}

// NormalizePath strips trailing slashes so "a/b" and "a/b/" denote one entity.
func NormalizePath(path string) string {
	return strings.TrimRight(strings.TrimSpace(path), "/")
}
