package source

import (
	"math"
	"time"

	"xpdash/internal/core"
)

// Wire shapes of the rows returned by the queries above.
type (
	ObjectRow struct {
		ID   int64  `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		Type string `json:"type,omitempty"`
	}

	UserRow struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}

	TransactionRow struct {
		ID        int64      `json:"id"`
		Type      string     `json:"type"`
		Amount    float64    `json:"amount"`
		CreatedAt time.Time  `json:"createdAt"`
		Path      string     `json:"path"`
		Object    *ObjectRow `json:"object,omitempty"`
	}

	ProgressRow struct {
		ID        int64      `json:"id"`
		Grade     *float64   `json:"grade"`
		Path      string     `json:"path"`
		UpdatedAt time.Time  `json:"updatedAt"`
		Object    *ObjectRow `json:"object,omitempty"`
	}
)

func (r UserRow) ToDomain() core.User {
	return core.User{ID: r.ID, Login: r.Login}
}

func (r TransactionRow) ToDomain() core.Transaction {
	tx := core.Transaction{
		ID:        r.ID,
		Type:      core.TxType(r.Type),
		Amount:    int64(math.Round(r.Amount)),
		CreatedAt: r.CreatedAt,
		Path:      r.Path,
	}
	if r.Object != nil {
		tx.ObjectName = r.Object.Name
	}
	return tx
}

func (r ProgressRow) ToDomain() core.Progress {
	p := core.Progress{
		ID:        r.ID,
		Grade:     r.Grade,
		Path:      r.Path,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Object != nil {
		p.ObjectID = r.Object.ID
		p.ObjectName = r.Object.Name
		p.ObjectType = r.Object.Type
	}
	return p
}

// Transactions converts rows, dropping any that fail validation.
func Transactions(rows []TransactionRow) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		tx := r.ToDomain()
		if tx.Validate() != nil {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Progresses converts rows, dropping any without an update time.
func Progresses(rows []ProgressRow) []core.Progress {
	out := make([]core.Progress, 0, len(rows))
	for _, r := range rows {
		p := r.ToDomain()
		if p.Validate() != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
