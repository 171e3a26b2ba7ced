package source

import (
	"context"
	"errors"
	"fmt"

	"xpdash/internal/log"
	"xpdash/internal/metrics"
)

const (
	DefaultPageSize = 1000
	DefaultMaxPages = 200
)

// ErrReservedVariable is returned when the caller supplies limit or offset.
var ErrReservedVariable = errors.New("limit and offset are managed by the paginator")

// PageOptions bounds a paginated fetch. Zero values fall back to defaults.
type PageOptions struct {
	PageSize int
	MaxPages int
}

func (o PageOptions) withDefaults() PageOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// FetchAllPaged repeats q with increasing offsets until a page comes back
// short. Reaching MaxPages is not an error: the rows gathered so far are
// returned and the truncation is logged. A failing page aborts the fetch.
// Callers must order the query by a stable key.
func FetchAllPaged[T any](ctx context.Context, exec Executor, q Query, base map[string]any, opts PageOptions) ([]T, error) {
	if _, ok := base["limit"]; ok {
		return nil, ErrReservedVariable
	}
	if _, ok := base["offset"]; ok {
		return nil, ErrReservedVariable
	}
	opts = opts.withDefaults()

	var all []T
	for page := 0; page < opts.MaxPages; page++ {
		vars := make(map[string]any, len(base)+2)
		for k, v := range base {
			vars[k] = v
		}
		vars["limit"] = opts.PageSize
		vars["offset"] = page * opts.PageSize

		data, err := exec.Execute(ctx, q, vars)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", q.Name, page, err)
		}
		var rows []T
		if err := Decode(data, q.Root, &rows); err != nil {
			return nil, fmt.Errorf("%s page %d: %w", q.Name, page, err)
		}
		metrics.RecordPage(q.Name)
		all = append(all, rows...)

		if len(rows) < opts.PageSize {
			return all, nil
		}
	}

	metrics.RecordTruncated(q.Name)
	log.FromContext(ctx).WithComponent(log.ComponentPaginator).WarnContext(ctx, "Pagination stopped at page limit",
		log.FieldQuery, q.Name,
		"max_pages", opts.MaxPages,
		"page_size", opts.PageSize,
		log.FieldRows, len(all))
	return all, nil
}
