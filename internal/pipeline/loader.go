// Package pipeline loads a user's profile by running the queries in
// dependency order and feeding the results through classification,
// checkpoint resolution and aggregation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"xpdash/internal/core"
	"xpdash/internal/log"
	"xpdash/internal/source"
	"xpdash/internal/xp"
)

// Stage names, in dependency order. The first three run concurrently.
const (
	StageIdentity   = "identity"
	StageAudit      = "audit"
	StageProgress   = "progress"
	StageClassify   = "classify"
	StageProjectXP  = "project-xp"
	StageWindow     = "window"
	StageCheckpoint = "checkpoint"
	StageExerciseXP = "exercise-xp"
	StageAggregate  = "aggregate"
)

// StageHook is called when a stage starts. It may be called from several
// goroutines at once during the first stages.
type StageHook func(stage string)

type Loader struct {
	heuristics xp.Heuristics
	pages      source.PageOptions
	hook       StageHook
	logger     *log.Logger
}

type Option func(*Loader)

func WithStageHook(h StageHook) Option {
	return func(l *Loader) { l.hook = h }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger.WithComponent(log.ComponentPipeline) }
}

func New(h xp.Heuristics, pages source.PageOptions, opts ...Option) *Loader {
	l := &Loader{
		heuristics: h,
		pages:      pages,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentPipeline),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs the whole pipeline against exec. Any failure aborts the load and
// no partial profile is returned.
func (l *Loader) Load(ctx context.Context, exec source.Executor, now time.Time) (*core.Profile, error) {
	var (
		user     core.User
		audit    core.AuditSummary
		progress []core.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		l.enter(StageIdentity)
		user, err = l.fetchUser(gctx, exec)
		return err
	})
	g.Go(func() (err error) {
		l.enter(StageAudit)
		audit, err = l.fetchAudit(gctx, exec)
		return err
	})
	g.Go(func() (err error) {
		l.enter(StageProgress)
		progress, err = l.fetchProgress(gctx, exec)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg, err := l.aggregate(ctx, exec, progress, now)
	if err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "Profile loaded",
		log.NewFields().WithProfile(user.ID, user.Login, agg.TotalAllTime, agg.Total6Month).ToSlice()...)
	return &core.Profile{User: user, Audit: audit, Aggregate: agg, LoadedAt: now}, nil
}

func (l *Loader) aggregate(ctx context.Context, exec source.Executor, progress []core.Progress, now time.Time) (core.AggregateResult, error) {
	h := l.heuristics

	l.enter(StageClassify)
	latest := xp.LatestByObject(progress)
	paths := xp.NewProjectPathSet(progress)
	if paths.Len() == 0 {
		l.logger.DebugContext(ctx, "No project progress, skipping transaction queries")
		l.enter(StageAggregate)
		return xp.Aggregate(xp.Input{Latest: latest}, now), nil
	}

	l.enter(StageProjectXP)
	projectTx, err := l.fetchTransactions(ctx, exec, source.QueryProjectXP, map[string]any{
		"paths": paths.Variants(),
	})
	if err != nil {
		return core.AggregateResult{}, err
	}

	l.enter(StageWindow)
	windowStart, windowEnd, hasWindow := xp.ProjectWindow(projectTx)

	l.enter(StageCheckpoint)
	var candidateTx []core.Transaction
	for _, kw := range h.PiscineKeywords {
		rows, err := l.fetchTransactions(ctx, exec, source.QueryCheckpointCandidates, map[string]any{
			"pattern": "%" + kw + "%",
			"min":     h.CheckpointMin,
			"max":     h.CheckpointMax,
		})
		if err != nil {
			return core.AggregateResult{}, err
		}
		candidateTx = append(candidateTx, rows...)
	}
	candidates := xp.Partition(dedupe(candidateTx), paths, h).Candidates
	var checkpoint *core.Transaction
	if cp, ok := xp.PickCheckpoint(candidates, windowStart, windowEnd, h); ok {
		checkpoint = &cp
	}

	l.enter(StageExerciseXP)
	var exerciseTx []core.Transaction
	if hasWindow {
		exerciseTx, err = l.fetchTransactions(ctx, exec, source.QueryExerciseXP, map[string]any{
			"from": windowStart.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return core.AggregateResult{}, err
		}
	}

	l.enter(StageAggregate)
	all := make([]core.Transaction, 0, len(projectTx)+len(candidateTx)+len(exerciseTx))
	all = append(all, projectTx...)
	all = append(all, candidateTx...)
	all = append(all, exerciseTx...)
	c := xp.Partition(dedupe(all), paths, h)
	l.logger.DebugContext(ctx, "Transactions classified",
		"projects", len(c.Projects),
		"candidates", len(c.Candidates),
		"small", len(c.Small),
		"unclassified", len(c.Unclassified),
		"checkpoint", checkpoint != nil)

	return xp.Aggregate(xp.Input{
		Projects:   c.Projects,
		Checkpoint: checkpoint,
		Small:      c.Small,
		Latest:     latest,
	}, now), nil
}

func (l *Loader) fetchUser(ctx context.Context, exec source.Executor) (core.User, error) {
	data, err := exec.Execute(ctx, source.QueryUser, nil)
	if err != nil {
		return core.User{}, fmt.Errorf("%s: %w", StageIdentity, err)
	}
	var rows []source.UserRow
	if err := source.Decode(data, source.QueryUser.Root, &rows); err != nil {
		return core.User{}, fmt.Errorf("%s: %w", StageIdentity, err)
	}
	if len(rows) == 0 {
		return core.User{}, nil
	}
	return rows[0].ToDomain(), nil
}

func (l *Loader) fetchAudit(ctx context.Context, exec source.Executor) (core.AuditSummary, error) {
	rows, err := source.FetchAllPaged[source.TransactionRow](ctx, exec, source.QueryAudit, nil, l.pages)
	if err != nil {
		return core.AuditSummary{}, fmt.Errorf("%s: %w", StageAudit, err)
	}
	var up, down int64
	for _, tx := range source.Transactions(rows) {
		switch tx.Type {
		case core.TxUp:
			up += tx.Amount
		case core.TxDown:
			down += tx.Amount
		}
	}
	return core.NewAuditSummary(up, down), nil
}

func (l *Loader) fetchProgress(ctx context.Context, exec source.Executor) ([]core.Progress, error) {
	rows, err := source.FetchAllPaged[source.ProgressRow](ctx, exec, source.QueryProgress, nil, l.pages)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageProgress, err)
	}
	return source.Progresses(rows), nil
}

func (l *Loader) fetchTransactions(ctx context.Context, exec source.Executor, q source.Query, vars map[string]any) ([]core.Transaction, error) {
	rows, err := source.FetchAllPaged[source.TransactionRow](ctx, exec, q, vars, l.pages)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", q.Name, err)
	}
	l.logger.DebugContext(ctx, "Transactions fetched", log.FieldQuery, q.Name, log.FieldRows, len(rows))
	return source.Transactions(rows), nil
}

func (l *Loader) enter(stage string) {
	if l.hook != nil {
		l.hook(stage)
	}
}

// dedupe drops rows already seen through another query, keeping the first.
func dedupe(txs []core.Transaction) []core.Transaction {
	seen := make(map[string]struct{}, len(txs))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		key := tx.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tx)
	}
	return out
}
