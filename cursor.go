package rqlitec

import (
	"context"
	"time"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
	"github.com/rqlitec/rqlitec/internal/sqltext"
)

// execOptions holds the resolved settings for one Cursor call. raiseOnError
// defaults to true: a SQL error raises as an *rqliteerr.SQLErr unless the
// caller explicitly opts out with WithRaiseOnError(false). transactional
// defaults to true and only matters to ExecuteMany. level and freshness, if
// set, override the Cursor's own bound values for this call only; levelSet
// false means "use the Cursor's level", and a zero freshness means "use
// the Cursor's freshness".
type execOptions struct {
	raiseOnError  bool
	transactional bool
	level         Consistency
	levelSet      bool
	freshness     time.Duration
}

// ExecOption adjusts the behavior of a single Cursor call. The pattern
// mirrors the rest of the driver stack's functional options: each option is
// a small closure applied in order over the defaults.
type ExecOption func(*execOptions)

// WithRaiseOnError controls whether a per-statement SQL error raises as an
// error return (true, the default) or is instead carried as data on the
// result (false) for the caller to inspect statement-by-statement.
func WithRaiseOnError(raise bool) ExecOption {
	return func(o *execOptions) { o.raiseOnError = raise }
}

// WithTransaction controls whether ExecuteMany's batch rolls back entirely
// on a mid-batch SQL error (true, the default) or leaves every statement
// before the failure committed (false). It has no effect on Execute.
func WithTransaction(transactional bool) ExecOption {
	return func(o *execOptions) { o.transactional = transactional }
}

// WithReadConsistency overrides the Cursor's bound consistency level for a
// single Execute or Explain call. It has no effect on a write statement
// passed to Execute, or on ExecuteMany (writes always run at Strong).
func WithReadConsistency(level Consistency) ExecOption {
	return func(o *execOptions) { o.level, o.levelSet = level, true }
}

// WithFreshness overrides the Cursor's bound freshness bound for a single
// Execute or Explain call. Only meaningful alongside a None consistency
// level.
func WithFreshness(d time.Duration) ExecOption {
	return func(o *execOptions) { o.freshness = d }
}

func resolveExecOptions(opts []ExecOption) execOptions {
	o := execOptions{raiseOnError: true, transactional: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolvedLevel returns the level a read call should use: o's override if
// WithReadConsistency was passed, otherwise cur's bound consistency.
func (cur *Cursor) resolvedLevel(o execOptions) Consistency {
	if o.levelSet {
		return o.level
	}
	return cur.consistency
}

// resolvedFreshness returns the freshness bound a read call should use: o's
// override if WithFreshness was passed (non-zero), otherwise cur's own
// effective freshness.
func (cur *Cursor) resolvedFreshness(o execOptions) time.Duration {
	if o.freshness > 0 {
		return o.freshness
	}
	return cur.effectiveFreshness()
}

// Cursor is a consumer-facing handle bound to one read consistency level
// and freshness bound, grouping calls that should share them without
// repeating both on every Query/Execute call. It holds no server-side
// state; a Cursor can be discarded and recreated freely and several may be
// used concurrently over the same Connection.
type Cursor struct {
	conn        *Connection
	consistency Consistency
	freshness   time.Duration
}

// Cursor returns a handle bound to level and freshness (freshness only
// applies to None-level reads; it is ignored otherwise). Pass 0 for
// freshness to fall back to the Connection's configured default.
func (c *Connection) Cursor(level Consistency, freshness time.Duration) *Cursor {
	return &Cursor{conn: c, consistency: level, freshness: freshness}
}

func (cur *Cursor) effectiveFreshness() time.Duration {
	if cur.freshness > 0 {
		return cur.freshness
	}
	return cur.conn.opts.Freshness
}

// Execute runs sql as a read (SELECT or EXPLAIN) or a write, depending on
// how it classifies, at the cursor's bound consistency level. A SQL error
// raises by default; pass WithRaiseOnError(false) to get it back as data
// instead (a QueryResult/ExecResult of nil and a non-empty error string).
func (cur *Cursor) Execute(ctx context.Context, sql string, params []Parameter, opts ...ExecOption) (*QueryResult, *ExecResult, string, error) {
	o := resolveExecOptions(opts)

	if sqltext.Classify(sql).IsRead() {
		res, errText, err := cur.conn.queryAt(ctx, cur.resolvedLevel(o), cur.resolvedFreshness(o), sql, params)
		if err != nil {
			return nil, nil, "", err
		}
		if errText != "" && o.raiseOnError {
			return nil, nil, "", &rqliteerr.SQLErr{Message: errText, Index: 0}
		}
		return res, nil, errText, nil
	}

	bulk, err := cur.conn.executeManyAt(ctx, false, []Statement{{SQL: sql, Params: params}})
	if err != nil {
		return nil, nil, "", err
	}
	if len(bulk.Items) == 0 {
		return nil, nil, "", &rqliteerr.ProtocolErr{Message: "execute: server returned no result"}
	}
	item := bulk.Items[0]
	if item.Err != "" && o.raiseOnError {
		return nil, nil, "", &rqliteerr.SQLErr{Message: item.Err, Index: 0}
	}
	return item.Query, item.Exec, item.Err, nil
}

// ExecuteMany runs a batch of statements as a single request, transactional
// by default (WithTransaction(false) leaves every statement before a
// mid-batch failure committed). Returns every item's result regardless of
// error when raiseOnError is false; with the default raiseOnError true, the
// first per-statement error raises immediately, same as
// Connection.ExecuteMany.
func (cur *Cursor) ExecuteMany(ctx context.Context, statements []Statement, opts ...ExecOption) (*BulkResult, error) {
	o := resolveExecOptions(opts)

	out, err := cur.conn.executeManyAt(ctx, o.transactional, statements)
	if err != nil {
		return nil, err
	}
	if o.raiseOnError {
		for i, item := range out.Items {
			if item.Err != "" {
				return nil, &rqliteerr.SQLErr{Message: item.Err, Index: i}
			}
		}
	}
	return out, nil
}

// Explain runs sql as an EXPLAIN QUERY PLAN at the cursor's consistency
// level (or WithReadConsistency's override), clamped down from Strong to
// Weak the same way Connection.Explain does. A SQL error always raises:
// WithRaiseOnError has no effect here, matching the specification's
// always-raise rule for Explain.
func (cur *Cursor) Explain(ctx context.Context, sql string, params []Parameter, opts ...ExecOption) (*QueryResult, error) {
	o := resolveExecOptions(opts)
	if cmd := sqltext.Classify(sql); cmd != sqltext.EXPLAIN && cmd != sqltext.EXPLAIN_QUERY_PLAN {
		sql = "EXPLAIN QUERY PLAN " + sql
	}
	level := cur.resolvedLevel(o)
	if level == Strong {
		level = Weak
	}
	res, errText, err := cur.conn.queryAt(ctx, level, cur.resolvedFreshness(o), sql, params)
	if err != nil {
		return nil, err
	}
	if errText != "" {
		return nil, &rqliteerr.SQLErr{Message: errText, Index: 0}
	}
	return res, nil
}
