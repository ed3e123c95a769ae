package rqlitec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rqlitec/rqlitec/internal/driver"
	"github.com/rqlitec/rqlitec/internal/hosturl"
	"github.com/rqlitec/rqlitec/internal/rqliteerr"
	"github.com/rqlitec/rqlitec/internal/selector"
	"github.com/rqlitec/rqlitec/internal/sqltext"
)

// Query runs a single SELECT (or EXPLAIN) statement at the given
// consistency level and returns its decoded result. A None-level read that
// the server reports as stale is retried exactly once, transparently.
func (c *Connection) Query(ctx context.Context, level Consistency, sql string, params ...Parameter) (*QueryResult, error) {
	res, errText, err := c.queryAt(ctx, level, c.opts.Freshness, sql, params)
	if err != nil {
		return nil, err
	}
	if errText != "" {
		return nil, &rqliteerr.SQLErr{Message: errText, Index: 0}
	}
	return res, nil
}

// queryAt is the raw single-read primitive Query and Cursor.Execute both
// build on: it never raises on a per-statement SQL error, instead
// returning the server's error text alongside a (possibly nil) result so
// callers can decide whether raiseOnError applies.
func (c *Connection) queryAt(ctx context.Context, level Consistency, freshness time.Duration, sql string, params []Parameter) (*QueryResult, string, error) {
	body, err := encodeStatements([]Statement{{SQL: sql, Params: params}})
	if err != nil {
		return nil, "", err
	}

	resp, err := c.dispatch(ctx, http.MethodPost, queryPath(level, freshness), body, true, level, level == None)
	if err == errStaleRead {
		// No node was fresh enough; reissue once at Weak, which the leader
		// always serves. A second stale response is not retried again.
		resp, err = c.dispatch(ctx, http.MethodPost, queryPath(Weak, 0), body, true, Weak, false)
	}
	if err != nil {
		return nil, "", err
	}
	if len(resp.Results) != 1 {
		return nil, "", &rqliteerr.ProtocolErr{Message: "query: expected exactly one result"}
	}
	item := resp.Results[0]
	if item.Error != "" {
		return nil, item.Error, nil
	}
	return newQueryResult(item), "", nil
}

// queryPath builds the read endpoint URL. freshness only travels on a
// None-level read; redirect only on the leader-serving levels, where a
// follower is expected to answer with a Location pointing at the leader
// instead of proxying (a None read is served wherever it lands).
func queryPath(level Consistency, freshness time.Duration) string {
	path := fmt.Sprintf("/db/query?level=%s", level.String())
	if level == None {
		if freshness > 0 {
			path += "&freshness=" + url.QueryEscape(freshness.String())
		}
		return path
	}
	return path + "&redirect"
}

// Explain runs sql as an EXPLAIN QUERY PLAN, prefixing it automatically if
// the statement isn't already classified as one. A Strong read consistency
// is clamped down to Weak: a plan doesn't need linearizability, and Strong
// would route every EXPLAIN through the leader for nothing.
func (c *Connection) Explain(ctx context.Context, sql string, params ...Parameter) (*QueryResult, error) {
	if cmd := sqltext.Classify(sql); cmd != sqltext.EXPLAIN && cmd != sqltext.EXPLAIN_QUERY_PLAN {
		sql = "EXPLAIN QUERY PLAN " + sql
	}
	level := c.opts.ReadConsistency
	if level == Strong {
		level = Weak
	}
	return c.Query(ctx, level, sql, params...)
}

// Execute runs a single write statement and returns its outcome.
func (c *Connection) Execute(ctx context.Context, sql string, params ...Parameter) (*ExecResult, error) {
	result, err := c.ExecuteMany(ctx, false, []Statement{{SQL: sql, Params: params}})
	if err != nil {
		return nil, err
	}
	if len(result.Items) != 1 || result.Items[0].Exec == nil {
		return nil, &rqliteerr.ProtocolErr{Message: "execute: expected exactly one exec result"}
	}
	return result.Items[0].Exec, nil
}

// ExecuteMany runs a batch of write statements in a single request.
// transactional requests all-or-nothing semantics from the server: if any
// statement fails, none of the batch's effects are committed. The first
// per-statement SQL error raises immediately as an *rqliteerr.SQLErr; use a
// Cursor with WithRaiseOnError(false) to get every item back as data
// instead.
func (c *Connection) ExecuteMany(ctx context.Context, transactional bool, statements []Statement) (*BulkResult, error) {
	out, err := c.executeManyAt(ctx, transactional, statements)
	if err != nil {
		return nil, err
	}
	for i, item := range out.Items {
		if item.Err != "" {
			return nil, &rqliteerr.SQLErr{Message: item.Err, Index: i}
		}
	}
	return out, nil
}

// executeManyAt is the raw bulk-write primitive: it never raises on a
// per-statement SQL error, instead carrying the server's error text in that
// item's Err field. Per the wire protocol, a SQL error partway through a
// non-transactional batch can make the server stop early and return fewer
// result items than statements were submitted; that is reflected here as a
// BulkResult shorter than the request, not as a protocol error.
func (c *Connection) executeManyAt(ctx context.Context, transactional bool, statements []Statement) (*BulkResult, error) {
	if len(statements) == 0 {
		return nil, fmt.Errorf("rqlitec: ExecuteMany called with no statements")
	}

	body, err := encodeStatements(statements)
	if err != nil {
		return nil, err
	}

	path := "/db/execute?redirect"
	if transactional {
		path += "&transaction"
	}

	resp, err := c.dispatch(ctx, http.MethodPost, path, body, false, Strong, false)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) > len(statements) {
		return nil, &rqliteerr.ProtocolErr{Message: "executeMany: more results than statements submitted"}
	}

	out := &BulkResult{Items: make([]BulkResultItem, len(resp.Results))}
	for i, item := range resp.Results {
		switch {
		case item.Error != "":
			out.Items[i] = BulkResultItem{Err: item.Error}
		case item.Columns != nil:
			out.Items[i] = BulkResultItem{Query: newQueryResult(item)}
		default:
			out.Items[i] = BulkResultItem{Exec: &ExecResult{
				LastInsertID: item.LastInsertID,
				RowsAffected: item.RowsAffected,
				Elapsed:      secondsToDuration(item.Time),
			}}
		}
	}
	return out, nil
}

// BackupFormat selects the wire representation of a cluster snapshot.
type BackupFormat int

const (
	// BackupBinary requests the raw SQLite file (the default).
	BackupBinary BackupFormat = iota
	// BackupSQL requests a plain-text SQL dump instead, suitable for
	// diffing or replaying against an unrelated database.
	BackupSQL
)

// Backup streams the cluster's current SQLite snapshot to w in the given
// format (BackupBinary if format is omitted). The transfer is not retried
// mid-stream: if the connection drops partway through, w has already
// received a truncated file and the caller must discard it and call
// Backup again.
func (c *Connection) Backup(ctx context.Context, w io.Writer, format ...BackupFormat) error {
	f := BackupBinary
	if len(format) > 0 {
		f = format[0]
	}
	path := "/db/backup"
	if f == BackupSQL {
		path += "?fmt=sql"
	}

	c.logger.OnBackupStart()
	err := c.backupOnce(ctx, path, w)
	c.logger.OnBackupEnd(err)
	return err
}

func (c *Connection) backupOnce(ctx context.Context, path string, w io.Writer) error {
	sel := c.newSelectorForBackup()
	cw := &countingWriter{w: w}

	for {
		host, err := sel.SelectNode(ctx)
		if err != nil {
			if he, ok := err.(*rqliteerr.HostsExhausted); ok {
				if he.ShouldLog {
					c.logger.OnHostsExhausted(c.opts.Hosts)
				}
				c.recordExhausted()
			}
			return err
		}
		c.recordAttempt(host)

		res, err := c.driver.DoStream(ctx, http.MethodGet, host+path, toHeader(c.authHeaders()), cw)
		if err != nil {
			return err
		}

		switch res.Outcome {
		case driver.Redirect:
			to, ok := hosturl.BaseURL(res.RedirectLocation)
			if !ok {
				sel.OnFailure(host, selector.Failure{})
				c.logger.OnNonOkResponse(host, res.StatusCode)
				continue
			}
			if sel.OnRedirect(host, to) {
				c.logger.OnFollowRedirect(host, to)
				c.recordRedirect(to)
			}
			continue

		case driver.Failure:
			switch res.FailureKind {
			case driver.FailureConnectTimeout:
				c.logger.OnConnectTimeout(host)
			case driver.FailureReadTimeout:
				c.logger.OnReadTimeout(host)
			case driver.FailureNonOKResponse:
				c.logger.OnNonOkResponse(host, res.StatusCode)
			default:
				c.logger.OnFetchError(host, res.Err)
			}
			if cw.n > 0 {
				// The snapshot started flowing into w before the transfer
				// died. Retrying against another host would splice two
				// unrelated snapshots into one file; the caller has to
				// discard w's contents and start over.
				return &rqliteerr.ProtocolErr{Message: fmt.Sprintf("backup: transfer failed after %d bytes", cw.n)}
			}
			sel.OnFailure(host, selector.Failure{Err: res.Err})
			continue

		default:
			sel.OnSuccess(host)
			c.recordSuccess(host)
			return nil
		}
	}
}

// newSelectorForBackup routes a backup through leader discovery whenever
// the read consistency allows it: the server cannot redirect a backup to
// the leader, so the leader has to be found client-side, and a backup
// streamed from a follower can be both slower and behind the log.
func (c *Connection) newSelectorForBackup() selector.PerQuerySelector {
	return c.newSelector(c.opts.ReadConsistency, true)
}

// countingWriter tracks how many bytes have reached the underlying writer,
// so a mid-stream failure can be told apart from one that happened before
// the first byte.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// BackupToFile is a convenience wrapper around Backup that writes the
// snapshot to a local file, creating or truncating it as needed. For
// backing up to cloud storage or with compression, use one of the sinks
// in package backupsink together with Backup directly.
func (c *Connection) BackupToFile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rqlitec: opening backup destination: %w", err)
	}
	defer f.Close()
	return c.Backup(ctx, f)
}

func newQueryResult(item rawResultItem) *QueryResult {
	return &QueryResult{
		columns: item.Columns,
		types:   item.Types,
		values:  item.Values,
		Elapsed: secondsToDuration(item.Time),
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func encodeStatements(statements []Statement) ([]byte, error) {
	out := make([]interface{}, len(statements))
	for i, stmt := range statements {
		if len(stmt.Params) == 0 {
			out[i] = []interface{}{stmt.SQL}
			continue
		}
		entry := make([]interface{}, 0, len(stmt.Params)+1)
		entry = append(entry, stmt.SQL)
		named := false
		for _, p := range stmt.Params {
			if p.Name != "" {
				named = true
				break
			}
		}
		if named {
			obj := make(map[string]interface{}, len(stmt.Params))
			for _, p := range stmt.Params {
				obj[p.Name] = p.Value
			}
			entry = []interface{}{stmt.SQL, obj}
		} else {
			for _, p := range stmt.Params {
				entry = append(entry, p.Value)
			}
		}
		out[i] = entry
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, &rqliteerr.ProtocolErr{Message: "encoding statements: " + err.Error()}
	}
	return body, nil
}

