// CLAUDE:SUMMARY SQLite audit sink with sync and batched async writers plus the per-endpoint middleware hook.
// Package audit is the append-only audit sink for scribe. Every propose and
// apply attempt, success or failure, emits exactly one structured record.
// Records are written to SQLite, either synchronously (Log) or through a
// buffered batch writer (LogAsync) so the hot path never blocks on fsync.
package audit

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/scribe/dbopen"
	"github.com/hazyhaar/scribe/idgen"
)

// Entry is a single audit record.
type Entry struct {
	EntryID   string
	Timestamp int64 // unix seconds; filled on Log/LogAsync if zero

	AgentID   string
	RequestID string
	Transport string // "http", "mcp"; defaults to "http"

	Action string // "propose", "apply", "read", ...
	Root   string // rootKey of the touched file, if any
	Path   string // relative path of the touched file, if any

	Parameters string // JSON summary of the request
	Result     string // JSON summary of the response
	Error      string // error string for failed operations
	DurationMs int64

	Status string // "success" or "error"; derived from Error if empty
}

// Schema creates the audit_log table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id      TEXT PRIMARY KEY,
    timestamp     INTEGER NOT NULL,
    agent_id      TEXT NOT NULL DEFAULT '',
    request_id    TEXT NOT NULL DEFAULT '',
    transport     TEXT NOT NULL DEFAULT 'http',
    action        TEXT NOT NULL,
    root          TEXT NOT NULL DEFAULT '',
    path          TEXT NOT NULL DEFAULT '',
    parameters    TEXT NOT NULL DEFAULT '',
    result        TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'success'
);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
`

const (
	asyncBuffer    = 1000
	batchThreshold = 32
	flushInterval  = 250 * time.Millisecond
)

// SQLiteLogger persists audit entries to an SQLite database.
type SQLiteLogger struct {
	db    *sql.DB
	newID idgen.Generator
	log   *slog.Logger

	ch        chan *Entry
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator sets a custom ID generator for entry IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// WithLogger sets the slog.Logger that reports background insert failures.
func WithLogger(log *slog.Logger) Option {
	return func(l *SQLiteLogger) { l.log = log }
}

// NewSQLiteLogger creates a logger writing to db. Call Init before logging
// and Close to flush pending async entries.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
		log:   slog.Default(),
		ch:    make(chan *Entry, asyncBuffer),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Init creates the audit_log table if it does not exist.
func (l *SQLiteLogger) Init() error {
	_, err := l.db.Exec(Schema)
	return err
}

// Log writes an entry synchronously, filling defaults first.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	return l.insert(ctx, []*Entry{e})
}

// LogAsync queues an entry for batched background insertion. If the buffer
// is full the entry is written synchronously instead of being dropped.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(e)
	select {
	case l.ch <- e:
	default:
		if err := l.insert(context.Background(), []*Entry{e}); err != nil {
			l.log.Error("audit insert failed", "error", err, "action", e.Action)
		}
	}
}

// Close flushes all pending async entries and stops the flush loop.
func (l *SQLiteLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.ch)
		<-l.done
	})
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	if e.Transport == "" {
		e.Transport = "http"
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (l *SQLiteLogger) flushLoop() {
	defer close(l.done)

	batch := make([]*Entry, 0, batchThreshold)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.insert(context.Background(), batch); err != nil {
			l.log.Error("audit batch insert failed", "error", err, "entries", len(batch))
		}
		batch = batch[:0]
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-l.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= batchThreshold {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (l *SQLiteLogger) insert(ctx context.Context, entries []*Entry) error {
	return dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO audit_log (
				entry_id, timestamp, agent_id, request_id, transport,
				action, root, path, parameters, result,
				error_message, duration_ms, status
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			if _, err := stmt.Exec(
				e.EntryID, e.Timestamp, e.AgentID, e.RequestID, e.Transport,
				e.Action, e.Root, e.Path, e.Parameters, e.Result,
				e.Error, e.DurationMs, e.Status,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Filter controls Recent query results.
type Filter struct {
	Action string
	Status string
	Limit  int // default 100
}

// Recent returns the newest audit entries matching the filter.
func (l *SQLiteLogger) Recent(ctx context.Context, f Filter) ([]*Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT entry_id, timestamp, agent_id, request_id, transport,
		action, root, path, parameters, result, error_message, duration_ms, status
		FROM audit_log WHERE 1=1`
	args := []any{}
	if f.Action != "" {
		q += " AND action = ?"
		args = append(args, f.Action)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	q += " ORDER BY timestamp DESC, entry_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(
			&e.EntryID, &e.Timestamp, &e.AgentID, &e.RequestID, &e.Transport,
			&e.Action, &e.Root, &e.Path, &e.Parameters, &e.Result,
			&e.Error, &e.DurationMs, &e.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
