// Package ledger records pipeline runs in a SQLite database and guards the
// corpus with a single-writer lock.
package ledger

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

// CorpusLock is the lock name mutating stages hold while writing.
const CorpusLock = "corpus"

// Run is one recorded pipeline stage execution.
type Run struct {
	ID         string
	Stage      string
	Applied    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    json.RawMessage
	Artifact   string
}

// Lock describes the current holder of the corpus lock.
type Lock struct {
	Holder     string
	AcquiredAt time.Time
}

// Ledger is the run history and lock store.
type Ledger struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Open opens (creating if needed) the ledger database at path with WAL mode
// enabled.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	applied INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	summary_json TEXT,
	artifact TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage, id);

CREATE TABLE IF NOT EXISTS locks (
	name TEXT PRIMARY KEY,
	holder TEXT NOT NULL,
	acquired_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// NewRunID returns a new lexically sortable run id.
func (l *Ledger) NewRunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(l.now()), l.entropy).String()
}

// Acquire takes the corpus lock for holder. If another holder has it the
// error wraps internalerr.ErrLocked and names the holder.
func (l *Ledger) Acquire(ctx context.Context, holder string) error {
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO locks (name, holder, acquired_at) VALUES (?, ?, ?)`,
		CorpusLock, holder, formatTime(l.now()))
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if n == 1 {
		return nil
	}

	lock, ok, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if !ok {
		// released between the insert and the lookup
		return l.Acquire(ctx, holder)
	}
	return fmt.Errorf("%w: held by %s since %s", internalerr.ErrLocked, lock.Holder, formatTime(lock.AcquiredAt))
}

// Release drops the corpus lock if holder owns it.
func (l *Ledger) Release(ctx context.Context, holder string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM locks WHERE name = ? AND holder = ?`, CorpusLock, holder)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// ForceRelease drops the corpus lock whoever holds it.
func (l *Ledger) ForceRelease(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM locks WHERE name = ?`, CorpusLock)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Holder reports who holds the corpus lock.
func (l *Ledger) Holder(ctx context.Context) (Lock, bool, error) {
	var (
		lock     Lock
		acquired string
	)
	err := l.db.QueryRowContext(ctx, `SELECT holder, acquired_at FROM locks WHERE name = ?`, CorpusLock).
		Scan(&lock.Holder, &acquired)
	if errors.Is(err, sql.ErrNoRows) {
		return Lock{}, false, nil
	}
	if err != nil {
		return Lock{}, false, fmt.Errorf("read lock: %w", err)
	}
	lock.AcquiredAt = parseTime(acquired)
	return lock, true, nil
}

// RecordRun stores run. An empty ID is filled with a new run id, and a zero
// FinishedAt with the current time.
func (l *Ledger) RecordRun(ctx context.Context, run *Run) error {
	if run.Stage == "" {
		return fmt.Errorf("%w: run without stage", internalerr.ErrInvalidInput)
	}
	if run.ID == "" {
		run.ID = l.NewRunID()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = l.now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	var summary sql.NullString
	if len(run.Summary) > 0 {
		summary = sql.NullString{String: string(run.Summary), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, stage, applied, started_at, finished_at, summary_json, artifact)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stage, boolToInt(run.Applied), formatTime(run.StartedAt), formatTime(run.FinishedAt),
		summary, run.Artifact)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. An empty stage matches
// every stage; limit <= 0 means no limit.
func (l *Ledger) Runs(ctx context.Context, stage string, limit int) ([]Run, error) {
	query := `SELECT id, stage, applied, started_at, finished_at, summary_json, artifact FROM runs`
	var args []any
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			applied           int
			started, finished string
			summary, artifact sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Stage, &applied, &started, &finished, &summary, &artifact); err != nil {
			return nil, err
		}
		r.Applied = applied != 0
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		if summary.Valid {
			r.Summary = json.RawMessage(summary.String)
		}
		r.Artifact = artifact.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
