package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/proofcore/proofcore/pkg/hashutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    t_run        INTEGER NOT NULL,
    capsule_hash TEXT NOT NULL,
    prev_hash    TEXT NOT NULL,
    entry_hash   TEXT NOT NULL
);
`

// Ledger is an append-only hash-chain ledger persisted in a single
// SQLite file. A single process-local mutex serializes writers on top
// of SQLite's own locking, the same single-writer discipline the
// teacher's KV-backed ledger store documents for its callers.
type Ledger struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *log.Logger
}

// Option is a functional option for Open.
type Option func(*Ledger)

// WithLogger sets a custom logger for the ledger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// Open opens (creating if necessary) the SQLite ledger file at path
// and ensures its schema exists.
func Open(path string, opts ...Option) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// A single *sql.DB handle backing a single SQLite file; the
	// process-local mutex above is the actual serialization point for
	// appends, so only one connection is ever needed.
	db.SetMaxOpenConns(1)

	l := &Ledger{
		db:     db,
		logger: log.New(log.Writer(), "[Ledger] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(l)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create schema: %w", err)
	}

	return l, nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// tip returns the most recent entry, or a zero Entry with ok=false if
// the ledger is empty.
func (l *Ledger) tip(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}) (Entry, bool, error) {
	var e Entry
	err := q.QueryRowContext(ctx,
		`SELECT id, t_run, capsule_hash, prev_hash, entry_hash FROM ledger ORDER BY id DESC LIMIT 1`,
	).Scan(&e.ID, &e.TRun, &e.CapsuleHash, &e.PrevHash, &e.EntryHash)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: read tip: %w", err)
	}
	return e, true, nil
}

// computeEntryHash implements the chain rule: entry_hash =
// SHA256("{prev}|{capsule}|{t_run}").
func computeEntryHash(prev, capsuleHash string, tRun int64) string {
	msg := fmt.Sprintf("%s|%s|%d", prev, capsuleHash, tRun)
	return hashutil.SumHex([]byte(msg))
}

// Append adds a new entry binding capsuleHash at tRun, chaining it to
// the current tip. The tip read and the insert happen inside a single
// transaction, under the process-local mutex, so appenders in this
// process cannot interleave.
func (l *Ledger) Append(ctx context.Context, capsuleHash string, tRun int64) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: begin append transaction: %w", err)
	}
	defer tx.Rollback()

	prevTip, ok, err := l.tip(ctx, tx)
	if err != nil {
		return Entry{}, err
	}
	prev := ZeroHash
	if ok {
		prev = prevTip.EntryHash
	}

	entryHash := computeEntryHash(prev, capsuleHash, tRun)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO ledger (t_run, capsule_hash, prev_hash, entry_hash) VALUES (?, ?, ?, ?)`,
		tRun, capsuleHash, prev, entryHash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: read inserted id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("ledger: commit append: %w", err)
	}

	entry := Entry{ID: id, TRun: tRun, CapsuleHash: capsuleHash, PrevHash: prev, EntryHash: entryHash}
	l.logger.Printf("appended entry id=%d capsule_hash=%s", id, capsuleHash)
	return entry, nil
}

// All returns every entry in the ledger, ordered by id ascending.
func (l *Ledger) All(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, t_run, capsule_hash, prev_hash, entry_hash FROM ledger ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TRun, &e.CapsuleHash, &e.PrevHash, &e.EntryHash); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate entries: %w", err)
	}
	return entries, nil
}

// Verify walks every entry in id order and confirms the hash chain is
// unbroken. It returns the entries it inspected (possibly a prefix, up
// to and including the first broken entry) together with an error
// naming the break, or a nil error if the whole chain is intact.
func (l *Ledger) Verify(ctx context.Context) ([]Entry, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	expected := ZeroHash
	for i, e := range entries {
		if e.PrevHash != expected {
			return entries[:i+1], fmt.Errorf("%w: entry %d: prev_hash %s != expected %s", ErrChainBroken, e.ID, e.PrevHash, expected)
		}
		recomputed := computeEntryHash(expected, e.CapsuleHash, e.TRun)
		if recomputed != e.EntryHash {
			return entries[:i+1], fmt.Errorf("%w: entry %d: entry_hash %s != recomputed %s", ErrChainBroken, e.ID, e.EntryHash, recomputed)
		}
		expected = e.EntryHash
	}
	return entries, nil
}

// Bind returns the most recent entry whose capsule_hash equals
// capsuleHash, or ErrCapsuleNotBound if none matches.
func (l *Ledger) Bind(ctx context.Context, capsuleHash string) (Entry, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return Entry{}, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].CapsuleHash == capsuleHash {
			return entries[i], nil
		}
	}
	return Entry{}, ErrCapsuleNotBound
}
