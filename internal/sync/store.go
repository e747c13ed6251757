package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

// walJournalSizeLimit bounds the WAL file at 64 MiB before a checkpoint is
// forced, keeping disk usage predictable for long-lived watch daemons.
const walJournalSizeLimit = 67_108_864

// Store is the durable, transactional metadata contract of spec.md §4.2.
// The engine is the only writer in a workspace (§5); a workspace file lock
// (internal/workspace.Lock) prevents concurrent engines, so Store itself
// does not need to arbitrate writers — only to make each write atomic and
// crash-safe.
type Store interface {
	GetByPath(ctx context.Context, path string) (*Entry, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*Entry, error)
	Upsert(ctx context.Context, e *Entry) error
	DeleteByPath(ctx context.Context, path string) error
	ListAll(ctx context.Context) ([]*Entry, error)
	ListWhereStatus(ctx context.Context, statuses ...Status) ([]*Entry, error)
	Transaction(ctx context.Context, body func(ctx context.Context, tx Store) error) error

	RecordConflict(ctx context.Context, path, localHash, remoteHash, reason string) error
	ResolveConflict(ctx context.Context, path string) error

	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting query helpers run
// unmodified inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using an embedded SQLite database in WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the state database at dbPath and applies
// pending migrations. Use ":memory:" for tests.
func NewStore(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening sync state database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sync: open sqlite: %w", err)
	}

	// A single SQLite connection avoids "database is locked" errors under
	// WAL mode when the engine issues concurrent reads during a transaction.
	db.SetMaxOpenConns(1)

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sync state database ready", "path", dbPath)

	return &SQLiteStore{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sync: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sync: closing store: %w", err)
	}

	return nil
}

const entryColumns = `path, remote_id, remote_url, parent_remote_id, kind,
	local_hash, remote_hash, remote_mtime, status, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*Entry, error) {
	e := &Entry{}

	err := row.Scan(
		&e.Path, &e.RemoteID, &e.RemoteURL, &e.ParentRemoteID, &e.Kind,
		&e.LocalHash, &e.RemoteHash, &e.RemoteMtime, &e.Status,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return e, nil
}

func scanEntryRows(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sync: scan entry row: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync: iterate entry rows: %w", err)
	}

	return entries, nil
}

func getByPath(ctx context.Context, q dbtx, path string) (*Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE path = ?`, path)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil entry = "not found", checked by callers
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get entry by path %q: %w", path, err)
	}

	return e, nil
}

func getByRemoteID(ctx context.Context, q dbtx, remoteID string) (*Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE remote_id = ?`, remoteID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("sync: get entry by remote id %q: %w", remoteID, err)
	}

	return e, nil
}

func upsertEntry(ctx context.Context, q dbtx, e *Entry) error {
	const stmt = `INSERT INTO entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			remote_id        = excluded.remote_id,
			remote_url       = excluded.remote_url,
			parent_remote_id = excluded.parent_remote_id,
			kind             = excluded.kind,
			local_hash       = excluded.local_hash,
			remote_hash      = excluded.remote_hash,
			remote_mtime     = excluded.remote_mtime,
			status           = excluded.status,
			updated_at       = excluded.updated_at`

	_, err := q.ExecContext(ctx, stmt,
		e.Path, e.RemoteID, e.RemoteURL, e.ParentRemoteID, string(e.Kind),
		e.LocalHash, e.RemoteHash, e.RemoteMtime, string(e.Status),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert entry %q: %w", e.Path, err)
	}

	return nil
}

func deleteByPath(ctx context.Context, q dbtx, path string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("sync: delete entry %q: %w", path, err)
	}

	return nil
}

func listAll(ctx context.Context, q dbtx) ([]*Entry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("sync: list entries: %w", err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

func listWhereStatus(ctx context.Context, q dbtx, statuses ...Status) ([]*Entry, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := ""
	args := make([]any, len(statuses))

	for i, s := range statuses {
		if i > 0 {
			placeholders += ", "
		}

		placeholders += "?"
		args[i] = string(s)
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE status IN (` + placeholders + `)`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sync: list entries by status: %w", err)
	}
	defer rows.Close()

	return scanEntryRows(rows)
}

func recordConflict(ctx context.Context, q dbtx, path, localHash, remoteHash, reason string, now int64) error {
	const stmt = `INSERT INTO conflicts (path, detected_at, local_hash, remote_hash, reason)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			detected_at = excluded.detected_at,
			local_hash  = excluded.local_hash,
			remote_hash = excluded.remote_hash,
			reason      = excluded.reason`

	if _, err := q.ExecContext(ctx, stmt, path, now, localHash, remoteHash, reason); err != nil {
		return fmt.Errorf("sync: record conflict %q: %w", path, err)
	}

	return nil
}

func resolveConflict(ctx context.Context, q dbtx, path string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM conflicts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("sync: resolve conflict %q: %w", path, err)
	}

	return nil
}

func getMeta(ctx context.Context, q dbtx, key string) (string, bool, error) {
	row := q.QueryRowContext(ctx, `SELECT value FROM workspace_meta WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("sync: get meta %q: %w", key, err)
	}

	return value, true, nil
}

func setMeta(ctx context.Context, q dbtx, key, value string) error {
	const stmt = `INSERT INTO workspace_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := q.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("sync: set meta %q: %w", key, err)
	}

	return nil
}

// --- SQLiteStore: Store implementation over *sql.DB ---

func (s *SQLiteStore) GetByPath(ctx context.Context, path string) (*Entry, error) {
	return getByPath(ctx, s.db, path)
}

func (s *SQLiteStore) GetByRemoteID(ctx context.Context, remoteID string) (*Entry, error) {
	return getByRemoteID(ctx, s.db, remoteID)
}

func (s *SQLiteStore) Upsert(ctx context.Context, e *Entry) error {
	return upsertEntry(ctx, s.db, e)
}

func (s *SQLiteStore) DeleteByPath(ctx context.Context, path string) error {
	return deleteByPath(ctx, s.db, path)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*Entry, error) {
	return listAll(ctx, s.db)
}

func (s *SQLiteStore) ListWhereStatus(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	return listWhereStatus(ctx, s.db, statuses...)
}

func (s *SQLiteStore) RecordConflict(ctx context.Context, path, localHash, remoteHash, reason string) error {
	return recordConflict(ctx, s.db, path, localHash, remoteHash, reason, NowNano())
}

func (s *SQLiteStore) ResolveConflict(ctx context.Context, path string) error {
	return resolveConflict(ctx, s.db, path)
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	return getMeta(ctx, s.db, key)
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	return setMeta(ctx, s.db, key, value)
}

// Transaction runs body with a Store scoped to one *sql.Tx: every upsert and
// delete inside body becomes visible atomically on return, and nothing is
// applied if body (or the commit) fails. This is the only supported way to
// group mutations atomically; the engine itself commits each entry's state
// with direct Upsert/RecordConflict/ResolveConflict calls and does not use it.
func (s *SQLiteStore) Transaction(ctx context.Context, body func(ctx context.Context, tx Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync: begin transaction: %w", err)
	}

	txs := &txStore{tx: tx, logger: s.logger}

	if err := body(ctx, txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sync: transaction body failed: %w (rollback: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync: commit transaction: %w", err)
	}

	return nil
}

// txStore is a Store scoped to a single *sql.Tx, handed to Transaction's
// body. Nested Transaction calls are not supported (mirrors database/sql:
// a *sql.Tx cannot itself begin a nested transaction).
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (t *txStore) GetByPath(ctx context.Context, path string) (*Entry, error) {
	return getByPath(ctx, t.tx, path)
}

func (t *txStore) GetByRemoteID(ctx context.Context, remoteID string) (*Entry, error) {
	return getByRemoteID(ctx, t.tx, remoteID)
}

func (t *txStore) Upsert(ctx context.Context, e *Entry) error {
	return upsertEntry(ctx, t.tx, e)
}

func (t *txStore) DeleteByPath(ctx context.Context, path string) error {
	return deleteByPath(ctx, t.tx, path)
}

func (t *txStore) ListAll(ctx context.Context) ([]*Entry, error) {
	return listAll(ctx, t.tx)
}

func (t *txStore) ListWhereStatus(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	return listWhereStatus(ctx, t.tx, statuses...)
}

func (t *txStore) RecordConflict(ctx context.Context, path, localHash, remoteHash, reason string) error {
	return recordConflict(ctx, t.tx, path, localHash, remoteHash, reason, NowNano())
}

func (t *txStore) ResolveConflict(ctx context.Context, path string) error {
	return resolveConflict(ctx, t.tx, path)
}

func (t *txStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	return getMeta(ctx, t.tx, key)
}

func (t *txStore) SetMeta(ctx context.Context, key, value string) error {
	return setMeta(ctx, t.tx, key, value)
}

func (t *txStore) Transaction(_ context.Context, _ func(ctx context.Context, tx Store) error) error {
	return errors.New("sync: nested transactions are not supported")
}

func (t *txStore) Close() error {
	return errors.New("sync: Close called on a transaction-scoped store")
}
