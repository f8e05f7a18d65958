package lotto

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_created_at ON entries (created_at, id);
`

// entryRow is the table model for entries
type entryRow struct {
	ID        string `db:"id"`
	CreatedAt int64  `db:"created_at"`
	Payload   string `db:"payload"`
}

// SQLiteStore keeps records in a SQLite database file
type SQLiteStore struct {
	db     *sqlx.DB
	logger Logger
	feed   recordFeed
}

// OpenSQLiteStore opens (and creates if needed) a SQLite store at path.
// Use ":memory:" for a throwaway database.
func OpenSQLiteStore(path string, logger Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrInvalidParameters.WithDetails("sqlite path is required")
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := otelsqlx.Open("sqlite", dsn, otelsql.WithDBName("lotto"))
	if err != nil {
		return nil, crerr.Wrap(err, "open sqlite db")
	}
	// one connection: a second one would see a different :memory: database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, crerr.Wrap(err, "ping sqlite db")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, crerr.Wrap(err, "create entries table")
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert adds a new record
func (s *SQLiteStore) Insert(ctx context.Context, record EntryRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, created_at, payload) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		record.ID, record.Date.UnixMicro(), string(data))
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Insert").WithDetails(record.ID).WithCause(crerr.Wrap(err, "insert entry"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordExists.WithDetails(record.ID)
	}

	s.publish(ctx)
	return nil
}

// Replace overwrites the record with the same ID
func (s *SQLiteStore) Replace(ctx context.Context, record EntryRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE entries SET payload = ? WHERE id = ?`, string(data), record.ID)
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Replace").WithDetails(record.ID).WithCause(crerr.Wrap(err, "update entry"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound.WithDetails(record.ID)
	}

	s.publish(ctx)
	return nil
}

// Delete removes a record by ID
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Delete").WithDetails(id).WithCause(crerr.Wrap(err, "delete entry"))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound.WithDetails(id)
	}

	s.publish(ctx)
	return nil
}

// DeleteAll removes every record
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return ErrStoreSaveFailure.WithOperation("DeleteAll").WithCause(crerr.Wrap(err, "delete entries"))
	}

	s.publish(ctx)
	return nil
}

// Get loads a record by ID
func (s *SQLiteStore) Get(ctx context.Context, id string) (EntryRecord, error) {
	var row entryRow
	err := s.db.GetContext(ctx, &row, `SELECT id, created_at, payload FROM entries WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return EntryRecord{}, ErrRecordNotFound.WithDetails(id)
	}
	if err != nil {
		return EntryRecord{}, ErrStoreLoadFailure.WithOperation("Get").WithDetails(id).WithCause(crerr.Wrap(err, "select entry"))
	}

	return decodeRecord([]byte(row.Payload))
}

// List returns all records ordered by creation date
func (s *SQLiteStore) List(ctx context.Context) ([]EntryRecord, error) {
	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, created_at, payload FROM entries ORDER BY created_at, id`); err != nil {
		return nil, ErrStoreLoadFailure.WithOperation("List").WithCause(crerr.Wrap(err, "select entries"))
	}

	records := make([]EntryRecord, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRecord([]byte(row.Payload))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sortRecords(records)
	return records, nil
}

// Subscribe registers fn for collection changes made through this store
func (s *SQLiteStore) Subscribe(fn func([]EntryRecord)) func() {
	return s.feed.subscribe(fn)
}

// publish sends the current collection to subscribers, if any
func (s *SQLiteStore) publish(ctx context.Context) {
	if err := s.feed.reload(func() ([]EntryRecord, error) { return s.List(ctx) }); err != nil {
		s.logger.Error("Failed to reload records for subscribers: %v", err)
	}
}
