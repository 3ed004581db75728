package database

import (
	"context"
	"database/sql"
	"fmt"

	"vsync/internal/database/migrations"
	"vsync/internal/model"
	"vsync/internal/vsync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements Database using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock vsync.Clock
}

// NewSQLiteDatabase opens the database at path and migrates it to the latest
// schema. path can be a file path or ":memory:". A nil clock uses the real
// time.
func NewSQLiteDatabase(path string, clock vsync.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	if clock == nil {
		clock = vsync.RealClock{}
	}
	return &SQLiteDatabase{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (s *SQLiteDatabase) CreateOperation(opID, verb, vaultName string) (*model.SyncOperation, error) {
	op := &model.SyncOperation{
		OpID:      opID,
		Verb:      verb,
		VaultName: vaultName,
		Status:    model.StatusRunning,
		StartedAt: s.clock.Now().UTC(),
	}
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO sync_operations (op_id, verb, vault_name, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		op.OpID, op.Verb, op.VaultName, op.Status, op.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading sync operation id: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status, detail string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE sync_operations SET status = ?, detail = ?, finished_at = ? WHERE id = ?`,
		status, detail, s.clock.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing sync operation: no operation with id %d", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*model.SyncOperation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, op_id, verb, vault_name, status, started_at, finished_at, detail
		 FROM sync_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.SyncOperation
	for rows.Next() {
		var (
			op       model.SyncOperation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.OpID, &op.Verb, &op.VaultName, &op.Status,
			&op.StartedAt, &finished, &op.Detail); err != nil {
			return nil, fmt.Errorf("scanning sync operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Database = (*SQLiteDatabase)(nil)
