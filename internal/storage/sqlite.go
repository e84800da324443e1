package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/mattn/go-sqlite3"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SqliteBackend stores each entity as a JSON document row keyed by id.
type SqliteBackend[T Entity] struct {
	db    *sql.DB
	table string
	backendOptions
}

// NewSqliteBackend opens dbPath and creates table if needed.
func NewSqliteBackend[T Entity](dbPath, table string, walMode bool, opts ...BackendOption) (*SqliteBackend[T], error) {
	if !tableNamePattern.MatchString(table) {
		return nil, errors.Newf(errors.ErrCodeConfiguration, "invalid table name %q", table)
	}

	// Configure connection string with appropriate settings
	connStr := dbPath
	if walMode {
		connStr += "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000"
	} else {
		connStr += "?_synchronous=FULL&_cache_size=1000&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to open database")
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to ping database")
	}

	backend := &SqliteBackend[T]{
		db:             db,
		table:          table,
		backendOptions: newBackendOptions("storage.sqlite", opts),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to initialize schema")
	}

	backend.logger.Info("SQLite backend ready",
		slog.String("path", dbPath),
		slog.String("table", table),
		slog.Bool("wal_mode", walMode),
	)
	return backend, nil
}

// initSchema creates the document table for this entity type
func (s *SqliteBackend[T]) initSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL, -- entity JSON
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`, s.table))
	return err
}

func (s *SqliteBackend[T]) Name() string {
	return BackendSqlite
}

// Close closes the database connection
func (s *SqliteBackend[T]) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func (s *SqliteBackend[T]) Create(ctx context.Context, entity T) (_ T, err error) {
	done := s.begin(ctx, BackendSqlite, "create")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return entity, err
	}
	id := entity.EntityID()
	if id == "" {
		return entity, errors.ValidationRequired("id")
	}
	data, err := encodeEntity(entity)
	if err != nil {
		return entity, err
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)`, s.table),
		id, string(data),
	)
	if err != nil {
		if isConstraintViolation(err) {
			s.logger.WarnContext(ctx, "Entity already exists", slog.String("entity_id", id))
			return entity, errors.DuplicateID(id)
		}
		return entity, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to insert entity %s", id)
	}
	return entity, nil
}

func (s *SqliteBackend[T]) Get(ctx context.Context, id string) (_ *T, err error) {
	done := s.begin(ctx, BackendSqlite, "get")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// load reads one row. Missing and corrupt rows both yield nil.
func (s *SqliteBackend[T]) load(ctx context.Context, q queryRower, id string) (*T, error) {
	var data string
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, s.table), id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to read entity %s", id)
	}

	entity, err := decodeEntity[T]([]byte(data))
	if err != nil {
		s.corrupt(ctx, BackendSqlite, id, err)
		return nil, nil
	}
	return &entity, nil
}

func (s *SqliteBackend[T]) List(ctx context.Context, filter *Filter) (_ []T, err error) {
	done := s.begin(ctx, BackendSqlite, "list")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, data FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageIO, "failed to query entities")
	}
	defer rows.Close()

	var entities []T
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageIO, "failed to scan entity")
		}
		entity, err := decodeEntity[T]([]byte(data))
		if err != nil {
			s.corrupt(ctx, BackendSqlite, id, err)
			continue
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageIO, "error iterating entities")
	}

	return ApplyFilter(entities, filter, s.policy), nil
}

func (s *SqliteBackend[T]) Update(ctx context.Context, id string, patch map[string]interface{}) (_ *T, err error) {
	done := s.begin(ctx, BackendSqlite, "update")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to begin transaction")
	}
	defer tx.Rollback()

	current, err := s.load(ctx, tx, id)
	if err != nil || current == nil {
		return nil, err
	}
	updated, err := mergePatch(*current, patch, s.now())
	if err != nil {
		return nil, err
	}
	data, err := encodeEntity(updated)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, s.table),
		string(data), id,
	)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to update entity %s", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageIO, "failed to commit update")
	}
	return &updated, nil
}

func (s *SqliteBackend[T]) Delete(ctx context.Context, id string) (_ bool, err error) {
	done := s.begin(ctx, BackendSqlite, "delete")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to delete entity %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeStorageIO, "failed to read affected rows")
	}
	return affected > 0, nil
}

func (s *SqliteBackend[T]) Exists(ctx context.Context, id string) (_ bool, err error) {
	done := s.begin(ctx, BackendSqlite, "exists")
	defer func() { done(err) }()

	if err := checkContext(ctx); err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, s.table), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrCodeStorageIO, "failed to check entity %s", id)
	}
	return true, nil
}
