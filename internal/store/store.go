package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Driver selects the storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store is the SQL-backed Backend. Queries are built with ent's dialect-aware
// SQL builder so the same repositories run on SQLite and Postgres.
type Store struct {
	db      *sql.DB
	dialect string

	// roundMu serializes round-number allocation within the process.
	roundMu sync.Mutex
	// attemptMu serializes attempt sequence allocation.
	attemptMu sync.Mutex
}

// New returns the Backend selected by driver. The memory driver ignores dsn.
func New(ctx context.Context, driver Driver, dsn string) (Backend, error) {
	if driver == DriverMemory {
		return NewMemory(), nil
	}
	return Open(ctx, driver, dsn)
}

// Open connects to a SQL database, applies SQLite pragmas when relevant,
// and migrates the schema.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var (
		drvName string
		dial    string
	)
	switch driver {
	case DriverSQLite, "":
		drvName, dial = "sqlite", dialect.SQLite
	case DriverPostgres:
		drvName, dial = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dial == dialect.SQLite {
		// A single connection keeps in-memory databases alive and
		// avoids shared-cache table locks.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db, dial); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, dialect: dial}, nil
}

func migrate(ctx context.Context, db *sql.DB, dial string) error {
	m, err := schema.NewMigrate(entsql.OpenDB(dial, db))
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func (s *Store) MasteryRepo() MasteryRepo               { return &masteryRepo{s: s} }
func (s *Store) QuizRepo() QuizRepo                     { return &quizRepo{s: s} }
func (s *Store) AttemptRepo() AttemptRepo               { return &attemptRepo{s: s} }
func (s *Store) RecommendationRepo() RecommendationRepo { return &recommendationRepo{s: s} }
func (s *Store) RoundRepo() RoundRepo                   { return &roundRepo{s: s} }
func (s *Store) ModuleRepo() ModuleRepo                 { return &moduleRepo{s: s} }
func (s *Store) PrivacyLogRepo() PrivacyLogRepo         { return &privacyLogRepo{s: s} }

// exec runs a built statement.
func (s *Store) exec(ctx context.Context, q entsql.Querier) error {
	query, args := q.Query()
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// applyPragmas configures SQLite for optimal single-process performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ADAPTLEARN_DB environment variable
// 2. $XDG_DATA_HOME/adaptlearn/adaptlearn.db
// 3. ~/.local/share/adaptlearn/adaptlearn.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ADAPTLEARN_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adaptlearn", "adaptlearn.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
