package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"provisionr/pkg/db/migrations"
)

const (
	// DefaultTimeout is used when executing queries to avoid leaking resources on hung calls.
	DefaultTimeout = 5 * time.Second

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
)

// Config selects and configures the backing database.
type Config struct {
	Driver string
	DSN    string
	Logger zerolog.Logger
}

// Store owns the gorm handle and the underlying connection pool.
type Store struct {
	ORM    *gorm.DB
	SQL    *sql.DB
	Driver string
}

// Open connects to the configured database, verifies connectivity and applies
// all pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	store, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	store.finalize()
	return store, nil
}

// Connect opens the database without running migrations.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database dsn required")
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	orm, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(cfg.Logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}

	store := &Store{ORM: orm, SQL: sqlDB, Driver: driver}
	if err := store.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Migrate runs all Go migrations against the store.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.SQL == nil {
		return errors.New("nil store provided")
	}

	dialect := goose.DialectSQLite3
	open := func(tx *sql.Tx) gorm.Dialector { return &sqlite.Dialector{Conn: tx} }
	if s.Driver == DriverPostgres {
		dialect = goose.DialectPostgres
		open = func(tx *sql.Tx) gorm.Dialector {
			return postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true})
		}
	}

	provider, err := goose.NewProvider(dialect, s.SQL, nil,
		goose.WithGoMigrations(migrations.All(open)...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// finalize applies pool limits once the schema is in place. SQLite only
// tolerates a single writer, so the pool is serialised to one connection.
func (s *Store) finalize() {
	if s.Driver == DriverSQLite {
		s.SQL.SetMaxOpenConns(1)
	}
}

// Ping ensures the database is reachable with the default timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	return s.SQL.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.SQL == nil {
		return nil
	}
	return s.SQL.Close()
}

// WithTimeout applies a custom timeout when executing operations using the provided function.
func WithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas
}

// NewLogger bridges gorm's logger onto zerolog.
func NewLogger(log zerolog.Logger) logger.Interface {
	return logger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
