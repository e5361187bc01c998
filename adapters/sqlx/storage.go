package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

const defaultTable = "achievement_kv"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default
	sqlx.BindDriver(string(DriverSQLite), sqlx.QUESTION)
}

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" env:"ACHIEVEKIT_SQL_DRIVER"`
	DSN             string        `json:"dsn,omitempty" env:"ACHIEVEKIT_SQL_DSN"`
	Table           string        `json:"table" env:"ACHIEVEKIT_SQL_TABLE"`
	MaxOpenConns    int           `json:"max_open_conns" env:"ACHIEVEKIT_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"ACHIEVEKIT_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"ACHIEVEKIT_SQL_CONN_MAX_LIFETIME"`
	QueryTimeout    time.Duration `json:"query_timeout" env:"ACHIEVEKIT_SQL_QUERY_TIMEOUT"`
}

// DefaultConfig returns defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		Table:           defaultTable,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    3 * time.Second,
	}
	if driver == DriverSQLite {
		// a single writer keeps sqlite free of SQLITE_BUSY
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	return cfg
}

// Validate checks driver, DSN and table name.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn cannot be empty")
	}
	if c.Table != "" && !tableName.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	return nil
}

// Store keeps achievement keys in a two-column table. Errors are logged and
// swallowed: a failed read is reported as absent, a failed write leaves the
// row unchanged.
type Store struct {
	db      *sqlx.DB
	driver  Driver
	table   string
	timeout time.Duration
	logger  *slog.Logger
}

// New connects, applies pool settings and creates the table if needed.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql config: %w", err)
	}
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := NewWithDB(db, cfg.Driver)
	if cfg.Table != "" {
		s.table = cfg.Table
	}
	if cfg.QueryTimeout > 0 {
		s.timeout = cfg.QueryTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing). The table is not
// created; call Migrate when needed.
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver, table: defaultTable, timeout: 3 * time.Second, logger: slog.Default()}
}

// WithLogger replaces the logger used for swallowed errors.
func (s *Store) WithLogger(l *slog.Logger) *Store {
	if l != nil {
		s.logger = l
	}
	return s
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the key/value table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (store_key VARCHAR(255) PRIMARY KEY, store_value TEXT NOT NULL)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) upsertQuery() string {
	if s.driver == DriverMySQL {
		return fmt.Sprintf(`INSERT INTO %s (store_key, store_value) VALUES (?, ?) ON DUPLICATE KEY UPDATE store_value = VALUES(store_value)`, s.table)
	}
	return fmt.Sprintf(`INSERT INTO %s (store_key, store_value) VALUES (?, ?) ON CONFLICT (store_key) DO UPDATE SET store_value = excluded.store_value`, s.table)
}

func (s *Store) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	var v string
	q := s.db.Rebind(fmt.Sprintf(`SELECT store_value FROM %s WHERE store_key = ?`, s.table))
	if err := s.db.GetContext(ctx, &v, q, key); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("sql get failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (s *Store) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(s.upsertQuery()), key, value); err != nil {
		s.logger.Error("sql set failed", "key", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	q := s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE store_key = ?`, s.table))
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		s.logger.Error("sql remove failed", "key", key, "error", err)
	}
}
