package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSlowThreshold = 200 * time.Millisecond

type options struct {
	logger        *slog.Logger
	slowThreshold time.Duration
}

// Option configures Connect
type Option func(*options)

// WithLogger routes gorm's query log through l
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSlowThreshold sets the duration above which queries are logged as slow
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) { o.slowThreshold = d }
}

// Connect opens the store named by dsn.
// postgres:// and postgresql:// DSNs use PostgreSQL, anything else is a SQLite
// path or URI. Uniqueness violations are always translated to
// gorm.ErrDuplicatedKey.
func Connect(dsn string, opts ...Option) (*gorm.DB, error) {
	o := options{logger: slog.Default(), slowThreshold: defaultSlowThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(o.logger, o.slowThreshold),
	}

	if isPostgres(dsn) {
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	}

	dsn = strings.TrimPrefix(dsn, "sqlite://")
	memory := isMemory(dsn)
	if !memory {
		dsn = withSQLiteParams(dsn)
	}

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if memory {
		// Every connection to :memory: gets its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// withSQLiteParams adds a busy timeout and WAL journaling unless the DSN
// already sets them, so concurrent writers wait instead of failing.
func withSQLiteParams(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_journal_mode") {
		params = append(params, "_journal_mode=WAL")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
