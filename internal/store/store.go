package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/tszyrowski/mosync/internal/logging"
	"github.com/tszyrowski/mosync/pkg/types"
)

// database/sql driver names.
const (
	sqliteDriver = "sqlite"
	pgxDriver    = "pgx"
)

// sqlitePragmas is appended to every SQLite DSN so each pooled connection
// gets the same settings.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// Source is the local SQLite store.
type Source struct {
	db   *sql.DB
	path string
}

// Target is the central database.
type Target struct {
	db      *sql.DB
	dialect Dialect
	schema  string
}

// OpenSource opens the SQLite file at cfg.Path and pings it.
func OpenSource(ctx context.Context, cfg types.SourceConfig, conn types.ConnectConfig, logger *slog.Logger) (*Source, error) {
	if cfg.Path == "" {
		return nil, &types.ConfigurationError{Missing: []string{"source.path"}}
	}
	// SQLite would create a missing file; a missing source is a connection
	// failure, not an empty store.
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, &types.ConnectionError{Store: "source", Err: err}
	}
	db, err := connect(ctx, "source", sqliteDriver, cfg.Path+sqlitePragmas, conn, logger)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logging.OrDiscard(logger).Info("connected to source store", logging.Store("source"), slog.String("path", cfg.Path))
	return &Source{db: db, path: cfg.Path}, nil
}

// OpenTarget opens and pings the central database described by cfg.
func OpenTarget(ctx context.Context, cfg types.TargetConfig, conn types.ConnectConfig, logger *slog.Logger) (*Target, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.Upsert == types.UpsertCheck {
		dialect.NativeUpsert = false
	}

	var driver, dsn string
	switch cfg.Driver {
	case types.DriverPostgres:
		if err := (types.Config{Target: cfg}).ValidateTarget(); err != nil {
			return nil, err
		}
		driver, dsn = pgxDriver, PostgresDSN(cfg)
	case types.DriverSQLite:
		if cfg.Path == "" {
			return nil, &types.ConfigurationError{Missing: []string{"target.path"}}
		}
		driver, dsn = sqliteDriver, cfg.Path+sqlitePragmas
	}

	db, err := connect(ctx, "target", driver, dsn, conn, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == types.DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	logging.OrDiscard(logger).Info("connected to target store",
		logging.Store("target"),
		slog.String("driver", cfg.Driver),
		slog.String("schema", cfg.Schema),
		slog.Bool("native_upsert", dialect.NativeUpsert),
	)
	return &Target{db: db, dialect: dialect, schema: cfg.Schema}, nil
}

// PostgresDSN builds a postgres:// URL from the target parameters.
func PostgresDSN(cfg types.TargetConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// connect opens a pool and pings it, retrying up to conn.Retries times.
func connect(ctx context.Context, name, driver, dsn string, conn types.ConnectConfig, logger *slog.Logger) (*sql.DB, error) {
	logger = logging.OrDiscard(logger)
	attempts := conn.Retries
	if attempts <= 0 {
		attempts = 1
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &types.ConnectionError{Store: name, Attempts: 0, Err: err}
	}

	tried := 0
	ping := func() error {
		tried++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("store ping failed", logging.Store(name), slog.Int("attempt", tried),
			slog.Duration("retry_in", wait), logging.Err(err))
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(conn.Delay), uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		db.Close()
		return nil, &types.ConnectionError{Store: name, Attempts: tried, Err: err}
	}
	return db, nil
}

const pingTimeout = 10 * time.Second

// DB returns the underlying handle.
func (s *Source) DB() *sql.DB { return s.db }

// Path returns the SQLite file location.
func (s *Source) Path() string { return s.path }

// Close closes the source handle.
func (s *Source) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle.
func (t *Target) DB() *sql.DB { return t.db }

// Dialect returns the target's SQL dialect.
func (t *Target) Dialect() Dialect { return t.dialect }

// Schema returns the configured schema, or "".
func (t *Target) Schema() string { return t.schema }

// Qualify prefixes table with the configured schema.
func (t *Target) Qualify(table string) string {
	return Qualify(t.schema, table)
}

// Close closes the target handle.
func (t *Target) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

// Qualify prefixes table with schema when schema is set.
func Qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// Provider opens both stores for one configuration.
type Provider struct {
	cfg    types.Config
	logger *slog.Logger
}

// NewProvider validates cfg and returns a provider for it.
func NewProvider(cfg types.Config, logger *slog.Logger) (*Provider, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, logger: logging.OrDiscard(logger)}, nil
}

// Config returns the validated configuration with defaults applied.
func (p *Provider) Config() types.Config { return p.cfg }

// OpenSource opens the source store.
func (p *Provider) OpenSource(ctx context.Context) (*Source, error) {
	return OpenSource(ctx, p.cfg.Source, p.cfg.Connect, p.logger)
}

// OpenTarget opens the target store.
func (p *Provider) OpenTarget(ctx context.Context) (*Target, error) {
	return OpenTarget(ctx, p.cfg.Target, p.cfg.Connect, p.logger)
}

// OpenBoth opens the source then the target; on failure nothing stays open.
func (p *Provider) OpenBoth(ctx context.Context) (*Source, *Target, error) {
	src, err := p.OpenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	tgt, err := p.OpenTarget(ctx)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, tgt, nil
}

// String describes the target without credentials.
func (t *Target) String() string {
	return fmt.Sprintf("%s target (schema %q)", t.dialect.Name, t.schema)
}
