// Package pgprops loads restcall request properties from a PostgreSQL
// table and keeps them fresh with a background poller. The store embeds a
// properties.Map, so it plugs straight into a client as its property
// source while rows added or changed in the table show up on later calls.
package pgprops

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/vietddude/restcall/properties"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Config holds PostgreSQL property store configuration.
type Config struct {
	URL         string `yaml:"url"`
	Table       string `yaml:"table"`
	PollSeconds int    `yaml:"poll_seconds"`
	MaxConns    int    `yaml:"max_conns"`
	MinConns    int    `yaml:"min_conns"`
	Migrate     bool   `yaml:"migrate"`
}

const (
	defaultTable       = "restcall_properties"
	defaultPollSeconds = 30
)

// Store is a polling property source backed by a name/value table.
type Store struct {
	*properties.Map

	db     *sqlx.DB
	table  string
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

type propertyRow struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

// Open connects to the database, optionally provisions the default table,
// loads the first snapshot, and starts the refresh poller. Cancelling ctx
// stops the poller; Close does too.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Migrate {
		// Goose needs the plain *sql.DB that sqlx wraps.
		goose.SetBaseFS(migrations)
		if err := goose.SetDialect("postgres"); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := goose.Up(db.DB, "migrations"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	poll := cfg.PollSeconds
	if poll <= 0 {
		poll = defaultPollSeconds
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Store{
		Map:    properties.NewMap(),
		db:     db,
		table:  table,
		logger: slog.Default(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if err := s.refresh(ctx); err != nil {
		cancel()
		_ = db.Close()
		return nil, err
	}

	go s.poll(runCtx, time.Duration(poll)*time.Second)
	return s, nil
}

func (s *Store) refresh(ctx context.Context) error {
	query := fmt.Sprintf("SELECT name, value FROM %s", pq.QuoteIdentifier(s.table))

	var rows []propertyRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return fmt.Errorf("failed to load properties: %w", err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}
	s.Replace(values)
	s.logger.Debug("refreshed properties", "table", s.table, "count", len(values))
	return nil
}

func (s *Store) poll(ctx context.Context, every time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.logger.Warn("property refresh failed", "table", s.table, "error", err)
			}
		}
	}
}

// Health checks if the database is reachable.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the poller and closes the database.
func (s *Store) Close() error {
	s.cancel()
	<-s.done
	return s.db.Close()
}
