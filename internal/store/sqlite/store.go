// Package sqlite provides the SQLite implementation of the local cache.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/bissquit/pulsemon/internal/domain"
	"github.com/bissquit/pulsemon/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Timestamps are stored as RFC3339 UTC text so that lexical comparison in
// SQL matches chronological comparison.
const timeFormat = time.RFC3339

// Store implements store.Store on a single SQLite database file.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database file, applies pending schema
// migrations and returns the store. Failure here means the cache is unusable
// and the current mode must abort.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &domain.CacheError{Op: "open", Err: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &domain.CacheError{Op: "open", Err: err}
	}
	// Single connection: the process is sequential and this keeps in-memory
	// test databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &domain.CacheError{Op: "open", Err: err}
	}

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, &domain.CacheError{Op: "migrate", Err: err}
	}

	slog.Debug("local cache opened", "path", path)
	return &Store{db: db}, nil
}

func migrateSchema(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// UpsertRecords inserts records inside one transaction, ignoring exact
// (customer, service, observed_at) duplicates.
func (s *Store) UpsertRecords(ctx context.Context, records []domain.StatusRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.CacheError{Op: "upsert records", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO service_status (customer, service, status, observed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (customer, service, observed_at) DO NOTHING
	`
	var inserted int64
	for _, r := range records {
		res, err := tx.ExecContext(ctx, query,
			r.Customer, r.Service, r.Status, r.ObservedAt.UTC().Format(timeFormat))
		if err != nil {
			return 0, &domain.CacheError{Op: "upsert records", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &domain.CacheError{Op: "upsert records", Err: err}
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.CacheError{Op: "upsert records", Err: err}
	}
	return inserted, nil
}

// QueryRecords returns records within the window ordered by observed_at
// ascending.
func (s *Store) QueryRecords(ctx context.Context, customer string, window domain.ReportWindow) ([]domain.StatusRecord, error) {
	query := `
		SELECT customer, service, status, observed_at
		FROM service_status
		WHERE observed_at BETWEEN ? AND ?
	`
	args := []any{window.From.UTC().Format(timeFormat), window.To.UTC().Format(timeFormat)}
	if customer != store.AllCustomers {
		query += " AND customer = ?"
		args = append(args, customer)
	}
	query += " ORDER BY observed_at ASC, customer ASC, service ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.CacheError{Op: "query records", Err: err}
	}
	defer rows.Close()

	records := make([]domain.StatusRecord, 0)
	for rows.Next() {
		var r domain.StatusRecord
		var observedAt string
		if err := rows.Scan(&r.Customer, &r.Service, &r.Status, &observedAt); err != nil {
			return nil, &domain.CacheError{Op: "scan record", Err: err}
		}
		r.ObservedAt, err = time.Parse(timeFormat, observedAt)
		if err != nil {
			return nil, &domain.CacheError{Op: "scan record", Err: err}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.CacheError{Op: "query records", Err: err}
	}
	return records, nil
}

// UpsertAnnouncements inserts announcements, refreshing the title,
// classification and last_updated of messages seen before.
func (s *Store) UpsertAnnouncements(ctx context.Context, announcements []domain.Announcement) (int64, error) {
	if len(announcements) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.CacheError{Op: "upsert announcements", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO service_announcement (customer, service, message_id, title, classification, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer, service, message_id) DO UPDATE SET
			title = excluded.title,
			classification = excluded.classification,
			last_updated = excluded.last_updated
	`
	var affected int64
	for _, a := range announcements {
		res, err := tx.ExecContext(ctx, query,
			a.Customer, a.Service, a.MessageID, a.Title, a.Classification,
			a.LastUpdated.UTC().Format(timeFormat))
		if err != nil {
			return 0, &domain.CacheError{Op: "upsert announcements", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &domain.CacheError{Op: "upsert announcements", Err: err}
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.CacheError{Op: "upsert announcements", Err: err}
	}
	return affected, nil
}

// QueryAnnouncements returns announcements last updated within the window,
// ordered by last_updated ascending.
func (s *Store) QueryAnnouncements(ctx context.Context, customer string, window domain.ReportWindow) ([]domain.Announcement, error) {
	query := `
		SELECT customer, service, message_id, title, classification, last_updated
		FROM service_announcement
		WHERE last_updated BETWEEN ? AND ?
	`
	args := []any{window.From.UTC().Format(timeFormat), window.To.UTC().Format(timeFormat)}
	if customer != store.AllCustomers {
		query += " AND customer = ?"
		args = append(args, customer)
	}
	query += " ORDER BY last_updated ASC, message_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.CacheError{Op: "query announcements", Err: err}
	}
	defer rows.Close()

	announcements := make([]domain.Announcement, 0)
	for rows.Next() {
		var a domain.Announcement
		var lastUpdated string
		if err := rows.Scan(&a.Customer, &a.Service, &a.MessageID, &a.Title, &a.Classification, &lastUpdated); err != nil {
			return nil, &domain.CacheError{Op: "scan announcement", Err: err}
		}
		a.LastUpdated, err = time.Parse(timeFormat, lastUpdated)
		if err != nil {
			return nil, &domain.CacheError{Op: "scan announcement", Err: err}
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.CacheError{Op: "query announcements", Err: err}
	}
	return announcements, nil
}

// Purge deletes rows strictly older than cutoff from both tables.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(timeFormat)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &domain.CacheError{Op: "purge", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, q := range []string{
		`DELETE FROM service_status WHERE observed_at < ?`,
		`DELETE FROM service_announcement WHERE last_updated < ?`,
	} {
		res, err := tx.ExecContext(ctx, q, ts)
		if err != nil {
			return 0, &domain.CacheError{Op: "purge", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &domain.CacheError{Op: "purge", Err: err}
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, &domain.CacheError{Op: "purge", Err: err}
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
