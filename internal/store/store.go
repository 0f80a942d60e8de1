// Package store defines the local cache repository contract.
package store

import (
	"context"
	"time"

	"github.com/bissquit/pulsemon/internal/domain"
)

// AllCustomers selects rows for every customer in query operations.
const AllCustomers = ""

// Store is the local observation cache. Records are append-only and keyed by
// (customer, service, observed_at); duplicates of that key are ignored on
// insert and removed only by the retention sweep.
type Store interface {
	// UpsertRecords inserts status records, silently ignoring exact
	// duplicates. Returns the number of rows actually inserted.
	UpsertRecords(ctx context.Context, records []domain.StatusRecord) (int64, error)

	// QueryRecords returns records within the window ordered by observed_at
	// ascending. Pass AllCustomers to select every customer.
	QueryRecords(ctx context.Context, customer string, window domain.ReportWindow) ([]domain.StatusRecord, error)

	// UpsertAnnouncements inserts or refreshes announcement messages keyed by
	// (customer, service, message_id). Returns the number of affected rows.
	UpsertAnnouncements(ctx context.Context, announcements []domain.Announcement) (int64, error)

	// QueryAnnouncements returns announcements last updated within the
	// window, ordered by last_updated ascending.
	QueryAnnouncements(ctx context.Context, customer string, window domain.ReportWindow) ([]domain.Announcement, error)

	// Purge deletes records and announcements strictly older than cutoff and
	// returns the number of deleted rows. Rows exactly at the cutoff are
	// retained.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
