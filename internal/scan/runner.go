// Package scan orchestrates one polling cycle across all customers.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bissquit/pulsemon/internal/auth"
	"github.com/bissquit/pulsemon/internal/domain"
	"github.com/bissquit/pulsemon/internal/pkg/ctxlog"
	"github.com/bissquit/pulsemon/internal/pkg/metrics"
	"github.com/bissquit/pulsemon/internal/store"
)

// TokenSource obtains a bearer token for one customer.
type TokenSource interface {
	Token(ctx context.Context, customer string, creds domain.Credentials) (auth.Token, error)
}

// Fetcher retrieves one customer's current health data.
type Fetcher interface {
	Fetch(ctx context.Context, customer domain.Customer, bearerToken string, observedAt time.Time) ([]domain.StatusRecord, []domain.Announcement, error)
}

// Runner performs the scan mode: authenticate, fetch and cache per customer,
// then sweep out records older than the retention window. Customers are
// processed sequentially in configured order; a failure for one customer is
// logged and never halts the loop.
type Runner struct {
	tokens        TokenSource
	fetcher       Fetcher
	store         store.Store
	retentionDays int
	now           func() time.Time
}

// NewRunner creates a scan runner.
func NewRunner(tokens TokenSource, fetcher Fetcher, st store.Store, retentionDays int) *Runner {
	return &Runner{
		tokens:        tokens,
		fetcher:       fetcher,
		store:         st,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run scans every customer and purges outdated rows. The returned error is
// non-nil only when the cache itself is unusable; per-customer auth and
// fetch failures are logged and skipped.
func (r *Runner) Run(ctx context.Context, customers []domain.Customer) error {
	log := ctxlog.FromContext(ctx)

	observedAt := r.now().UTC().Truncate(time.Second)
	var failed int

	for _, customer := range customers {
		clog := log.With("customer", customer.Name)
		if err := r.scanCustomer(ctx, clog, customer, observedAt); err != nil {
			var cacheErr *domain.CacheError
			if errors.As(err, &cacheErr) {
				// The database is unusable: no later customer can succeed.
				return err
			}
			clog.Error("scan cycle failed, skipping customer", "error", err)
			metrics.ScanCustomerFailures.Inc()
			failed++
		}
	}

	cutoff := retentionCutoff(r.now().UTC(), r.retentionDays)
	purged, err := r.store.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	metrics.RecordsPurged.Add(float64(purged))
	log.Info("retention sweep done",
		"purged", purged,
		"cutoff", cutoff.Format("2006-01-02"),
		"customers", len(customers),
		"failed", failed,
	)
	return nil
}

func (r *Runner) scanCustomer(ctx context.Context, log *slog.Logger, customer domain.Customer, observedAt time.Time) error {
	creds, err := customer.ResolveCredentials()
	if err != nil {
		return err
	}

	token, err := r.tokens.Token(ctx, customer.Name, creds)
	if err != nil {
		return err
	}
	log.Debug("token obtained", "expiry", token.Expiry)

	records, announcements, err := r.fetcher.Fetch(ctx, customer, token.AccessToken, observedAt)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Warn("no monitored services in vendor response")
	}

	inserted, err := r.store.UpsertRecords(ctx, records)
	if err != nil {
		return err
	}
	metrics.ScanRecordsUpserted.Add(float64(inserted))

	annUpserts, err := r.store.UpsertAnnouncements(ctx, announcements)
	if err != nil {
		return err
	}
	metrics.ScanAnnouncementsUpserted.Add(float64(annUpserts))

	log.Info("scan cycle done",
		"records", len(records),
		"inserted", inserted,
		"announcements", len(announcements),
	)
	return nil
}

// retentionCutoff is midnight UTC of the day retentionDays before now, so a
// sweep never removes a partial day.
func retentionCutoff(now time.Time, retentionDays int) time.Time {
	day := now.AddDate(0, 0, -retentionDays)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

