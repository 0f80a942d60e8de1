// Package fetch retrieves service health data from the vendor API.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/bissquit/pulsemon/internal/domain"
)

// Config holds the vendor endpoint settings.
type Config struct {
	HealthURL        string
	AnnouncementsURL string
	// RequestsPerSec limits outbound API calls across both endpoints.
	RequestsPerSec float64
	// HTTPClient overrides the client used for API calls. Nil means a client
	// with a 30s timeout.
	HTTPClient *http.Client
}

// Fetcher calls the vendor health-overview and announcement endpoints and
// filters results down to a customer's monitored services.
type Fetcher struct {
	config  Config
	limiter *rate.Limiter
}

// NewFetcher creates a fetcher.
func NewFetcher(config Config) (*Fetcher, error) {
	if config.HealthURL == "" || config.AnnouncementsURL == "" {
		return nil, &domain.ConfigError{Err: fmt.Errorf("fetcher: health and announcements URLs are required")}
	}
	if config.RequestsPerSec <= 0 {
		config.RequestsPerSec = 4
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
	}, nil
}

// healthOverview is one entry of the health-overviews payload. The id is the
// stable service identifier used in customer configuration; service is the
// display name.
type healthOverview struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Status  string `json:"status"`
}

// announcementMessage is one entry of the announcement-messages payload.
type announcementMessage struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Classification string   `json:"classification"`
	LastModified   string   `json:"lastModifiedDateTime"`
	Services       []string `json:"services"`
}

// valueEnvelope is the list wrapper the vendor API puts around collections.
type valueEnvelope[T any] struct {
	Value []T `json:"value"`
}

// Fetch returns the customer's current status records and recent
// announcements. All records of one call carry the same observation
// timestamp. Entries for services the customer does not monitor are dropped.
func (f *Fetcher) Fetch(ctx context.Context, customer domain.Customer, bearerToken string, observedAt time.Time) ([]domain.StatusRecord, []domain.Announcement, error) {
	overviews, err := get[healthOverview](ctx, f, customer.Name, f.config.HealthURL, bearerToken)
	if err != nil {
		return nil, nil, err
	}

	// Records carry the stable service identifier, the same key used in the
	// customer's monitored set, so cached rows group consistently with
	// configuration and announcements.
	records := make([]domain.StatusRecord, 0, len(overviews))
	for _, o := range overviews {
		if !customer.MonitorsService(o.ID) {
			continue
		}
		records = append(records, domain.StatusRecord{
			Customer:   customer.Name,
			Service:    o.ID,
			Status:     o.Status,
			ObservedAt: observedAt.UTC(),
		})
	}

	messages, err := get[announcementMessage](ctx, f, customer.Name, f.config.AnnouncementsURL, bearerToken)
	if err != nil {
		return nil, nil, err
	}

	announcements := make([]domain.Announcement, 0)
	for _, m := range messages {
		lastUpdated, err := time.Parse(time.RFC3339, m.LastModified)
		if err != nil {
			lastUpdated = observedAt.UTC()
		}
		for _, svc := range m.Services {
			if !customer.MonitorsService(svc) {
				continue
			}
			announcements = append(announcements, domain.Announcement{
				Customer:       customer.Name,
				Service:        svc,
				MessageID:      m.ID,
				Title:          m.Title,
				Classification: m.Classification,
				LastUpdated:    lastUpdated,
			})
		}
	}

	return records, announcements, nil
}

// get performs one rate-limited authenticated GET and decodes the value
// envelope.
func get[T any](ctx context.Context, f *Fetcher, customer, url, bearerToken string) ([]T, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &domain.FetchError{Customer: customer, Endpoint: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{Customer: customer, Endpoint: url, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.config.HTTPClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Customer: customer, Endpoint: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			Customer: customer,
			Endpoint: url,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	var envelope valueEnvelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &domain.FetchError{Customer: customer, Endpoint: url, Err: fmt.Errorf("decode payload: %w", err)}
	}
	return envelope.Value, nil
}
