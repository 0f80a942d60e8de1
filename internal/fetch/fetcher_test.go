package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/pulsemon/internal/domain"
)

const healthPayload = `{
	"value": [
		{"id": "Intune", "service": "Microsoft Intune", "status": "serviceOperational"},
		{"id": "Exchange", "service": "Exchange Online", "status": "serviceDegradation"},
		{"id": "Teams", "service": "Microsoft Teams", "status": "serviceInterruption"}
	]
}`

const messagesPayload = `{
	"value": [
		{
			"id": "MO502273",
			"title": "Device sync delays",
			"classification": "advisory",
			"lastModifiedDateTime": "2026-05-10T07:30:00Z",
			"services": ["Intune"]
		},
		{
			"id": "MO999999",
			"title": "Teams call quality",
			"classification": "incident",
			"lastModifiedDateTime": "2026-05-10T06:00:00Z",
			"services": ["Teams"]
		}
	]
}`

func testServer(t *testing.T, healthStatus, messagesStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.WriteHeader(healthStatus)
		if healthStatus == http.StatusOK {
			_, _ = w.Write([]byte(healthPayload))
		}
	})
	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(messagesStatus)
		if messagesStatus == http.StatusOK {
			_, _ = w.Write([]byte(messagesPayload))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, srv *httptest.Server) *Fetcher {
	t.Helper()
	f, err := NewFetcher(Config{
		HealthURL:        srv.URL + "/health",
		AnnouncementsURL: srv.URL + "/messages",
		RequestsPerSec:   100,
		HTTPClient:       srv.Client(),
	})
	require.NoError(t, err)
	return f
}

func TestFetcher_Fetch_FiltersToMonitoredServices(t *testing.T) {
	srv := testServer(t, http.StatusOK, http.StatusOK)
	f := newTestFetcher(t, srv)

	customer := domain.Customer{Name: "acme", Services: []string{"Intune", "Exchange"}}
	observedAt := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

	records, announcements, err := f.Fetch(context.Background(), customer, "tok-123", observedAt)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Intune", records[0].Service)
	assert.Equal(t, "serviceOperational", records[0].Status)
	assert.Equal(t, "Exchange", records[1].Service)
	for _, r := range records {
		assert.Equal(t, "acme", r.Customer)
		assert.Equal(t, observedAt, r.ObservedAt)
	}

	// Teams is not monitored: its announcement is dropped too.
	require.Len(t, announcements, 1)
	assert.Equal(t, "MO502273", announcements[0].MessageID)
	assert.Equal(t, "Intune", announcements[0].Service)
	assert.Equal(t, time.Date(2026, 5, 10, 7, 30, 0, 0, time.UTC), announcements[0].LastUpdated)
}

func TestFetcher_Fetch_Non2xx(t *testing.T) {
	srv := testServer(t, http.StatusForbidden, http.StatusOK)
	f := newTestFetcher(t, srv)

	customer := domain.Customer{Name: "acme", Services: []string{"Intune"}}
	_, _, err := f.Fetch(context.Background(), customer, "tok-123", time.Now())
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "acme", fetchErr.Customer)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestFetcher_Fetch_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value": not json`))
	}))
	defer srv.Close()

	f, err := NewFetcher(Config{
		HealthURL:        srv.URL,
		AnnouncementsURL: srv.URL,
		RequestsPerSec:   100,
		HTTPClient:       srv.Client(),
	})
	require.NoError(t, err)

	customer := domain.Customer{Name: "acme", Services: []string{"Intune"}}
	_, _, err = f.Fetch(context.Background(), customer, "tok-123", time.Now())
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, err.Error(), "decode payload")
}
