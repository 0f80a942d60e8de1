package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/pulsemon/internal/domain"
	"github.com/bissquit/pulsemon/internal/mailer"
	"github.com/bissquit/pulsemon/internal/store/sqlite"
)

type fakeSender struct {
	failFor map[string]bool // keyed by first To address
	sent    []mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if len(msg.To) > 0 && f.failFor[msg.To[0]] {
		return fmt.Errorf("421 service not available")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestRunner(t *testing.T, sender Sender) (*Runner, *sqlite.Store, string) {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	renderer, err := NewRenderer("Service health report", "")
	require.NoError(t, err)

	imagesDir := t.TempDir()
	r := NewRunner(st, renderer, sender, testPriorities(), Config{
		ImagesDir:      imagesDir,
		WindowFromDays: 11,
		WindowToDays:   1,
	})
	r.now = func() time.Time { return time.Date(2026, 5, 11, 6, 0, 0, 0, time.UTC) }
	return r, st, imagesDir
}

func seedRecords(t *testing.T, st *sqlite.Store, customers ...string) {
	t.Helper()
	observed := time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC)
	for _, c := range customers {
		_, err := st.UpsertRecords(context.Background(), []domain.StatusRecord{
			{Customer: c, Service: "Intune", Status: "serviceOperational", ObservedAt: observed},
			{Customer: c, Service: "Intune", Status: "serviceInterruption", ObservedAt: observed.Add(time.Hour)},
		})
		require.NoError(t, err)
	}
}

func customersFor(names ...string) []domain.Customer {
	customers := make([]domain.Customer, 0, len(names))
	for _, name := range names {
		customers = append(customers, domain.Customer{
			Name:     name,
			Services: []string{"Intune"},
			MailTo:   []string{name + "@example.com"},
		})
	}
	return customers
}

func TestRunner_Run_OneEmailPerCustomer(t *testing.T) {
	sender := &fakeSender{}
	r, st, imagesDir := newTestRunner(t, sender)
	seedRecords(t, st, "acme", "globex")

	require.NoError(t, r.Run(context.Background(), customersFor("acme", "globex")))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"acme@example.com"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "[acme]")
	assert.Equal(t, []string{"globex@example.com"}, sender.sent[1].To)

	// Each email carries the inline chart and the chart file is persisted.
	require.Len(t, sender.sent[0].Inline, 1)
	assert.Contains(t, sender.sent[0].HTMLBody, "cid:"+sender.sent[0].Inline[0].CID)

	entries, err := os.ReadDir(filepath.Join(imagesDir, "acme"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunner_Run_SendFailureDoesNotHaltLoop(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"acme@example.com": true}}
	r, st, _ := newTestRunner(t, sender)
	seedRecords(t, st, "acme", "globex")

	require.NoError(t, r.Run(context.Background(), customersFor("acme", "globex")))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"globex@example.com"}, sender.sent[0].To)
}

func TestRunner_Run_EmptyCacheStillSendsPlaceholderReport(t *testing.T) {
	sender := &fakeSender{}
	r, _, _ := newTestRunner(t, sender)

	require.NoError(t, r.Run(context.Background(), customersFor("acme")))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTMLBody, "No data recorded for this service")
	assert.Empty(t, sender.sent[0].Inline)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Microsoft_365", sanitizeName("Microsoft 365"))
	assert.Equal(t, "acme-prod", sanitizeName("acme-prod"))
}
