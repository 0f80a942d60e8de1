package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/pulsemon/internal/domain"
	"github.com/bissquit/pulsemon/internal/mailer"
	"github.com/bissquit/pulsemon/internal/pkg/ctxlog"
	"github.com/bissquit/pulsemon/internal/pkg/metrics"
	"github.com/bissquit/pulsemon/internal/store"
)

// Sender delivers one rendered report email.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Runner performs the report mode: query the cache, aggregate, render and
// mail one report per customer. A failure for one customer is logged and
// never prevents the email to the next customer.
type Runner struct {
	store      store.Store
	renderer   *Renderer
	sender     Sender
	priorities domain.PriorityMap

	imagesDir      string
	windowFromDays int
	windowToDays   int

	now func() time.Time
}

// Config holds report runner settings.
type Config struct {
	ImagesDir      string
	WindowFromDays int
	WindowToDays   int
}

// NewRunner creates a report runner.
func NewRunner(st store.Store, renderer *Renderer, sender Sender, priorities domain.PriorityMap, cfg Config) *Runner {
	return &Runner{
		store:          st,
		renderer:       renderer,
		sender:         sender,
		priorities:     priorities,
		imagesDir:      cfg.ImagesDir,
		windowFromDays: cfg.WindowFromDays,
		windowToDays:   cfg.WindowToDays,
		now:            time.Now,
	}
}

// Run builds and sends a report for each customer. The returned error is
// non-nil only when the cache itself is unusable.
func (r *Runner) Run(ctx context.Context, customers []domain.Customer) error {
	log := ctxlog.FromContext(ctx)

	window := domain.NewReportWindow(r.now(), r.windowFromDays, r.windowToDays)
	runID := uuid.NewString()
	log.Info("report run starting",
		"run_id", runID,
		"window_from", window.From.Format("2006-01-02"),
		"window_to", window.To.Format("2006-01-02"),
		"customers", len(customers),
	)

	for _, customer := range customers {
		clog := log.With("customer", customer.Name)
		if err := r.reportCustomer(ctx, clog, customer, window, runID); err != nil {
			var cacheErr *domain.CacheError
			if errors.As(err, &cacheErr) {
				return err
			}
			clog.Error("report failed, skipping customer",
				"error", err,
				"retryable", mailer.IsRetryable(err),
			)
			metrics.ReportFailures.Inc()
			continue
		}
		metrics.ReportsSent.Inc()
	}
	return nil
}

func (r *Runner) reportCustomer(ctx context.Context, log *slog.Logger, customer domain.Customer, window domain.ReportWindow, runID string) error {
	records, err := r.store.QueryRecords(ctx, customer.Name, window)
	if err != nil {
		return err
	}
	announcements, err := r.store.QueryAnnouncements(ctx, customer.Name, window)
	if err != nil {
		return err
	}

	report := Build(customer, window, records, announcements, r.priorities)

	charts, inline := r.renderCharts(log, report, runID)

	subject, body, err := r.renderer.Render(report, charts, r.now().UTC())
	if err != nil {
		return &domain.MailError{Customer: customer.Name, Err: err}
	}

	msg := mailer.Message{
		To:       customer.MailTo,
		CC:       customer.MailCC,
		Subject:  subject,
		HTMLBody: body,
		Inline:   inline,
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		return &domain.MailError{Customer: customer.Name, Err: err}
	}

	log.Info("report sent",
		"records", len(records),
		"services", len(report.Services),
		"charts", len(inline),
	)
	return nil
}

// renderCharts draws one chart per service with data. Chart failures degrade
// the report instead of failing it; the PNGs are also written under the
// images directory for later inspection.
func (r *Runner) renderCharts(log *slog.Logger, report CustomerReport, runID string) (map[string]string, []mailer.InlineImage) {
	charts := make(map[string]string)
	var inline []mailer.InlineImage

	for _, summary := range report.Services {
		if !summary.HasData {
			continue
		}
		png, err := RenderChart(summary, r.priorities)
		if err != nil {
			log.Warn("chart rendering failed", "service", summary.Service, "error", err)
			continue
		}

		cid := chartCID(summary.Service)
		filename := fmt.Sprintf("%s_%s.png", runID, sanitizeName(summary.Service))
		charts[summary.Service] = cid
		inline = append(inline, mailer.InlineImage{CID: cid, Filename: filename, Content: png})

		if r.imagesDir != "" {
			dir := filepath.Join(r.imagesDir, sanitizeName(report.Customer.Name))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Warn("cannot create images directory", "dir", dir, "error", err)
				continue
			}
			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, png, 0o644); err != nil {
				log.Warn("cannot save chart image", "path", path, "error", err)
			}
		}
	}
	return charts, inline
}

func chartCID(service string) string {
	return "chart-" + sanitizeName(service)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
