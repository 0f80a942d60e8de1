// Package app provides application initialization and mode dispatch.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bissquit/pulsemon/internal/auth"
	"github.com/bissquit/pulsemon/internal/config"
	"github.com/bissquit/pulsemon/internal/domain"
	"github.com/bissquit/pulsemon/internal/fetch"
	"github.com/bissquit/pulsemon/internal/mailer"
	"github.com/bissquit/pulsemon/internal/pkg/ctxlog"
	"github.com/bissquit/pulsemon/internal/pkg/logging"
	"github.com/bissquit/pulsemon/internal/pkg/metrics"
	"github.com/bissquit/pulsemon/internal/report"
	"github.com/bissquit/pulsemon/internal/scan"
	"github.com/bissquit/pulsemon/internal/store"
	"github.com/bissquit/pulsemon/internal/store/sqlite"
	"github.com/bissquit/pulsemon/internal/version"
)

// App is one configured application instance. The process runs a single
// mode to completion and exits; all persistent state lives in the database
// file and the output directories.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	store     store.Store
}

// New wires an application from validated configuration. Opening the local
// cache is part of startup: an unusable database aborts the run before any
// customer is processed.
func New(cfg *config.Config) (*App, error) {
	logger, logCloser, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
	})
	if err != nil {
		return nil, &domain.ConfigError{Err: fmt.Errorf("init logging: %w", err)}
	}

	logger = logger.With("run_id", uuid.NewString())
	slog.SetDefault(logger)
	logger.Info("starting", "version", version.Version)

	st, err := sqlite.Open(cfg.Paths.Database)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	return &App{
		config:    cfg,
		logger:    logger,
		logCloser: logCloser,
		store:     st,
	}, nil
}

// RunScan polls every configured customer and caches the results.
func (a *App) RunScan(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	defer metrics.Push(a.config.Metrics.PushgatewayURL, "scan")

	authClient, err := auth.NewClient(auth.Config{
		AuthorityURL: a.config.API.AuthorityURL,
		Scope:        a.config.API.TokenScope,
	})
	if err != nil {
		return err
	}

	fetcher, err := fetch.NewFetcher(fetch.Config{
		HealthURL:        a.config.API.HealthURL,
		AnnouncementsURL: a.config.API.AnnouncementsURL,
		RequestsPerSec:   a.config.API.RequestsPerSec,
	})
	if err != nil {
		return err
	}

	runner := scan.NewRunner(authClient, fetcher, a.store, a.config.Cache.RetentionDays)
	return runner.Run(ctx, a.config.DomainCustomers())
}

// RunReport renders and mails reports for the selected customer, or for all
// of them when customerArg is "all".
func (a *App) RunReport(ctx context.Context, customerArg string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	defer metrics.Push(a.config.Metrics.PushgatewayURL, "report")

	customers, err := a.selectCustomers(customerArg)
	if err != nil {
		return err
	}

	renderer, err := report.NewRenderer(a.config.SMTP.Subject, a.config.SMTP.Signature)
	if err != nil {
		return &domain.ConfigError{Err: err}
	}

	sender, err := mailer.NewSender(mailer.Config{
		Host:     a.config.SMTP.Host,
		Port:     a.config.SMTP.Port,
		User:     a.config.SMTP.User,
		Password: a.config.SMTP.Password,
		From:     a.config.SMTP.From,
	})
	if err != nil {
		return &domain.ConfigError{Err: err}
	}

	runner := report.NewRunner(a.store, renderer, sender, a.config.PriorityMap(), report.Config{
		ImagesDir:      a.config.Paths.Images,
		WindowFromDays: a.config.Report.WindowFromDays,
		WindowToDays:   a.config.Report.WindowToDays,
	})
	return runner.Run(ctx, customers)
}

func (a *App) selectCustomers(customerArg string) ([]domain.Customer, error) {
	if customerArg == "" || customerArg == "all" {
		return a.config.DomainCustomers(), nil
	}
	customer, ok := a.config.Customer(customerArg)
	if !ok {
		return nil, &domain.ConfigError{Err: fmt.Errorf("customer %q is not configured", customerArg)}
	}
	return []domain.Customer{customer}, nil
}

// Close releases the cache and log file.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing cache", "error", err)
	}
	_ = a.logCloser.Close()
}
