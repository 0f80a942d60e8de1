// Package config loads and validates the static application configuration.
//
// Configuration comes from a YAML file, overridable by environment variables
// with the PULSEMON_ prefix (PULSEMON_SMTP_HOST overrides smtp.host). It is
// loaded once at startup and passed to each component; nothing reads global
// state afterwards.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bissquit/pulsemon/internal/domain"
)

const envPrefix = "PULSEMON_"

// Config is the complete static configuration for one run.
type Config struct {
	Log       LogConfig        `koanf:"log"`
	Paths     PathsConfig      `koanf:"paths"`
	API       APIConfig        `koanf:"api"`
	Statuses  StatusConfig     `koanf:"statuses"`
	Cache     CacheConfig      `koanf:"cache"`
	Report    ReportConfig     `koanf:"report"`
	SMTP      SMTPConfig       `koanf:"smtp"`
	Metrics   MetricsConfig    `koanf:"metrics"`
	Customers []CustomerConfig `koanf:"customers" validate:"required,min=1,dive"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
	Dir    string `koanf:"dir"`
}

// PathsConfig holds filesystem locations for persisted state.
type PathsConfig struct {
	Database string `koanf:"database" validate:"required"`
	Images   string `koanf:"images" validate:"required"`
}

// APIConfig holds vendor endpoint settings.
type APIConfig struct {
	HealthURL        string  `koanf:"health_url" validate:"required,url"`
	AnnouncementsURL string  `koanf:"announcements_url" validate:"required,url"`
	AuthorityURL     string  `koanf:"authority_url" validate:"required,url"`
	TokenScope       string  `koanf:"token_scope" validate:"required"`
	RequestsPerSec   float64 `koanf:"requests_per_sec" validate:"gt=0"`
}

// StatusConfig holds the status priority map settings.
type StatusConfig struct {
	Ranks        map[string]int `koanf:"ranks" validate:"required,min=1"`
	FallbackRank int            `koanf:"fallback_rank"`
	OKThreshold  int            `koanf:"ok_threshold" validate:"gt=0"`
}

// CacheConfig holds local cache retention settings.
type CacheConfig struct {
	RetentionDays int `koanf:"retention_days" validate:"gt=0"`
}

// ReportConfig holds report window offsets, in days before now.
type ReportConfig struct {
	WindowFromDays int `koanf:"window_from_days" validate:"gt=0"`
	WindowToDays   int `koanf:"window_to_days" validate:"gte=0"`
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host      string `koanf:"host" validate:"required"`
	Port      int    `koanf:"port" validate:"gt=0"`
	User      string `koanf:"user"`
	Password  string `koanf:"password"`
	From      string `koanf:"from" validate:"required"`
	Subject   string `koanf:"subject" validate:"required"`
	Signature string `koanf:"signature"`
}

// MetricsConfig holds the optional Pushgateway target for batch-run metrics.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
}

// CustomerConfig is one entry in the customer registry.
type CustomerConfig struct {
	Name          string   `koanf:"name" validate:"required"`
	CredentialEnv string   `koanf:"credential_env" validate:"required"`
	Services      []string `koanf:"services" validate:"required,min=1"`
	MailTo        []string `koanf:"mail_to" validate:"required,min=1,dive,email"`
	MailCC        []string `koanf:"mail_cc" validate:"dive,email"`
}

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result. Every failure is a fatal ConfigError.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, &domain.ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}

	// PULSEMON_SMTP_HOST -> smtp.host
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, &domain.ConfigError{Err: fmt.Errorf("environment overrides: %w", err)}
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &domain.ConfigError{Err: fmt.Errorf("unmarshal: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			HealthURL:        "https://graph.microsoft.com/v1.0/admin/serviceAnnouncement/healthOverviews",
			AnnouncementsURL: "https://graph.microsoft.com/v1.0/admin/serviceAnnouncement/messages",
			AuthorityURL:     "https://login.microsoftonline.com",
			TokenScope:       "https://graph.microsoft.com/.default",
			RequestsPerSec:   4,
		},
		Statuses: StatusConfig{
			Ranks:        defaultStatusRanks(),
			FallbackRank: 0,
			OKThreshold:  9,
		},
		Cache:  CacheConfig{RetentionDays: 30},
		Report: ReportConfig{WindowFromDays: 11, WindowToDays: 1},
		SMTP: SMTPConfig{
			Port:      25,
			Subject:   "Service health report",
			Signature: `<hr><p style="color: gray;">This is an automated message - please do not reply.</p>`,
		},
	}
}

// defaultStatusRanks is the vendor status enumeration ordered by severity.
// Ranks >= 9 count as healthy for availability purposes.
func defaultStatusRanks() map[string]int {
	return map[string]int{
		"serviceOperational":          10,
		"serviceRestored":             9,
		"falsePositive":               9,
		"postIncidentReviewPublished": 9,
		"resolved":                    9,
		"resolvedExternal":            9,
		"serviceDegradation":          9,
		"investigating":               8,
		"confirmed":                   8,
		"reported":                    8,
		"mitigatedExternal":           7,
		"mitigated":                   7,
		"verifyingService":            6,
		"restoringService":            5,
		"extendedRecovery":            5,
		"serviceInterruption":         4,
		"investigationSuspended":      3,
	}
}

// Validate checks structural validity plus the cross-field rules the tag
// language cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &domain.ConfigError{Err: err}
	}

	if c.Report.WindowFromDays < c.Report.WindowToDays {
		return &domain.ConfigError{Err: fmt.Errorf(
			"report window crosses itself: window_from_days (%d) is more recent than window_to_days (%d)",
			c.Report.WindowFromDays, c.Report.WindowToDays,
		)}
	}

	seen := make(map[string]struct{}, len(c.Customers))
	for _, customer := range c.Customers {
		name := strings.ToLower(customer.Name)
		if _, dup := seen[name]; dup {
			return &domain.ConfigError{Err: fmt.Errorf("duplicate customer name %q", customer.Name)}
		}
		seen[name] = struct{}{}
	}

	return nil
}

// PriorityMap builds the immutable status priority map.
func (c *Config) PriorityMap() domain.PriorityMap {
	return domain.NewPriorityMap(c.Statuses.Ranks, c.Statuses.FallbackRank, c.Statuses.OKThreshold)
}

// Customer looks a customer up by name, case-insensitively.
func (c *Config) Customer(name string) (domain.Customer, bool) {
	for _, cc := range c.Customers {
		if strings.EqualFold(cc.Name, name) {
			return cc.Domain(), true
		}
	}
	return domain.Customer{}, false
}

// DomainCustomers converts the registry to domain values in configured order.
func (c *Config) DomainCustomers() []domain.Customer {
	customers := make([]domain.Customer, 0, len(c.Customers))
	for _, cc := range c.Customers {
		customers = append(customers, cc.Domain())
	}
	return customers
}

// Domain converts one registry entry to its domain value.
func (cc CustomerConfig) Domain() domain.Customer {
	return domain.Customer{
		Name:          cc.Name,
		CredentialEnv: cc.CredentialEnv,
		Services:      cc.Services,
		MailTo:        cc.MailTo,
		MailCC:        cc.MailCC,
	}
}
