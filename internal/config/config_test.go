package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
paths:
  database: /var/lib/pulsemon/pulsemon.db
  images: /var/lib/pulsemon/images
smtp:
  host: smtp.example.com
  from: monitor@example.com
customers:
  - name: acme
    credential_env: API_CHECK_ACME
    services: [Intune, Microsoft365Defender]
    mail_to: [ops@acme.example]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	// Defaults applied.
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 25, cfg.SMTP.Port)
	assert.Equal(t, 30, cfg.Cache.RetentionDays)
	assert.Equal(t, 11, cfg.Report.WindowFromDays)
	assert.Equal(t, 1, cfg.Report.WindowToDays)
	assert.Equal(t, 10, cfg.Statuses.Ranks["serviceOperational"])

	// File values win over defaults.
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	require.Len(t, cfg.Customers, 1)
	assert.Equal(t, "acme", cfg.Customers[0].Name)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PULSEMON_SMTP_HOST", "relay.internal")
	t.Setenv("PULSEMON_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "relay.internal", cfg.SMTP.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "no customers",
			yaml: `
paths: {database: /tmp/db, images: /tmp/img}
smtp: {host: smtp.example.com, from: monitor@example.com}
customers: []
`,
		},
		{
			name: "customer without recipients",
			yaml: `
paths: {database: /tmp/db, images: /tmp/img}
smtp: {host: smtp.example.com, from: monitor@example.com}
customers:
  - name: acme
    credential_env: API_CHECK_ACME
    services: [Intune]
    mail_to: []
`,
		},
		{
			name: "bad recipient address",
			yaml: `
paths: {database: /tmp/db, images: /tmp/img}
smtp: {host: smtp.example.com, from: monitor@example.com}
customers:
  - name: acme
    credential_env: API_CHECK_ACME
    services: [Intune]
    mail_to: [not-an-address]
`,
		},
		{
			name: "crossed report window",
			yaml: `
paths: {database: /tmp/db, images: /tmp/img}
report: {window_from_days: 1, window_to_days: 5}
smtp: {host: smtp.example.com, from: monitor@example.com}
customers:
  - name: acme
    credential_env: API_CHECK_ACME
    services: [Intune]
    mail_to: [ops@acme.example]
`,
		},
		{
			name: "duplicate customer names",
			yaml: `
paths: {database: /tmp/db, images: /tmp/img}
smtp: {host: smtp.example.com, from: monitor@example.com}
customers:
  - name: acme
    credential_env: API_CHECK_ACME
    services: [Intune]
    mail_to: [ops@acme.example]
  - name: Acme
    credential_env: API_CHECK_ACME2
    services: [Intune]
    mail_to: [ops2@acme.example]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config:")
		})
	}
}

func TestConfig_CustomerLookup(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	c, ok := cfg.Customer("ACME")
	require.True(t, ok)
	assert.Equal(t, "acme", c.Name)
	assert.Equal(t, []string{"ops@acme.example"}, c.MailTo)

	_, ok = cfg.Customer("unknown")
	assert.False(t, ok)
}

func TestConfig_PriorityMap(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	m := cfg.PriorityMap()
	assert.Equal(t, 10, m.Rank("serviceOperational"))
	assert.Equal(t, 0, m.Rank("notAStatus"))
	assert.True(t, m.IsHealthy("serviceRestored"))
}
