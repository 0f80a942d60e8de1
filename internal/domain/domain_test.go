package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityMap_Rank(t *testing.T) {
	m := NewPriorityMap(map[string]int{
		"serviceOperational": 10,
		"serviceRestored":    9,
		"serviceDegradation": 9,
		"investigating":      8,
	}, 0, 9)

	assert.Equal(t, 10, m.Rank("serviceOperational"))
	assert.Equal(t, 8, m.Rank("investigating"))

	// Unknown vendor codes fall back instead of failing.
	assert.Equal(t, 0, m.Rank("somethingNewFromVendor"))
	assert.False(t, m.Known("somethingNewFromVendor"))
	assert.True(t, m.Known("serviceRestored"))
}

func TestPriorityMap_IsHealthy(t *testing.T) {
	m := NewPriorityMap(map[string]int{
		"serviceOperational": 10,
		"serviceRestored":    9,
		"investigating":      8,
	}, 0, 9)

	assert.True(t, m.IsHealthy("serviceOperational"))
	assert.True(t, m.IsHealthy("serviceRestored"))
	assert.False(t, m.IsHealthy("investigating"))
	assert.False(t, m.IsHealthy("unknown"))
}

func TestPriorityMap_Immutable(t *testing.T) {
	ranks := map[string]int{"serviceOperational": 10}
	m := NewPriorityMap(ranks, 0, 9)

	ranks["serviceOperational"] = 1
	assert.Equal(t, 10, m.Rank("serviceOperational"))
}

func TestNewReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 45, 12, 0, time.UTC)
	w := NewReportWindow(now, 11, 1)

	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC), w.To)

	assert.True(t, w.Contains(w.From))
	assert.True(t, w.Contains(w.To))
	assert.False(t, w.Contains(w.From.Add(-time.Second)))
	assert.False(t, w.Contains(w.To.Add(time.Second)))
}

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Credentials
		wantErr string
	}{
		{
			name: "valid",
			raw:  "tenant-1;client-1;s3cret",
			want: Credentials{TenantID: "tenant-1", ClientID: "client-1", ClientSecret: "s3cret"},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  " tenant-1 ; client-1 ; s3cret ",
			want: Credentials{TenantID: "tenant-1", ClientID: "client-1", ClientSecret: "s3cret"},
		},
		{
			name:    "too few fields",
			raw:     "tenant-1;client-1",
			wantErr: "has 2 fields",
		},
		{
			name:    "too many fields",
			raw:     "a;b;c;d",
			wantErr: "has 4 fields",
		},
		{
			name:    "empty secret",
			raw:     "tenant-1;client-1;",
			wantErr: "empty field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCredentials("acme", tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomer_ResolveCredentials(t *testing.T) {
	c := Customer{Name: "acme", CredentialEnv: "PULSEMON_TEST_CRED"}

	t.Run("missing variable", func(t *testing.T) {
		_, err := c.ResolveCredentials()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PULSEMON_TEST_CRED is not set")
	})

	t.Run("set variable", func(t *testing.T) {
		t.Setenv("PULSEMON_TEST_CRED", "t;c;s")
		creds, err := c.ResolveCredentials()
		require.NoError(t, err)
		assert.Equal(t, Credentials{TenantID: "t", ClientID: "c", ClientSecret: "s"}, creds)
	})
}

func TestCustomer_MonitorsService(t *testing.T) {
	c := Customer{Name: "acme", Services: []string{"Intune", "Exchange"}}
	assert.True(t, c.MonitorsService("Intune"))
	assert.False(t, c.MonitorsService("Teams"))
}
