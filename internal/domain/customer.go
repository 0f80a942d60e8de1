package domain

import (
	"fmt"
	"os"
	"strings"
)

// Customer is one monitored tenant: which services to watch, where its API
// credentials live, and who receives its reports. Loaded once at startup and
// immutable during a run.
type Customer struct {
	Name          string
	CredentialEnv string
	Services      []string
	MailTo        []string
	MailCC        []string
}

// MonitorsService reports whether the service identifier is in the
// customer's monitored set.
func (c Customer) MonitorsService(id string) bool {
	for _, s := range c.Services {
		if s == id {
			return true
		}
	}
	return false
}

// Credentials are the parsed contents of a customer's credential
// environment variable.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// ResolveCredentials reads and parses the customer's credential environment
// variable. The expected format is "tenant_id;client_id;secret".
func (c Customer) ResolveCredentials() (Credentials, error) {
	raw, ok := os.LookupEnv(c.CredentialEnv)
	if !ok || raw == "" {
		return Credentials{}, &AuthError{
			Customer: c.Name,
			Err:      fmt.Errorf("credential environment variable %s is not set", c.CredentialEnv),
		}
	}
	return ParseCredentials(c.Name, raw)
}

// ParseCredentials splits a raw "tenant_id;client_id;secret" string.
func ParseCredentials(customer, raw string) (Credentials, error) {
	parts := strings.Split(raw, ";")
	if len(parts) != 3 {
		return Credentials{}, &AuthError{
			Customer: customer,
			Err:      fmt.Errorf("credential string has %d fields, want 3 (tenant_id;client_id;secret)", len(parts)),
		}
	}
	creds := Credentials{
		TenantID:     strings.TrimSpace(parts[0]),
		ClientID:     strings.TrimSpace(parts[1]),
		ClientSecret: strings.TrimSpace(parts[2]),
	}
	if creds.TenantID == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, &AuthError{
			Customer: customer,
			Err:      fmt.Errorf("credential string has an empty field"),
		}
	}
	return creds, nil
}
