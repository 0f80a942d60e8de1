package domain

import "fmt"

// The error taxonomy mirrors the blast radius of each failure:
// ConfigError and an unusable database abort the run; AuthError, FetchError
// and MailError are scoped to one customer and never propagate to others.

// ConfigError reports missing or invalid static configuration or CLI
// arguments. Fatal for the whole run.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// AuthError reports a failure to obtain a bearer token for one customer,
// including a missing or malformed credential variable.
type AuthError struct {
	Customer string
	Err      error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth %s: %v", e.Customer, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed or malformed vendor API response for one
// customer's scan cycle.
type FetchError struct {
	Customer string
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Customer, e.Endpoint, e.Err)
}
func (e *FetchError) Unwrap() error { return e.Err }

// CacheError reports a local database failure. Logged; aborts the current
// mode when the database itself is unusable.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }
func (e *CacheError) Unwrap() error { return e.Err }

// MailError reports a failed report delivery for one customer.
type MailError struct {
	Customer string
	Err      error
}

func (e *MailError) Error() string { return fmt.Sprintf("mail %s: %v", e.Customer, e.Err) }
func (e *MailError) Unwrap() error { return e.Err }
