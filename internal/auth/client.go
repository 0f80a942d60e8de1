// Package auth acquires vendor API bearer tokens.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bissquit/pulsemon/internal/domain"
)

// Config holds the token endpoint settings shared by all customers.
type Config struct {
	// AuthorityURL is the base login endpoint; the tenant id and token path
	// are appended per customer.
	AuthorityURL string
	// Scope is the resource scope requested for the token.
	Scope string
	// HTTPClient overrides the client used for the token exchange. Nil means
	// http.DefaultClient with a 30s timeout.
	HTTPClient *http.Client
}

// Client exchanges customer credentials for bearer tokens using the OAuth2
// client-credentials flow. There is no retry beyond what the HTTP client
// provides; an auth failure is fatal for that customer's scan.
type Client struct {
	config Config
}

// Token is a bearer token with its expiry.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// NewClient creates an auth client.
func NewClient(config Config) (*Client, error) {
	if config.AuthorityURL == "" {
		return nil, &domain.ConfigError{Err: fmt.Errorf("auth client: authority URL is required")}
	}
	if config.Scope == "" {
		return nil, &domain.ConfigError{Err: fmt.Errorf("auth client: token scope is required")}
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{config: config}, nil
}

// Token obtains a bearer token for one customer's tenant.
func (c *Client) Token(ctx context.Context, customer string, creds domain.Credentials) (Token, error) {
	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL: fmt.Sprintf("%s/%s/oauth2/v2.0/token",
			strings.TrimRight(c.config.AuthorityURL, "/"), creds.TenantID),
		Scopes: []string{c.config.Scope},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.config.HTTPClient)

	tok, err := cc.Token(ctx)
	if err != nil {
		return Token{}, &domain.AuthError{Customer: customer, Err: err}
	}
	if tok.AccessToken == "" {
		return Token{}, &domain.AuthError{Customer: customer, Err: fmt.Errorf("token response has no access token")}
	}
	return Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}, nil
}
