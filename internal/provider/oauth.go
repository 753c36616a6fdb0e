package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenCache hands out client-credentials access tokens for one provider.
// Token sources are kept per credential pair so a key override gets its
// own token and a stored key reuses its cached one until expiry.
type TokenCache struct {
	name     SourceName
	tokenURL string
	client   *http.Client
	settings *SettingsService

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewTokenCache creates a TokenCache. Token requests use client.
func NewTokenCache(name SourceName, tokenURL string, client *http.Client, settings *SettingsService) *TokenCache {
	return &TokenCache{
		name:     name,
		tokenURL: tokenURL,
		client:   client,
		settings: settings,
		sources:  make(map[string]oauth2.TokenSource),
	}
}

// Token returns a valid access token. Missing credentials and rejected
// credentials are reported as ErrAuthRequired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	id, secret, err := c.settings.ClientCredentials(ctx, c.name)
	if err != nil {
		return "", err
	}

	ts := c.source(id, secret)
	tok, err := ts.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			c.forget(id, secret)
			return "", &ErrAuthRequired{Provider: c.name}
		}
		return "", &ErrProviderUnavailable{Provider: c.name, Cause: fmt.Errorf("fetching token: %w", err)}
	}
	return tok.AccessToken, nil
}

func (c *TokenCache) source(id, secret string) oauth2.TokenSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := id + ":" + secret
	if ts, ok := c.sources[key]; ok {
		return ts
	}
	cfg := clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source outlives any single request, so it gets its own context.
	ts := cfg.TokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, c.client))
	c.sources[key] = ts
	return ts
}

func (c *TokenCache) forget(id, secret string) {
	c.mu.Lock()
	delete(c.sources, id+":"+secret)
	c.mu.Unlock()
}
