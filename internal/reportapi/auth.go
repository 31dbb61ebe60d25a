package reportapi

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/verustcode/reportviewer/internal/config"
)

// NewFromConfig creates a client with the credentials and culture from cfg.
// Token auth uses a static bearer token; client_credentials fetches and
// refreshes tokens from the configured token endpoint.
func NewFromConfig(ctx context.Context, cfg *config.ServiceConfig, opts ...Option) (*Client, error) {
	base := &http.Client{Timeout: cfg.Timeout}
	hc := base

	// oauth2 reads the base transport from the context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	switch cfg.Auth.Mode {
	case config.AuthModeToken:
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Auth.Token,
			TokenType:   "Bearer",
		}))
	case config.AuthModeClientCredentials:
		cc := &clientcredentials.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     cfg.TokenEndpoint(),
			Scopes:       cfg.Auth.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		hc = cc.Client(ctx)
	}
	hc.Timeout = cfg.Timeout

	all := append([]Option{
		WithHTTPClient(hc),
		WithAcceptLanguage(cfg.AcceptLanguage()),
	}, opts...)
	return New(cfg.URL, all...)
}
