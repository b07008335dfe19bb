package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"photofeed-client/internal/config"
	"photofeed-client/internal/inflight"
	"photofeed-client/internal/network"
	"photofeed-client/internal/storage"

	"github.com/rs/zerolog"
)

// OAuth2Service exchanges an authorization code for a bearer token and
// persists it. A second exchange for the same code while the first is
// still pending fails fast with network.ErrInvalidRequest.
type OAuth2Service struct {
	client   *network.Client
	store    storage.TokenStore
	auth     config.AuthConfig
	requests *inflight.Registry
	logger   zerolog.Logger
}

// NewOAuth2Service creates a new OAuth token service.
func NewOAuth2Service(client *network.Client, store storage.TokenStore, auth config.AuthConfig, logger zerolog.Logger) *OAuth2Service {
	return &OAuth2Service{
		client:   client,
		store:    store,
		auth:     auth,
		requests: inflight.NewRegistry(),
		logger:   logger,
	}
}

// ExchangeCodeForToken trades the authorization code for an access
// token. On success the token is persisted to the store before it is
// returned; on failure nothing is persisted and the network error is
// forwarded unchanged.
func (s *OAuth2Service) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	reqCtx, done, err := s.requests.Begin(ctx, code)
	if err != nil {
		s.logger.Warn().Msg("Token exchange already in progress")
		return "", fmt.Errorf("%w: duplicate token exchange", network.ErrInvalidRequest)
	}
	defer done()

	req, err := s.makeTokenRequest(reqCtx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", network.ErrInvalidRequest, err)
	}

	response, err := network.DoJSON[network.TokenResponse](reqCtx, s.client, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Token exchange failed")
		return "", err
	}

	if err := s.store.SetToken(response.AccessToken); err != nil {
		return "", fmt.Errorf("failed to persist token: %w", err)
	}

	s.logger.Info().Msg("Token exchange succeeded, token persisted")

	return response.AccessToken, nil
}

// makeTokenRequest builds the token-exchange request. Parameters travel
// in the query string, matching the authorization server's contract.
func (s *OAuth2Service) makeTokenRequest(ctx context.Context, code string) (*http.Request, error) {
	endpoint, err := url.Parse(s.auth.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid token URL: %w", err)
	}

	query := endpoint.Query()
	query.Set("client_id", s.auth.AccessKey)
	query.Set("client_secret", s.auth.SecretKey)
	query.Set("redirect_uri", s.auth.RedirectURI)
	query.Set("code", code)
	query.Set("grant_type", "authorization_code")
	endpoint.RawQuery = query.Encode()

	return http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
}
