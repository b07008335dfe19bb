package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"photofeed-client/internal/inflight"
	"photofeed-client/internal/models"
	"photofeed-client/internal/network"

	"github.com/rs/zerolog"
)

// ProfileService fetches and caches the current user's profile.
type ProfileService struct {
	client   *network.Client
	baseURL  string
	requests *inflight.Registry
	logger   zerolog.Logger

	mu      sync.Mutex
	profile *models.Profile
}

// NewProfileService creates a new profile service.
func NewProfileService(client *network.Client, baseURL string, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		client:   client,
		baseURL:  baseURL,
		requests: inflight.NewRegistry(),
		logger:   logger,
	}
}

// CurrentProfile returns the cached profile, if one has been fetched
// this session.
func (s *ProfileService) CurrentProfile() (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return models.Profile{}, false
	}
	return *s.profile, true
}

// FetchProfile fetches the current user's profile and caches it as the
// session singleton. A duplicate fetch for the same token while one is
// pending fails fast with network.ErrInvalidRequest; a fetch failure
// leaves the cached profile untouched.
func (s *ProfileService) FetchProfile(ctx context.Context, token string) (models.Profile, error) {
	reqCtx, done, err := s.requests.Begin(ctx, token)
	if err != nil {
		s.logger.Warn().Msg("Profile fetch already in progress")
		return models.Profile{}, fmt.Errorf("%w: profile fetch already in progress", network.ErrInvalidRequest)
	}
	defer done()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.baseURL+"/me", nil)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: %v", network.ErrInvalidRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	result, err := network.DoJSON[network.ProfileResult](reqCtx, s.client, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Profile fetch failed")
		return models.Profile{}, err
	}

	profile := models.NewProfile(result)

	s.mu.Lock()
	if reqCtx.Err() != nil {
		s.mu.Unlock()
		return models.Profile{}, reqCtx.Err()
	}
	s.profile = &profile
	s.mu.Unlock()

	s.logger.Info().Str("username", profile.Username).Msg("Profile loaded")

	return profile, nil
}

// Clear drops the cached profile.
func (s *ProfileService) Clear() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}
