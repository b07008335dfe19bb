package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"photofeed-client/internal/events"
	"photofeed-client/internal/inflight"
	"photofeed-client/internal/network"

	"github.com/rs/zerolog"
)

// AvatarChanged is broadcast when a new avatar URL has been fetched.
type AvatarChanged struct {
	URL string
}

// ProfileImageService fetches and caches the current user's avatar URL.
type ProfileImageService struct {
	client   *network.Client
	baseURL  string
	requests *inflight.Registry
	changes  *events.Emitter[AvatarChanged]
	logger   zerolog.Logger

	mu        sync.Mutex
	avatarURL string
	fetched   bool
}

// NewProfileImageService creates a new profile image service.
func NewProfileImageService(client *network.Client, baseURL string, logger zerolog.Logger) *ProfileImageService {
	return &ProfileImageService{
		client:   client,
		baseURL:  baseURL,
		requests: inflight.NewRegistry(),
		changes:  events.NewEmitter[AvatarChanged](),
		logger:   logger,
	}
}

// AvatarURL returns the cached avatar URL, if one has been fetched
// this session.
func (s *ProfileImageService) AvatarURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatarURL, s.fetched
}

// OnAvatarChanged subscribes fn to avatar change events and returns
// the unsubscribe function.
func (s *ProfileImageService) OnAvatarChanged(fn func(AvatarChanged)) func() {
	return s.changes.Subscribe(fn)
}

// FetchAvatarURL fetches the user record for username and caches the
// small avatar URL, notifying subscribers. Duplicate pending fetches
// for the same username and token fail fast with
// network.ErrInvalidRequest.
func (s *ProfileImageService) FetchAvatarURL(ctx context.Context, username, token string) (string, error) {
	reqCtx, done, err := s.requests.Begin(ctx, username+"/"+token)
	if err != nil {
		s.logger.Warn().Str("username", username).Msg("Avatar fetch already in progress")
		return "", fmt.Errorf("%w: avatar fetch already in progress", network.ErrInvalidRequest)
	}
	defer done()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.baseURL+"/users/"+username, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", network.ErrInvalidRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	result, err := network.DoJSON[network.UserResult](reqCtx, s.client, req)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("Avatar fetch failed")
		return "", err
	}

	avatarURL := result.ProfileImage.Small

	s.mu.Lock()
	if reqCtx.Err() != nil {
		s.mu.Unlock()
		return "", reqCtx.Err()
	}
	s.avatarURL = avatarURL
	s.fetched = true
	s.mu.Unlock()

	s.logger.Info().Str("username", username).Msg("Avatar URL loaded")

	s.changes.Emit(AvatarChanged{URL: avatarURL})

	return avatarURL, nil
}

// Clear drops the cached avatar URL.
func (s *ProfileImageService) Clear() {
	s.mu.Lock()
	s.avatarURL = ""
	s.fetched = false
	s.mu.Unlock()
}
