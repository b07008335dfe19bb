package services

import (
	"fmt"

	"photofeed-client/internal/storage"

	"github.com/rs/zerolog"
)

// CookieClearer wipes persisted web-session state held by the
// authorization flow's browser session.
type CookieClearer interface {
	ClearCookies() error
}

// LogoutService tears down the current session: the persisted token,
// the in-memory photo list and cursor, the cached profile and avatar,
// and the authorization web session's cookies.
type LogoutService struct {
	store        storage.TokenStore
	imagesList   *ImagesListService
	profile      *ProfileService
	profileImage *ProfileImageService
	cookies      CookieClearer
	logger       zerolog.Logger
}

// NewLogoutService creates a new logout service. cookies may be nil
// when no web session exists.
func NewLogoutService(
	store storage.TokenStore,
	imagesList *ImagesListService,
	profile *ProfileService,
	profileImage *ProfileImageService,
	cookies CookieClearer,
	logger zerolog.Logger,
) *LogoutService {
	return &LogoutService{
		store:        store,
		imagesList:   imagesList,
		profile:      profile,
		profileImage: profileImage,
		cookies:      cookies,
		logger:       logger,
	}
}

// Logout clears all session state. It is idempotent: logging out of an
// already-clean session succeeds.
func (s *LogoutService) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	s.imagesList.Clear()
	s.profile.Clear()
	s.profileImage.Clear()

	if s.cookies != nil {
		if err := s.cookies.ClearCookies(); err != nil {
			return fmt.Errorf("failed to clear web session cookies: %w", err)
		}
	}

	s.logger.Info().Msg("Session cleared")

	return nil
}
