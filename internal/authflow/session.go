package authflow

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
)

// Session owns the HTTP client used for the browser-facing part of the
// authorization flow, including its cookie jar. Logging out clears the
// jar so a later authorization starts from a clean web session.
type Session struct {
	client *http.Client
}

// NewSession creates a web session with a fresh cookie jar.
func NewSession() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Session{
		client: &http.Client{Jar: jar},
	}, nil
}

// Client returns the session's HTTP client.
func (s *Session) Client() *http.Client {
	return s.client
}

// ClearCookies replaces the cookie jar, dropping all persisted
// web-session cookies. Clearing an already-clean session succeeds.
func (s *Session) ClearCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to reset cookie jar: %w", err)
	}
	s.client.Jar = jar
	return nil
}
