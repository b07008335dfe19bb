package authflow

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// nativeRedirectPath is the redirect path the authorization server
// uses for native clients; the authorization code arrives in its
// "code" query parameter.
const nativeRedirectPath = "/oauth/authorize/native"

// Listener is a loopback HTTP server that captures the authorization
// code from the native redirect.
type Listener struct {
	server   *http.Server
	listener net.Listener
	codes    chan string
	logger   zerolog.Logger
}

// NewListener starts a listener on addr (for example "127.0.0.1:0").
func NewListener(addr string, logger zerolog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		listener: ln,
		codes:    make(chan string, 1),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Get(nativeRedirectPath, l.handleRedirect)

	l.server = &http.Server{Handler: r}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Auth redirect listener failed")
		}
	}()

	logger.Debug().Str("addr", ln.Addr().String()).Msg("Auth redirect listener started")

	return l, nil
}

// RedirectURI returns the URI the authorization server should redirect
// the browser to.
func (l *Listener) RedirectURI() string {
	return "http://" + l.listener.Addr().String() + nativeRedirectPath
}

// WaitForCode blocks until an authorization code arrives or ctx ends.
func (l *Listener) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-l.codes:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the listener down.
func (l *Listener) Close() error {
	return l.server.Close()
}

func (l *Listener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	select {
	case l.codes <- code:
		l.logger.Info().Msg("Authorization code received")
	default:
		// A code is already waiting; later redirects are ignored.
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Authorization complete. You can return to the app.")
}
