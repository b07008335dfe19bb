package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"photofeed-client/internal/authflow"
	"photofeed-client/internal/config"
	"photofeed-client/internal/network"
	"photofeed-client/internal/services"
	"photofeed-client/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const authTimeout = 5 * time.Minute

func Run() {
	noAutoPaginate := pflag.Bool("no-auto-paginate", false, "disable automatic next-page fetching in the browse loop")
	pflag.Parse()

	// Load configuration; a missing file falls back to defaults
	cfg, err := config.Load("config.yaml")
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		cfg = config.Default()
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.Auth.AccessKey == "" || cfg.Auth.SecretKey == "" {
		log.Fatal().Msg("Missing API credentials: set auth.access_key/auth.secret_key or PHOTOFEED_ACCESS_KEY/PHOTOFEED_SECRET_KEY")
	}

	// Web session for the authorization flow; its cookies are wiped on logout
	session, err := authflow.NewSession()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth web session")
	}

	// Initialize storage and network
	store := storage.NewKeyringStore()
	apiClient := network.NewClient(log.Logger)
	authClient := network.NewClientWithHTTP(session.Client(), log.Logger)

	// Initialize services
	oauthService := services.NewOAuth2Service(authClient, store, cfg.Auth, log.Logger)
	imagesListService := services.NewImagesListService(apiClient, cfg.API.BaseURL, cfg.Feed.PerPage, log.Logger)
	profileService := services.NewProfileService(apiClient, cfg.API.BaseURL, log.Logger)
	profileImageService := services.NewProfileImageService(apiClient, cfg.API.BaseURL, log.Logger)
	logoutService := services.NewLogoutService(store, imagesListService, profileService, profileImageService, session, log.Logger)

	ctx := context.Background()

	// Bootstrap: an existing token skips authorization entirely
	token, err := store.Token()
	if err != nil {
		if !errors.Is(err, storage.ErrNoToken) {
			log.Fatal().Err(err).Msg("Failed to read token store")
		}
		token, err = authorize(ctx, cfg, oauthService)
		if err != nil {
			log.Fatal().Err(err).Msg("Authorization failed")
		}
	}

	// A failed profile fetch is fatal for the session attempt
	profile, err := profileService.FetchProfile(ctx, token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load profile; re-authenticate and try again")
	}
	fmt.Printf("Signed in as %s (%s)\n", profile.Name, profile.LoginName)

	if _, err := profileImageService.FetchAvatarURL(ctx, profile.Username, token); err != nil {
		log.Warn().Err(err).Msg("Failed to load avatar URL")
	}

	// Print pages as they arrive
	unsubscribe := imagesListService.OnPhotosChanged(func(event services.PhotosChanged) {
		for _, photo := range event.Appended {
			liked := " "
			if photo.IsLiked {
				liked = "♥"
			}
			fmt.Printf("  [%s] %s  %.0fx%.0f  %s\n", liked, photo.ID, photo.Size.Width, photo.Size.Height, photo.RegularImageURL)
		}
	})
	defer unsubscribe()

	imagesListService.FetchNextPage(token)

	browse(ctx, token, imagesListService, profileService, logoutService, !*noAutoPaginate)
}

// authorize runs the browser authorization flow: it prints the
// authorization URL, captures the code from the native redirect on a
// loopback listener, and exchanges it for a token.
func authorize(ctx context.Context, cfg *config.Config, oauthService *services.OAuth2Service) (string, error) {
	listener, err := authflow.NewListener("127.0.0.1:0", log.Logger)
	if err != nil {
		return "", fmt.Errorf("failed to start redirect listener: %w", err)
	}
	defer listener.Close()

	auth := cfg.Auth
	auth.RedirectURI = listener.RedirectURI()

	fmt.Println("Open this URL in your browser and grant access:")
	fmt.Println("  " + auth.AuthCodeURL())

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	code, err := listener.WaitForCode(waitCtx)
	if err != nil {
		return "", fmt.Errorf("no authorization code received: %w", err)
	}

	return oauthService.ExchangeCodeForToken(ctx, code)
}

// browse runs the interactive feed loop until the user quits.
func browse(
	ctx context.Context,
	token string,
	imagesList *services.ImagesListService,
	profile *services.ProfileService,
	logout *services.LogoutService,
	autoPaginate bool,
) {
	fmt.Println("Commands: next, like <id>, unlike <id>, profile, logout, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			// An empty line scrolls: fetch the next page unless disabled
			if autoPaginate {
				imagesList.FetchNextPage(token)
			}
			continue
		}

		switch fields[0] {
		case "next":
			imagesList.FetchNextPage(token)

		case "like", "unlike":
			if len(fields) < 2 {
				fmt.Println("usage: " + fields[0] + " <photo-id>")
				continue
			}
			isLike := fields[0] == "like"
			if err := imagesList.ChangeLike(ctx, token, fields[1], isLike); err != nil {
				fmt.Printf("Failed to change like: %v (retry with the same command)\n", err)
			}

		case "profile":
			if p, ok := profile.CurrentProfile(); ok {
				fmt.Printf("%s (%s)\n%s\n", p.Name, p.LoginName, p.Bio)
			} else {
				fmt.Println("No profile loaded")
			}

		case "logout":
			if err := logout.Logout(); err != nil {
				log.Error().Err(err).Msg("Logout failed")
				continue
			}
			fmt.Println("Logged out")
			return

		case "quit", "exit":
			return

		default:
			fmt.Println("Unknown command: " + fields[0])
		}
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
