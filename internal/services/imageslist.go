package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"photofeed-client/internal/events"
	"photofeed-client/internal/inflight"
	"photofeed-client/internal/models"
	"photofeed-client/internal/network"

	"github.com/rs/zerolog"
)

// PhotosChanged is broadcast whenever the photo list changes.
// Appended carries the newly fetched photos after a page fetch and is
// nil for in-place updates such as a like toggle.
type PhotosChanged struct {
	Appended []models.Photo
}

// ImagesListService owns the ordered in-memory photo list. Pages are
// fetched sequentially and appended in server order; the list only
// grows until Clear. Page fetches and like changes share one in-flight
// guard keyed by the token: any submission under the pending token is
// rejected, a submission under a different token supersedes the
// pending request.
type ImagesListService struct {
	client   *network.Client
	baseURL  string
	perPage  int
	requests *inflight.Registry
	changes  *events.Emitter[PhotosChanged]
	logger   zerolog.Logger

	mu             sync.Mutex
	photos         []models.Photo
	lastLoadedPage int
}

// NewImagesListService creates a new photo list service.
func NewImagesListService(client *network.Client, baseURL string, perPage int, logger zerolog.Logger) *ImagesListService {
	return &ImagesListService{
		client:   client,
		baseURL:  baseURL,
		perPage:  perPage,
		requests: inflight.NewRegistry(),
		changes:  events.NewEmitter[PhotosChanged](),
		logger:   logger,
	}
}

// Photos returns a snapshot of the current photo list.
func (s *ImagesListService) Photos() []models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]models.Photo, len(s.photos))
	copy(snapshot, s.photos)
	return snapshot
}

// OnPhotosChanged subscribes fn to list change events and returns the
// unsubscribe function.
func (s *ImagesListService) OnPhotosChanged(fn func(PhotosChanged)) func() {
	return s.changes.Subscribe(fn)
}

// FetchNextPage fetches the page after the last successfully loaded
// one and appends its photos to the list. The call returns
// immediately; completion is observable through OnPhotosChanged.
// A call with the same token while a request is pending is a no-op,
// and fetch failures are terminal for that attempt and only logged.
func (s *ImagesListService) FetchNextPage(token string) {
	reqCtx, done, err := s.requests.Begin(context.Background(), token)
	if err != nil {
		s.logger.Warn().Msg("Fetch already in progress")
		return
	}

	s.mu.Lock()
	nextPage := s.lastLoadedPage + 1
	s.mu.Unlock()

	req, err := s.makePhotoListRequest(reqCtx, nextPage, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build photo list request")
		done()
		return
	}

	s.logger.Debug().Int("page", nextPage).Msg("Fetching photo list page")

	go func() {
		results, err := network.DoJSON[[]network.PhotoResult](reqCtx, s.client, req)
		if err != nil {
			s.logger.Error().Err(err).Int("page", nextPage).Msg("Failed to load photo page")
			done()
			return
		}

		appended := make([]models.Photo, 0, len(results))
		for _, result := range results {
			appended = append(appended, models.NewPhoto(result))
		}

		s.mu.Lock()
		if reqCtx.Err() != nil {
			// Superseded after the response arrived; drop the result.
			s.mu.Unlock()
			done()
			return
		}
		s.photos = append(s.photos, appended...)
		s.lastLoadedPage = nextPage
		s.mu.Unlock()

		// Release the guard before notifying so a subscriber can issue
		// the next request for this token from its callback.
		done()

		s.logger.Info().Int("page", nextPage).Int("count", len(appended)).Msg("Photo page loaded")

		s.changes.Emit(PhotosChanged{Appended: appended})
	}()
}

// ChangeLike likes or unlikes the photo and, once the server has
// acknowledged the change, replaces the photo in the list with a copy
// whose IsLiked matches. On failure the list is left untouched and the
// error is returned unchanged. While any request for the token is
// pending, including a page fetch, the call fails with
// network.ErrInvalidRequest.
func (s *ImagesListService) ChangeLike(ctx context.Context, token, photoID string, isLike bool) error {
	reqCtx, done, err := s.requests.Begin(ctx, token)
	if err != nil {
		s.logger.Warn().Str("photo_id", photoID).Msg("Request already in progress")
		return fmt.Errorf("%w: request already in progress for this token", network.ErrInvalidRequest)
	}

	req, err := s.makeChangeLikeRequest(reqCtx, token, photoID, isLike)
	if err != nil {
		done()
		return fmt.Errorf("%w: %v", network.ErrInvalidRequest, err)
	}

	// The like endpoint's success body is opaque; only the status matters.
	if _, err := s.client.Do(reqCtx, req); err != nil {
		s.logger.Error().Err(err).Str("photo_id", photoID).Msg("Failed to change like")
		done()
		return err
	}

	s.mu.Lock()
	if reqCtx.Err() != nil {
		s.mu.Unlock()
		done()
		return reqCtx.Err()
	}
	for i, photo := range s.photos {
		if photo.ID == photoID {
			photo.IsLiked = isLike
			s.photos[i] = photo
			break
		}
	}
	s.mu.Unlock()

	// Release the guard before notifying, as in FetchNextPage.
	done()

	s.logger.Info().Str("photo_id", photoID).Bool("is_liked", isLike).Msg("Like state updated")

	s.changes.Emit(PhotosChanged{})

	return nil
}

// Clear empties the photo list and resets the pagination cursor so a
// fresh session starts again from the first page.
func (s *ImagesListService) Clear() {
	s.mu.Lock()
	s.photos = nil
	s.lastLoadedPage = 0
	s.mu.Unlock()
}

func (s *ImagesListService) makePhotoListRequest(ctx context.Context, page int, token string) (*http.Request, error) {
	endpoint, err := url.Parse(s.baseURL + "/photos")
	if err != nil {
		return nil, fmt.Errorf("invalid photos URL: %w", err)
	}

	query := endpoint.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(s.perPage))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return req, nil
}

func (s *ImagesListService) makeChangeLikeRequest(ctx context.Context, token, photoID string, isLike bool) (*http.Request, error) {
	method := http.MethodPost
	if !isLike {
		method = http.MethodDelete
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/photos/"+photoID+"/like", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	return req, nil
}
