package network

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Client executes HTTP requests and normalizes failures into the
// package's error taxonomy. It never retries or recovers on its own;
// classification and forwarding is all it does.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new network client.
func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// NewClientWithHTTP creates a client around an existing http.Client,
// used when the caller owns transport concerns such as a cookie jar.
func NewClientWithHTTP(httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do executes the request and returns the raw response body.
// Failures are classified as *TransportError, ErrSession or
// *StatusError; a body is returned only for 2xx responses.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.logger.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).
			Msg("Request transport failure")
		return nil, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("Failed to read response body")
		return nil, ErrSession
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("method", req.Method).
			Str("url", req.URL.String()).Msg("Unexpected HTTP status")
		return nil, &StatusError{Code: resp.StatusCode}
	}

	c.logger.Debug().Int("status", resp.StatusCode).Str("method", req.Method).
		Str("url", req.URL.String()).Int("bytes", len(body)).Msg("Request completed")

	return body, nil
}

// DoJSON executes the request and decodes the 2xx response body into T.
// Decode failures are classified as *DecodingError.
func DoJSON[T any](ctx context.Context, c *Client, req *http.Request) (T, error) {
	var decoded T

	body, err := c.Do(ctx, req)
	if err != nil {
		return decoded, err
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("Failed to decode response")
		return decoded, &DecodingError{Cause: err}
	}

	return decoded, nil
}
