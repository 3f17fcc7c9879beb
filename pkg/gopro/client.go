package gopro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"gpfetch/pkg/auth"
	errs "gpfetch/pkg/errors"
	"gpfetch/pkg/logger"
)

// defaultRetryAfter is the wait applied to a rate-limited listing fetch
// when the server does not advise a duration
const defaultRetryAfter = 5 * time.Second

// Client is an authorized GoPro cloud API client. The AuthContext and
// header map are fixed at construction, so a single Client is safe to
// share across concurrent download workers.
type Client struct {
	listClient     *http.Client
	downloadClient *http.Client
	headers        map[string]string
	baseURL        string
	auth           auth.AuthContext
	logger         logger.Logger
}

// NewClient creates a new GoPro API client. listTimeout bounds one
// listing request; downloadTimeout bounds a full media download.
func NewClient(baseURL, userAgent string, authCtx auth.AuthContext, listTimeout, downloadTimeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	headers := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://gopro.com/",
	}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}

	return &Client{
		listClient:     &http.Client{Timeout: listTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		headers:        headers,
		baseURL:        baseURL,
		auth:           authCtx,
		logger:         log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// BaseURL returns the configured API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchMediaPage issues one authorized listing request for the given
// 1-based page. On a 429 it waits the server-advised duration (5s when
// unspecified) and retries exactly once before failing. Any other
// failure propagates as a FetchError carrying the page number; the
// caller aborts pagination rather than skipping pages silently.
//
// A recognized empty list means end-of-stream and returns an empty
// slice; a body matching no known shape returns an error wrapping
// ErrUnrecognizedShape.
func (c *Client) FetchMediaPage(ctx context.Context, page, perPage int) ([]MediaRecord, error) {
	resp, err := c.getListing(ctx, page, perPage)
	if err != nil {
		return nil, &errs.FetchError{Page: page, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfterDelay(resp.Header.Get("Retry-After"))
		resp.Body.Close()

		c.logger.WarnWithFields("listing rate limited, waiting before single retry", map[string]interface{}{
			"page":    page,
			"wait_ms": wait.Milliseconds(),
		})

		if err := sleepCtx(ctx, wait); err != nil {
			return nil, &errs.FetchError{Page: page, Status: http.StatusTooManyRequests, Err: err}
		}

		resp, err = c.getListing(ctx, page, perPage)
		if err != nil {
			return nil, &errs.FetchError{Page: page, Err: err}
		}
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, &errs.FetchError{Page: page, Status: resp.StatusCode, Err: err}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.FetchError{Page: page, Status: resp.StatusCode, Err: &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read listing body: %v", err),
			Code:    resp.StatusCode,
		}}
	}

	records, err := ParseMediaPage(body)
	if err != nil {
		if err == ErrUnrecognizedShape {
			// Surfaced distinctly so the engine can decide between a
			// hard failure and end-of-stream.
			return nil, fmt.Errorf("page %d: %w", page, ErrUnrecognizedShape)
		}
		return nil, &errs.FetchError{Page: page, Status: resp.StatusCode, Err: &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse listing: %v", err),
			Code:    resp.StatusCode,
		}}
	}

	c.logger.DebugWithFields("listing page fetched", map[string]interface{}{
		"page":    page,
		"records": len(records),
	})

	return records, nil
}

// Download opens an authorized streaming GET to a media URL. The caller
// owns the returned body and must close it; the engine streams it to
// disk in bounded chunks rather than buffering the payload.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.applyHeaders(req)

	resp, err := c.do(c.downloadClient, req)
	if err != nil {
		return nil, 0, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

// getListing performs one raw listing request without status inspection
func (c *Client) getListing(ctx context.Context, page, perPage int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SearchURL(c.baseURL, page, perPage), nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.applyHeaders(req)

	return c.do(c.listClient, req)
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.auth.Apply(req)
}

// do performs an HTTP request with request/response logging
func (c *Client) do(client *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps an HTTP response status onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "authentication required or session expired",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &errs.Error{
			Type:    errs.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &errs.Error{
			Type:    errs.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &errs.Error{
			Type:    errs.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// retryAfterDelay parses a Retry-After header value in seconds
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

// sleepCtx waits for the duration or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
