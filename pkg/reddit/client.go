package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadscraper/pkg/config"
	errs "threadscraper/pkg/errors"
	"threadscraper/pkg/logger"
	"threadscraper/pkg/ratelimit"
	"threadscraper/pkg/retry"
)

// ErrChunkTooLarge rejects continuation requests above the endpoint's id limit
var ErrChunkTooLarge = errs.New(errs.ErrorTypeParsing, 0, "more than %d child ids in one request", MaxChildrenPerRequest)

// Observer receives request outcomes, typically a metrics collector
type Observer interface {
	ObserveRequest(endpoint string, statusCode int, duration time.Duration)
	ObserveRetry(endpoint string, errorType string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}
func (nopObserver) ObserveRetry(string, string)               {}

// Client is a rate limited, retrying client for the public JSON API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	observer   Observer
	logger     logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another host, e.g. an httptest server
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithLimiter sets the request limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry replaces the retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithObserver registers a request observer
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewClient creates a client from the api, retry and rate_limit sections.
// When an access token is configured requests go to the OAuth host with a
// bearer header.
func NewClient(cfg *config.Config, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	base := cfg.API.BaseURL
	headers := map[string]string{
		"User-Agent":      cfg.API.UserAgent,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if cfg.API.AccessToken != "" {
		base = cfg.API.OAuthBaseURL
		headers["Authorization"] = "bearer " + cfg.API.AccessToken
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		headers:    headers,
		baseURL:    strings.TrimRight(base, "/"),
		limiter:    ratelimit.NewPerMinute(cfg.RateLimit.RequestsPerMinute),
		retry:      retry.NewFetchConfig(cfg.Retry, log),
		observer:   nopObserver{},
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the host requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON performs a GET against path with params, retrying per the client's
// policy, and decodes the body into target.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	cfg := *c.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		errType := errs.TypeOf(err)
		c.observer.ObserveRetry(path, string(errType))
		if errType == errs.ErrorTypeRateLimit || errType == errs.ErrorTypeForbidden {
			logger.LogRateLimit(c.logger, path, attempt, delay)
		}
	}

	return retry.Do(ctx, func() error {
		return c.getOnce(ctx, path, u, target)
	}, &cfg)
}

func (c *Client) getOnce(ctx context.Context, endpoint, u string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	body, err := c.doRequest(req, endpoint)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          u,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeMalformedBody, http.StatusOK, "failed to parse JSON: %v", err)
	}
	return nil
}

// doRequest sends req and returns the body of a 200 response
func (c *Client) doRequest(req *http.Request, endpoint string) ([]byte, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.observer.ObserveRequest(endpoint, 0, duration)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.observer.ObserveRequest(endpoint, resp.StatusCode, duration)
	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)

	if err := checkResponseStatus(resp); err != nil {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errs.New(errs.ErrorTypeEmptyResponse, resp.StatusCode, "empty response body")
	}
	return body, nil
}

// checkResponseStatus maps non-200 statuses onto typed errors
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	switch errType := errs.FromStatusCode(resp.StatusCode); errType {
	case errs.ErrorTypeRateLimit:
		return errs.New(errType, resp.StatusCode, "rate limit exceeded")
	case errs.ErrorTypeForbidden:
		return errs.New(errType, resp.StatusCode, "forbidden")
	case errs.ErrorTypeNotFound:
		return errs.New(errType, resp.StatusCode, "not found")
	case errs.ErrorTypeServerError:
		return errs.New(errType, resp.StatusCode, "server error, try again later")
	default:
		return errs.New(errType, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}
}

// FetchThread retrieves the root listing of a thread
func (c *Client) FetchThread(ctx context.Context, postID string, limit, depth int) (ThreadResponse, error) {
	c.logger.DebugWithFields("fetching thread", map[string]interface{}{
		"post_id": postID,
		"limit":   limit,
		"depth":   depth,
	})

	var resp ThreadResponse
	path := fmt.Sprintf(ThreadPath, url.PathEscape(postID))
	if err := c.GetJSON(ctx, path, ThreadParams(limit, depth), &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "expected 2 listings, got %d", len(resp))
	}
	return resp, nil
}

// FetchMoreChildren expands one chunk of continuation ids
func (c *Client) FetchMoreChildren(ctx context.Context, linkFullname string, ids []string) ([]Thing, error) {
	if len(ids) > MaxChildrenPerRequest {
		return nil, fmt.Errorf("%w: got %d", ErrChunkTooLarge, len(ids))
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var resp MoreChildrenResponse
	if err := c.GetJSON(ctx, MoreChildrenPath, MoreChildrenParams(linkFullname, ids), &resp); err != nil {
		return nil, err
	}
	if len(resp.JSON.Errors) > 0 {
		c.logger.WarnWithFields("continuation endpoint reported errors", map[string]interface{}{
			"link_id": linkFullname,
			"errors":  len(resp.JSON.Errors),
		})
	}
	return resp.JSON.Data.Things, nil
}
