package komoot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/joshdurbin/komoot-stats/internal/auth"
	"github.com/joshdurbin/komoot-stats/internal/logging"
)

const requestTimeout = 30 * time.Second

// Default retry settings for transport-level failures (5xx, 429, connection errors)
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// reloginAttempts is how many times a 401 may trigger a fresh login before giving up
const reloginAttempts = 1

// RetryConfig holds retry/backoff settings
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: defaultMaxRetries,
		MinWait:    defaultInitialBackoff,
		MaxWait:    defaultMaxBackoff,
	}
}

// Client is a Komoot API client with automatic transport retry and re-login on 401
type Client struct {
	httpClient  *retryablehttp.Client
	email       string
	password    string
	apiBase     string
	accountBase string

	mu      sync.RWMutex
	session *auth.Session
}

// NewClient creates a new Komoot API client with the default retry settings
func NewClient(cfg *auth.Config) *Client {
	return NewClientWithRetryConfig(cfg, DefaultRetryConfig())
}

// NewClientWithRetryConfig creates a new Komoot API client with custom retry settings
func NewClientWithRetryConfig(cfg *auth.Config, retry RetryConfig) *Client {
	log := logging.Logger
	client := retryablehttp.NewClient()
	client.RetryMax = retry.MaxRetries
	client.RetryWaitMin = retry.MinWait
	client.RetryWaitMax = retry.MaxWait
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = &logging.LeveledLogger{}

	// Retry connection errors, 429 and 5xx. 401 is handled by re-login, not by the transport.
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return true, nil
		}
		if resp.StatusCode >= 500 {
			return true, nil
		}
		return false, nil
	}

	client.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					wait := time.Duration(seconds) * time.Second
					log.Info().
						Dur("wait", wait).
						Int("attempt", attemptNum).
						Msg("rate limited, waiting for Retry-After header")
					return wait
				}
			}
		}

		wait := min * time.Duration(1<<uint(attemptNum))
		if wait > max {
			wait = max
		}
		log.Info().
			Dur("wait", wait).
			Int("attempt", attemptNum).
			Dur("max_wait", max).
			Msg("backing off before retry")
		return wait
	}

	client.RequestLogHook = func(logger retryablehttp.Logger, req *http.Request, retry int) {
		if retry > 0 {
			log.Info().
				Str("url", req.URL.Path).
				Int("attempt", retry+1).
				Msg("retrying request")
		}

		if logging.IsTraceEnabled() {
			log.Debug().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Str("headers", formatHeaders(req.Header)).
				Msg("request headers")
		}
	}

	client.ResponseLogHook = func(logger retryablehttp.Logger, resp *http.Response) {
		if logging.IsTraceEnabled() {
			log.Debug().
				Int("status", resp.StatusCode).
				Str("url", resp.Request.URL.Path).
				Str("headers", formatHeaders(resp.Header)).
				Msg("response headers")
		}
	}

	return &Client{
		httpClient:  client,
		email:       cfg.Email,
		password:    cfg.Password,
		apiBase:     strings.TrimRight(cfg.APIBase, "/"),
		accountBase: strings.TrimRight(cfg.AccountBase, "/"),
	}
}

// WithRetryConfig sets custom retry configuration (useful for testing)
func (c *Client) WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) *Client {
	c.httpClient.RetryMax = maxRetries
	c.httpClient.RetryWaitMin = initialBackoff
	c.httpClient.RetryWaitMax = maxBackoff
	return c
}

// Session returns a copy of the current session, or nil before the first login
func (c *Client) Session() *auth.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Login exchanges the configured email and password for a session.
// It may be called repeatedly; each call replaces the stored session.
func (c *Client) Login(ctx context.Context) error {
	log := logging.Logger
	loginURL := fmt.Sprintf("%s/account/email/%s/", c.accountBase, url.PathEscape(c.email))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return &AuthError{Op: "login", Err: fmt.Errorf("creating request: %w", err)}
	}
	req.SetBasicAuth(c.email, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Op: "login", Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Op: "login", StatusCode: resp.StatusCode, Err: errors.New("credentials rejected")}
	}

	var acct account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return &AuthError{Op: "login", Err: fmt.Errorf("decoding response: %w", err)}
	}

	username := acct.User.Username
	if username == "" {
		username = acct.Username
	}
	session := &auth.Session{Username: username, Token: acct.Password}
	if !session.Valid() {
		return &AuthError{Op: "login", Err: errors.New("account response missing username or token")}
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	log.Debug().Str("username", username).Msg("logged in to komoot")
	return nil
}

// ensureSession logs in if no session has been established yet
func (c *Client) ensureSession(ctx context.Context) (*auth.Session, error) {
	if s := c.Session(); s != nil {
		return s, nil
	}
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c.Session(), nil
}

// doAuthorized performs a request with the session credentials. An HTTP 401 triggers a
// re-login and a retry of the same request, at most `retries` times; once retries are
// used up a 401 is returned as an *AuthError. The caller owns the returned body.
func (c *Client) doAuthorized(ctx context.Context, method, target string, body []byte, contentType string, retries int) (*http.Response, error) {
	log := logging.Logger

	for {
		session, err := c.ensureSession(ctx)
		if err != nil {
			return nil, err
		}

		var rawBody interface{}
		if body != nil {
			rawBody = body
		}
		req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
		if err != nil {
			return nil, &FetchError{URL: target, Err: fmt.Errorf("creating request: %w", err)}
		}
		req.SetBasicAuth(session.Username, session.Token)
		req.Header.Set("Accept", "*/*")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &FetchError{URL: target, Err: fmt.Errorf("executing request: %w", err)}
		}

		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		resp.Body.Close()

		if retries <= 0 {
			return nil, &AuthError{Op: method + " " + target, StatusCode: http.StatusUnauthorized, Err: ErrUnauthorized}
		}
		retries--

		log.Info().Str("url", target).Msg("session rejected, logging in again")
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}
}

// FetchPage fetches and decodes one page of the tours listing
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*ToursPage, error) {
	resp, err := c.doAuthorized(ctx, http.MethodGet, pageURL, nil, "", reloginAttempts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: errors.New("unexpected status code")}
	}

	var page ToursPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &page, nil
}

// firstPageURL is the listing of recorded tours for the logged-in user
func (c *Client) firstPageURL(username string) string {
	return fmt.Sprintf("%s/users/%s/tours/?type=tour_recorded&format=coordinate_array", c.apiBase, url.PathEscape(username))
}

// FetchAllTours follows the next-page links from the first page until none remains and
// returns every tour, unfiltered. Any failing page aborts the whole fetch.
func (c *Client) FetchAllTours(ctx context.Context, progress ProgressCallback) ([]Tour, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	var allTours []Tour
	seen := make(map[string]bool)
	next := c.firstPageURL(session.Username)
	page := 1

	for next != "" {
		if seen[next] {
			return nil, &FetchError{URL: next, Err: errors.New("pagination loop detected")}
		}
		seen[next] = true

		result, err := c.FetchPage(ctx, next)
		if err != nil {
			return nil, err
		}

		allTours = append(allTours, result.Embedded.Tours...)
		next = result.NextURL()

		if progress != nil {
			progress(FetchResult{
				Tours:        result.Embedded.Tours,
				Page:         page,
				TotalFetched: len(allTours),
				HasNext:      next != "",
			})
		}
		page++
	}

	return allTours, nil
}

// RenameTour changes the name of a tour
func (c *Client) RenameTour(ctx context.Context, tourID int64, name string) error {
	target := fmt.Sprintf("%s/tours/%d?hl=en", c.apiBase, tourID)

	body, err := json.Marshal(renameBody{Name: name})
	if err != nil {
		return fmt.Errorf("encoding rename body: %w", err)
	}

	resp, err := c.doAuthorized(ctx, http.MethodPatch, target, body, "application/hal+json", reloginAttempts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &FetchError{URL: target, StatusCode: resp.StatusCode, Err: errors.New("rename rejected")}
	}

	logging.Logger.Info().Int64("tour_id", tourID).Str("name", name).Msg("renamed tour")
	return nil
}

// formatHeaders formats HTTP headers for logging, redacting sensitive values
func formatHeaders(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}

		value := strings.Join(headers[k], ", ")
		lowerKey := strings.ToLower(k)
		if lowerKey == "authorization" || lowerKey == "cookie" || lowerKey == "set-cookie" {
			value = "[REDACTED]"
		}

		sb.WriteString(fmt.Sprintf("%s: %q", k, value))
	}
	sb.WriteString("}")
	return sb.String()
}
