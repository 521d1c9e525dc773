// Package tmdb fetches the Now Playing list from The Movie Database API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Marquee/1.0"

	nowPlayingPath = "/movie/now_playing"

	// maxPage is the highest page number TMDB serves
	maxPage = 500
)

// Options configures a Client
type Options struct {
	Language      string
	Region        string
	Timeout       time.Duration
	RetryAttempts uint
}

// Client implements domain.PageFetcher for TMDB
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	region     string
	httpClient *http.Client
	retry      retryPolicy
	logger     *slog.Logger
}

// NewClient creates a new TMDB API client. apiKey may be a v3 API key or a
// v4 read access token.
func NewClient(baseURL, apiKey string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: opts.Language,
		region:   opts.Region,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retryPolicy{
			attempts:  opts.RetryAttempts,
			baseDelay: defaultBaseDelay,
			maxDelay:  defaultMaxDelay,
		},
		logger: logger,
	}
}

// FetchPage returns one page of the Now Playing list
func (c *Client) FetchPage(ctx context.Context, page int) (domain.Page, error) {
	if page < 1 {
		return domain.Page{}, fmt.Errorf("invalid page number %d", page)
	}
	if page > maxPage {
		// TMDB rejects these, the list simply ends here
		return domain.Page{Number: page, TotalPages: maxPage}, nil
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if c.language != "" {
		query.Set("language", c.language)
	}
	if c.region != "" {
		query.Set("region", c.region)
	}

	body, err := withRetry(ctx, c.retry, c.logger, func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, nowPlayingPath, query)
	})
	if err != nil {
		return domain.Page{}, err
	}

	var resp NowPlayingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("JSON parse error", "error", err, "bodyLen", len(body))
		return domain.Page{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Page == 0 {
		resp.Page = page
	}

	return MapPage(&resp), nil
}

// doRequest performs an authenticated HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if c.isBearerToken() {
		query.Del("api_key")
	} else {
		query.Set("api_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.isBearerToken() {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("tmdb request", "method", method, "path", path, "page", query.Get("page"))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("tmdb request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("tmdb request error", "status", resp.StatusCode, "body", string(body))
		se := &statusError{Code: resp.StatusCode}
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil {
			se.Message = apiErr.StatusMessage
		}
		return nil, se
	}

	return body, nil
}

// isBearerToken reports whether the key is a v4 read access token (a JWT)
func (c *Client) isBearerToken() bool {
	return strings.Count(c.apiKey, ".") == 2
}

// IsStatus reports whether err is a TMDB response with the given status code
func IsStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code == code
}
