package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/auth"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/pagination"
)

const (
	defaultTimeout        = 30 * time.Second
	responseBodyReadLimit = 1024
	requestIDHeader       = "X-Request-Id"
)

type requestIDKey struct{}

// ContextWithRequestID makes outbound calls reuse an inbound request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Client talks to the ForkFinderz REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger

	mu    sync.RWMutex
	token string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds a REST client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse backend base url")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewClientFromConfig is NewClient with values from config.
func NewClientFromConfig(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	return NewClient(cfg.BaseURL, cfg.Timeout, opts...)
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ListNotifications fetches one page of the caller's notification history.
func (c *Client) ListNotifications(ctx context.Context, req pagination.Request) (*pagination.Page[notifications.Notification], error) {
	var page pagination.Page[notifications.Notification]
	if err := c.do(ctx, http.MethodGet, "/api/notifications", req.Query(), nil, &page); err != nil {
		return nil, err
	}
	if page.Content == nil {
		page.Content = []notifications.Notification{}
	}
	return &page, nil
}

// MarkRead marks one notification read on the server.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id must be positive")
	}
	return c.do(ctx, http.MethodPut, "/api/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil, nil)
}

// MarkAllRead marks every notification of the caller read on the server.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil, nil)
}

// GetReview fetches a review by id.
func (c *Client) GetReview(ctx context.Context, id string) (*Review, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	var review Review
	if err := c.do(ctx, http.MethodGet, "/api/reviews/"+url.PathEscape(trimmed), nil, nil, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// GetRestaurant fetches restaurant detail.
func (c *Client) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id must be positive")
	}
	var restaurant Restaurant
	if err := c.do(ctx, http.MethodGet, "/api/restaurants/"+strconv.FormatInt(id, 10), nil, nil, &restaurant); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// ListRestaurantReviews fetches one page of a restaurant's reviews.
func (c *Client) ListRestaurantReviews(ctx context.Context, id int64, page, size int) (*pagination.Page[Review], error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id must be positive")
	}
	if page < 0 {
		page = 0
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(pagination.NormalizeSize(size)))

	var out pagination.Page[Review]
	if err := c.do(ctx, http.MethodGet, "/api/restaurants/"+strconv.FormatInt(id, 10)+"/reviews", query, nil, &out); err != nil {
		return nil, err
	}
	if out.Content == nil {
		out.Content = []Review{}
	}
	return &out, nil
}

// Ping checks that the API answers at all; any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build ping request")
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend unreachable")
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	requestID := requestIDFrom(ctx)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		httpReq.Header.Set("Authorization", auth.BearerHeader(token))
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logg.Error(logCtx, "backend request failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		code := pkgerrors.FromHTTPStatus(resp.StatusCode)
		c.logg.Warn(c.logg.WithField(logCtx, "status", resp.StatusCode), "backend returned error status")
		return pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), fmt.Sprintf("%s %s", method, path)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}
