package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/internal/session"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/types"
)

// Client calls the notifyd local API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ReadResult is returned by the read commands.
type ReadResult struct {
	Read        bool `json:"read"`
	UnreadCount int  `json:"unreadCount"`
}

// ConnectionStatus mirrors GET /api/v1/connection.
type ConnectionStatus struct {
	Connected bool                  `json:"connected"`
	State     enums.ConnectionState `json:"state"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// List returns the loaded feed; meta is set when limit trimmed the items.
func (c *Client) List(ctx context.Context, limit int) (*notifications.FeedSnapshot, *types.Meta, error) {
	path := "/api/v1/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out notifications.FeedSnapshot
	meta, err := c.doMeta(ctx, http.MethodGet, path, nil, &out)
	return &out, meta, err
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unreadCount"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &out)
	return out.UnreadCount, err
}

func (c *Client) NextPage(ctx context.Context) (*notifications.FeedSnapshot, error) {
	var out notifications.FeedSnapshot
	return &out, c.do(ctx, http.MethodPost, "/api/v1/notifications/next-page", nil, &out)
}

func (c *Client) Refresh(ctx context.Context) (*notifications.FeedSnapshot, error) {
	var out notifications.FeedSnapshot
	return &out, c.do(ctx, http.MethodPost, "/api/v1/notifications/refresh", nil, &out)
}

func (c *Client) MarkRead(ctx context.Context, id int64) (ReadResult, error) {
	var out ReadResult
	err := c.do(ctx, http.MethodPost, "/api/v1/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, &out)
	return out, err
}

func (c *Client) MarkAllRead(ctx context.Context) (ReadResult, error) {
	var out ReadResult
	err := c.do(ctx, http.MethodPost, "/api/v1/notifications/read-all", nil, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, token string) (session.Status, error) {
	var out session.Status
	err := c.do(ctx, http.MethodPost, "/api/v1/session", map[string]string{"token": token}, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) (session.Status, error) {
	var out session.Status
	err := c.do(ctx, http.MethodDelete, "/api/v1/session", nil, &out)
	return out, err
}

func (c *Client) Session(ctx context.Context) (session.Status, error) {
	var out session.Status
	err := c.do(ctx, http.MethodGet, "/api/v1/session", nil, &out)
	return out, err
}

func (c *Client) Connection(ctx context.Context) (ConnectionStatus, error) {
	var out ConnectionStatus
	err := c.do(ctx, http.MethodGet, "/api/v1/connection", nil, &out)
	return out, err
}

func (c *Client) Restaurant(ctx context.Context) (*restaurants.Snapshot, error) {
	var out restaurants.Snapshot
	return &out, c.do(ctx, http.MethodGet, "/api/v1/restaurant", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.doMeta(ctx, method, path, body, out)
	return err
}

func (c *Client) doMeta(ctx context.Context, method, path string, body, out any) (*types.Meta, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notifyd unreachable at "+c.baseURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var envelope types.ErrorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
			return nil, pkgerrors.New(pkgerrors.FromHTTPStatus(resp.StatusCode), fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode))
		}
		return nil, pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message).WithDetails(envelope.Error.Details)
	}

	envelope := types.Envelope[any]{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return envelope.Meta, nil
}
