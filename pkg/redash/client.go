package redash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// HTTPConfig configures the REST client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
	// MaxRetries bounds retries of idempotent requests. Negative disables retrying.
	MaxRetries int
	// InitialBackoff is the first retry delay. Zero uses the backoff library default.
	InitialBackoff time.Duration
	Logger         zerolog.Logger
}

// Client talks to the Redash REST API.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	initial    time.Duration
	logger     zerolog.Logger
}

// NewClient builds a client for the instance at cfg.BaseURL.
func NewClient(cfg HTTPConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("redash: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = defaultMaxRetries
	case retries < 0:
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		client:     httpClient,
		maxRetries: retries,
		initial:    cfg.InitialBackoff,
		logger:     cfg.Logger,
	}, nil
}

// GetQuery loads a query by id.
func (c *Client) GetQuery(ctx context.Context, id int) (Query, error) {
	var q Query
	if id == 0 {
		return q, ErrMissingID
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/queries/%d", id), nil, nil, &q)
	return q, err
}

// SaveQuery sends a partial or full query payload. Payloads with an id update that
// query; the backend answers 409 when the payload version is stale. Payloads without
// an id create a new query.
func (c *Client) SaveQuery(ctx context.Context, fields map[string]any) (map[string]any, error) {
	path := "api/queries"
	if id := intField(fields, "id"); id != 0 {
		path = fmt.Sprintf("api/queries/%d", id)
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPost, path, nil, fields, &out)
	return out, err
}

// ArchiveQuery archives a query. The backend keeps it under the archive scope.
func (c *Client) ArchiveQuery(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("api/queries/%d", id), nil, nil, nil)
}

// QueryResultColumns returns the columns of the latest result of a query.
func (c *Client) QueryResultColumns(ctx context.Context, queryID int) ([]Column, error) {
	if queryID == 0 {
		return nil, ErrMissingID
	}
	var resp struct {
		QueryResult struct {
			Data struct {
				Columns []Column `json:"columns"`
			} `json:"data"`
		} `json:"query_result"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/queries/%d/results.json", queryID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.QueryResult.Data.Columns, nil
}

// OutdatedQueries loads the admin report of stale queries.
func (c *Client) OutdatedQueries(ctx context.Context) (OutdatedQueries, error) {
	var out OutdatedQueries
	err := c.do(ctx, http.MethodGet, "api/admin/queries/outdated", nil, nil, &out)
	return out, err
}

// GetAlert loads an alert with its query.
func (c *Client) GetAlert(ctx context.Context, id int) (Alert, error) {
	var a Alert
	if id == 0 {
		return a, ErrMissingID
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("api/alerts/%d", id), nil, nil, &a)
	return a, err
}

// SaveAlert creates or updates an alert.
func (c *Client) SaveAlert(ctx context.Context, alert Alert) (Alert, error) {
	payload := alertPayload{
		Name:    alert.Name,
		Options: alert.Options,
		QueryID: alert.QueryID,
		Rearm:   alert.Rearm,
	}
	if payload.QueryID == 0 && alert.Query != nil {
		payload.QueryID = alert.Query.ID
	}
	path := "api/alerts"
	if alert.ID != 0 {
		path = fmt.Sprintf("api/alerts/%d", alert.ID)
	}
	var out Alert
	err := c.do(ctx, http.MethodPost, path, nil, payload, &out)
	return out, err
}

// DeleteAlert removes an alert.
func (c *Client) DeleteAlert(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("api/alerts/%d", id), nil, nil, nil)
}

// MuteAlert stops notifications for an alert.
func (c *Client) MuteAlert(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("api/alerts/%d/mute", id), nil, nil, nil)
}

// UnmuteAlert resumes notifications for an alert.
func (c *Client) UnmuteAlert(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("api/alerts/%d/mute", id), nil, nil, nil)
}

// CreateUser invites a new user.
func (c *Client) CreateUser(ctx context.Context, name, email string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "api/users", nil, map[string]string{"name": name, "email": email}, &u)
	return u, err
}

// DisableUser blocks a user from signing in.
func (c *Client) DisableUser(ctx context.Context, id int) (User, error) {
	var u User
	if id == 0 {
		return u, ErrMissingID
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("api/users/%d/disable", id), nil, nil, &u)
	return u, err
}

// EnableUser lifts a previous DisableUser.
func (c *Client) EnableUser(ctx context.Context, id int) (User, error) {
	var u User
	if id == 0 {
		return u, ErrMissingID
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("api/users/%d/disable", id), nil, nil, &u)
	return u, err
}

// DeleteUser removes a user whose invitation is still pending.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("api/users/%d", id), nil, nil, nil)
}

// EnableDashboardSharing creates a public link for a dashboard.
func (c *Client) EnableDashboardSharing(ctx context.Context, id int) (DashboardShare, error) {
	var share DashboardShare
	if id == 0 {
		return share, ErrMissingID
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("api/dashboards/%d/share", id), nil, nil, &share)
	return share, err
}

// DisableDashboardSharing revokes the public link of a dashboard.
func (c *Client) DisableDashboardSharing(ctx context.Context, id int) error {
	if id == 0 {
		return ErrMissingID
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("api/dashboards/%d/share", id), nil, nil, nil)
}

type alertPayload struct {
	Name    string       `json:"name"`
	Options AlertOptions `json:"options"`
	QueryID int          `json:"query_id"`
	Rearm   *int         `json:"rearm"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, target any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("redash: encode payload: %w", err)
		}
		body = encoded
	}
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	requestID := uuid.NewString()

	attempt := func() error {
		err := c.roundTrip(ctx, method, endpoint, path, requestID, body, target)
		if err == nil {
			return nil
		}
		if !retryable(method, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if method == http.MethodGet && c.maxRetries > 0 {
		exp := backoff.NewExponentialBackOff()
		if c.initial > 0 {
			exp.InitialInterval = c.initial
		}
		policy = backoff.WithMaxRetries(exp, uint64(c.maxRetries))
	}
	err := backoff.Retry(attempt, backoff.WithContext(policy, ctx))
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, path, requestID string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("redash: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Key "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return fmt.Errorf("redash: http request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(started)).
		Msg("request")

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp, method, path)
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("redash: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, Method: method, Path: path}
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
		apiErr.Message = envelope.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// retryable keeps non-idempotent requests and client errors out of the retry loop.
func retryable(method string, err error) bool {
	if method != http.MethodGet {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := StatusCode(err)
	if status == 0 {
		var apiErr *APIError
		return !errors.As(err, &apiErr)
	}
	return status >= 500
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
