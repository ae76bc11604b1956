package gancio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/upb/gancio-sync/internal/observability"
	"github.com/upb/gancio-sync/models"
	"github.com/upb/gancio-sync/services"
	"github.com/upb/gancio-sync/services/settings"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	eventPath      = "/api/event"
)

// CredentialSource resolves the remote instance and token for each call
type CredentialSource interface {
	Credentials(ctx context.Context) (*settings.Credentials, error)
}

// Response is the raw reply of the remote instance
type Response struct {
	BaseURL    string
	StatusCode int
	Body       []byte
}

// OK reports whether the remote accepted the request
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client talks to the Gancio event API
type Client struct {
	credentials CredentialSource
	httpClient  *http.Client
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMetrics records request counts and latency
func WithMetrics(m *observability.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// NewClient creates a new Gancio client
func NewClient(credentials CredentialSource, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		credentials: credentials,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create publishes a new event
func (c *Client) Create(ctx context.Context, event *models.CanonicalEvent) (*Response, error) {
	return c.sendEvent(ctx, http.MethodPost, event)
}

// Update replaces a bound event. The event must carry its remote id.
func (c *Client) Update(ctx context.Context, event *models.CanonicalEvent) (*Response, error) {
	if event.ID == nil {
		return nil, services.ErrInvalidRemoteID
	}
	return c.sendEvent(ctx, http.MethodPut, event)
}

// Delete removes a remote event. The reply body is returned but never interpreted.
func (c *Client) Delete(ctx context.Context, remoteID int64) (*Response, error) {
	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	url := creds.BaseURL + eventPath + "/" + strconv.FormatInt(remoteID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return nil, services.WrapInternal("failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	return c.do(req, creds.BaseURL)
}

func (c *Client) sendEvent(ctx context.Context, method string, event *models.CanonicalEvent) (*Response, error) {
	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, err
	}

	payload := *event
	if payload.Tags == nil {
		payload.Tags = []string{}
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal event", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, creds.BaseURL+eventPath, bytes.NewReader(body))
	if err != nil {
		return nil, services.WrapInternal("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	return c.do(req, creds.BaseURL)
}

func (c *Client) do(req *http.Request, baseURL string) (*Response, error) {
	start := time.Now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRemote(req.Method, 0, time.Since(start))
		c.logger.Warn("gancio request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return nil, services.WrapTransport(fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	c.metrics.ObserveRemote(req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, services.WrapTransport("failed to read response", err)
	}

	c.logger.Debug("gancio request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return &Response{
		BaseURL:    baseURL,
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
	}, nil
}
