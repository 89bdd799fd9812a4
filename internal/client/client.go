package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/pkg/middleware"
	"github.com/apc-foundation/exam-pipeline/pkg/requestid"
)

const (
	runsPath    = "/api/v1/pipeline/runs"
	webhookPath = "/api/v1/pipeline/webhook"
	statusPath  = "/api/v1/pipeline/status"
)

// APIError is a non 2xx answer of the API server.
type APIError struct {
	StatusCode int
	Response   api.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d", e.StatusCode)
	if e.Response.Error != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Response.Error)
	}
	if e.Response.RunID != nil {
		msg = fmt.Sprintf("%s (run %s)", msg, *e.Response.RunID)
	}
	return msg
}

// Client calls the pipeline endpoints of the exam-pipeline API.
type Client struct {
	server     string
	secret     string
	httpClient *http.Client
}

// NewFromConfig returns a new API client from the given config.
func NewFromConfig(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		server:     strings.TrimSuffix(config.Service.Server, "/"),
		secret:     config.Service.Secret,
		httpClient: NewHTTPClientFromConfig(config),
	}, nil
}

// NewFromConfigFile returns a new API client using the config read from the given file.
func NewFromConfigFile(filename string) (*Client, error) {
	config, err := ParseConfigFile(filename)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(config)
}

// NewHTTPClientFromConfig returns a new HTTP Client from the given config.
func NewHTTPClientFromConfig(_ *Config) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     false,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// TriggerRun starts a refresh-only run. An empty runType lets the server decide.
func (c *Client) TriggerRun(ctx context.Context, runType string) (*api.RunResponse, error) {
	var body any
	if runType != "" {
		body = api.RunRequest{RunType: &runType}
	}

	var resp api.RunResponse
	if err := c.do(ctx, http.MethodPost, runsPath, nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Push sends a scraper batch to the webhook.
func (c *Client) Push(ctx context.Context, req api.WebhookRequest) (*api.WebhookResponse, error) {
	var resp api.WebhookResponse
	if err := c.do(ctx, http.MethodPost, webhookPath, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status reads the recent runs and the exam statistics. A non positive limit uses the
// server default.
func (c *Client) Status(ctx context.Context, limit int) (*api.StatusResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, statusPath, query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.server + path
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	id := requestid.FromContext(ctx)
	if id == "" {
		id = requestid.Generate()
	}
	req.Header.Set(middleware.RequestIDHeader, id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(payload, &apiErr.Response)
		return apiErr
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
