// Package client talks to the athena admin API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiosk404/athena/internal/athena/service/plugin"
	"github.com/kiosk404/athena/pkg/utils/json"
)

// Plugin is one entry of the plugin listing.
type Plugin struct {
	Name   string                 `json:"name"`
	Phase  string                 `json:"phase"`
	Loaded bool                   `json:"loaded"`
	Tools  []string               `json:"tools"`
	Events []string               `json:"events"`
	Config map[string]interface{} `json:"config"`
}

// CallResult is the answer to a tool call.
type CallResult struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Result interface{} `json:"result"`
}

// APIError is a non-2xx answer of the admin API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d, code %d)", e.Message, e.Status, e.Code)
}

// Client is the HTTP client of the admin API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a client. A missing scheme defaults to http.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: httpClient,
	}
}

func (c *Client) ListPlugins(ctx context.Context) ([]Plugin, error) {
	var resp struct {
		Data []Plugin `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/plugins", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// LoadPlugin loads name with cfg, reloading it when it is already loaded.
func (c *Client) LoadPlugin(ctx context.Context, name string, cfg map[string]interface{}) error {
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	return c.do(ctx, http.MethodPost, "/v1/plugins/"+url.PathEscape(name)+"/load", cfg, nil)
}

func (c *Client) UnloadPlugin(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/v1/plugins/"+url.PathEscape(name)+"/unload", nil, nil)
}

func (c *Client) ListTools(ctx context.Context) ([]plugin.ToolSpec, error) {
	var resp struct {
		Data []plugin.ToolSpec `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tools", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]plugin.EventSpec, error) {
	var resp struct {
		Data []plugin.EventSpec `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*CallResult, error) {
	var result CallResult
	body := map[string]interface{}{"name": name, "args": args}
	if err := c.do(ctx, http.MethodPost, "/v1/tools/call", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) EmitEvent(ctx context.Context, name string, args map[string]interface{}) error {
	body := map[string]interface{}{"name": name, "args": args}
	return c.do(ctx, http.MethodPost, "/v1/events/emit", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
