package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tjfontaine/vertex-claude-gateway/internal/tokensource"
)

const userAgent = "vertex-claude-gateway/1.0"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the regional endpoint, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client calls Claude models published through Vertex AI. The model is part
// of the URL, never the body; every body carries the fixed API version.
type Client struct {
	projectID  string
	region     string
	baseURL    string
	tokens     tokensource.Source
	httpClient *http.Client
}

// NewClient creates a client for one project and region.
func NewClient(projectID, region string, tokens tokensource.Source, opts ...ClientOption) *Client {
	c := &Client{
		projectID:  projectID,
		region:     region,
		baseURL:    fmt.Sprintf("https://%s-aiplatform.googleapis.com", region),
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(model, verb string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:%s",
		c.baseURL, c.projectID, c.region, model, verb)
}

// CreateMessage sends a non-streaming messages request.
func (c *Client) CreateMessage(ctx context.Context, model string, req *MessagesRequest) (*MessagesResponse, error) {
	req.AnthropicVersion = Version
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, "rawPredict"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.setHeaders(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ParseErrorResponse(resp.StatusCode, respBody)
	}

	var result MessagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// StreamMessages sends a streaming messages request and hands back the raw
// event stream. The caller owns the body and must close it; parsing is left
// to the transcoder so backpressure stays with the downstream writer.
func (c *Client) StreamMessages(ctx context.Context, model string, req *MessagesRequest) (io.ReadCloser, error) {
	req.AnthropicVersion = Version
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, "streamRawPredict"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.setHeaders(ctx, httpReq); err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, ParseErrorResponse(resp.StatusCode, respBody)
	}

	return resp.Body, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire access token: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	return nil
}
