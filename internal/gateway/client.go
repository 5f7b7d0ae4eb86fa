package gateway

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

	"studio/internal/domain"
	"studio/internal/infra"
)

// Options controls how the backend gateway client is configured.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *infra.Logger
}

// Client is a typed HTTP+JSON client for the generation backend. It is
// stateless; conversation and task state live with the callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *infra.Logger
}

// NewClient builds a gateway client from options, applying defaults.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("gateway: base url required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.Token),
		logger:     opts.Logger,
	}, nil
}

// Chat sends one user turn to the backend agent.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/agent/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm approves the pending generation for a session.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/agent/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel discards the session's pending action on the backend.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	return c.postQuery(ctx, "/agent/cancel", sessionID)
}

// Clear ends the session on the backend.
func (c *Client) Clear(ctx context.Context, sessionID string) error {
	return c.postQuery(ctx, "/agent/clear", sessionID)
}

// Task fetches the current snapshot of a background generation task.
func (c *Client) Task(ctx context.Context, sessionID, taskID string) (*domain.GenerationTask, error) {
	endpoint := fmt.Sprintf("%s/agent/tasks/%s?session_id=%s", c.baseURL, url.PathEscape(taskID), url.QueryEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var out domain.GenerationTask
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditChat sends one edit-flow turn keyed on a source image.
func (c *Client) EditChat(ctx context.Context, req EditChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/agent/image-edit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditConfirm approves the pending image edit for a session.
func (c *Client) EditConfirm(ctx context.Context, req EditConfirmRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.postJSON(ctx, "/agent/image-edit/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DirectEdit fires a prompt+source-image edit without agent analysis.
func (c *Client) DirectEdit(ctx context.Context, req DirectEditRequest) (*DirectEditResponse, error) {
	if req.AspectRatio == "" {
		req.AspectRatio = domain.DefaultAspectRatio
	}
	var out DirectEditResponse
	if err := c.postJSON(ctx, "/agent/image-edit/direct", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveEdit persists an accepted edit result to the gallery.
func (c *Client) SaveEdit(ctx context.Context, req SaveEditRequest) (*DirectEditResponse, error) {
	var out DirectEditResponse
	if err := c.postJSON(ctx, "/agent/image-edit/save", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeImage asks the backend to inspect an image for animation.
func (c *Client) AnalyzeImage(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	var out AnalyzeResponse
	if err := c.postJSON(ctx, "/animate/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Animate starts a video generation from an existing image.
func (c *Client) Animate(ctx context.Context, req AnimateRequest) (*AnimateResponse, error) {
	var out AnimateResponse
	if err := c.postJSON(ctx, "/animate/generate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) postQuery(ctx context.Context, path, sessionID string) error {
	endpoint := c.baseURL + path + "?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// apiError extracts a best-effort detail string from a non-success response.
// The backend reports errors as {"detail": "..."}.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			apiErr.Detail = parsed.Detail
		} else if parsed.Message != "" {
			apiErr.Detail = parsed.Message
		}
	}
	if apiErr.Detail == "" && resp.StatusCode == http.StatusPaymentRequired {
		apiErr.Detail = "Insufficient tokens"
	}
	if c.logger != nil {
		c.logger.Warn().Int("status", apiErr.Status).Str("detail", apiErr.Detail).Str("path", resp.Request.URL.Path).Msg("gateway: backend error")
	}
	return apiErr
}
