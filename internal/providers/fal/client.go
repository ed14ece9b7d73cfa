package fal

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

	"github.com/rs/zerolog"

	"github.com/Berkawaii/Voltran-Ai-Image-Editor/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fal: api key is required")

const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Options configures the fal.ai queue client.
type Options struct {
	APIKey         string
	BaseURL        string
	PollInterval   time.Duration
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client talks to the fal.ai queue API: submit a request, poll its status,
// then fetch the result once it completes.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

// Handle identifies a submitted request.
type Handle struct {
	ModelID     string `json:"-"`
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	CancelURL   string `json:"cancel_url"`
}

// LogEntry is one line of provider-side logs.
type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
}

// QueueStatus reports where a request is in the provider queue.
type QueueStatus struct {
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	Logs          []LogEntry `json:"logs,omitempty"`
}

// APIError is a non-2xx answer from the queue API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal: status %d: %s", e.StatusCode, e.Message)
}

// NewClient constructs a client with defaults for anything left unset.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://queue.fal.run"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("fal: invalid base url: %w", err)
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		pollInterval: poll,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Submit enqueues a request for modelID with the given JSON arguments.
func (c *Client) Submit(ctx context.Context, modelID string, arguments any) (*Handle, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	modelID = strings.Trim(strings.TrimSpace(modelID), "/")
	if modelID == "" {
		return nil, errors.New("fal: model id is required")
	}
	body, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("fal: encode request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/"+modelID, body)
	if err != nil {
		return nil, err
	}
	var handle Handle
	if err := json.Unmarshal(raw, &handle); err != nil {
		return nil, fmt.Errorf("fal: decode submit response: %w", err)
	}
	if handle.RequestID == "" {
		return nil, errors.New("fal: submit response missing request_id")
	}
	handle.ModelID = modelID
	if handle.StatusURL == "" {
		handle.StatusURL = c.requestURL(modelID, handle.RequestID) + "/status"
	}
	if handle.ResponseURL == "" {
		handle.ResponseURL = c.requestURL(modelID, handle.RequestID)
	}
	c.logger.Debug().
		Str("model", modelID).
		Str("request_id", handle.RequestID).
		Msg("fal: request submitted")
	return &handle, nil
}

// Status fetches the queue status of a submitted request.
func (c *Client) Status(ctx context.Context, h Handle, withLogs bool) (*QueueStatus, error) {
	statusURL := h.StatusURL
	if withLogs {
		statusURL = withQuery(statusURL, "logs", "1")
	}
	raw, err := c.do(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}
	var status QueueStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("fal: decode status: %w", err)
	}
	return &status, nil
}

// Result fetches the output of a completed request.
func (c *Client) Result(ctx context.Context, h Handle) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, h.ResponseURL, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// Await polls the request status until it completes and returns its result.
// It returns early when ctx is done.
func (c *Client) Await(ctx context.Context, h Handle) (json.RawMessage, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		status, err := c.Status(ctx, h, false)
		if err != nil {
			return nil, err
		}
		if status.Status == StatusCompleted {
			return c.Result(ctx, h)
		}
		c.logger.Debug().
			Str("request_id", h.RequestID).
			Str("status", status.Status).
			Msg("fal: waiting for result")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fal: waiting for %s: %w", h.RequestID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("fal: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorDetail(raw)}
	}
	return raw, nil
}

// requestURL builds the queue URL for a request. Queue routes are keyed by
// the owner/app prefix of the model id, not the full endpoint path.
func (c *Client) requestURL(modelID, requestID string) string {
	parts := strings.Split(modelID, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return c.baseURL + "/" + strings.Join(parts, "/") + "/requests/" + url.PathEscape(requestID)
}

func withQuery(raw, key, value string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := parsed.Query()
	q.Set(key, value)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func errorDetail(raw []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var text string
			if json.Unmarshal(payload.Detail, &text) == nil && text != "" {
				return text
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
				msgs := make([]string, 0, len(items))
				for _, item := range items {
					if item.Msg != "" {
						msgs = append(msgs, item.Msg)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
			return string(payload.Detail)
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "empty response"
	}
	return text
}
