package manus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/HyphaGroup/manus-mcp/internal/logger"
	"github.com/HyphaGroup/manus-mcp/internal/metrics"
)

const (
	// Writes create or extend tasks and may block on upstream scheduling.
	writeTimeout = 60 * time.Second
	// Reads are status/listing lookups.
	readTimeout = 30 * time.Second
)

// Client issues requests against the Manus task API. It holds only immutable
// configuration, so a single Client is safe for concurrent use; each request
// gets its own scoped http.Client with the operation's timeout.
type Client struct {
	baseURL      string
	apiKey       string
	agentProfile string
}

// NewClient creates a Manus API client. baseURL must not have a trailing slash.
func NewClient(baseURL, apiKey, agentProfile string) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		agentProfile: agentProfile,
	}
}

// CreateTask creates a new task. Repeated calls create distinct tasks.
func (c *Client) CreateTask(ctx context.Context, prompt string, opts CreateTaskOptions) *Envelope {
	profile := opts.AgentProfile
	if profile == "" {
		profile = c.agentProfile
	}
	mode := opts.TaskMode
	if mode == "" {
		mode = "agent"
	}

	payload := map[string]any{
		"prompt":       prompt,
		"agentProfile": profile,
		"taskMode":     mode,
	}
	if opts.ProjectID != "" {
		payload["projectId"] = opts.ProjectID
	}

	return c.do(ctx, "create_task", http.MethodPost, c.baseURL+"/tasks", nil, payload, writeTimeout)
}

// GetTaskStatus fetches the current status and output of a task. The task ID
// is an opaque token obtained from a previous CreateTask response.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) *Envelope {
	endpoint := c.baseURL + "/tasks/" + url.PathEscape(taskID)
	return c.do(ctx, "get_task_status", http.MethodGet, endpoint, nil, nil, readTimeout)
}

// ListTasks lists recent tasks with optional filtering.
func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) *Envelope {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if opts.Status != "" {
		query.Add("status", opts.Status)
	}
	if opts.ProjectID != "" {
		query.Set("project_id", opts.ProjectID)
	}

	return c.do(ctx, "list_tasks", http.MethodGet, c.baseURL+"/tasks", query, nil, readTimeout)
}

// ContinueTask appends instructions to an existing task. The configured
// default agent profile is always sent; continuation cannot switch profiles.
func (c *Client) ContinueTask(ctx context.Context, taskID, prompt string) *Envelope {
	payload := map[string]any{
		"prompt":       prompt,
		"agentProfile": c.agentProfile,
		"taskId":       taskID,
	}
	return c.do(ctx, "continue_task", http.MethodPost, c.baseURL+"/tasks", nil, payload, writeTimeout)
}

// do performs one request and normalizes the outcome into an Envelope.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, query url.Values, payload map[string]any, timeout time.Duration) *Envelope {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return transportFailure(operation, fmt.Errorf("failed to encode payload: %w", err))
		}
		body = bytes.NewReader(data)
	}

	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return transportFailure(operation, err)
	}
	req.Header.Set("API_KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(operation, "transport_error", time.Since(start))
		return transportFailure(operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.RecordUpstreamRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(operation, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiFailure(operation, resp.StatusCode, respBody)
	}

	var data map[string]any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &data); err != nil {
			// 2xx with an undecodable body; treat as an upstream error so
			// the caller still gets the uniform envelope shape.
			logger.Error("%s: upstream returned undecodable success body: %v", operation, err)
			return &Envelope{Err: &CallError{
				Kind:       KindAPI,
				Message:    fmt.Sprintf("Manus API Error: invalid JSON in response: %v", err),
				StatusCode: resp.StatusCode,
			}}
		}
	}

	return &Envelope{Data: data}
}

// apiFailure builds the envelope for a non-2xx upstream response. The message
// field of a JSON error body is preferred; anything else falls back to a
// generic rendering of the HTTP status.
func apiFailure(operation string, statusCode int, body []byte) *Envelope {
	message := fmt.Sprintf("Manus API Error: %d %s", statusCode, http.StatusText(statusCode))

	var errBody map[string]any
	if err := json.Unmarshal(body, &errBody); err == nil {
		if msg, ok := errBody["message"].(string); ok && msg != "" {
			message = "Manus API Error: " + msg
		}
	}

	logger.Error("%s: %s", operation, message)
	return &Envelope{Err: &CallError{
		Kind:       KindAPI,
		Message:    message,
		StatusCode: statusCode,
	}}
}

// transportFailure builds the envelope for a request that never produced an
// HTTP response.
func transportFailure(operation string, err error) *Envelope {
	logger.Error("%s: transport failure: %v", operation, err)
	return &Envelope{Err: &CallError{
		Kind:    KindTransport,
		Message: fmt.Sprintf("Manus API unreachable: %v", err),
	}}
}
