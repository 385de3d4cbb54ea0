// Package client talks to the board API over HTTP.
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

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"prism-board/domain"
)

// Client wraps http.Client with helpers for JSON requests.
type Client struct {
	BaseURL string
	Bearer  string
	HTTP    *http.Client
}

// New creates a new Client.
func New(baseURL, bearer string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Bearer:  bearer,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status back onto the domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusBadRequest:
		return domain.ErrInvalid
	case http.StatusConflict:
		return domain.ErrConflict
	}
	return nil
}

type reorderRequest struct {
	TaskID      string        `json:"taskId"`
	NewStatus   domain.Status `json:"newStatus"`
	NewPosition int           `json:"newPosition"`
}

// MoveTask posts a reorder with a fresh idempotency key.
func (c *Client) MoveTask(ctx context.Context, taskID string, status domain.Status, position int) error {
	body := reorderRequest{TaskID: taskID, NewStatus: status, NewPosition: position}
	headers := http.Header{}
	headers.Set("Idempotency-Key", uuid.NewString())
	return c.do(ctx, http.MethodPost, "/api/tasks/reorder", body, nil, headers)
}

// FetchBoard returns every task of the project.
func (c *Client) FetchBoard(ctx context.Context, projectID string) ([]domain.TaskView, error) {
	var detail domain.ProjectDetail
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID), nil, &detail, nil); err != nil {
		return nil, err
	}
	return detail.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, in domain.NewTask) (domain.TaskView, error) {
	var out domain.TaskView
	err := c.do(ctx, http.MethodPost, "/api/tasks", in, &out, nil)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.TaskView, error) {
	var out domain.TaskView
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), patch, &out, nil)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.TaskDetail, error) {
	var out domain.TaskDetail
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &out, nil)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.TaskView, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("projectId", f.ProjectID)
	set("status", string(f.Status))
	set("assigneeId", f.AssigneeID)
	set("priority", string(f.Priority))
	set("teamId", f.TeamID)
	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []domain.TaskView
	err := c.do(ctx, http.MethodGet, path, nil, &out, nil)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out, nil)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, headers http.Header) error {
	var reader io.Reader
	if body != nil {
		buf, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := sonic.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
