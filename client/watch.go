package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"prism-board/domain"
)

const maxWatchBackoff = 5 * time.Second

// Watch follows the SSE stream of a project and hands every board
// snapshot to fn. Dropped connections are retried with backoff until ctx
// ends; authorization and not-found responses stop the watch.
func (c *Client) Watch(ctx context.Context, projectID string, fn func([]domain.TaskView)) error {
	backoff := time.Second
	for {
		err := c.watchOnce(ctx, projectID, func(tasks []domain.TaskView) {
			backoff = time.Second
			fn(tasks)
		})
		if ctx.Err() != nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxWatchBackoff)
	}
}

func (c *Client) watchOnce(ctx context.Context, projectID string, fn func([]domain.TaskView)) error {
	path := "/api/projects/" + url.PathEscape(projectID) + "/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.Bearer)
	}

	// The regular client carries a request timeout that would cut the stream.
	stream := &http.Client{Transport: c.HTTP.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		var tasks []domain.TaskView
		if err := sonic.UnmarshalString(strings.TrimSpace(payload), &tasks); err != nil {
			return fmt.Errorf("decode board event: %w", err)
		}
		fn(tasks)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream closed")
}
