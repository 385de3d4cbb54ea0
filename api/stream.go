package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/events"
)

const defaultHeartbeat = 25 * time.Second

// BoardSource loads the board pushed to stream subscribers.
type BoardSource interface {
	ProjectDetail(ctx context.Context, id string) (domain.ProjectDetail, error)
}

// Broker fans board changes out to the SSE subscribers of each project.
type Broker struct {
	heartbeat time.Duration

	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{heartbeat: defaultHeartbeat, subs: make(map[string]map[chan struct{}]struct{})}
}

func (b *Broker) subscribe(projectID string) chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	set, ok := b.subs[projectID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		b.subs[projectID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(projectID string, ch chan struct{}) {
	b.mu.Lock()
	if set, ok := b.subs[projectID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, projectID)
		}
	}
	b.mu.Unlock()
}

// Subscribers returns the number of open streams for a project.
func (b *Broker) Subscribers(projectID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[projectID])
}

// Notify wakes every stream of the project. Pending wakeups coalesce.
func (b *Broker) Notify(projectID string) {
	b.mu.Lock()
	for ch := range b.subs[projectID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

// BoardChanged notifies local streams directly. It is used when no
// Redis channel connects the instances.
func (b *Broker) BoardChanged(_ context.Context, projectID string) {
	b.Notify(projectID)
}

// Run feeds the broker from the Redis updates channel until ctx ends.
func (b *Broker) Run(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string) {
	events.Subscribe(ctx, logger, rc, channel, func(u events.BoardUpdate) {
		b.Notify(u.ProjectID)
	})
}

// RegisterStream wires the board stream endpoint.
func RegisterStream(e *echo.Echo, source BoardSource, auth Authenticator, broker *Broker) {
	e.GET("/api/projects/:id/stream", streamBoard(source, auth, broker))
}

func streamBoard(source BoardSource, auth Authenticator, broker *Broker) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(authHeaderFromRequest(c))
		if err != nil {
			return respondError(c, "auth", unauthorized(err))
		}
		metricsFrom(c).SetActor(userID)

		projectID := c.Param("id")
		ctx := c.Request().Context()
		if _, err := source.ProjectDetail(ctx, projectID); err != nil {
			return respondError(c, "storage", err)
		}

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "text/event-stream")
		resp.Header().Set(echo.HeaderCacheControl, "no-cache")
		resp.Header().Set(echo.HeaderConnection, "keep-alive")
		resp.Header().Set("X-Accel-Buffering", "no")
		flusher, ok := resp.Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		resp.WriteHeader(http.StatusOK)

		ch := broker.subscribe(projectID)
		defer broker.unsubscribe(projectID, ch)

		heartbeat := time.NewTicker(broker.heartbeat)
		defer heartbeat.Stop()

		for {
			detail, err := source.ProjectDetail(ctx, projectID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.Logger().Error(err)
				return nil
			}
			data, err := sonic.Marshal(detail.Tasks)
			if err != nil {
				c.Logger().Error(err)
				return nil
			}
			if err := writeEvent(resp, data); err != nil {
				return nil
			}
			flusher.Flush()

		wait:
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-heartbeat.C:
					if _, err := resp.Write([]byte(": ping\n\n")); err != nil {
						return nil
					}
					flusher.Flush()
				case <-ch:
					break wait
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, data []byte) error {
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
