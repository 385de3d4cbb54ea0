package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"prism-board/domain"
	"prism-board/events"
)

func readEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			return strings.TrimSpace(data)
		}
	}
}

func TestStreamPushesBoardOnChange(t *testing.T) {
	f := newAPIFixture(t, nil)
	srv := httptest.NewServer(f.e)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/projects/"+testProject+"/stream?token="+f.token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if first := readEvent(t, r); first != "[]" {
		t.Fatalf("expected empty board first, got %s", first)
	}

	f.createTask(t, "A", domain.StatusTodo)

	var tasks []domain.TaskView
	if err := json.Unmarshal([]byte(readEvent(t, r)), &tasks); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "A" {
		t.Fatalf("unexpected board %+v", tasks)
	}
}

func TestStreamRejectsAnonymousAndUnknownProject(t *testing.T) {
	f := newAPIFixture(t, nil)
	if rec := f.request(http.MethodGet, "/api/projects/"+testProject+"/stream", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := f.request(http.MethodGet, "/api/projects/ghost/stream", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBrokerNotifyIsPerProjectAndCoalesces(t *testing.T) {
	b := NewBroker()
	p1 := b.subscribe("p1")
	p2 := b.subscribe("p2")

	b.Notify("p1")
	b.Notify("p1")

	select {
	case <-p1:
	default:
		t.Fatalf("p1 subscriber not notified")
	}
	select {
	case <-p1:
		t.Fatalf("notifications should coalesce")
	default:
	}
	select {
	case <-p2:
		t.Fatalf("p2 subscriber notified for p1 change")
	default:
	}

	b.unsubscribe("p1", p1)
	if n := b.Subscribers("p1"); n != 0 {
		t.Fatalf("expected no p1 subscribers, got %d", n)
	}
	if n := b.Subscribers("p2"); n != 1 {
		t.Fatalf("expected one p2 subscriber, got %d", n)
	}
}

func TestBrokerRunConsumesRedisUpdates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	logger, _ := test.NewNullLogger()
	b := NewBroker()
	ch := b.subscribe("p1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, logger, rc, events.DefaultChannel)

	deadline := time.Now().Add(time.Second)
	for len(mr.PubSubChannels(events.DefaultChannel)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("broker never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	events.NewPublisher(rc, events.DefaultChannel, logger).BoardChanged(ctx, "p1")

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for broker notification")
	}
}
