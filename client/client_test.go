package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"prism-board/boardview"
	"prism-board/domain"
)

var (
	_ boardview.Mover   = (*Client)(nil)
	_ boardview.Fetcher = (*Client)(nil)
	_ boardview.Creator = (*Client)(nil)
)

func TestMoveTaskSendsReorder(t *testing.T) {
	var got map[string]any
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks/reorder" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		header = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	if err := c.MoveTask(context.Background(), "t1", domain.StatusInProgress, 3); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got["taskId"] != "t1" || got["newStatus"] != "IN_PROGRESS" || got["newPosition"] != float64(3) {
		t.Fatalf("unexpected body %v", got)
	}
	if header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("missing bearer, got %q", header.Get("Authorization"))
	}
	if header.Get("Idempotency-Key") == "" {
		t.Fatalf("missing idempotency key")
	}
}

func TestFetchBoardReturnsProjectTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"id":"p1","name":"P","teams":[],"tasks":[
			{"id":"a","title":"A","status":"TODO","priority":"LOW","position":0,"projectId":"p1","labels":[],"_count":{"subtasks":0,"comments":2}},
			{"id":"b","title":"B","status":"DONE","priority":"HIGH","position":4,"projectId":"p1","labels":[],"_count":{"subtasks":1,"comments":0}}
		]}`)
	}))
	defer srv.Close()

	tasks, err := New(srv.URL, "").FetchBoard(context.Background(), "p1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tasks) != 2 || tasks[1].Status != domain.StatusDone || tasks[1].Position != 4 {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if tasks[0].Count.Comments != 2 {
		t.Fatalf("counts not decoded: %+v", tasks[0].Count)
	}
}

func TestUpdateTaskSendsOnlySetFields(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/tasks/t1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&raw)
		io.WriteString(w, `{"id":"t1","title":"T","status":"DONE","priority":"MEDIUM","position":0,"projectId":"p1"}`)
	}))
	defer srv.Close()

	patch := domain.TaskPatch{Status: domain.Some(domain.StatusDone), TeamID: domain.Null[string]()}
	out, err := New(srv.URL, "").UpdateTask(context.Background(), "t1", patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Status != domain.StatusDone {
		t.Fatalf("unexpected response %+v", out)
	}
	if len(raw) != 2 || string(raw["teamId"]) != "null" || string(raw["status"]) != `"DONE"` {
		t.Fatalf("unexpected patch body %v", raw)
	}
}

func TestErrorStatusesMapToDomainErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusBadRequest, domain.ErrInvalid},
		{http.StatusConflict, domain.ErrConflict},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, `{"error":"nope"}`)
		}))
		err := New(srv.URL, "").DeleteTask(context.Background(), "x")
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "nope" {
			t.Fatalf("status %d: expected message, got %v", tt.status, err)
		}
	}
}

func TestServerErrorIsOpaque(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Dashboard(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 || apiErr.Message != "internal error" {
		t.Fatalf("unexpected error %v", err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("500 must not map to a sentinel")
	}
}

func TestListTasksQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("projectId") != "p1" || q.Get("status") != "TODO" || q.Has("teamId") {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	tasks, err := New(srv.URL, "").ListTasks(context.Background(), domain.TaskFilter{ProjectID: "p1", Status: domain.StatusTodo})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("list: %v %v", tasks, err)
	}
}

func TestBoardDragAgainstServer(t *testing.T) {
	board := []domain.TaskView{
		{Task: domain.Task{ID: "a", ProjectID: "p1", Status: domain.StatusTodo, Position: 0}},
		{Task: domain.Task{ID: "b", ProjectID: "p1", Status: domain.StatusDone, Position: 0}},
	}
	var moved reorderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tasks/reorder":
			json.NewDecoder(r.Body).Decode(&moved)
			board[0].Status = moved.NewStatus
			board[0].Position = moved.NewPosition
			board[1].Position = 1
			io.WriteString(w, `{"success":true}`)
		case "/api/projects/p1":
			json.NewEncoder(w).Encode(domain.ProjectDetail{Project: domain.Project{ID: "p1"}, Tasks: board})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	b := boardview.New("p1", c, c, nil)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	b.DragStart("a")
	if err := b.DragEnd(context.Background(), "b"); err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if moved.TaskID != "a" || moved.NewStatus != domain.StatusDone || moved.NewPosition != 0 {
		t.Fatalf("unexpected reorder %+v", moved)
	}
	done := b.Columns()[4].Tasks
	if len(done) != 2 || done[0].ID != "a" {
		t.Fatalf("board not reconciled: %+v", done)
	}
}
