package storage

import (
	"context"
	"errors"
	"testing"

	"prism-board/domain"
)

func insertTask(t *testing.T, s *Store, id string, status domain.Status, pos int) {
	t.Helper()
	_, err := s.InsertTask(context.Background(), domain.Task{
		ID: id, Title: id, Status: status, Priority: domain.PriorityMedium,
		Position: pos, ProjectID: SampleProjectID, CreatorID: "admin",
	})
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func positions(t *testing.T, s *Store, ids ...string) []int {
	t.Helper()
	out := make([]int, len(ids))
	for i, id := range ids {
		task, err := s.FindTask(context.Background(), id)
		if err != nil {
			t.Fatalf("find %s: %v", id, err)
		}
		out[i] = task.Position
	}
	return out
}

func TestMaxPosition(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	if _, ok, err := s.MaxPosition(ctx, SampleProjectID, "ARCHIVE"); err != nil || ok {
		t.Fatalf("expected empty partition, got ok=%v err=%v", ok, err)
	}
	top, ok, err := s.MaxPosition(ctx, SampleProjectID, domain.StatusTodo)
	if err != nil || !ok {
		t.Fatalf("max position: ok=%v err=%v", ok, err)
	}
	// task-10 is the last TODO task and sits at position 9.
	if top != 9 {
		t.Fatalf("expected 9, got %d", top)
	}
}

func TestShiftPositionsOnlyTouchesPartition(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	insertTask(t, s, "a", domain.StatusBacklog, 0)
	insertTask(t, s, "b", domain.StatusBacklog, 1)
	insertTask(t, s, "c", domain.StatusBacklog, 4)
	insertTask(t, s, "other", domain.StatusTodo, 1)

	n, err := s.ShiftPositions(ctx, SampleProjectID, domain.StatusBacklog, 1, "c")
	if err != nil {
		t.Fatalf("shift: %v", err)
	}
	// b plus the two seeded backlog tasks at 5 and 8.
	if n != 3 {
		t.Fatalf("expected 3 shifted rows, got %d", n)
	}
	got := positions(t, s, "a", "b", "c", "other", "task-6", "task-9")
	want := []int{0, 2, 4, 1, 6, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions = %v, want %v", got, want)
		}
	}
}

func TestDeleteKeepsGapsAndOrphans(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	insertTask(t, s, "parent", domain.StatusTodo, 20)
	_, err := s.InsertTask(ctx, domain.Task{
		ID: "child", Title: "child", Status: domain.StatusTodo, Priority: domain.PriorityLow,
		Position: 21, ProjectID: SampleProjectID, CreatorID: "admin", ParentID: strPtr("parent"),
	})
	if err != nil {
		t.Fatalf("insert child: %v", err)
	}

	if err := s.DeleteTask(ctx, "task-5"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTask(ctx, "parent"); err != nil {
		t.Fatalf("delete parent: %v", err)
	}

	got := positions(t, s, "task-3", "task-8", "task-10")
	want := []int{2, 7, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions = %v, want %v", got, want)
		}
	}
	child, err := s.FindTask(ctx, "child")
	if err != nil {
		t.Fatalf("child should survive parent delete: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != "parent" {
		t.Fatalf("expected dangling parent reference, got %v", child.ParentID)
	}
}

func TestListTasksEnrichment(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	label, err := s.InsertLabel(ctx, domain.Label{Name: "launch", Color: "#ff0000"})
	if err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if err := s.AttachLabel(ctx, "task-4", label.ID); err != nil {
		t.Fatalf("attach label: %v", err)
	}
	_, err = s.InsertTask(ctx, domain.Task{
		ID: "sub", Title: "sub", Status: domain.StatusTodo, Priority: domain.PriorityLow,
		ProjectID: SampleProjectID, CreatorID: "admin", ParentID: strPtr("task-4"), Position: 30,
	})
	if err != nil {
		t.Fatalf("insert subtask: %v", err)
	}

	tasks, err := s.ListTasks(ctx, domain.TaskFilter{ProjectID: SampleProjectID, Status: domain.StatusInProgress})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "task-2" || tasks[1].ID != "task-4" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	demo := tasks[1]
	if demo.Assignee == nil || demo.Assignee.Name != "Mike Johnson" {
		t.Fatalf("unexpected assignee: %+v", demo.Assignee)
	}
	if demo.Team == nil || demo.Team.Type != "SALES" {
		t.Fatalf("unexpected team: %+v", demo.Team)
	}
	if demo.Count.Comments != 1 || demo.Count.Subtasks != 1 {
		t.Fatalf("unexpected counts: %+v", demo.Count)
	}
	if len(demo.Labels) != 1 || demo.Labels[0].Name != "launch" {
		t.Fatalf("unexpected labels: %+v", demo.Labels)
	}
	if tasks[0].Labels == nil {
		t.Fatalf("labels should be an empty list, not nil")
	}
}

func TestListTasksFilters(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	tasks, err := s.ListTasks(ctx, domain.TaskFilter{AssigneeID: "mike", Priority: domain.PriorityHigh})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task-3" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	tasks, err = s.ListTasks(ctx, domain.TaskFilter{TeamID: "cs-team"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Position > tasks[1].Position {
		t.Fatalf("expected cs tasks ordered by position, got %+v", tasks)
	}
}

func TestTaskDetail(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	detail, err := s.TaskDetail(ctx, "task-4")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Creator == nil || detail.Creator.ID != "admin" {
		t.Fatalf("unexpected creator: %+v", detail.Creator)
	}
	if len(detail.Comments) != 1 || detail.Comments[0].User.Name != "Mike Johnson" {
		t.Fatalf("unexpected comments: %+v", detail.Comments)
	}
	if detail.Subtasks == nil || len(detail.Subtasks) != 0 {
		t.Fatalf("expected empty subtasks, got %+v", detail.Subtasks)
	}

	if _, err := s.TaskDetail(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchTaskWritesNullableColumns(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	patch := domain.TaskPatch{
		AssigneeID: domain.Null[string](),
		DueDate:    domain.Null[domain.DueDate](),
		Title:      domain.Some("Renamed"),
	}
	if err := s.PatchTask(ctx, "task-2", patch); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err := s.FindTask(ctx, "task-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AssigneeID != nil || got.DueDate != nil || got.Title != "Renamed" {
		t.Fatalf("unexpected task after patch: %+v", got)
	}
	if err := s.PatchTask(ctx, "ghost", patch); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchTaskLeavesUnsetColumnsAlone(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	stale, err := s.FindTask(ctx, "task-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	// A move lands after the caller read the task.
	if err := s.PlaceTask(ctx, "task-2", domain.StatusDone, 3); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := s.PatchTask(ctx, stale.ID, domain.TaskPatch{Title: domain.Some("renamed")}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	got, err := s.FindTask(ctx, "task-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != domain.StatusDone || got.Position != 3 || got.Title != "renamed" {
		t.Fatalf("title patch undid the move: status=%s position=%d title=%q", got.Status, got.Position, got.Title)
	}
	if got.Priority != stale.Priority || (got.DueDate == nil) != (stale.DueDate == nil) {
		t.Fatalf("unset columns changed: %+v", got)
	}
}
