package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"prism-board/domain"
)

func TestProjectsListAndDetail(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	p := projects[0]
	if p.TotalTasks != 10 || p.DoneTasks != 1 {
		t.Fatalf("unexpected counters: total=%d done=%d", p.TotalTasks, p.DoneTasks)
	}
	if len(p.Teams) != 3 || p.Teams[0].Name != "Customer Success" {
		t.Fatalf("unexpected teams: %+v", p.Teams)
	}

	detail, err := s.ProjectDetail(ctx, SampleProjectID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Tasks) != 10 || detail.Tasks[0].ID != "task-1" {
		t.Fatalf("unexpected detail tasks: %d", len(detail.Tasks))
	}
	if _, err := s.ProjectDetail(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectCascadesToTasks(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	if err := s.DeleteProject(ctx, SampleProjectID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	tasks, err := s.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected tasks to be removed with project, got %d", len(tasks))
	}
}

func TestUpdateProject(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	p, err := s.FindProject(ctx, SampleProjectID)
	if err != nil {
		t.Fatalf("find project: %v", err)
	}
	p.Status = domain.ProjectOnHold
	if _, err := s.UpdateProject(ctx, p); err != nil {
		t.Fatalf("update project: %v", err)
	}
	progress, err := s.ActiveProjectProgress(ctx)
	if err != nil {
		t.Fatalf("active projects: %v", err)
	}
	if len(progress) != 0 {
		t.Fatalf("on-hold project should not be active: %+v", progress)
	}
}

func TestSearch(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	results, err := s.Search(ctx, "  LAUNCH ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected project and blog post, got %+v", results)
	}
	if results[0].Type != "project" || results[0].ID != SampleProjectID {
		t.Fatalf("expected project first, got %+v", results[0])
	}
	if results[1].Type != "task" || results[1].ProjectID != SampleProjectID {
		t.Fatalf("unexpected task hit: %+v", results[1])
	}

	results, err = s.Search(ctx, "   ")
	if err != nil || len(results) != 0 {
		t.Fatalf("blank search should be empty, got %v %v", results, err)
	}
	results, err = s.Search(ctx, "100%")
	if err != nil || len(results) != 0 {
		t.Fatalf("wildcards must be literal, got %v %v", results, err)
	}
}

func TestNotifications(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		n, err := s.InsertNotification(ctx, domain.Notification{
			UserID: "sarah", Title: "Assigned", Message: "You have a new task",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert notification: %v", err)
		}
		ids = append(ids, n.ID)
	}
	other, err := s.InsertNotification(ctx, domain.Notification{UserID: "mike", Title: "x", Message: "y"})
	if err != nil {
		t.Fatalf("insert notification: %v", err)
	}

	n, err := s.MarkNotificationsRead(ctx, "sarah", append(ids[:2:2], other.ID))
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated rows, got %d", n)
	}

	list, err := s.ListNotifications(ctx, "sarah", 20)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Read || !list[1].Read || !list[2].Read {
		t.Fatalf("unexpected read flags: %+v", list)
	}
}

func TestDashboard(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	s.SetClock(func() time.Time { return time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC) })

	d, err := s.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.TotalTasks != 10 || d.DoneTasks != 1 || d.CompletionRate != 10 {
		t.Fatalf("unexpected totals: %+v", d)
	}
	if d.ActiveProjects != 1 {
		t.Fatalf("expected 1 active project, got %d", d.ActiveProjects)
	}
	if len(d.RecentActivity) != 3 {
		t.Fatalf("expected 3 activity entries, got %d", len(d.RecentActivity))
	}
	// Due between Feb 3 and Feb 10: demo env (5th), pricing (8th), blog post (10th).
	if len(d.UpcomingTasks) != 3 || d.UpcomingTasks[0].ID != "task-4" {
		t.Fatalf("unexpected upcoming tasks: %+v", d.UpcomingTasks)
	}
	if d.UpcomingTasks[0].AssigneeName == nil || *d.UpcomingTasks[0].AssigneeName != "Mike Johnson" {
		t.Fatalf("unexpected assignee name: %+v", d.UpcomingTasks[0])
	}
}

func TestMyTasks(t *testing.T) {
	s := seededStore(t)
	tasks, err := s.MyTasks(context.Background(), "sarah")
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	// Sarah's DONE landing page task is excluded.
	if len(tasks) != 3 || tasks[0].ID != "task-2" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if tasks[0].ProjectName != "Q1 Product Launch" || tasks[0].Team == nil || tasks[0].Team.ID != "marketing-team" {
		t.Fatalf("unexpected enrichment: %+v", tasks[0])
	}
}

func TestPeople(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	teams, err := s.ListTeams(ctx)
	if err != nil || len(teams) != 3 {
		t.Fatalf("list teams: %v %v", teams, err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 4 || users[0].Name != "Admin User" {
		t.Fatalf("list users: %v %v", users, err)
	}
	u, err := s.RenameUser(ctx, "emily", "Emily D.")
	if err != nil || u.Name != "Emily D." {
		t.Fatalf("rename: %+v %v", u, err)
	}
	if _, err := s.RenameUser(ctx, "ghost", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	projects, err := s.AssigneeProjects(ctx, "sarah")
	if err != nil || len(projects) != 1 || projects[0] != SampleProjectID {
		t.Fatalf("assignee projects: %v %v", projects, err)
	}
	if projects, _ := s.AssigneeProjects(ctx, "ghost"); len(projects) != 0 {
		t.Fatalf("expected no projects, got %v", projects)
	}
}
