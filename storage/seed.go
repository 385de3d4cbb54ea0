package storage

import (
	"context"
	"fmt"
	"time"

	"prism-board/domain"
)

// SampleProjectID is the project created by Seed.
const SampleProjectID = "q1-launch"

type sampleTask struct {
	title    string
	status   domain.Status
	priority domain.Priority
	assignee string
	team     string
	due      string
}

var sampleTasks = []sampleTask{
	{"Design landing page mockups", domain.StatusDone, domain.PriorityHigh, "sarah", "marketing-team", "2026-02-01"},
	{"Write product launch blog post", domain.StatusInProgress, domain.PriorityMedium, "sarah", "marketing-team", "2026-02-10"},
	{"Create sales enablement deck", domain.StatusTodo, domain.PriorityHigh, "mike", "sales-team", "2026-02-15"},
	{"Prepare demo environment", domain.StatusInProgress, domain.PriorityUrgent, "mike", "sales-team", "2026-02-05"},
	{"Draft customer migration guide", domain.StatusTodo, domain.PriorityMedium, "emily", "cs-team", "2026-02-20"},
	{"Set up webinar registration", domain.StatusBacklog, domain.PriorityLow, "sarah", "marketing-team", "2026-03-01"},
	{"Update pricing page", domain.StatusInReview, domain.PriorityHigh, "admin", "marketing-team", "2026-02-08"},
	{"Train CS team on new features", domain.StatusTodo, domain.PriorityMedium, "emily", "cs-team", "2026-02-25"},
	{"Create email drip campaign", domain.StatusBacklog, domain.PriorityMedium, "sarah", "marketing-team", "2026-03-05"},
	{"Competitive analysis report", domain.StatusTodo, domain.PriorityLow, "mike", "sales-team", "2026-02-28"},
}

// Seed loads the sample workspace: four users, three teams, one project
// with ten tasks, some activity and a comment. It is a no-op when the
// sample project already exists.
func (s *Store) Seed(ctx context.Context) error {
	if _, err := s.FindProject(ctx, SampleProjectID); err == nil {
		return nil
	}
	return s.Transact(ctx, func(q *Queries) error {
		users := []domain.User{
			{ID: "admin", Name: "Admin User", Email: "admin@gtmhub.com", Role: "ADMIN"},
			{ID: "sarah", Name: "Sarah Chen", Email: "sarah@gtmhub.com", Role: "MANAGER"},
			{ID: "mike", Name: "Mike Johnson", Email: "mike@gtmhub.com", Role: "MEMBER"},
			{ID: "emily", Name: "Emily Davis", Email: "emily@gtmhub.com", Role: "MEMBER"},
		}
		for _, u := range users {
			if _, err := q.InsertUser(ctx, u); err != nil {
				return err
			}
		}

		teams := []domain.Team{
			{ID: "marketing-team", Name: "Marketing", Type: "MARKETING", Color: "#9333ea", Description: strPtr("Brand, content, and demand generation")},
			{ID: "sales-team", Name: "Sales", Type: "SALES", Color: "#16a34a", Description: strPtr("Pipeline and revenue generation")},
			{ID: "cs-team", Name: "Customer Success", Type: "CUSTOMER_SUCCESS", Color: "#d97706", Description: strPtr("Retention and expansion")},
		}
		for _, t := range teams {
			if _, err := q.InsertTeam(ctx, t); err != nil {
				return err
			}
		}

		members := []struct{ user, team, role string }{
			{"admin", "marketing-team", "ADMIN"},
			{"sarah", "marketing-team", "MANAGER"},
			{"mike", "sales-team", "MEMBER"},
			{"emily", "cs-team", "MEMBER"},
			{"sarah", "sales-team", "MEMBER"},
		}
		for _, m := range members {
			if err := q.AddTeamMember(ctx, m.user, m.team, m.role); err != nil {
				return err
			}
		}

		start := mustDate("2026-01-15")
		end := mustDate("2026-03-31")
		_, err := q.InsertProject(ctx, domain.Project{
			ID:          SampleProjectID,
			Name:        "Q1 Product Launch",
			Description: strPtr("Cross-functional launch campaign for the new enterprise tier"),
			Status:      domain.ProjectActive,
			StartDate:   &start,
			EndDate:     &end,
		}, []string{"marketing-team", "sales-team", "cs-team"})
		if err != nil {
			return err
		}

		for i, st := range sampleTasks {
			due := mustDate(st.due)
			_, err := q.InsertTask(ctx, domain.Task{
				ID:         fmt.Sprintf("task-%d", i+1),
				Title:      st.title,
				Status:     st.status,
				Priority:   st.priority,
				Position:   i,
				DueDate:    &due,
				ProjectID:  SampleProjectID,
				AssigneeID: strPtr(st.assignee),
				CreatorID:  "admin",
				TeamID:     strPtr(st.team),
			})
			if err != nil {
				return err
			}
		}

		entries := []domain.ActivityLogEntry{
			{Action: domain.ActionCreated, TaskID: "task-1", UserID: "admin"},
			{Action: domain.ActionUpdated, Field: strPtr("status"), OldValue: strPtr("TODO"), NewValue: strPtr("IN_PROGRESS"), TaskID: "task-2", UserID: "sarah"},
			{Action: domain.ActionCommented, TaskID: "task-4", UserID: "mike"},
		}
		for _, e := range entries {
			if _, err := q.AppendActivity(ctx, e); err != nil {
				return err
			}
		}

		_, err = q.InsertComment(ctx, domain.Comment{
			Content: "Demo environment is almost ready. Just need to load sample data.",
			TaskID:  "task-4",
			UserID:  "mike",
		})
		return err
	})
}

func strPtr(s string) *string { return &s }

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
