package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"prism-board/domain"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.position, t.due_date,
	t.project_id, t.assignee_id, t.creator_id, t.team_id, t.parent_id, t.created_at, t.updated_at`

const taskViewSelect = `SELECT ` + taskColumns + `,
	u.name AS assignee_name, u.image AS assignee_image,
	tm.name AS team_name, tm.type AS team_type,
	(SELECT COUNT(*) FROM tasks s WHERE s.parent_id = t.id) AS subtask_count,
	(SELECT COUNT(*) FROM comments c WHERE c.task_id = t.id) AS comment_count
FROM tasks t
LEFT JOIN users u ON u.id = t.assignee_id
LEFT JOIN teams tm ON tm.id = t.team_id`

type taskRow struct {
	domain.Task
	AssigneeName  *string `db:"assignee_name"`
	AssigneeImage *string `db:"assignee_image"`
	TeamName      *string `db:"team_name"`
	TeamType      *string `db:"team_type"`
	SubtaskCount  int     `db:"subtask_count"`
	CommentCount  int     `db:"comment_count"`
}

func (r taskRow) view() domain.TaskView {
	v := domain.TaskView{
		Task:   r.Task,
		Labels: []domain.Label{},
		Count:  domain.TaskCounts{Subtasks: r.SubtaskCount, Comments: r.CommentCount},
	}
	if r.AssigneeID != nil && r.AssigneeName != nil {
		v.Assignee = &domain.UserRef{ID: *r.AssigneeID, Name: *r.AssigneeName, Image: r.AssigneeImage}
	}
	if r.TeamID != nil && r.TeamName != nil {
		team := &domain.TeamRef{ID: *r.TeamID, Name: *r.TeamName}
		if r.TeamType != nil {
			team.Type = *r.TeamType
		}
		v.Team = team
	}
	return v
}

// FindTask loads the bare task record.
func (q *Queries) FindTask(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := sqlx.GetContext(ctx, q.db, &t, "SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", id)
	if err != nil {
		return domain.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

// TaskView loads a task with its display enrichment.
func (q *Queries) TaskView(ctx context.Context, id string) (domain.TaskView, error) {
	var row taskRow
	if err := sqlx.GetContext(ctx, q.db, &row, taskViewSelect+" WHERE t.id = ?", id); err != nil {
		return domain.TaskView{}, notFound(err, "task", id)
	}
	views := []domain.TaskView{row.view()}
	if err := q.attachLabels(ctx, views); err != nil {
		return domain.TaskView{}, err
	}
	return views[0], nil
}

// ListTasks returns enriched tasks matching the filter, ordered by position
// unless the filter asks for due date ordering.
func (q *Queries) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.TaskView, error) {
	var conditions []string
	var args []any

	if f.ProjectID != "" {
		conditions = append(conditions, "t.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.AssigneeID != "" {
		conditions = append(conditions, "t.assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	if f.Priority != "" {
		conditions = append(conditions, "t.priority = ?")
		args = append(args, f.Priority)
	}
	if f.TeamID != "" {
		conditions = append(conditions, "t.team_id = ?")
		args = append(args, f.TeamID)
	}
	if f.TopLevel {
		conditions = append(conditions, "t.parent_id IS NULL")
	}
	if f.ExcludeStatus != "" {
		conditions = append(conditions, "t.status <> ?")
		args = append(args, f.ExcludeStatus)
	}

	query := taskViewSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if f.OrderByDueDate {
		query += " ORDER BY t.due_date IS NULL, t.due_date ASC, t.position ASC"
	} else {
		query += " ORDER BY t.position ASC, t.created_at ASC"
	}

	var rows []taskRow
	if err := sqlx.SelectContext(ctx, q.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	views := make([]domain.TaskView, len(rows))
	for i, r := range rows {
		views[i] = r.view()
	}
	if err := q.attachLabels(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

// TaskDetail loads a task with creator, subtasks and comments.
func (q *Queries) TaskDetail(ctx context.Context, id string) (domain.TaskDetail, error) {
	view, err := q.TaskView(ctx, id)
	if err != nil {
		return domain.TaskDetail{}, err
	}
	detail := domain.TaskDetail{TaskView: view, Subtasks: []domain.TaskView{}}

	var creator []domain.UserRef
	err = sqlx.SelectContext(ctx, q.db, &creator, "SELECT id, name, image FROM users WHERE id = ?", view.CreatorID)
	if err != nil {
		return domain.TaskDetail{}, fmt.Errorf("loading creator of task %s: %w", id, err)
	}
	if len(creator) == 1 {
		detail.Creator = &creator[0]
	}

	var rows []taskRow
	err = sqlx.SelectContext(ctx, q.db, &rows, taskViewSelect+" WHERE t.parent_id = ? ORDER BY t.position ASC", id)
	if err != nil {
		return domain.TaskDetail{}, fmt.Errorf("loading subtasks of task %s: %w", id, err)
	}
	for _, r := range rows {
		detail.Subtasks = append(detail.Subtasks, r.view())
	}

	detail.Comments, err = q.ListComments(ctx, id)
	if err != nil {
		return domain.TaskDetail{}, err
	}
	return detail, nil
}

// MaxPosition returns the highest position in a (project, status)
// partition; the flag is false when the partition is empty.
func (q *Queries) MaxPosition(ctx context.Context, projectID string, status domain.Status) (int, bool, error) {
	var v sql.NullInt64
	err := sqlx.GetContext(ctx, q.db, &v,
		"SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?", projectID, status)
	if err != nil {
		return 0, false, fmt.Errorf("reading max position: %w", err)
	}
	if !v.Valid {
		return 0, false, nil
	}
	return int(v.Int64), true, nil
}

// InsertTask stores a new task. An empty id is replaced with a UUID; the
// stored record is returned.
func (q *Queries) InsertTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := q.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, status, priority, position, due_date,
			project_id, assignee_id, creator_id, team_id, parent_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Position, t.DueDate,
		t.ProjectID, t.AssigneeID, t.CreatorID, t.TeamID, t.ParentID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// PatchTask updates only the columns the patch sets.
func (q *Queries) PatchTask(ctx context.Context, id string, p domain.TaskPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Title.Set {
		set("title", p.Title.Value)
	}
	if p.Description.Set {
		set("description", p.Description.Ptr())
	}
	if p.Status.Set {
		set("status", p.Status.Value)
	}
	if p.Priority.Set {
		set("priority", p.Priority.Value)
	}
	if p.Position.Set {
		set("position", p.Position.Value)
	}
	if p.DueDate.Set {
		set("due_date", p.DueDate.Value.TimePtr())
	}
	if p.AssigneeID.Set {
		set("assignee_id", p.AssigneeID.Ptr())
	}
	if p.TeamID.Set {
		set("team_id", p.TeamID.Ptr())
	}
	if p.ParentID.Set {
		set("parent_id", p.ParentID.Ptr())
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", q.now())
	args = append(args, id)

	res, err := q.db.ExecContext(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patching task %s: %w", id, err)
	}
	return expectOne(res, "task", id)
}

// PlaceTask sets the status and position of one task.
func (q *Queries) PlaceTask(ctx context.Context, id string, status domain.Status, position int) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, position = ?, updated_at = ? WHERE id = ?",
		status, position, q.now(), id)
	if err != nil {
		return fmt.Errorf("placing task %s: %w", id, err)
	}
	return expectOne(res, "task", id)
}

// ShiftPositions increments the position of every task in the partition at
// or after from, except excludeID. Gaps are neither closed nor created.
func (q *Queries) ShiftPositions(ctx context.Context, projectID string, status domain.Status, from int, excludeID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET position = position + 1
		WHERE project_id = ? AND status = ? AND position >= ? AND id <> ?`,
		projectID, status, from, excludeID)
	if err != nil {
		return 0, fmt.Errorf("shifting positions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("shifting positions: %w", err)
	}
	return n, nil
}

// DeleteTask removes a task. Subtasks keep their parent reference and
// siblings keep their positions.
func (q *Queries) DeleteTask(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return expectOne(res, "task", id)
}

// AttachLabel links a label to a task.
func (q *Queries) AttachLabel(ctx context.Context, taskID, labelID string) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO task_labels (task_id, label_id) VALUES (?, ?)", taskID, labelID)
	if err != nil {
		return fmt.Errorf("labelling task %s: %w", taskID, err)
	}
	return nil
}

// InsertLabel stores a label, generating an id when empty.
func (q *Queries) InsertLabel(ctx context.Context, l domain.Label) (domain.Label, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := q.db.ExecContext(ctx, "INSERT INTO labels (id, name, color) VALUES (?, ?, ?)", l.ID, l.Name, l.Color)
	if err != nil {
		return domain.Label{}, fmt.Errorf("creating label: %w", err)
	}
	return l, nil
}

func (q *Queries) attachLabels(ctx context.Context, views []domain.TaskView) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]string, len(views))
	index := make(map[string]int, len(views))
	for i, v := range views {
		ids[i] = v.ID
		index[v.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT tl.task_id, l.id, l.name, l.color
		FROM task_labels tl JOIN labels l ON l.id = tl.label_id
		WHERE tl.task_id IN (?)
		ORDER BY l.name`, ids)
	if err != nil {
		return fmt.Errorf("building label query: %w", err)
	}

	var rows []struct {
		TaskID string `db:"task_id"`
		domain.Label
	}
	if err := sqlx.SelectContext(ctx, q.db, &rows, q.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("loading labels: %w", err)
	}
	for _, r := range rows {
		i := index[r.TaskID]
		views[i].Labels = append(views[i].Labels, r.Label)
	}
	return nil
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return nil
}
