package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/storage"
)

// Store is the persistence the board service works against.
type Store interface {
	FindTask(ctx context.Context, id string) (domain.Task, error)
	TaskView(ctx context.Context, id string) (domain.TaskView, error)
	FindProject(ctx context.Context, id string) (domain.Project, error)
	DeleteTask(ctx context.Context, id string) error
	InsertComment(ctx context.Context, c domain.Comment) (domain.CommentView, error)
	InsertProject(ctx context.Context, p domain.Project, teamIDs []string) (domain.Project, error)
	UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	Transact(ctx context.Context, fn func(q *storage.Queries) error) error
}

// ChangeNotifier is told whenever the tasks of a project changed.
type ChangeNotifier interface {
	BoardChanged(ctx context.Context, projectID string)
}

// Service owns every task mutation: creation, moves, field edits,
// deletion and comments.
type Service struct {
	store     Store
	recorder  *Recorder
	locks     *partitionLocks
	notifiers []ChangeNotifier
	log       *log.Logger
}

// NewService wires the board service.
func NewService(store Store, recorder *Recorder, logger *log.Logger, notifiers ...ChangeNotifier) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{
		store:     store,
		recorder:  recorder,
		locks:     newPartitionLocks(),
		notifiers: notifiers,
		log:       logger,
	}
}

// CreateTask stores a new task at the end of its partition and records a
// "created" entry.
func (s *Service) CreateTask(ctx context.Context, actor string, in domain.NewTask) (domain.TaskView, error) {
	if actor == "" {
		return domain.TaskView{}, domain.ErrUnauthorized
	}
	if err := in.Normalize(); err != nil {
		return domain.TaskView{}, err
	}

	unlock := s.locks.lock(in.ProjectID, in.Status)
	var created domain.Task
	err := s.store.Transact(ctx, func(q *storage.Queries) error {
		if _, err := q.FindProject(ctx, in.ProjectID); err != nil {
			return err
		}
		pos, err := AllocateInitialPosition(ctx, q, in.ProjectID, in.Status)
		if err != nil {
			return err
		}
		created, err = q.InsertTask(ctx, domain.Task{
			Title:       in.Title,
			Description: in.Description,
			Status:      in.Status,
			Priority:    in.Priority,
			Position:    pos,
			DueDate:     in.DueDate.TimePtr(),
			ProjectID:   in.ProjectID,
			AssigneeID:  in.AssigneeID,
			CreatorID:   actor,
			TeamID:      in.TeamID,
			ParentID:    in.ParentID,
		})
		return err
	})
	unlock()
	if err != nil {
		return domain.TaskView{}, err
	}

	s.recorder.Record(ctx, domain.ActivityLogEntry{Action: domain.ActionCreated, TaskID: created.ID, UserID: actor})
	s.boardChanged(ctx, created.ProjectID)
	s.log.WithFields(log.Fields{
		"task_id":    created.ID,
		"project_id": created.ProjectID,
		"status":     created.Status,
		"position":   created.Position,
	}).Debug("task.created")

	return s.store.TaskView(ctx, created.ID)
}

// MoveTask places a task at position inside the target status column.
// Every other task of that column at or after position moves down by one;
// the column the task left is not compacted. A status change is recorded
// after the move committed.
func (s *Service) MoveTask(ctx context.Context, actor, taskID string, target domain.Status, position int) (domain.TaskView, error) {
	if actor == "" {
		return domain.TaskView{}, domain.ErrUnauthorized
	}
	if !target.Valid() {
		return domain.TaskView{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalid, target)
	}
	if position < 0 {
		return domain.TaskView{}, fmt.Errorf("%w: negative position %d", domain.ErrInvalid, position)
	}

	task, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		return domain.TaskView{}, err
	}

	unlock := s.locks.lock(task.ProjectID, target)
	var oldStatus domain.Status
	var shifted int64
	err = s.store.Transact(ctx, func(q *storage.Queries) error {
		current, err := q.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		oldStatus = current.Status
		if shifted, err = q.ShiftPositions(ctx, current.ProjectID, target, position, taskID); err != nil {
			return err
		}
		return q.PlaceTask(ctx, taskID, target, position)
	})
	unlock()
	if err != nil {
		return domain.TaskView{}, err
	}

	if oldStatus != target {
		s.recorder.Record(ctx, StatusChange(taskID, actor, oldStatus, target))
	}
	s.boardChanged(ctx, task.ProjectID)
	s.log.WithFields(log.Fields{
		"task_id":    taskID,
		"project_id": task.ProjectID,
		"from":       oldStatus,
		"to":         target,
		"position":   position,
		"shifted":    shifted,
	}).Info("task.moved")

	return s.store.TaskView(ctx, taskID)
}

// UpdateTaskFields applies a partial update without touching sibling
// positions and records one entry per changed tracked field.
func (s *Service) UpdateTaskFields(ctx context.Context, actor, taskID string, patch domain.TaskPatch) (domain.TaskView, error) {
	if actor == "" {
		return domain.TaskView{}, domain.ErrUnauthorized
	}
	if err := patch.Validate(); err != nil {
		return domain.TaskView{}, err
	}

	var old domain.Task
	err := s.store.Transact(ctx, func(q *storage.Queries) error {
		var err error
		if old, err = q.FindTask(ctx, taskID); err != nil {
			return err
		}
		return q.PatchTask(ctx, taskID, patch)
	})
	if err != nil {
		return domain.TaskView{}, err
	}
	if patch.IsEmpty() {
		return s.store.TaskView(ctx, taskID)
	}

	changes := patch.TrackedChanges(old)
	for _, c := range changes {
		s.recorder.Record(ctx, FieldChange(taskID, actor, c))
	}
	s.boardChanged(ctx, old.ProjectID)
	s.log.WithFields(log.Fields{
		"task_id":         taskID,
		"project_id":      old.ProjectID,
		"tracked_changes": len(changes),
	}).Info("task.updated")

	return s.store.TaskView(ctx, taskID)
}

// DeleteTask removes a task. Siblings keep their positions and subtasks
// keep their parent reference.
func (s *Service) DeleteTask(ctx context.Context, actor, taskID string) error {
	if actor == "" {
		return domain.ErrUnauthorized
	}
	task, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.boardChanged(ctx, task.ProjectID)
	s.log.WithFields(log.Fields{"task_id": taskID, "project_id": task.ProjectID}).Info("task.deleted")
	return nil
}

// AddComment stores a comment on a task and records a "commented" entry.
func (s *Service) AddComment(ctx context.Context, actor, taskID, content string) (domain.CommentView, error) {
	if actor == "" {
		return domain.CommentView{}, domain.ErrUnauthorized
	}
	if taskID == "" || content == "" {
		return domain.CommentView{}, fmt.Errorf("%w: taskId and content required", domain.ErrInvalid)
	}
	task, err := s.store.FindTask(ctx, taskID)
	if err != nil {
		return domain.CommentView{}, err
	}
	comment, err := s.store.InsertComment(ctx, domain.Comment{Content: content, TaskID: taskID, UserID: actor})
	if err != nil {
		return domain.CommentView{}, err
	}
	s.recorder.Record(ctx, domain.ActivityLogEntry{Action: domain.ActionCommented, TaskID: taskID, UserID: actor})
	s.boardChanged(ctx, task.ProjectID)
	return comment, nil
}

// CreateProject stores a project linked to the given teams.
func (s *Service) CreateProject(ctx context.Context, actor string, in domain.NewProject) (domain.Project, error) {
	if actor == "" {
		return domain.Project{}, domain.ErrUnauthorized
	}
	if err := in.Normalize(); err != nil {
		return domain.Project{}, err
	}
	return s.store.InsertProject(ctx, domain.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}, in.TeamIDs)
}

// UpdateProject applies a partial project update.
func (s *Service) UpdateProject(ctx context.Context, actor, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	if actor == "" {
		return domain.Project{}, domain.ErrUnauthorized
	}
	if err := patch.Validate(); err != nil {
		return domain.Project{}, err
	}
	current, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	return s.store.UpdateProject(ctx, patch.Apply(current))
}

// DeleteProject removes a project and all of its tasks.
func (s *Service) DeleteProject(ctx context.Context, actor, projectID string) error {
	if actor == "" {
		return domain.ErrUnauthorized
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.boardChanged(ctx, projectID)
	return nil
}

// RenameUser changes the actor's display name. Boards showing the user as
// an assignee are reported as changed.
func (s *Service) RenameUser(ctx context.Context, actor, name string) (domain.User, error) {
	if actor == "" {
		return domain.User{}, domain.ErrUnauthorized
	}
	var (
		user     domain.User
		projects []string
	)
	err := s.store.Transact(ctx, func(q *storage.Queries) error {
		var err error
		if user, err = q.RenameUser(ctx, actor, name); err != nil {
			return err
		}
		projects, err = q.AssigneeProjects(ctx, actor)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	for _, id := range projects {
		s.boardChanged(ctx, id)
	}
	s.log.WithFields(log.Fields{"user_id": actor, "projects": len(projects)}).Info("user.renamed")
	return user, nil
}

func (s *Service) boardChanged(ctx context.Context, projectID string) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		n.BoardChanged(ctx, projectID)
	}
}
