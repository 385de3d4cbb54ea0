package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Board is the write side: every mutation goes through it.
type Board interface {
	CreateTask(ctx context.Context, actor string, in domain.NewTask) (domain.TaskView, error)
	MoveTask(ctx context.Context, actor, taskID string, target domain.Status, position int) (domain.TaskView, error)
	UpdateTaskFields(ctx context.Context, actor, taskID string, patch domain.TaskPatch) (domain.TaskView, error)
	DeleteTask(ctx context.Context, actor, taskID string) error
	AddComment(ctx context.Context, actor, taskID, content string) (domain.CommentView, error)
	CreateProject(ctx context.Context, actor string, in domain.NewProject) (domain.Project, error)
	UpdateProject(ctx context.Context, actor, projectID string, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, actor, projectID string) error
	RenameUser(ctx context.Context, actor, name string) (domain.User, error)
}

// Storage is the read side.
type Storage interface {
	BoardSource
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.TaskView, error)
	TaskDetail(ctx context.Context, id string) (domain.TaskDetail, error)
	TaskActivity(ctx context.Context, taskID string) ([]domain.ActivityLogEntry, error)
	ListComments(ctx context.Context, taskID string) ([]domain.CommentView, error)
	ListProjects(ctx context.Context) ([]domain.ProjectSummary, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string) (int64, error)
	Search(ctx context.Context, term string) ([]domain.SearchResult, error)
	Dashboard(ctx context.Context) (domain.Dashboard, error)
	MyTasks(ctx context.Context, userID string) ([]domain.MyTask, error)
	Ping(ctx context.Context) error
}

const notificationsLimit = 20

// Register wires up all API routes on the provided Echo instance. deduper
// may be nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, board Board, store Storage, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.GET("/healthz", healthz(store))

	e.GET("/api/tasks", listTasks(store))
	e.POST("/api/tasks", createTask(board, auth))
	e.POST("/api/tasks/reorder", reorderTask(board, auth, deduper, logger))
	e.GET("/api/tasks/:id", getTask(store))
	e.PATCH("/api/tasks/:id", patchTask(board, auth))
	e.DELETE("/api/tasks/:id", deleteTask(board, auth))
	e.GET("/api/tasks/:id/activity", taskActivity(store))

	e.GET("/api/comments", listComments(store))
	e.POST("/api/comments", postComment(board, auth))

	e.GET("/api/projects", listProjects(store))
	e.POST("/api/projects", createProject(board, auth))
	e.GET("/api/projects/:id", getProject(store))
	e.PATCH("/api/projects/:id", patchProject(board, auth))
	e.DELETE("/api/projects/:id", deleteProject(board, auth))

	e.GET("/api/teams", listTeams(store))
	e.GET("/api/users", listUsers(store))
	e.PATCH("/api/user/profile", patchProfile(board, auth))
	e.GET("/api/notifications", listNotifications(store, auth))
	e.PATCH("/api/notifications", markNotifications(store, auth))
	e.GET("/api/search", search(store))
	e.GET("/api/dashboard", dashboard(store))
	e.GET("/api/my-tasks", myTasks(store, auth))
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			c.Logger().Error(err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

func unauthorized(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
}

// requireUser resolves the acting user or reports why there is none.
func requireUser(c echo.Context, auth Authenticator) (string, error) {
	start := time.Now()
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	metricsFrom(c).ObserveAuth(time.Since(start))
	if err != nil {
		return "", unauthorized(err)
	}
	metricsFrom(c).SetActor(userID)
	return userID, nil
}

// timed runs fn and charges its duration to the store timer.
func timed[T any](c echo.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := fn(c.Request().Context())
	metricsFrom(c).ObserveStore(time.Since(start))
	return out, err
}

func listTasks(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := domain.TaskFilter{
			ProjectID:  c.QueryParam("projectId"),
			AssigneeID: c.QueryParam("assigneeId"),
			TeamID:     c.QueryParam("teamId"),
		}
		if raw := c.QueryParam("status"); raw != "" {
			s, err := domain.ParseStatus(raw)
			if err != nil {
				return respondError(c, "validate", err)
			}
			f.Status = s
		}
		if raw := c.QueryParam("priority"); raw != "" {
			p, err := domain.ParsePriority(raw)
			if err != nil {
				return respondError(c, "validate", err)
			}
			f.Priority = p
		}

		tasks, err := timed(c, func(ctx context.Context) ([]domain.TaskView, error) {
			return store.ListTasks(ctx, f)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if tasks == nil {
			tasks = []domain.TaskView{}
		}
		metricsFrom(c).SetItemsReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}

func createTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var in domain.NewTask
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "decode", err)
		}
		task, err := timed(c, func(ctx context.Context) (domain.TaskView, error) {
			return board.CreateTask(ctx, userID, in)
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

type reorderRequest struct {
	TaskID      string `json:"taskId"`
	NewStatus   string `json:"newStatus"`
	NewPosition *int   `json:"newPosition"`
}

type reorderResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// reorderTask moves a task to a status column and position. A repeated
// Idempotency-Key from the same user is answered without moving again.
func reorderTask(board Board, auth Authenticator, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "decode", err)
		}
		if req.TaskID == "" || req.NewPosition == nil {
			return badRequest(c, "validate", errors.New("taskId, newStatus and newPosition required"))
		}
		status, err := domain.ParseStatus(req.NewStatus)
		if err != nil {
			return respondError(c, "validate", err)
		}

		ctx := c.Request().Context()
		key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
		tracked := false
		if key != "" && deduper != nil {
			added, derr := deduper.Add(ctx, userID, key)
			switch {
			case derr != nil:
				logger.WithError(derr).WithField("user_id", userID).Warn("idempotency.unavailable")
			case !added:
				state, serr := deduper.State(ctx, userID, key)
				switch {
				case serr != nil:
					logger.WithError(serr).WithField("user_id", userID).Warn("idempotency.unavailable")
				case state == dedupePending:
					return respondError(c, "idempotency", fmt.Errorf("%w: move %s already in progress", domain.ErrConflict, key))
				case state == dedupeDone:
					return c.JSON(http.StatusOK, reorderResponse{Success: true, Duplicate: true})
				}
				// The key could not be read or expired since Add; apply the move untracked.
			default:
				tracked = true
			}
		}

		_, err = timed(c, func(ctx context.Context) (domain.TaskView, error) {
			return board.MoveTask(ctx, userID, req.TaskID, status, *req.NewPosition)
		})
		if err != nil {
			if tracked {
				if rerr := deduper.Remove(context.WithoutCancel(ctx), userID, key); rerr != nil {
					logger.WithError(rerr).Warn("idempotency.release_failed")
				}
			}
			return respondError(c, "board", err)
		}
		if tracked {
			if cerr := deduper.Complete(context.WithoutCancel(ctx), userID, key); cerr != nil {
				logger.WithError(cerr).Warn("idempotency.complete_failed")
			}
		}
		return c.JSON(http.StatusOK, reorderResponse{Success: true})
	}
}

func getTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		detail, err := timed(c, func(ctx context.Context) (domain.TaskDetail, error) {
			return store.TaskDetail(ctx, c.Param("id"))
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		return c.JSON(http.StatusOK, detail)
	}
}

func patchTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var patch domain.TaskPatch
		if err := decodePartial(c, &patch); err != nil {
			return badRequest(c, "decode", err)
		}
		task, err := timed(c, func(ctx context.Context) (domain.TaskView, error) {
			return board.UpdateTaskFields(ctx, userID, c.Param("id"), patch)
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

func deleteTask(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		_, err = timed(c, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, board.DeleteTask(ctx, userID, c.Param("id"))
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func taskActivity(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries, err := timed(c, func(ctx context.Context) ([]domain.ActivityLogEntry, error) {
			return store.TaskActivity(ctx, c.Param("id"))
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if entries == nil {
			entries = []domain.ActivityLogEntry{}
		}
		metricsFrom(c).SetItemsReturned(len(entries))
		return c.JSON(http.StatusOK, entries)
	}
}

func listComments(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		taskID := c.QueryParam("taskId")
		if taskID == "" {
			return badRequest(c, "validate", errors.New("taskId required"))
		}
		comments, err := timed(c, func(ctx context.Context) ([]domain.CommentView, error) {
			return store.ListComments(ctx, taskID)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if comments == nil {
			comments = []domain.CommentView{}
		}
		metricsFrom(c).SetItemsReturned(len(comments))
		return c.JSON(http.StatusOK, comments)
	}
}

type commentRequest struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

func postComment(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var req commentRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "decode", err)
		}
		comment, err := timed(c, func(ctx context.Context) (domain.CommentView, error) {
			return board.AddComment(ctx, userID, req.TaskID, strings.TrimSpace(req.Content))
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusCreated, comment)
	}
}
