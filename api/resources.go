package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"prism-board/domain"
)

func listProjects(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := timed(c, store.ListProjects)
		if err != nil {
			return respondError(c, "storage", err)
		}
		if projects == nil {
			projects = []domain.ProjectSummary{}
		}
		metricsFrom(c).SetItemsReturned(len(projects))
		return c.JSON(http.StatusOK, projects)
	}
}

func createProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var in domain.NewProject
		if err := decodeBody(c, &in); err != nil {
			return badRequest(c, "decode", err)
		}
		project, err := timed(c, func(ctx context.Context) (domain.Project, error) {
			return board.CreateProject(ctx, userID, in)
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusCreated, project)
	}
}

func getProject(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		detail, err := timed(c, func(ctx context.Context) (domain.ProjectDetail, error) {
			return store.ProjectDetail(ctx, c.Param("id"))
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		metricsFrom(c).SetItemsReturned(len(detail.Tasks))
		return c.JSON(http.StatusOK, detail)
	}
}

func patchProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var patch domain.ProjectPatch
		if err := decodePartial(c, &patch); err != nil {
			return badRequest(c, "decode", err)
		}
		project, err := timed(c, func(ctx context.Context) (domain.Project, error) {
			return board.UpdateProject(ctx, userID, c.Param("id"), patch)
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusOK, project)
	}
}

func deleteProject(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		_, err = timed(c, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, board.DeleteProject(ctx, userID, c.Param("id"))
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func listTeams(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		teams, err := timed(c, store.ListTeams)
		if err != nil {
			return respondError(c, "storage", err)
		}
		if teams == nil {
			teams = []domain.Team{}
		}
		return c.JSON(http.StatusOK, teams)
	}
}

func listUsers(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := timed(c, store.ListUsers)
		if err != nil {
			return respondError(c, "storage", err)
		}
		if users == nil {
			users = []domain.User{}
		}
		return c.JSON(http.StatusOK, users)
	}
}

type profileRequest struct {
	Name string `json:"name"`
}

func patchProfile(board Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var req profileRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "decode", err)
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return badRequest(c, "validate", errors.New("name required"))
		}
		user, err := timed(c, func(ctx context.Context) (domain.User, error) {
			return board.RenameUser(ctx, userID, name)
		})
		if err != nil {
			return respondError(c, "board", err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

// listNotifications answers anonymous callers with an empty list.
func listNotifications(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return c.JSON(http.StatusOK, []domain.Notification{})
		}
		items, err := timed(c, func(ctx context.Context) ([]domain.Notification, error) {
			return store.ListNotifications(ctx, userID, notificationsLimit)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if items == nil {
			items = []domain.Notification{}
		}
		metricsFrom(c).SetItemsReturned(len(items))
		return c.JSON(http.StatusOK, items)
	}
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func markNotifications(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		var req markReadRequest
		if err := decodeBody(c, &req); err != nil {
			return badRequest(c, "decode", err)
		}
		_, err = timed(c, func(ctx context.Context) (int64, error) {
			return store.MarkNotificationsRead(ctx, userID, req.IDs)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

func search(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		term := strings.TrimSpace(c.QueryParam("q"))
		if term == "" {
			return c.JSON(http.StatusOK, []domain.SearchResult{})
		}
		results, err := timed(c, func(ctx context.Context) ([]domain.SearchResult, error) {
			return store.Search(ctx, term)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if results == nil {
			results = []domain.SearchResult{}
		}
		metricsFrom(c).SetItemsReturned(len(results))
		return c.JSON(http.StatusOK, results)
	}
}

func dashboard(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := timed(c, store.Dashboard)
		if err != nil {
			return respondError(c, "storage", err)
		}
		return c.JSON(http.StatusOK, d)
	}
}

func myTasks(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c, auth)
		if err != nil {
			return respondError(c, "auth", err)
		}
		tasks, err := timed(c, func(ctx context.Context) ([]domain.MyTask, error) {
			return store.MyTasks(ctx, userID)
		})
		if err != nil {
			return respondError(c, "storage", err)
		}
		if tasks == nil {
			tasks = []domain.MyTask{}
		}
		metricsFrom(c).SetItemsReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}
