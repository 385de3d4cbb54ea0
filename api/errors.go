package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"prism-board/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Server errors are
// logged and their detail is not sent to the caller.
func respondError(c echo.Context, stage string, err error) error {
	status := statusFor(err)
	m := metricsFrom(c)
	m.SetErrorStage(stage)
	m.SetError(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		c.Logger().Error(err)
		msg = "internal error"
	}
	return c.JSON(status, errorResponse{Error: msg})
}

func badRequest(c echo.Context, stage string, err error) error {
	return respondError(c, stage, fmt.Errorf("%w: %v", domain.ErrInvalid, err))
}
