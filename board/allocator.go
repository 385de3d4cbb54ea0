package board

import (
	"context"

	"prism-board/domain"
)

type positionReader interface {
	MaxPosition(ctx context.Context, projectID string, status domain.Status) (int, bool, error)
}

// AllocateInitialPosition returns the position a new task takes in its
// (project, status) partition: one past the current maximum, or 0 when the
// partition is empty.
func AllocateInitialPosition(ctx context.Context, r positionReader, projectID string, status domain.Status) (int, error) {
	top, ok, err := r.MaxPosition(ctx, projectID, status)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return top + 1, nil
}
