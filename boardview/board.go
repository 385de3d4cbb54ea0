// Package boardview keeps an optimistic local copy of a project's board
// while a card is dragged, and reconciles it with the server's view.
package boardview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Phase is where the board is in a drag gesture.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Dropped
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Mover persists a drop.
type Mover interface {
	MoveTask(ctx context.Context, taskID string, status domain.Status, position int) error
}

// Fetcher loads the authoritative task list of a project.
type Fetcher interface {
	FetchBoard(ctx context.Context, projectID string) ([]domain.TaskView, error)
}

// Creator backs the per-column quick add.
type Creator interface {
	CreateTask(ctx context.Context, in domain.NewTask) (domain.TaskView, error)
}

// Column is one status column with its tasks ordered by position.
type Column struct {
	Status domain.Status
	Tasks  []domain.TaskView
}

// Board is the client-side view of one project. It is safe for
// concurrent use.
type Board struct {
	projectID string
	mover     Mover
	fetcher   Fetcher
	logger    log.FieldLogger

	mu            sync.Mutex
	authoritative []domain.TaskView
	shadow        []domain.TaskView
	phase         Phase
	active        string
}

// New creates an empty board; call Refresh to load it.
func New(projectID string, mover Mover, fetcher Fetcher, logger log.FieldLogger) *Board {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Board{
		projectID: projectID,
		mover:     mover,
		fetcher:   fetcher,
		logger:    logger.WithField("project_id", projectID),
	}
}

// Phase reports the current drag phase.
func (b *Board) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Active returns the id of the card being dragged, if any.
func (b *Board) Active() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, b.active != ""
}

// DragStart captures the dragged card. Unknown ids are ignored.
func (b *Board) DragStart(taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexOf(taskID) < 0 {
		return false
	}
	b.active = taskID
	b.phase = Dragging
	return true
}

// DragOver moves the dragged card into the column implied by targetID,
// which is either a status column id or another card's id. Only the
// local status changes; positions stay untouched until the drop.
func (b *Board) DragOver(targetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dragOver(targetID)
}

func (b *Board) dragOver(targetID string) {
	if b.phase != Dragging || targetID == "" {
		return
	}
	i := b.indexOf(b.active)
	if i < 0 {
		return
	}
	status, ok := b.targetStatus(targetID)
	if !ok || status == b.shadow[i].Status {
		return
	}
	b.shadow[i].Status = status
}

func (b *Board) targetStatus(targetID string) (domain.Status, bool) {
	if s, err := domain.ParseStatus(targetID); err == nil {
		return s, true
	}
	if j := b.indexOf(targetID); j >= 0 {
		return b.shadow[j].Status, true
	}
	return "", false
}

// DragEnd drops the dragged card. With an empty targetID the gesture is
// cancelled and nothing is sent. Otherwise the card's index within its
// local column becomes the requested position, and the board is
// refetched whether or not the move succeeded.
func (b *Board) DragEnd(ctx context.Context, targetID string) error {
	b.mu.Lock()
	if b.phase != Dragging {
		b.mu.Unlock()
		return nil
	}
	if targetID == "" {
		b.cancel()
		b.mu.Unlock()
		return nil
	}
	b.dragOver(targetID)

	taskID := b.active
	i := b.indexOf(taskID)
	if i < 0 {
		b.cancel()
		b.mu.Unlock()
		return nil
	}
	status := b.shadow[i].Status
	position := 0
	for idx, t := range b.column(status) {
		if t.ID == taskID {
			position = idx
			break
		}
	}
	b.active = ""
	b.phase = Dropped
	b.mu.Unlock()

	moveErr := b.mover.MoveTask(ctx, taskID, status, max(0, position))
	if moveErr != nil {
		b.logger.WithFields(log.Fields{
			"task_id": taskID,
			"status":  status,
		}).WithError(moveErr).Warn("board.move_failed")
	}
	refreshErr := b.Refresh(ctx)
	return errors.Join(moveErr, refreshErr)
}

// DragCancel ends the gesture without a network call. Any optimistic
// status change stays until the next refresh replaces it.
func (b *Board) DragCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.phase == Dragging {
		b.cancel()
	}
}

func (b *Board) cancel() {
	b.active = ""
	b.phase = Cancelled
}

// Refresh refetches the project and reconciles the shadow with it.
func (b *Board) Refresh(ctx context.Context) error {
	tasks, err := b.fetcher.FetchBoard(ctx, b.projectID)
	if err != nil {
		b.logger.WithError(err).Warn("board.refresh_failed")
		b.mu.Lock()
		if b.phase == Dropped {
			b.phase = Idle
		}
		b.mu.Unlock()
		return err
	}
	b.SetAuthoritative(tasks)
	return nil
}

// SetAuthoritative records the server's view. The shadow is replaced
// only when the id+status sequence differs from it.
func (b *Board) SetAuthoritative(tasks []domain.TaskView) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authoritative = clone(tasks)
	if b.phase == Dropped {
		b.phase = Idle
	}
	if sameLayout(b.authoritative, b.shadow) {
		return false
	}
	b.shadow = clone(tasks)
	if b.active != "" && b.indexOf(b.active) < 0 {
		b.active = ""
		b.phase = Cancelled
	}
	return true
}

// QuickAdd creates a task at the end of a column and refreshes.
func (b *Board) QuickAdd(ctx context.Context, creator Creator, status domain.Status, title string) (domain.TaskView, error) {
	in := domain.NewTask{Title: title, ProjectID: b.projectID, Status: status}
	created, err := creator.CreateTask(ctx, in)
	if err != nil {
		return domain.TaskView{}, err
	}
	return created, b.Refresh(ctx)
}

// Columns returns the five status columns in board order, each sorted
// by position.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	cols := make([]Column, 0, len(domain.StatusColumns))
	for _, s := range domain.StatusColumns {
		cols = append(cols, Column{Status: s, Tasks: b.column(s)})
	}
	return cols
}

// Tasks returns a copy of the local shadow.
func (b *Board) Tasks() []domain.TaskView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.shadow)
}

func (b *Board) column(status domain.Status) []domain.TaskView {
	var out []domain.TaskView
	for _, t := range b.shadow {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (b *Board) indexOf(id string) int {
	for i := range b.shadow {
		if b.shadow[i].ID == id {
			return i
		}
	}
	return -1
}

func sameLayout(a, b []domain.TaskView) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}

func clone(tasks []domain.TaskView) []domain.TaskView {
	if tasks == nil {
		return nil
	}
	out := make([]domain.TaskView, len(tasks))
	copy(out, tasks)
	return out
}
