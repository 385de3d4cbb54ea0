package board

import (
	"context"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// ActivityAppender persists activity entries.
type ActivityAppender interface {
	AppendActivity(ctx context.Context, e domain.ActivityLogEntry) (domain.ActivityLogEntry, error)
}

// ActivityExporter receives every entry after it was persisted.
type ActivityExporter interface {
	Export(ctx context.Context, e domain.ActivityLogEntry) error
}

// Recorder appends activity entries. Failures are logged and never
// reported to the caller, so a task mutation is never undone by its log.
type Recorder struct {
	store     ActivityAppender
	exporters []ActivityExporter
	log       *log.Logger
}

// NewRecorder creates a Recorder writing to store and forwarding to the
// optional exporters.
func NewRecorder(store ActivityAppender, logger *log.Logger, exporters ...ActivityExporter) *Recorder {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Recorder{store: store, exporters: exporters, log: logger}
}

// Record appends one entry. The caller's cancellation does not abort the
// write.
func (r *Recorder) Record(ctx context.Context, e domain.ActivityLogEntry) {
	ctx = context.WithoutCancel(ctx)

	stored, err := r.store.AppendActivity(ctx, e)
	if err != nil {
		r.log.WithFields(log.Fields{
			"task_id": e.TaskID,
			"user_id": e.UserID,
			"action":  e.Action,
			"error":   err,
		}).Error("activity.record_failed")
		return
	}

	for _, exp := range r.exporters {
		if err := exp.Export(ctx, stored); err != nil {
			r.log.WithFields(log.Fields{
				"activity_id": stored.ID,
				"task_id":     stored.TaskID,
				"error":       err,
			}).Warn("activity.export_failed")
		}
	}
}

// StatusChange builds the entry for a status transition.
func StatusChange(taskID, actor string, from, to domain.Status) domain.ActivityLogEntry {
	return FieldChange(taskID, actor, domain.TrackedChange{Field: "status", OldValue: string(from), NewValue: string(to)})
}

// FieldChange builds an "updated" entry for one tracked field.
func FieldChange(taskID, actor string, c domain.TrackedChange) domain.ActivityLogEntry {
	field, oldValue, newValue := c.Field, c.OldValue, c.NewValue
	return domain.ActivityLogEntry{
		Action:   domain.ActionUpdated,
		Field:    &field,
		OldValue: &oldValue,
		NewValue: &newValue,
		TaskID:   taskID,
		UserID:   actor,
	}
}
