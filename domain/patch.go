package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional distinguishes an absent field, an explicit null and a value in a
// partial update payload.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// UnmarshalJSON is only invoked for keys present in the payload, so Set is
// true whenever it runs.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns nil for a null or absent value, otherwise a pointer to a copy.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// TaskPatch is a partial update of a task. Absent fields stay unchanged.
type TaskPatch struct {
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	Status      Optional[Status]    `json:"status"`
	Priority    Optional[Priority]  `json:"priority"`
	Position    Optional[int]       `json:"position"`
	DueDate     Optional[DueDate]   `json:"dueDate"`
	AssigneeID  Optional[string]    `json:"assigneeId"`
	TeamID      Optional[string]    `json:"teamId"`
	ParentID    Optional[string]    `json:"parentId"`
}

// MarshalJSON emits only the fields that are set, so an encoded patch
// round-trips with the same absent/null/value meaning.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	put := func(key string, set bool, v any) {
		if set {
			out[key] = v
		}
	}
	put("title", p.Title.Set, p.Title)
	put("description", p.Description.Set, p.Description)
	put("status", p.Status.Set, p.Status)
	put("priority", p.Priority.Set, p.Priority)
	put("position", p.Position.Set, p.Position)
	put("dueDate", p.DueDate.Set, p.DueDate)
	put("assigneeId", p.AssigneeID.Set, p.AssigneeID)
	put("teamId", p.TeamID.Set, p.TeamID)
	put("parentId", p.ParentID.Set, p.ParentID)
	return json.Marshal(out)
}

// IsEmpty reports whether the patch carries no fields at all.
func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set && !p.Priority.Set &&
		!p.Position.Set && !p.DueDate.Set && !p.AssigneeID.Set && !p.TeamID.Set && !p.ParentID.Set
}

// Validate rejects nulls on required columns and unknown enum values, and
// folds empty reference ids and an empty due date into an explicit clear.
func (p *TaskPatch) Validate() error {
	if p.Title.Set && (p.Title.Null || p.Title.Value == "") {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalid)
	}
	if p.Status.Set {
		if p.Status.Null || !p.Status.Value.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrInvalid, p.Status.Value)
		}
	}
	if p.Priority.Set {
		if p.Priority.Null || !p.Priority.Value.Valid() {
			return fmt.Errorf("%w: unknown priority %q", ErrInvalid, p.Priority.Value)
		}
	}
	if p.Position.Set && p.Position.Null {
		return fmt.Errorf("%w: position cannot be null", ErrInvalid)
	}
	if p.DueDate.Set && !p.DueDate.Null && p.DueDate.Value.IsZero() {
		p.DueDate = Null[DueDate]()
	}
	for _, ref := range []*Optional[string]{&p.AssigneeID, &p.TeamID, &p.ParentID} {
		if ref.Set && !ref.Null && ref.Value == "" {
			*ref = Null[string]()
		}
	}
	return nil
}

// Apply returns a copy of t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Ptr()
	}
	if p.Status.Set {
		t.Status = p.Status.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.Position.Set {
		t.Position = p.Position.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value.TimePtr()
	}
	if p.AssigneeID.Set {
		t.AssigneeID = p.AssigneeID.Ptr()
	}
	if p.TeamID.Set {
		t.TeamID = p.TeamID.Ptr()
	}
	if p.ParentID.Set {
		t.ParentID = p.ParentID.Ptr()
	}
	return t
}

// TrackedChange is one audited field transition.
type TrackedChange struct {
	Field    string
	OldValue string
	NewValue string
}

// TrackedChanges compares the audited fields present in the patch against
// the stored task. Values are compared in their string form; a cleared
// reference renders as the empty string.
func (p TaskPatch) TrackedChanges(old Task) []TrackedChange {
	var out []TrackedChange
	add := func(field, before, after string) {
		if before != after {
			out = append(out, TrackedChange{Field: field, OldValue: before, NewValue: after})
		}
	}
	if p.Status.Set {
		add("status", string(old.Status), string(p.Status.Value))
	}
	if p.Priority.Set {
		add("priority", string(old.Priority), string(p.Priority.Value))
	}
	if p.AssigneeID.Set {
		add("assigneeId", derefString(old.AssigneeID), derefString(p.AssigneeID.Ptr()))
	}
	if p.Title.Set {
		add("title", old.Title, p.Title.Value)
	}
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
