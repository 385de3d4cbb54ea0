package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func decodePatch(t *testing.T, raw string) TaskPatch {
	t.Helper()
	var p TaskPatch
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return p
}

func TestTaskPatchThreeWaySemantics(t *testing.T) {
	p := decodePatch(t, `{"description": null, "title": "New", "dueDate": "2026-02-01T00:00:00Z"}`)

	if !p.Description.Set || !p.Description.Null {
		t.Fatalf("explicit null should be Set and Null: %+v", p.Description)
	}
	if !p.Title.Set || p.Title.Null || p.Title.Value != "New" {
		t.Fatalf("unexpected title: %+v", p.Title)
	}
	if p.AssigneeID.Set {
		t.Fatalf("absent field should not be Set")
	}
	if !p.DueDate.Set || !p.DueDate.Value.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date: %+v", p.DueDate)
	}
	if p.IsEmpty() {
		t.Fatalf("patch with fields should not be empty")
	}
	if !decodePatch(t, `{}`).IsEmpty() {
		t.Fatalf("empty object should be an empty patch")
	}
}

func TestTaskPatchApply(t *testing.T) {
	desc := "old"
	assignee := "u1"
	task := Task{ID: "t1", Title: "Old", Description: &desc, AssigneeID: &assignee, Status: StatusTodo, Position: 3}

	p := decodePatch(t, `{"description": null, "assigneeId": "", "position": 0}`)
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	got := p.Apply(task)
	if got.Description != nil {
		t.Fatalf("description should be cleared")
	}
	if got.AssigneeID != nil {
		t.Fatalf("empty assignee id should clear the field")
	}
	if got.Position != 0 || got.Title != "Old" || got.Status != StatusTodo {
		t.Fatalf("unexpected task: %+v", got)
	}
	if task.Description == nil || *task.Description != "old" {
		t.Fatalf("apply must not mutate its input")
	}
}

func TestTaskPatchValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "null title", raw: `{"title": null}`},
		{name: "empty title", raw: `{"title": ""}`},
		{name: "unknown status", raw: `{"status": "ARCHIVED"}`},
		{name: "null status", raw: `{"status": null}`},
		{name: "unknown priority", raw: `{"priority": "CRITICAL"}`},
		{name: "null position", raw: `{"position": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePatch(t, tt.raw)
			if err := p.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestTrackedChanges(t *testing.T) {
	assignee := "u1"
	old := Task{Title: "Same", Status: StatusTodo, Priority: PriorityLow, AssigneeID: &assignee}

	p := TaskPatch{
		Title:      Some("Same"),
		Status:     Some(StatusDone),
		Priority:   Some(PriorityLow),
		AssigneeID: Null[string](),
		Position:   Some(9),
	}
	changes := p.TrackedChanges(old)
	if len(changes) != 2 {
		t.Fatalf("expected status and assignee changes, got %+v", changes)
	}
	if changes[0] != (TrackedChange{Field: "status", OldValue: "TODO", NewValue: "DONE"}) {
		t.Fatalf("unexpected status change: %+v", changes[0])
	}
	if changes[1] != (TrackedChange{Field: "assigneeId", OldValue: "u1", NewValue: ""}) {
		t.Fatalf("unexpected assignee change: %+v", changes[1])
	}

	if got := (TaskPatch{}).TrackedChanges(old); len(got) != 0 {
		t.Fatalf("empty patch should track nothing, got %+v", got)
	}
}

func TestOptionalMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		A Optional[string] `json:"a"`
		B Optional[string] `json:"b"`
	}{A: Some("x"), B: Null[string]()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":"x","b":null}` {
		t.Fatalf("unexpected json: %s", data)
	}
}

func TestTaskPatchMarshalKeepsAbsentFieldsOut(t *testing.T) {
	p := TaskPatch{Status: Some(StatusDone), AssigneeID: Null[string]()}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"assigneeId":null,"status":"DONE"}` {
		t.Fatalf("unexpected json: %s", data)
	}

	back := decodePatch(t, string(data))
	if back.Title.Set || !back.AssigneeID.Null || back.Status.Value != StatusDone {
		t.Fatalf("round trip changed meaning: %+v", back)
	}
}
