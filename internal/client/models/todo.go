package models

import (
	"encoding/json"
	"time"
)

// TodoItem is a task belonging to exactly one todo page.
type TodoItem struct {
	ID        string          `json:"id"`
	PageID    string          `json:"page_id"`
	OwnerID   string          `json:"owner_id"`
	Text      string          `json:"text"`
	Notes     json.RawMessage `json:"notes,omitempty"`
	Completed bool            `json:"completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TodoPatch struct {
	Text      *string
	Notes     *json.RawMessage
	Completed *bool
}

func (patch TodoPatch) Apply(t *TodoItem, now time.Time) {
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = Later(t.UpdatedAt, now)
}
