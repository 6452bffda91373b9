// Package models defines client-side data models mirrored between the local
// store and the remote backend.
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// PageType classifies a page.
type PageType string

const (
	PageTypeNote PageType = "note"
	PageTypeTodo PageType = "todo"
)

func (t PageType) Valid() bool {
	return t == PageTypeNote || t == PageTypeTodo
}

// Page is a titled content container. Pages form a tree through ParentID;
// a nil ParentID marks a root page.
type Page struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"owner_id"`
	ParentID *string         `json:"parent_id"`
	Title    string          `json:"title"`
	Type     PageType        `json:"type"`
	Content  json.RawMessage `json:"content,omitempty"`
	Pinned   bool            `json:"pinned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PagePatch is a partial update. Nil fields are left untouched.
type PagePatch struct {
	Title   *string
	Content *json.RawMessage
	Pinned  *bool
}

// Apply merges the patch onto p and refreshes UpdatedAt. UpdatedAt never
// moves backwards, even if the local clock does.
func (patch PagePatch) Apply(p *Page, now time.Time) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Pinned != nil {
		p.Pinned = *patch.Pinned
	}
	p.UpdatedAt = Later(p.UpdatedAt, now)
}

// Later returns the later of the two instants, normalised to UTC.
func Later(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev.UTC()
	}
	return now.UTC()
}

// Document normalises a stored JSON document: an empty value and the JSON
// literal null both mean "no document" and come back as nil.
func Document(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}
