package models

import (
	"encoding/json"
	"time"
)

// MutationKind is the remote operation a queued mutation replays.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
	MutationUpsert MutationKind = "upsert"
)

// Table names a mirrored remote relation.
type Table string

const (
	TablePages           Table = "pages"
	TableTodoItems       Table = "todo_items"
	TableUserPreferences Table = "user_preferences"
)

// QueuedMutation is one durable entry of the local mutation queue.
// Seq is assigned by the store and defines the drain order.
type QueuedMutation struct {
	Seq        int64
	Kind       MutationKind
	Table      Table
	EntityID   string
	Payload    json.RawMessage
	EnqueuedAt time.Time
}

// DeleteKey is the minimal payload of a delete mutation.
type DeleteKey struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// NewMutation marshals payload into a mutation ready to be enqueued.
func NewMutation(kind MutationKind, table Table, entityID string, payload any) (QueuedMutation, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return QueuedMutation{}, err
	}
	return QueuedMutation{Kind: kind, Table: table, EntityID: entityID, Payload: b}, nil
}
