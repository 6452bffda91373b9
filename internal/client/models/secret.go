package models

import "time"

// Secret is a named value stored only as an encrypted envelope.
// The plaintext never leaves memory.
type Secret struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Envelope string `json:"envelope"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PinRecord holds the one-way hash of a user's secret-access PIN.
// There is exactly one per user.
type PinRecord struct {
	OwnerID   string    `json:"owner_id"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
