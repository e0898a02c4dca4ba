package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is the target of invitation dispatches. The engine reads it; the
// CRUD surface owns it.
type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`
	SenderEmail string    `json:"sender_email,omitempty" db:"sender_email"`
	SubjectTmpl string    `json:"subject_template,omitempty" db:"subject_template"`
	BodyTmpl    string    `json:"body_template,omitempty" db:"body_template"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Ended reports whether the event is over at the given instant.
func (e *Event) Ended(now time.Time) bool {
	return now.After(e.EndsAt)
}

type EventFilters struct {
	SearchTerm string
	From       time.Time
	To         time.Time
}
