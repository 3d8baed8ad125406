package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operator is the authenticated technician on whose behalf a write is performed.
// It is passed explicitly through every mutating call.
type Operator struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// Technician is the persisted record behind an Operator.
type Technician struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// Operator returns the identity used to stamp writes.
func (t *Technician) Operator() Operator {
	name := t.FirstName
	if t.LastName != "" {
		name += " " + t.LastName
	}
	return Operator{ID: t.ID, Name: name, Role: t.Role}
}

// OperatorService provides technician lookup operations.
type OperatorService interface {
	// GetByID returns an active technician by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (*Technician, error)
}
