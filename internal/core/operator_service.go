package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type operatorService struct {
	pool *pgxpool.Pool
}

// NewOperatorService constructs an OperatorService backed by PostgreSQL.
func NewOperatorService(pool *pgxpool.Pool) OperatorService {
	return &operatorService{pool: pool}
}

func (s *operatorService) GetByID(ctx context.Context, id uuid.UUID) (*Technician, error) {
	t := &Technician{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, role, is_active, created_at
		FROM technicians
		WHERE id = $1 AND is_active = true`,
		id,
	).Scan(&t.ID, &t.FirstName, &t.LastName, &t.Role, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("technician %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get technician %s: %w", id, err)
	}
	return t, nil
}
