package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AssignmentRepository stores the append-only assignment history.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (ticket_id, engineer_id, assigned_by_id, note)
        VALUES ($1,$2,$3,$4)
        RETURNING id, assigned_at`
	return r.pool.QueryRow(ctx, query,
		assignment.TicketID,
		assignment.EngineerID,
		assignment.AssignedByID,
		assignment.Note,
	).Scan(&assignment.ID, &assignment.AssignedAt)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Assignment, error) {
	const query = `
        SELECT id, ticket_id, engineer_id, assigned_by_id, assigned_at, note
        FROM assignments WHERE ticket_id=$1 ORDER BY assigned_at DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var assignment domain.Assignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.TicketID,
			&assignment.EngineerID,
			&assignment.AssignedByID,
			&assignment.AssignedAt,
			&assignment.Note,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}
