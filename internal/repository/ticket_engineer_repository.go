package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketEngineerRepository manages the ticket/engineer link table.
type TicketEngineerRepository interface {
	// FindOrCreate returns the existing link for (ticket, engineer) or
	// inserts a new one; created reports whether a row was inserted.
	FindOrCreate(ctx context.Context, link *domain.TicketEngineer) (created bool, err error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEngineer, error)
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type ticketEngineerRepository struct {
	pool *pgxpool.Pool
}

// NewTicketEngineerRepository builds repository.
func NewTicketEngineerRepository(pool *pgxpool.Pool) TicketEngineerRepository {
	return &ticketEngineerRepository{pool: pool}
}

func (r *ticketEngineerRepository) FindOrCreate(ctx context.Context, link *domain.TicketEngineer) (bool, error) {
	const existing = `
        SELECT id, ticket_id, engineer_id, assigned_at, is_primary
        FROM ticket_engineers WHERE ticket_id=$1 AND engineer_id=$2`
	found := domain.TicketEngineer{}
	err := r.pool.QueryRow(ctx, existing, link.TicketID, link.EngineerID).Scan(
		&found.ID,
		&found.TicketID,
		&found.EngineerID,
		&found.AssignedAt,
		&found.IsPrimary,
	)
	if err == nil {
		*link = found
		return false, nil
	}

	// Insert; the unique constraint on (ticket_id, engineer_id) resolves
	// concurrent creations. ON CONFLICT returns the surviving row.
	const insert = `
        INSERT INTO ticket_engineers (ticket_id, engineer_id, is_primary)
        VALUES ($1,$2,$3)
        ON CONFLICT (ticket_id, engineer_id) DO UPDATE SET engineer_id=EXCLUDED.engineer_id
        RETURNING id, assigned_at, is_primary`
	if err := r.pool.QueryRow(ctx, insert, link.TicketID, link.EngineerID, link.IsPrimary).Scan(
		&link.ID,
		&link.AssignedAt,
		&link.IsPrimary,
	); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ticketEngineerRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEngineer, error) {
	const query = `
        SELECT id, ticket_id, engineer_id, assigned_at, is_primary
        FROM ticket_engineers WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEngineer
	for rows.Next() {
		var link domain.TicketEngineer
		if err := rows.Scan(
			&link.ID,
			&link.TicketID,
			&link.EngineerID,
			&link.AssignedAt,
			&link.IsPrimary,
		); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	return result, rows.Err()
}

func (r *ticketEngineerRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ticket_engineers WHERE ticket_id=$1`, ticketID)
	return err
}
