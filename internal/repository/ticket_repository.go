package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketOrder enumerates supported ordering keys.
type TicketOrder string

const (
	OrderCreatedAtDesc TicketOrder = "-created_at"
	OrderCreatedAtAsc  TicketOrder = "created_at"
	OrderUpdatedAtDesc TicketOrder = "-updated_at"
	OrderUpdatedAtAsc  TicketOrder = "updated_at"
	OrderPriorityDesc  TicketOrder = "-priority"
	OrderPriorityAsc   TicketOrder = "priority"
)

// TicketFilter captures scoping and search parameters for listings.
type TicketFilter struct {
	ClientID       *string
	EngineerID     *string
	Status         *domain.TicketStatus
	Priority       *domain.TicketPriority
	Category       *domain.TicketCategory
	Unassigned     bool
	HighOrCritical bool
	SearchTerm     *string
	OrderBy        TicketOrder
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, client_id, engineer_id, admin_id,
               priority, status, category, created_at, updated_at, resolved_at, deadline,
               is_escalated, escalation_reason`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, client_id, engineer_id, admin_id,
            priority, status, category, deadline, is_escalated, escalation_reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.ClientID,
		ticket.EngineerID,
		ticket.AdminID,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.Deadline,
		ticket.IsEscalated,
		ticket.EscalationReason,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, engineer_id=$3, admin_id=$4, priority=$5,
            status=$6, category=$7, resolved_at=$8, deadline=$9, is_escalated=$10,
            escalation_reason=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.EngineerID,
		ticket.AdminID,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.ResolvedAt,
		ticket.Deadline,
		ticket.IsEscalated,
		ticket.EscalationReason,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_number=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := buildTicketClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), orderClause(filter.OrderBy), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int64, error) {
	clauses, args := buildTicketClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.EngineerID != nil {
		args = append(args, *filter.EngineerID)
		clauses = append(clauses, fmt.Sprintf("engineer_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "engineer_id IS NULL")
	}
	if filter.HighOrCritical {
		args = append(args, domain.TicketPriorityHigh)
		high := len(args)
		args = append(args, domain.TicketPriorityCritical)
		clauses = append(clauses, fmt.Sprintf("priority IN ($%d,$%d)", high, len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(ticket_number) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	return clauses, args
}

// orderClause maps the public ordering keys onto SQL. Priority ordering
// sorts by severity rank rather than alphabetically.
func orderClause(order TicketOrder) string {
	const priorityRank = `CASE priority
        WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END`

	switch order {
	case OrderCreatedAtAsc:
		return "created_at ASC"
	case OrderUpdatedAtDesc:
		return "updated_at DESC"
	case OrderUpdatedAtAsc:
		return "updated_at ASC"
	case OrderPriorityDesc:
		return priorityRank + " DESC, created_at DESC"
	case OrderPriorityAsc:
		return priorityRank + " ASC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.ClientID,
		&ticket.EngineerID,
		&ticket.AdminID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.Deadline,
		&ticket.IsEscalated,
		&ticket.EscalationReason,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
