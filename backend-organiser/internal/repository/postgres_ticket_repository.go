package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const ticketColumns = `id, order_id, event_id, price, status, purchase_date, form_response_id`

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

// GetByIDs retrieves tickets following the order of ids
func (r *PostgresTicketRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_ids")
	defer span.End()

	span.SetAttributes(attribute.Int("count", len(ids)))

	if len(ids) == 0 {
		return []*domain.Ticket{}, nil
	}

	tickets, err := r.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1)`, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byID := make(map[string]*domain.Ticket, len(tickets))
	for _, t := range tickets {
		byID[t.ID] = t
	}
	out := make([]*domain.Ticket, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

// GetByOrderID retrieves all tickets belonging to an order
func (r *PostgresTicketRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_order_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID))

	tickets, err := r.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE order_id = $1 ORDER BY purchase_date, id`, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return tickets, nil
}

func (r *PostgresTicketRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var (
		status         string
		purchaseDate   time.Time
		formResponseID *string
	)
	if err := row.Scan(&t.ID, &t.OrderID, &t.EventID, &t.Price, &status, &purchaseDate, &formResponseID); err != nil {
		return nil, err
	}
	t.Status = domain.OrderStatus(status)
	t.PurchaseDate = purchaseDate
	if formResponseID != nil {
		t.FormResponseID = *formResponseID
	}
	return t, nil
}
