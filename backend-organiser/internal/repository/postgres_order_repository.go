package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/pkg/database"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const orderColumns = `
	o.id, o.event_id, o.email, o.full_name, o.phone,
	o.discounts, o.application_fees, o.status,
	o.stripe_payment_intent_id, o.date_purchased,
	ARRAY(SELECT t.id FROM tickets t WHERE t.order_id = o.id ORDER BY t.purchase_date, t.id) AS ticket_ids
`

// PostgresOrderRepository implements OrderRepository using PostgreSQL with pgxpool
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// GetByID retrieves an order by its ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id))

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return order, nil
}

// GetByIDs retrieves orders following the order of ids
func (r *PostgresOrderRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.get_by_ids")
	defer span.End()

	span.SetAttributes(attribute.Int("count", len(ids)))

	if len(ids) == 0 {
		return []*domain.Order{}, nil
	}

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = ANY($1)`

	orders, err := r.queryOrders(ctx, query, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	byID := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}

	span.SetStatus(codes.Ok, "")
	return orderByIDs(ids, byID), nil
}

// ListByEventID lists orders of an event; an empty statuses slice returns all
func (r *PostgresOrderRepository) ListByEventID(ctx context.Context, eventID string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.list_by_event_id")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("status_filter_count", len(statuses)),
	)

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.event_id = $1`
	args := []interface{}{eventID}
	if len(statuses) > 0 {
		filter := make([]string, len(statuses))
		for i, s := range statuses {
			filter[i] = string(s)
		}
		query += ` AND o.status = ANY($2)`
		args = append(args, filter)
	}
	query += ` ORDER BY o.date_purchased, o.id`

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("result_count", len(orders)))
	span.SetStatus(codes.Ok, "")
	return orders, nil
}

// CreateWithTickets inserts the order and its tickets atomically and fills
// in order.TicketIDs
func (r *PostgresOrderRepository) CreateWithTickets(ctx context.Context, order *domain.Order, tickets []*domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.create_with_tickets")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("event_id", order.EventID),
		attribute.Int("ticket_count", len(tickets)),
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, event_id, email, full_name, phone,
				discounts, application_fees, status,
				stripe_payment_intent_id, date_purchased
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			order.ID,
			order.EventID,
			order.Email,
			order.FullName,
			order.Phone,
			order.Discounts,
			order.ApplicationFees,
			string(order.Status),
			nullString(order.StripePaymentIntentID),
			order.DatePurchased,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if len(tickets) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, t := range tickets {
			batch.Queue(`
				INSERT INTO tickets (id, order_id, event_id, price, status, purchase_date, form_response_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				t.ID,
				order.ID,
				order.EventID,
				t.Price,
				string(t.Status),
				t.PurchaseDate,
				nullString(t.FormResponseID),
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range tickets {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to insert ticket: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create order: %w", err)
	}

	order.TicketIDs = make([]string, len(tickets))
	for i, t := range tickets {
		t.OrderID = order.ID
		t.EventID = order.EventID
		order.TicketIDs[i] = t.ID
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateStatus sets the status of an order and its tickets
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.order.update_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", id),
		attribute.String("status", string(status)),
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOrderNotFound
		}

		if _, err := tx.Exec(ctx, `UPDATE tickets SET status = $2 WHERE order_id = $1`, id, string(status)); err != nil {
			return fmt.Errorf("failed to update ticket status: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *PostgresOrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		status          string
		paymentIntentID *string
		datePurchased   time.Time
	)

	err := row.Scan(
		&order.ID,
		&order.EventID,
		&order.Email,
		&order.FullName,
		&order.Phone,
		&order.Discounts,
		&order.ApplicationFees,
		&status,
		&paymentIntentID,
		&datePurchased,
		&order.TicketIDs,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	order.DatePurchased = datePurchased
	if paymentIntentID != nil {
		order.StripePaymentIntentID = *paymentIntentID
	}
	if order.TicketIDs == nil {
		order.TicketIDs = []string{}
	}
	return order, nil
}

// orderByIDs arranges found orders in the order of ids. Unknown ids are
// dropped; repeated ids repeat the order.
func orderByIDs(ids []string, byID map[string]*domain.Order) []*domain.Order {
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
