package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/domain"
	"github.com/owya490/social-sports-sub003/pkg/database"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresEventMetadataRepository stores event metadata as a JSONB purchaser
// map next to the event row that owns capacity and vacancy
type PostgresEventMetadataRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventMetadataRepository creates a new PostgresEventMetadataRepository
func NewPostgresEventMetadataRepository(pool *pgxpool.Pool) *PostgresEventMetadataRepository {
	return &PostgresEventMetadataRepository{pool: pool}
}

// GetByEventID retrieves metadata for an event. Returns nil when the event
// has no metadata row yet.
func (r *PostgresEventMetadataRepository) GetByEventID(ctx context.Context, eventID string) (*domain.EventMetadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event_metadata.get_by_event_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	meta, err := selectMetadata(ctx, r.pool, eventID, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return meta, nil
}

// GetCapacity retrieves capacity and vacancy. Returns nil for unknown events.
func (r *PostgresEventMetadataRepository) GetCapacity(ctx context.Context, eventID string) (*domain.EventCapacity, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event_metadata.get_capacity")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	capacity, err := selectCapacity(ctx, r.pool, eventID, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return capacity, nil
}

// Save upserts metadata without touching vacancy
func (r *PostgresEventMetadataRepository) Save(ctx context.Context, meta *domain.EventMetadata) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event_metadata.save")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", meta.EventID),
		attribute.Int("complete_ticket_count", meta.CompleteTicketCount),
	)

	if err := upsertMetadata(ctx, r.pool, meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Mutate runs fn against row-locked metadata and capacity. Concurrent
// mutations of the same event are serialised by the event row lock.
func (r *PostgresEventMetadataRepository) Mutate(ctx context.Context, eventID string, fn MetadataMutation) (*domain.EventMetadata, *domain.EventCapacity, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event_metadata.mutate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var (
		updated  *domain.EventMetadata
		capacity *domain.EventCapacity
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		capacity, err = selectCapacity(ctx, tx, eventID, true)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEventNotFound
			}
			return err
		}

		current, err := selectMetadata(ctx, tx, eventID, true)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			current = domain.NewEventMetadata(eventID)
		}

		updated, err = fn(current, capacity)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("metadata mutation for event %s returned nil", eventID)
		}
		updated.EventID = eventID

		if err := upsertMetadata(ctx, tx, updated); err != nil {
			return err
		}

		capacity.Vacancy = capacity.Capacity - updated.CompleteTicketCount
		if _, err := tx.Exec(ctx,
			`UPDATE events SET vacancy = $2, updated_at = NOW() WHERE id = $1`,
			eventID, capacity.Vacancy,
		); err != nil {
			return fmt.Errorf("failed to update vacancy: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("complete_ticket_count", updated.CompleteTicketCount),
		attribute.Int("vacancy", capacity.Vacancy),
	)
	span.SetStatus(codes.Ok, "")
	return updated, capacity, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func selectMetadata(ctx context.Context, q querier, eventID string, forUpdate bool) (*domain.EventMetadata, error) {
	query := `
		SELECT purchaser_map, complete_ticket_count, order_ids
		FROM event_metadata
		WHERE event_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var raw []byte
	meta := &domain.EventMetadata{EventID: eventID}
	if err := q.QueryRow(ctx, query, eventID).Scan(&raw, &meta.CompleteTicketCount, &meta.OrderIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event metadata: %w", err)
	}

	if err := json.Unmarshal(raw, &meta.PurchaserMap); err != nil {
		return nil, fmt.Errorf("failed to decode purchaser map: %w", err)
	}
	if meta.PurchaserMap == nil {
		meta.PurchaserMap = map[string]*domain.Purchaser{}
	}
	if meta.OrderIDs == nil {
		meta.OrderIDs = []string{}
	}
	return meta, nil
}

func selectCapacity(ctx context.Context, q querier, eventID string, forUpdate bool) (*domain.EventCapacity, error) {
	query := `SELECT id, capacity, vacancy FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c := &domain.EventCapacity{}
	if err := q.QueryRow(ctx, query, eventID).Scan(&c.EventID, &c.Capacity, &c.Vacancy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get event capacity: %w", err)
	}
	return c, nil
}

func upsertMetadata(ctx context.Context, q querier, meta *domain.EventMetadata) error {
	purchasers := meta.PurchaserMap
	if purchasers == nil {
		purchasers = map[string]*domain.Purchaser{}
	}
	raw, err := json.Marshal(purchasers)
	if err != nil {
		return fmt.Errorf("failed to encode purchaser map: %w", err)
	}
	orderIDs := meta.OrderIDs
	if orderIDs == nil {
		orderIDs = []string{}
	}

	_, err = q.Exec(ctx, `
		INSERT INTO event_metadata (event_id, purchaser_map, complete_ticket_count, order_ids, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (event_id) DO UPDATE SET
			purchaser_map = EXCLUDED.purchaser_map,
			complete_ticket_count = EXCLUDED.complete_ticket_count,
			order_ids = EXCLUDED.order_ids,
			updated_at = NOW()
	`, meta.EventID, raw, meta.CompleteTicketCount, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to save event metadata: %w", err)
	}
	return nil
}
