package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
)

const eventColumns = `id, event_type, event_data, status, created_at, processed_at`

// EventRepository implements the Repository interface for outbox Event entities.
type EventRepository struct {
	base
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{base{db: db}}
}

// Create inserts a new event into the database.
func (r *EventRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	event, ok := resource.(*model.Event)
	if !ok {
		return nil, fmt.Errorf("resource must be a *model.Event: %w", repository.ErrInvalidType)
	}

	event.InitMeta()

	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, query, event.ID, event.EventType, []byte(event.EventData), event.Status, event.CreatedAt, event.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return event, nil
}

// FindByID retrieves a single event by ID.
func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	event, err := scanEvent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound(err, "event")
	}
	return event, nil
}

// List retrieves events in creation order. Only pending events are returned unless the
// query sets StatusField.
func (r *EventRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	status := string(model.EventStatusPending)
	if s, ok := query.Values[repository.StatusField]; ok {
		status = s
	}

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}

	sqlQuery := `SELECT ` + eventColumns + ` FROM events WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	var events []repository.Resource
	err := r.queryRows(ctx, sqlQuery, []any{status, limit}, func(rows *sql.Rows) error {
		event, err := scanEvent(rows)
		if err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// DeleteByID deletes an event by ID.
func (r *EventRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	event, ok := resource.(*model.Event)
	if !ok {
		return fmt.Errorf("resource must be a *model.Event: %w", repository.ErrInvalidType)
	}

	result, err := r.exec(ctx, `DELETE FROM events WHERE id = $1`, event.ID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("event not found: %w", repository.ErrNotFound))
}

// UpdateStatus updates the status and processed_at time of an event.
func (r *EventRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	query := `UPDATE events SET status = $1, processed_at = $2 WHERE id = $3`

	result, err := r.exec(ctx, query, status, time.Now(), eventID)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("event not found: %w", repository.ErrNotFound))
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		event       model.Event
		data        []byte
		processedAt sql.NullTime
	)
	if err := row.Scan(&event.ID, &event.EventType, &data, &event.Status, &event.CreatedAt, &processedAt); err != nil {
		return nil, err
	}
	event.EventData = data
	event.ProcessedAt = timePtr(processedAt)
	return &event, nil
}
