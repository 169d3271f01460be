package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/sqs"
)

const outboxBatchSize = 100

// MessagePublisher sends service request notifications to the queue.
type MessagePublisher interface {
	PublishServiceRequestMessage(ctx context.Context, msg sqs.ServiceRequestMessage) error
}

// OutboxWorker polls the events table and publishes pending events.
type OutboxWorker struct {
	events    repository.EventRepository
	publisher MessagePublisher
	interval  time.Duration
	stopChan  chan struct{}
}

// NewOutboxWorker creates a new OutboxWorker
func NewOutboxWorker(events repository.EventRepository, publisher MessagePublisher, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins processing events from the outbox
func (w *OutboxWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker stopped by context")
			return
		case <-w.stopChan:
			slog.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessEvents(ctx)
		}
	}
}

// Stop stops the outbox worker
func (w *OutboxWorker) Stop() {
	close(w.stopChan)
}

// ProcessEvents publishes one batch of pending events and marks each processed or failed.
func (w *OutboxWorker) ProcessEvents(ctx context.Context) {
	query := repository.NewQuery()
	query.Limit = outboxBatchSize
	resources, err := w.events.List(ctx, *query)
	if err != nil {
		slog.Error("Failed to retrieve pending events", slog.Any("err", err))
		return
	}

	if len(resources) == 0 {
		return
	}

	slog.Debug("Processing pending events", slog.Int("count", len(resources)))

	for _, resource := range resources {
		event, ok := resource.(*model.Event)
		if !ok {
			slog.Error("Invalid event type in outbox")
			continue
		}

		status := model.EventStatusProcessed
		if err := w.processEvent(ctx, event); err != nil {
			slog.Error("Failed to process event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.Any("err", err))
			status = model.EventStatusFailed
		}

		if err := w.events.UpdateStatus(ctx, event.ID, status); err != nil {
			slog.Error("Failed to update event status",
				slog.String("event_id", event.ID.String()),
				slog.String("status", string(status)),
				slog.Any("err", err))
			continue
		}
		metrics.OutboxEventsPublished.WithLabelValues(string(status)).Inc()
	}
}

// processEvent publishes a single event to SQS
func (w *OutboxWorker) processEvent(ctx context.Context, event *model.Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	return w.publisher.PublishServiceRequestMessage(ctx, msg)
}

func toMessage(event *model.Event) (sqs.ServiceRequestMessage, error) {
	var data model.ServiceRequestEventData
	if err := json.Unmarshal(event.EventData, &data); err != nil {
		return sqs.ServiceRequestMessage{}, fmt.Errorf("failed to decode event data: %w", err)
	}

	msg := sqs.ServiceRequestMessage{
		EventID:          event.ID.String(),
		EventType:        event.EventType,
		ServiceRequestID: data.ServiceRequestID.String(),
		ClientID:         data.ClientID.String(),
		Title:            data.Title,
		Status:           string(data.Status),
		PreviousStatus:   string(data.PreviousStatus),
		Rating:           data.Rating,
		OccurredAt:       event.CreatedAt,
	}
	if data.MechanicID != nil {
		msg.MechanicID = data.MechanicID.String()
	}
	return msg, nil
}
