package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the status of an event in the outbox pattern.
type EventStatus string

const (
	// EventStatusPending indicates the event has been created but not yet processed
	EventStatusPending EventStatus = "pending"
	// EventStatusProcessed indicates the event has been successfully processed
	EventStatusProcessed EventStatus = "processed"
	// EventStatusFailed indicates the event processing has failed
	EventStatusFailed EventStatus = "failed"
)

// Event types written to the outbox for service-request lifecycle changes.
const (
	EventServiceRequestCreated = "service_request.created"
	EventServiceRequestUpdated = "service_request.updated"
	EventServiceRequestDeleted = "service_request.deleted"
	EventServiceRequestStatus  = "service_request.status_changed"
	EventServiceRequestRated   = "service_request.rated"
)

// Event represents an event entity for the outbox pattern.
type Event struct {
	ID          uuid.UUID
	EventType   string
	EventData   json.RawMessage
	Status      EventStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// InitMeta initializes the event metadata including ID and timestamps.
func (e *Event) InitMeta() {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = EventStatusPending
	}
}

// NewEvent marshals data into a pending event of the given type.
func NewEvent(eventType string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return &Event{
		EventType: eventType,
		EventData: payload,
		Status:    EventStatusPending,
	}, nil
}

// ServiceRequestEventData is the outbox payload written for service-request lifecycle events.
type ServiceRequestEventData struct {
	ServiceRequestID uuid.UUID            `json:"service_request_id"`
	ClientID         uuid.UUID            `json:"client_id"`
	MechanicID       *uuid.UUID           `json:"mechanic_id,omitempty"`
	Title            string               `json:"title"`
	Status           ServiceRequestStatus `json:"status"`
	PreviousStatus   ServiceRequestStatus `json:"previous_status,omitempty"`
	Rating           *int                 `json:"rating,omitempty"`
}

// NewServiceRequestEventData builds the payload for req. previous is empty for non-transition events.
func NewServiceRequestEventData(req *ServiceRequest, previous ServiceRequestStatus) ServiceRequestEventData {
	return ServiceRequestEventData{
		ServiceRequestID: req.ID,
		ClientID:         req.ClientID,
		MechanicID:       req.MechanicID,
		Title:            req.Title,
		Status:           req.Status,
		PreviousStatus:   previous,
		Rating:           req.ClientRating,
	}
}
