package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
)

// ServiceRequestStatus is a state of the service-request lifecycle.
type ServiceRequestStatus string

const (
	StatusPending    ServiceRequestStatus = "pending"
	StatusAccepted   ServiceRequestStatus = "accepted"
	StatusInProgress ServiceRequestStatus = "in_progress"
	StatusCompleted  ServiceRequestStatus = "completed"
	StatusCancelled  ServiceRequestStatus = "cancelled"
	StatusRejected   ServiceRequestStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ServiceRequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// UrgencyLevel grades how soon a client needs help.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "baja"
	UrgencyMedium   UrgencyLevel = "media"
	UrgencyHigh     UrgencyLevel = "alta"
	UrgencyCritical UrgencyLevel = "critica"
)

// Valid reports whether u is a known urgency level.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

const (
	MinEstimatedDurationHours = 0.5
	MaxEstimatedDurationHours = 48.0
	MinClientRating           = 1
	MaxClientRating           = 5
)

// ServiceRequest is a client's request for mechanical assistance.
type ServiceRequest struct {
	ID                     uuid.UUID
	ClientID               uuid.UUID
	MechanicID             *uuid.UUID
	VehicleID              *uuid.UUID
	PreferredMechanicID    *uuid.UUID
	Title                  string
	Description            string
	ServiceType            string
	UrgencyLevel           UrgencyLevel
	EstimatedDurationHours float64
	BudgetMax              float64
	IsEmergency            bool
	PreferredDate          *time.Time
	LocationAddress        string
	LocationNotes          string
	LocationLatitude       *float64
	LocationLongitude      *float64
	Status                 ServiceRequestStatus
	FinalCost              *float64
	ClientRating           *int
	UpdatedAt              time.Time
	CreatedAt              time.Time
}

// InitMeta initializes the request metadata including ID, timestamps and the initial status.
func (r *ServiceRequest) InitMeta() {
	r.ID = uuid.New()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Status = StatusPending
	if r.UrgencyLevel == "" {
		r.UrgencyLevel = UrgencyMedium
	}
}

// IsOwnedBy reports whether userID created the request.
func (r *ServiceRequest) IsOwnedBy(userID uuid.UUID) bool {
	return r.ClientID == userID
}

// IsAssignedTo reports whether userID is the mechanic that accepted the request.
func (r *ServiceRequest) IsAssignedTo(userID uuid.UUID) bool {
	return r.MechanicID != nil && *r.MechanicID == userID
}

// Location returns the service coordinates, if any.
func (r *ServiceRequest) Location() (geo.Point, bool) {
	if r.LocationLatitude == nil || r.LocationLongitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *r.LocationLatitude, Longitude: *r.LocationLongitude}, true
}

// Validate checks the client-editable attributes.
func (r *ServiceRequest) Validate() error {
	fields := map[string]string{}
	if r.Title == "" {
		fields["title"] = "is required"
	} else if len(r.Title) > 255 {
		fields["title"] = "must not exceed 255 characters"
	}
	if r.Description == "" {
		fields["description"] = "is required"
	}
	if r.ServiceType == "" {
		fields["service_type"] = "is required"
	}
	if !r.UrgencyLevel.Valid() {
		fields["urgency_level"] = "must be one of baja, media, alta, critica"
	}
	if r.EstimatedDurationHours < MinEstimatedDurationHours || r.EstimatedDurationHours > MaxEstimatedDurationHours {
		fields["estimated_duration_hours"] = "must be between 0.5 and 48"
	}
	if r.BudgetMax < 0 {
		fields["budget_max"] = "must not be negative"
	}
	if len(r.LocationAddress) > 500 {
		fields["location_address"] = "must not exceed 500 characters"
	}
	if len(r.LocationNotes) > 1000 {
		fields["location_notes"] = "must not exceed 1000 characters"
	}
	if (r.LocationLatitude == nil) != (r.LocationLongitude == nil) {
		fields["location"] = "latitude and longitude must be given together"
	}
	if p, ok := r.Location(); ok {
		if err := p.Validate(); err != nil {
			fields["location"] = "coordinates are out of range"
		}
	}
	if len(fields) > 0 {
		return &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}
	return nil
}
