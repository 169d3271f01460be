package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidType is returned when a Resource is not of the type a repository manages.
	ErrInvalidType = errors.New("invalid resource type")
	// ErrConflict is returned when a conditional update matched no row because the
	// resource changed concurrently.
	ErrConflict = errors.New("resource was modified concurrently")
)

// Repository defines the interface for a generic repository that can manage resources.
type Repository interface {
	Create(ctx context.Context, resource Resource) (result Resource, err error)
	List(ctx context.Context, query Query) (result []Resource, err error)
	DeleteByID(ctx context.Context, resource Resource) error
	FindByID(ctx context.Context, id uuid.UUID) (result Resource, err error)
}

// Resource represents a generic resource that can be managed by the repository.
type Resource interface {
	InitMeta()
}

// EventStatusUpdater marks outbox events as processed or failed.
type EventStatusUpdater interface {
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error
}

// EventRepository stores outbox events.
type EventRepository interface {
	Repository
	EventStatusUpdater
}

// UserRepository stores users and their role sets.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, query Query) ([]*model.User, error)
	// ListWithin returns located users inside box, closest to the box center first.
	ListWithin(ctx context.Context, box geo.Box, query Query) ([]*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	// LockAdmins locks every active administrator row until the surrounding transaction
	// ends and returns their ids. Deactivated administrators do not count.
	LockAdmins(ctx context.Context) ([]uuid.UUID, error)
}

// VehicleRepository stores vehicles and their service history.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	List(ctx context.Context, query Query) ([]*model.Vehicle, error)
	ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*model.Vehicle, error)
	Update(ctx context.Context, vehicle *model.Vehicle) error
	// AppendServiceRecord adds record to the history, moves last_service_date and never
	// lowers the stored mileage.
	AppendServiceRecord(ctx context.Context, vehicleID uuid.UUID, record model.ServiceRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MechanicProfileRepository stores mechanic profiles. Rating and job counters are only
// changed through ApplyRating and IncrementJobs.
type MechanicProfileRepository interface {
	Create(ctx context.Context, profile *model.MechanicProfile) (*model.MechanicProfile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.MechanicProfile, error)
	// ListWithin returns profiles whose users are located inside box, closest to the box center first.
	ListWithin(ctx context.Context, box geo.Box, query Query) ([]*model.MechanicProfile, error)
	Update(ctx context.Context, profile *model.MechanicProfile) error
	SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error
	ApplyRating(ctx context.Context, userID uuid.UUID, rating int) (*model.MechanicProfile, error)
	IncrementJobs(ctx context.Context, userID uuid.UUID) error
}

// ServiceRequestRepository stores service requests. Status changes are conditional on
// the expected current status and return ErrConflict when it no longer holds.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *model.ServiceRequest) (*model.ServiceRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	List(ctx context.Context, query Query) ([]*model.ServiceRequest, error)
	// ListAvailable returns pending unassigned requests created after since, newest first.
	ListAvailable(ctx context.Context, since time.Time, query Query) ([]*model.ServiceRequest, error)
	// Update writes the client-editable fields while the request is pending.
	Update(ctx context.Context, req *model.ServiceRequest) error
	// Claim assigns mechanicID to a pending unassigned request and marks it accepted.
	Claim(ctx context.Context, id, mechanicID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ServiceRequestStatus, finalCost *float64) error
	SetClientRating(ctx context.Context, id uuid.UUID, rating int) error
	Delete(ctx context.Context, id uuid.UUID) error
	// HasMechanicForVehicle reports whether mechanicID is assigned to any request for vehicleID.
	HasMechanicForVehicle(ctx context.Context, vehicleID, mechanicID uuid.UUID) (bool, error)
}

// Repositories groups the entity stores sharing one executor.
type Repositories interface {
	Users() UserRepository
	Vehicles() VehicleRepository
	MechanicProfiles() MechanicProfileRepository
	ServiceRequests() ServiceRequestRepository
	Events() EventRepository
}

// Transactor runs fn with repositories bound to a single transaction, committing when
// fn returns nil and rolling back otherwise.
type Transactor interface {
	Repositories
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

// UniqueConstraintError represents a database unique constraint violation error.
type UniqueConstraintError struct {
	// Field is the column guarded by the violated constraint, when known.
	Field  string
	Detail string
}

func (u *UniqueConstraintError) Error() string {
	return "resource must be unique: " + u.Detail
}
