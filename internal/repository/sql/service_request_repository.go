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

const serviceRequestColumns = `id, client_id, mechanic_id, vehicle_id, preferred_mechanic_id, title, description,
	service_type, urgency_level, estimated_duration_hours, budget_max, is_emergency, preferred_date, location_address,
	location_notes, location_latitude, location_longitude, status, final_cost, client_rating, created_at, updated_at`

// ServiceRequestRepository stores service requests in the service_requests table.
type ServiceRequestRepository struct {
	base
}

// NewServiceRequestRepository creates a new ServiceRequestRepository instance.
func NewServiceRequestRepository(db *sql.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{base{db: db}}
}

// Create inserts a new service request.
func (r *ServiceRequestRepository) Create(ctx context.Context, req *model.ServiceRequest) (*model.ServiceRequest, error) {
	if req.ID == uuid.Nil {
		req.InitMeta()
	}

	query := `INSERT INTO service_requests (` + serviceRequestColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	_, err := r.exec(ctx, query,
		req.ID, req.ClientID, req.MechanicID, req.VehicleID, req.PreferredMechanicID, req.Title, req.Description,
		req.ServiceType, req.UrgencyLevel, req.EstimatedDurationHours, req.BudgetMax, req.IsEmergency, req.PreferredDate,
		req.LocationAddress, req.LocationNotes, req.LocationLatitude, req.LocationLongitude, req.Status, req.FinalCost,
		req.ClientRating, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert service request: %w", err)
	}

	return req, nil
}

// FindByID retrieves a single service request by ID.
func (r *ServiceRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, `SELECT `+serviceRequestColumns+` FROM service_requests WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	req, err := scanServiceRequest(stmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound(err, "service request")
	}
	return req, nil
}

// List retrieves service requests based on the provided query, newest first.
func (r *ServiceRequestRepository) List(ctx context.Context, query repository.Query) ([]*model.ServiceRequest, error) {
	w := newWhereBuilder(`SELECT ` + serviceRequestColumns + ` FROM service_requests`)
	if err := applyServiceRequestFilters(w, query); err != nil {
		return nil, err
	}
	return r.page(ctx, w, query)
}

// ListAvailable returns pending unassigned requests created after since, newest first.
func (r *ServiceRequestRepository) ListAvailable(ctx context.Context, since time.Time, query repository.Query) ([]*model.ServiceRequest, error) {
	w := newWhereBuilder(`SELECT ` + serviceRequestColumns + ` FROM service_requests`)
	w.and("status = " + w.next(model.StatusPending))
	w.and("mechanic_id IS NULL")
	w.and("created_at >= " + w.next(since))
	if err := applyServiceRequestFilters(w, query); err != nil {
		return nil, err
	}
	return r.page(ctx, w, query)
}

func (r *ServiceRequestRepository) page(ctx context.Context, w *whereBuilder, query repository.Query) ([]*model.ServiceRequest, error) {
	if query.Paginator != nil {
		w.and(fmt.Sprintf("(created_at, id) < (%s, %s)", w.next(query.Paginator.LastCreatedAt), w.next(query.Paginator.LastID)))
	}
	w.raw(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	w.raw(" LIMIT " + w.next(limit))

	var requests []*model.ServiceRequest
	err := r.queryRows(ctx, w.String(), w.args, func(rows *sql.Rows) error {
		req, err := scanServiceRequest(rows)
		if err != nil {
			return fmt.Errorf("failed to scan service request: %w", err)
		}
		requests = append(requests, req)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list service requests: %w", err)
	}
	return requests, nil
}

func applyServiceRequestFilters(w *whereBuilder, query repository.Query) error {
	for _, field := range query.Fields() {
		value := query.Values[field]
		switch field {
		case repository.ClientField, repository.MechanicField:
			id, err := uuid.Parse(value)
			if err != nil {
				return fmt.Errorf("invalid %s format: %w", field, err)
			}
			w.and(string(field) + " = " + w.next(id))
		case repository.StatusField:
			w.and("status = " + w.next(value))
		case repository.UrgencyField:
			w.and("urgency_level = " + w.next(value))
		case repository.SearchField:
			p := w.next("%" + value + "%")
			w.and(fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
		}
	}
	return nil
}

// Update writes the client-editable fields while the request is still pending.
func (r *ServiceRequestRepository) Update(ctx context.Context, req *model.ServiceRequest) error {
	query := `UPDATE service_requests SET vehicle_id = $1, preferred_mechanic_id = $2, title = $3, description = $4,
	          service_type = $5, urgency_level = $6, estimated_duration_hours = $7, budget_max = $8, is_emergency = $9,
	          preferred_date = $10, location_address = $11, location_notes = $12, location_latitude = $13,
	          location_longitude = $14, updated_at = NOW()
	          WHERE id = $15 AND status = 'pending'`

	result, err := r.exec(ctx, query,
		req.VehicleID, req.PreferredMechanicID, req.Title, req.Description, req.ServiceType, req.UrgencyLevel,
		req.EstimatedDurationHours, req.BudgetMax, req.IsEmergency, req.PreferredDate, req.LocationAddress,
		req.LocationNotes, req.LocationLatitude, req.LocationLongitude, req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update service request: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("service request is no longer pending: %w", repository.ErrConflict))
}

// Claim assigns mechanicID to a pending unassigned request and marks it accepted.
// Only one of several concurrent claims matches the row.
func (r *ServiceRequestRepository) Claim(ctx context.Context, id, mechanicID uuid.UUID) error {
	query := `UPDATE service_requests SET mechanic_id = $1, status = 'accepted', updated_at = NOW()
	          WHERE id = $2 AND status = 'pending' AND mechanic_id IS NULL`

	result, err := r.exec(ctx, query, mechanicID, id)
	if err != nil {
		return fmt.Errorf("failed to claim service request: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("service request already claimed: %w", repository.ErrConflict))
}

// UpdateStatus moves the request from one status to another. finalCost, when set,
// is stored alongside.
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ServiceRequestStatus, finalCost *float64) error {
	query := `UPDATE service_requests SET status = $1, final_cost = COALESCE($2, final_cost), updated_at = NOW()
	          WHERE id = $3 AND status = $4`

	result, err := r.exec(ctx, query, to, finalCost, id, from)
	if err != nil {
		return fmt.Errorf("failed to update service request status: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("service request status changed concurrently: %w", repository.ErrConflict))
}

// SetClientRating stores the client's rating once, on a completed request.
func (r *ServiceRequestRepository) SetClientRating(ctx context.Context, id uuid.UUID, rating int) error {
	query := `UPDATE service_requests SET client_rating = $1, updated_at = NOW()
	          WHERE id = $2 AND status = 'completed' AND client_rating IS NULL`

	result, err := r.exec(ctx, query, rating, id)
	if err != nil {
		return fmt.Errorf("failed to rate service request: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("service request already rated: %w", repository.ErrConflict))
}

// Delete deletes a pending or cancelled service request.
func (r *ServiceRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.exec(ctx, `DELETE FROM service_requests WHERE id = $1 AND status IN ('pending', 'cancelled')`, id)
	if err != nil {
		return fmt.Errorf("failed to delete service request: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("service request changed concurrently: %w", repository.ErrConflict))
}

// HasMechanicForVehicle reports whether mechanicID is assigned to a request for vehicleID.
func (r *ServiceRequestRepository) HasMechanicForVehicle(ctx context.Context, vehicleID, mechanicID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM service_requests WHERE vehicle_id = $1 AND mechanic_id = $2)`
	if err := r.queryRow(ctx, query, []any{vehicleID, mechanicID}, &exists); err != nil {
		return false, fmt.Errorf("failed to check vehicle assignment: %w", err)
	}
	return exists, nil
}

func scanServiceRequest(row rowScanner) (*model.ServiceRequest, error) {
	var (
		req                                model.ServiceRequest
		mechanicID, vehicleID, preferredID uuid.NullUUID
		preferredDate                      sql.NullTime
		lat, lon, finalCost                sql.NullFloat64
		clientRating                       sql.NullInt64
	)
	err := row.Scan(
		&req.ID, &req.ClientID, &mechanicID, &vehicleID, &preferredID, &req.Title, &req.Description,
		&req.ServiceType, &req.UrgencyLevel, &req.EstimatedDurationHours, &req.BudgetMax, &req.IsEmergency,
		&preferredDate, &req.LocationAddress, &req.LocationNotes, &lat, &lon, &req.Status, &finalCost,
		&clientRating, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.MechanicID = uuidPtr(mechanicID)
	req.VehicleID = uuidPtr(vehicleID)
	req.PreferredMechanicID = uuidPtr(preferredID)
	req.PreferredDate = timePtr(preferredDate)
	req.LocationLatitude = floatPtr(lat)
	req.LocationLongitude = floatPtr(lon)
	req.FinalCost = floatPtr(finalCost)
	req.ClientRating = intPtr(clientRating)
	return &req, nil
}
