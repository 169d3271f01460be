package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/lib/pq"
)

const vehicleColumns = `id, user_id, make, model, year, color, engine_size, fuel_type, transmission_type, mileage,
	license_plate, vin, last_service_date, next_service_due, insurance_company, insurance_policy_number, notes,
	service_history, is_active, created_at, updated_at`

// VehicleRepository stores vehicles in the vehicles table.
type VehicleRepository struct {
	base
}

// NewVehicleRepository creates a new VehicleRepository instance.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{base{db: db}}
}

// Create inserts a new vehicle. Duplicate plates or VINs yield a UniqueConstraintError.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	if vehicle.ID == uuid.Nil {
		vehicle.InitMeta()
	}

	history, err := marshalHistory(vehicle.ServiceHistory)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO vehicles (` + vehicleColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err = r.exec(ctx, query,
		vehicle.ID, vehicle.UserID, vehicle.Make, vehicle.Model, vehicle.Year, vehicle.Color, vehicle.EngineSize,
		vehicle.FuelType, vehicle.TransmissionType, vehicle.Mileage, vehicle.LicensePlate, vehicle.VIN,
		vehicle.LastServiceDate, vehicle.NextServiceDue, vehicle.InsuranceCompany, vehicle.InsurancePolicyNumber,
		vehicle.Notes, history, vehicle.IsActive, vehicle.CreatedAt, vehicle.UpdatedAt,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("failed to insert vehicle: %w", err)
	}

	return vehicle, nil
}

// FindByID retrieves a single vehicle by ID.
func (r *VehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	vehicle, err := scanVehicle(stmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound(err, "vehicle")
	}
	return vehicle, nil
}

// List retrieves vehicles based on the provided query, newest first.
func (r *VehicleRepository) List(ctx context.Context, query repository.Query) ([]*model.Vehicle, error) {
	w := newWhereBuilder(`SELECT ` + vehicleColumns + ` FROM vehicles`)
	for _, field := range query.Fields() {
		value := query.Values[field]
		switch field {
		case repository.OwnerField:
			ownerID, err := uuid.Parse(value)
			if err != nil {
				return nil, fmt.Errorf("invalid owner ID format: %w", err)
			}
			w.and("user_id = " + w.next(ownerID))
		case repository.ActiveField:
			active, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid is_active value: %w", err)
			}
			w.and("is_active = " + w.next(active))
		case repository.SearchField:
			p := w.next("%" + value + "%")
			w.and(fmt.Sprintf("(make ILIKE %s OR model ILIKE %s OR license_plate ILIKE %s)", p, p, p))
		}
	}

	if query.Paginator != nil {
		w.and(fmt.Sprintf("(created_at, id) < (%s, %s)", w.next(query.Paginator.LastCreatedAt), w.next(query.Paginator.LastID)))
	}
	w.raw(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	w.raw(" LIMIT " + w.next(limit))

	return r.list(ctx, w.String(), w.args)
}

// ListByOwners returns the active vehicles of the given users ordered by owner and id.
func (r *VehicleRepository) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*model.Vehicle, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(ownerIDs))
	for i, id := range ownerIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles
	          WHERE user_id = ANY($1::uuid[]) AND is_active = TRUE
	          ORDER BY user_id, id`
	return r.list(ctx, query, []any{pq.Array(ids)})
}

func (r *VehicleRepository) list(ctx context.Context, query string, args []any) ([]*model.Vehicle, error) {
	var vehicles []*model.Vehicle
	err := r.queryRows(ctx, query, args, func(rows *sql.Rows) error {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, vehicle)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// Update writes the owner-editable columns.
func (r *VehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	query := `UPDATE vehicles SET make = $1, model = $2, year = $3, color = $4, engine_size = $5, fuel_type = $6,
	          transmission_type = $7, mileage = $8, license_plate = $9, vin = $10, last_service_date = $11,
	          next_service_due = $12, insurance_company = $13, insurance_policy_number = $14, notes = $15,
	          is_active = $16, updated_at = NOW()
	          WHERE id = $17`

	result, err := r.exec(ctx, query,
		vehicle.Make, vehicle.Model, vehicle.Year, vehicle.Color, vehicle.EngineSize, vehicle.FuelType,
		vehicle.TransmissionType, vehicle.Mileage, vehicle.LicensePlate, vehicle.VIN, vehicle.LastServiceDate,
		vehicle.NextServiceDue, vehicle.InsuranceCompany, vehicle.InsurancePolicyNumber, vehicle.Notes,
		vehicle.IsActive, vehicle.ID,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return uniqueErr
		}
		return fmt.Errorf("failed to update vehicle: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("vehicle not found: %w", repository.ErrNotFound))
}

// AppendServiceRecord adds record to the history in a single statement.
func (r *VehicleRepository) AppendServiceRecord(ctx context.Context, vehicleID uuid.UUID, record model.ServiceRecord) error {
	entry, err := json.Marshal([]model.ServiceRecord{record})
	if err != nil {
		return fmt.Errorf("failed to marshal service record: %w", err)
	}

	query := `UPDATE vehicles SET service_history = service_history || $1::jsonb,
	          last_service_date = GREATEST(COALESCE(last_service_date, $2), $2),
	          mileage = GREATEST(mileage, $3), updated_at = NOW()
	          WHERE id = $4`

	result, err := r.exec(ctx, query, entry, record.Date, record.Mileage, vehicleID)
	if err != nil {
		return fmt.Errorf("failed to append service record: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("vehicle not found: %w", repository.ErrNotFound))
}

// Delete deletes a vehicle by ID.
func (r *VehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("vehicle not found: %w", repository.ErrNotFound))
}

func marshalHistory(history []model.ServiceRecord) ([]byte, error) {
	if history == nil {
		history = []model.ServiceRecord{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service history: %w", err)
	}
	return data, nil
}

func scanVehicle(row rowScanner) (*model.Vehicle, error) {
	var (
		vehicle                     model.Vehicle
		vin                         sql.NullString
		lastService, nextServiceDue sql.NullTime
		history                     []byte
	)
	err := row.Scan(
		&vehicle.ID, &vehicle.UserID, &vehicle.Make, &vehicle.Model, &vehicle.Year, &vehicle.Color, &vehicle.EngineSize,
		&vehicle.FuelType, &vehicle.TransmissionType, &vehicle.Mileage, &vehicle.LicensePlate, &vin,
		&lastService, &nextServiceDue, &vehicle.InsuranceCompany, &vehicle.InsurancePolicyNumber, &vehicle.Notes,
		&history, &vehicle.IsActive, &vehicle.CreatedAt, &vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vin.Valid {
		vehicle.VIN = &vin.String
	}
	vehicle.LastServiceDate = timePtr(lastService)
	vehicle.NextServiceDue = timePtr(nextServiceDue)
	vehicle.ServiceHistory = []model.ServiceRecord{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &vehicle.ServiceHistory); err != nil {
			return nil, fmt.Errorf("failed to decode service history: %w", err)
		}
	}
	return &vehicle, nil
}
