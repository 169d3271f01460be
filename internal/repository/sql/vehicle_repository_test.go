package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vehicleRowColumns = []string{
	"id", "user_id", "make", "model", "year", "color", "engine_size", "fuel_type", "transmission_type", "mileage",
	"license_plate", "vin", "last_service_date", "next_service_due", "insurance_company", "insurance_policy_number",
	"notes", "service_history", "is_active", "created_at", "updated_at",
}

func TestVehicleRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	ctx := context.Background()
	newVehicle := func() *model.Vehicle {
		return &model.Vehicle{
			UserID:           uuid.New(),
			Make:             "Toyota",
			Model:            "Corolla",
			Year:             2020,
			FuelType:         model.FuelGasoline,
			TransmissionType: model.TransmissionAutomatic,
			LicensePlate:     "ABC-123",
			IsActive:         true,
		}
	}

	t.Run("successful creation stores an empty history", func(t *testing.T) {
		vehicle := newVehicle()

		mock.ExpectPrepare("INSERT INTO vehicles").
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), vehicle.UserID, "Toyota", "Corolla", 2020, "", "", "gasoline", "automatic", 0,
				"ABC-123", nil, nil, nil, "", "", "", []byte("[]"), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		created, err := repo.Create(ctx, vehicle)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate license plate", func(t *testing.T) {
		mock.ExpectPrepare("INSERT INTO vehicles").
			ExpectExec().
			WillReturnError(&pq.Error{Code: "23505", Constraint: "vehicles_license_plate_key"})

		_, err := repo.Create(ctx, newVehicle())

		var uniqueErr *repository.UniqueConstraintError
		require.True(t, errors.As(err, &uniqueErr))
		assert.Equal(t, "license_plate", uniqueErr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVehicleRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	id := uuid.New()
	now := time.Now()
	history := []byte(`[{"date":"2025-01-10T00:00:00Z","description":"Oil change","mileage":42000}]`)

	rows := sqlmock.NewRows(vehicleRowColumns).
		AddRow(id.String(), uuid.NewString(), "Toyota", "Corolla", 2020, "red", "1.8L", "gasoline", "automatic", 42000,
			"ABC-123", "1HGCM82633A004352", now, nil, "", "", "", history, true, now, now)

	mock.ExpectPrepare(regexp.QuoteMeta("FROM vehicles WHERE id = $1")).
		ExpectQuery().
		WithArgs(id).
		WillReturnRows(rows)

	vehicle, err := repo.FindByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, model.FuelGasoline, vehicle.FuelType)
	require.NotNil(t, vehicle.VIN)
	assert.Equal(t, "1HGCM82633A004352", *vehicle.VIN)
	assert.Nil(t, vehicle.NextServiceDue)
	require.Len(t, vehicle.ServiceHistory, 1)
	assert.Equal(t, "Oil change", vehicle.ServiceHistory[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_ListByOwners(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	ctx := context.Background()

	t.Run("no owners skips the query", func(t *testing.T) {
		vehicles, err := repo.ListByOwners(ctx, nil)

		require.NoError(t, err)
		assert.Nil(t, vehicles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by owner ids", func(t *testing.T) {
		owner := uuid.New()

		mock.ExpectPrepare(regexp.QuoteMeta("WHERE user_id = ANY($1::uuid[]) AND is_active = TRUE")).
			ExpectQuery().
			WithArgs(pq.Array([]string{owner.String()})).
			WillReturnRows(sqlmock.NewRows(vehicleRowColumns))

		vehicles, err := repo.ListByOwners(ctx, []uuid.UUID{owner})

		require.NoError(t, err)
		assert.Empty(t, vehicles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVehicleRepository_AppendServiceRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	ctx := context.Background()
	vehicleID := uuid.New()
	record := model.ServiceRecord{
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "Brake pads",
		Mileage:     45000,
	}

	t.Run("appends in one statement", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("service_history = service_history || $1::jsonb")).
			ExpectExec().
			WithArgs(sqlmock.AnyArg(), record.Date, 45000, vehicleID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AppendServiceRecord(ctx, vehicleID, record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("vehicle not found", func(t *testing.T) {
		mock.ExpectPrepare("UPDATE vehicles SET service_history").
			ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AppendServiceRecord(ctx, vehicleID, record)

		assert.True(t, errors.Is(err, repository.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
