package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
)

// VehicleInput carries the owner-editable vehicle fields. On update nil fields are left unchanged.
type VehicleInput struct {
	Make                  *string
	Model                 *string
	Year                  *int
	Color                 *string
	EngineSize            *string
	FuelType              *model.FuelType
	TransmissionType      *model.Transmission
	Mileage               *int
	LicensePlate          *string
	VIN                   *string
	LastServiceDate       *time.Time
	NextServiceDue        *time.Time
	InsuranceCompany      *string
	InsurancePolicyNumber *string
	Notes                 *string
	IsActive              *bool
}

// ServiceRecordInput is a new service-history entry.
type ServiceRecordInput struct {
	Date             *time.Time
	Description      string
	Mileage          int
	Cost             float64
	ServiceRequestID *uuid.UUID
}

// NearbyVehiclesInput filters a nearby-vehicles search.
type NearbyVehiclesInput struct {
	RadiusKm float64
	Limit    int
}

// VehicleService manages vehicles and their service history.
type VehicleService struct {
	repos repository.Repositories
	now   Clock
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(repos repository.Repositories) *VehicleService {
	return &VehicleService{repos: repos, now: time.Now}
}

// Create registers a vehicle owned by the acting client.
func (s *VehicleService) Create(ctx context.Context, actor *model.User, in VehicleInput) (*model.Vehicle, error) {
	if err := access.Require(actor, access.Clients); err != nil {
		return nil, err
	}

	v := &model.Vehicle{UserID: actor.ID, IsActive: true}
	in.apply(v)
	v.Normalize()
	if err := v.Validate(s.now()); err != nil {
		return nil, err
	}

	created, err := s.repos.Vehicles().Create(ctx, v)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	metrics.VehiclesRegistered.Inc()
	return created, nil
}

// List returns the acting user's vehicles; administrators see every vehicle.
func (s *VehicleService) List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.Vehicle, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		query.With(repository.OwnerField, actor.ID.String())
	}

	vehicles, err := s.repos.Vehicles().List(ctx, query)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	return vehicles, nil
}

// Get returns a vehicle to its owner, an administrator or a mechanic assigned to one of
// its service requests.
func (s *VehicleService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Vehicle, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Update edits a vehicle owned by the acting user, or any vehicle for administrators.
func (s *VehicleService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in VehicleInput) (*model.Vehicle, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.OwnerOrAdmin(actor, v.UserID); err != nil {
		return nil, err
	}

	in.apply(v)
	v.Normalize()
	if err := v.Validate(s.now()); err != nil {
		return nil, err
	}

	if err := s.repos.Vehicles().Update(ctx, v); err != nil {
		return nil, translate(err, "vehicle")
	}
	return v, nil
}

// Delete removes a vehicle owned by the acting user, or any vehicle for administrators.
func (s *VehicleService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	v, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.OwnerOrAdmin(actor, v.UserID); err != nil {
		return err
	}
	return translate(s.repos.Vehicles().Delete(ctx, id), "vehicle")
}

// AddServiceRecord appends to the vehicle's service history. The owner and mechanics
// assigned to one of the vehicle's requests may add records.
func (s *VehicleService) AddServiceRecord(ctx context.Context, actor *model.User, id uuid.UUID, in ServiceRecordInput) (*model.Vehicle, error) {
	v, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := v.UserID == actor.ID
	if !isOwner {
		assigned, err := s.assignedMechanic(ctx, actor, v.ID)
		if err != nil {
			return nil, err
		}
		if !assigned {
			return nil, apperror.NewAuthorization("only the owner or an assigned mechanic can add service records")
		}
	}

	fields := map[string]string{}
	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "is required"
	}
	if in.Mileage < 0 {
		fields["mileage"] = "must not be negative"
	}
	if in.Cost < 0 {
		fields["cost"] = "must not be negative"
	}
	if in.Date != nil && in.Date.After(s.now()) {
		fields["date"] = "must not be in the future"
	}
	if len(fields) > 0 {
		return nil, &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}

	record := model.ServiceRecord{
		Date:             s.now().UTC().Truncate(time.Second),
		Description:      strings.TrimSpace(in.Description),
		Mileage:          in.Mileage,
		Cost:             in.Cost,
		ServiceRequestID: in.ServiceRequestID,
	}
	if in.Date != nil {
		record.Date = *in.Date
	}
	if !isOwner {
		performer := actor.ID
		record.PerformedBy = &performer
	}

	if err := s.repos.Vehicles().AppendServiceRecord(ctx, v.ID, record); err != nil {
		return nil, translate(err, "vehicle")
	}
	return s.find(ctx, id)
}

// Nearby returns vehicles whose owners are located within the radius of the acting
// mechanic, closest owner first. The radius defaults to the mechanic's travel radius.
func (s *VehicleService) Nearby(ctx context.Context, actor *model.User, in NearbyVehiclesInput) ([]search.Result[*model.Vehicle], error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, err
	}
	origin, err := search.Origin(actor)
	if err != nil {
		return nil, err
	}

	defaultRadius, err := travelRadius(ctx, s.repos, actor.ID)
	if err != nil {
		return nil, err
	}
	radius, err := search.NormalizeRadius(in.RadiusKm, defaultRadius)
	if err != nil {
		return nil, err
	}

	query := repository.NewQuery().With(repository.ActiveField, "true")
	candidates, err := s.repos.Users().ListWithin(ctx, geo.BoundingBox(origin, radius), *query)
	if err != nil {
		return nil, translate(err, "user")
	}
	owners, err := search.FindNearby(origin, radius, candidates, search.UserLocation,
		search.ExcludeUser(actor.ID), search.ActiveUsers())
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return []search.Result[*model.Vehicle]{}, nil
	}

	ids := make([]uuid.UUID, len(owners))
	for i, o := range owners {
		ids[i] = o.Item.ID
	}
	vehicles, err := s.repos.Vehicles().ListByOwners(ctx, ids)
	if err != nil {
		return nil, translate(err, "vehicle")
	}

	byOwner := make(map[uuid.UUID][]*model.Vehicle, len(owners))
	for _, v := range vehicles {
		byOwner[v.UserID] = append(byOwner[v.UserID], v)
	}

	results := make([]search.Result[*model.Vehicle], 0, len(vehicles))
	for _, o := range owners {
		for _, v := range byOwner[o.Item.ID] {
			v.Owner = o.Item
			results = append(results, search.Result[*model.Vehicle]{Item: v, DistanceKm: o.DistanceKm})
		}
	}
	results = search.Truncate(results, search.NormalizeLimit(in.Limit))
	metrics.ProximityResults.WithLabelValues("vehicles").Observe(float64(len(results)))
	return results, nil
}

func (s *VehicleService) find(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	v, err := s.repos.Vehicles().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	return v, nil
}

func (s *VehicleService) authorizeRead(ctx context.Context, actor *model.User, v *model.Vehicle) error {
	if access.OwnerOrAdmin(actor, v.UserID) == nil {
		return nil
	}
	assigned, err := s.assignedMechanic(ctx, actor, v.ID)
	if err != nil {
		return err
	}
	if !assigned {
		return apperror.NewAuthorization("you do not have access to this vehicle")
	}
	return nil
}

func (s *VehicleService) assignedMechanic(ctx context.Context, actor *model.User, vehicleID uuid.UUID) (bool, error) {
	if !actor.HasRole(model.RoleMechanic) {
		return false, nil
	}
	assigned, err := s.repos.ServiceRequests().HasMechanicForVehicle(ctx, vehicleID, actor.ID)
	if err != nil {
		return false, translate(err, "service request")
	}
	return assigned, nil
}

// travelRadius returns the mechanic's configured travel radius, or the default when the
// mechanic has no profile yet.
func travelRadius(ctx context.Context, repos repository.Repositories, userID uuid.UUID) (float64, error) {
	profile, err := repos.MechanicProfiles().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultTravelRadius, nil
		}
		return 0, translate(err, "mechanic profile")
	}
	return float64(profile.TravelRadius), nil
}

func (in VehicleInput) apply(v *model.Vehicle) {
	setIfPresent(&v.Make, in.Make)
	setIfPresent(&v.Model, in.Model)
	setIfPresent(&v.Color, in.Color)
	setIfPresent(&v.EngineSize, in.EngineSize)
	setIfPresent(&v.LicensePlate, in.LicensePlate)
	setIfPresent(&v.InsuranceCompany, in.InsuranceCompany)
	setIfPresent(&v.InsurancePolicyNumber, in.InsurancePolicyNumber)
	setIfPresent(&v.Notes, in.Notes)
	if in.Year != nil {
		v.Year = *in.Year
	}
	if in.FuelType != nil {
		v.FuelType = *in.FuelType
	}
	if in.TransmissionType != nil {
		v.TransmissionType = *in.TransmissionType
	}
	if in.Mileage != nil {
		v.Mileage = *in.Mileage
	}
	if in.VIN != nil {
		vin := *in.VIN
		v.VIN = &vin
	}
	if in.LastServiceDate != nil {
		v.LastServiceDate = in.LastServiceDate
	}
	if in.NextServiceDue != nil {
		v.NextServiceDue = in.NextServiceDue
	}
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}
}
