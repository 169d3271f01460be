package controller

import (
	"context"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/service"
	"github.com/stretchr/testify/mock"
)

func ret[T any](args mock.Arguments, i int) T {
	var zero T
	if v := args.Get(i); v != nil {
		return v.(T)
	}
	return zero
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in service.RegisterInput) (*model.User, string, error) {
	args := m.Called(ctx, in)
	return ret[*model.User](args, 0), args.String(1), args.Error(2)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	args := m.Called(ctx, email, password)
	return ret[*model.User](args, 0), args.String(1), args.Error(2)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, actor *model.User, in service.ProfileInput) (*model.User, error) {
	args := m.Called(ctx, actor, in)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockUserService) UpdateLocation(ctx context.Context, actor *model.User, lat, lon float64) (*model.User, error) {
	args := m.Called(ctx, actor, lat, lon)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockUserService) NearbyUsers(ctx context.Context, actor *model.User, in service.NearbyUsersInput) ([]search.Result[*model.User], error) {
	args := m.Called(ctx, actor, in)
	return ret[[]search.Result[*model.User]](args, 0), args.Error(1)
}

type MockVehicleService struct {
	mock.Mock
}

func (m *MockVehicleService) Create(ctx context.Context, actor *model.User, in service.VehicleInput) (*model.Vehicle, error) {
	args := m.Called(ctx, actor, in)
	return ret[*model.Vehicle](args, 0), args.Error(1)
}

func (m *MockVehicleService) List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.Vehicle, error) {
	args := m.Called(ctx, actor, query)
	return ret[[]*model.Vehicle](args, 0), args.Error(1)
}

func (m *MockVehicleService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Vehicle, error) {
	args := m.Called(ctx, actor, id)
	return ret[*model.Vehicle](args, 0), args.Error(1)
}

func (m *MockVehicleService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.VehicleInput) (*model.Vehicle, error) {
	args := m.Called(ctx, actor, id, in)
	return ret[*model.Vehicle](args, 0), args.Error(1)
}

func (m *MockVehicleService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockVehicleService) AddServiceRecord(ctx context.Context, actor *model.User, id uuid.UUID, in service.ServiceRecordInput) (*model.Vehicle, error) {
	args := m.Called(ctx, actor, id, in)
	return ret[*model.Vehicle](args, 0), args.Error(1)
}

func (m *MockVehicleService) Nearby(ctx context.Context, actor *model.User, in service.NearbyVehiclesInput) ([]search.Result[*model.Vehicle], error) {
	args := m.Called(ctx, actor, in)
	return ret[[]search.Result[*model.Vehicle]](args, 0), args.Error(1)
}

type MockMechanicService struct {
	mock.Mock
}

func (m *MockMechanicService) GetProfile(ctx context.Context, actor *model.User) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}

func (m *MockMechanicService) CreateProfile(ctx context.Context, actor *model.User, in service.MechanicProfileInput) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor, in)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}

func (m *MockMechanicService) UpdateProfile(ctx context.Context, actor *model.User, in service.MechanicProfileInput) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor, in)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}

func (m *MockMechanicService) SetAvailability(ctx context.Context, actor *model.User, available, emergency *bool) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor, available, emergency)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}

func (m *MockMechanicService) Estimate(ctx context.Context, actor *model.User, hours float64) (float64, error) {
	args := m.Called(ctx, actor, hours)
	return ret[float64](args, 0), args.Error(1)
}

func (m *MockMechanicService) PublicProfile(ctx context.Context, actor *model.User, userID uuid.UUID) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor, userID)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}

func (m *MockMechanicService) Nearby(ctx context.Context, actor *model.User, in service.MechanicSearchInput) ([]search.Result[*model.MechanicProfile], error) {
	args := m.Called(ctx, actor, in)
	return ret[[]search.Result[*model.MechanicProfile]](args, 0), args.Error(1)
}

type MockServiceRequestService struct {
	mock.Mock
}

func (m *MockServiceRequestService) Create(ctx context.Context, actor *model.User, in service.ServiceRequestInput) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, in)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, query)
	return ret[[]*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Available(ctx context.Context, actor *model.User, in service.AvailableInput) ([]service.AvailableRequest, string, error) {
	args := m.Called(ctx, actor, in)
	return ret[[]service.AvailableRequest](args, 0), args.String(1), args.Error(2)
}

func (m *MockServiceRequestService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, id)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Distance(ctx context.Context, actor *model.User, id uuid.UUID) (*service.DistanceInfo, error) {
	args := m.Called(ctx, actor, id)
	return ret[*service.DistanceInfo](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.ServiceRequestInput) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, id, in)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockServiceRequestService) Accept(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, id)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Reject(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, id)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Transition(ctx context.Context, actor *model.User, id uuid.UUID, to model.ServiceRequestStatus, finalCost *float64) (*model.ServiceRequest, error) {
	args := m.Called(ctx, actor, id, to, finalCost)
	return ret[*model.ServiceRequest](args, 0), args.Error(1)
}

func (m *MockServiceRequestService) Rate(ctx context.Context, actor *model.User, id uuid.UUID, rating int) (*model.ServiceRequest, *model.MechanicProfile, error) {
	args := m.Called(ctx, actor, id, rating)
	return ret[*model.ServiceRequest](args, 0), ret[*model.MechanicProfile](args, 1), args.Error(2)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListUsers(ctx context.Context, actor *model.User, query repository.Query) ([]*model.User, error) {
	args := m.Called(ctx, actor, query)
	return ret[[]*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) UpdateUser(ctx context.Context, actor *model.User, id uuid.UUID, in service.AdminUserInput) (*model.User, error) {
	args := m.Called(ctx, actor, id, in)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockAdminService) AssignRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error) {
	args := m.Called(ctx, actor, id, role)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) RemoveRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error) {
	args := m.Called(ctx, actor, id, role)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) SetStatus(ctx context.Context, actor *model.User, id uuid.UUID, active *bool) (*model.User, error) {
	args := m.Called(ctx, actor, id, active)
	return ret[*model.User](args, 0), args.Error(1)
}

func (m *MockAdminService) VerifyMechanic(ctx context.Context, actor *model.User, userID uuid.UUID, verified bool) (*model.MechanicProfile, error) {
	args := m.Called(ctx, actor, userID, verified)
	return ret[*model.MechanicProfile](args, 0), args.Error(1)
}
