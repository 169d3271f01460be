package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/sqs"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, query repository.Query) ([]*model.User, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) ListWithin(ctx context.Context, box geo.Box, query repository.Query) ([]*model.User, error) {
	args := m.Called(ctx, box, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) LockAdmins(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockVehicleRepository is a mock implementation of repository.VehicleRepository
type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) (*model.Vehicle, error) {
	args := m.Called(ctx, vehicle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) List(ctx context.Context, query repository.Query) ([]*model.Vehicle, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) ListByOwners(ctx context.Context, ownerIDs []uuid.UUID) ([]*model.Vehicle, error) {
	args := m.Called(ctx, ownerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return m.Called(ctx, vehicle).Error(0)
}

func (m *MockVehicleRepository) AppendServiceRecord(ctx context.Context, vehicleID uuid.UUID, record model.ServiceRecord) error {
	return m.Called(ctx, vehicleID, record).Error(0)
}

func (m *MockVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockMechanicProfileRepository is a mock implementation of repository.MechanicProfileRepository
type MockMechanicProfileRepository struct {
	mock.Mock
}

func (m *MockMechanicProfileRepository) Create(ctx context.Context, profile *model.MechanicProfile) (*model.MechanicProfile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MechanicProfile), args.Error(1)
}

func (m *MockMechanicProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.MechanicProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MechanicProfile), args.Error(1)
}

func (m *MockMechanicProfileRepository) ListWithin(ctx context.Context, box geo.Box, query repository.Query) ([]*model.MechanicProfile, error) {
	args := m.Called(ctx, box, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MechanicProfile), args.Error(1)
}

func (m *MockMechanicProfileRepository) Update(ctx context.Context, profile *model.MechanicProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockMechanicProfileRepository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	return m.Called(ctx, userID, verified).Error(0)
}

func (m *MockMechanicProfileRepository) ApplyRating(ctx context.Context, userID uuid.UUID, rating int) (*model.MechanicProfile, error) {
	args := m.Called(ctx, userID, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MechanicProfile), args.Error(1)
}

func (m *MockMechanicProfileRepository) IncrementJobs(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockServiceRequestRepository is a mock implementation of repository.ServiceRequestRepository
type MockServiceRequestRepository struct {
	mock.Mock
}

func (m *MockServiceRequestRepository) Create(ctx context.Context, req *model.ServiceRequest) (*model.ServiceRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestRepository) List(ctx context.Context, query repository.Query) ([]*model.ServiceRequest, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestRepository) ListAvailable(ctx context.Context, since time.Time, query repository.Query) ([]*model.ServiceRequest, error) {
	args := m.Called(ctx, since, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestRepository) Update(ctx context.Context, req *model.ServiceRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockServiceRequestRepository) Claim(ctx context.Context, id, mechanicID uuid.UUID) error {
	return m.Called(ctx, id, mechanicID).Error(0)
}

func (m *MockServiceRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ServiceRequestStatus, finalCost *float64) error {
	return m.Called(ctx, id, from, to, finalCost).Error(0)
}

func (m *MockServiceRequestRepository) SetClientRating(ctx context.Context, id uuid.UUID, rating int) error {
	return m.Called(ctx, id, rating).Error(0)
}

func (m *MockServiceRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockServiceRequestRepository) HasMechanicForVehicle(ctx context.Context, vehicleID, mechanicID uuid.UUID) (bool, error) {
	args := m.Called(ctx, vehicleID, mechanicID)
	return args.Bool(0), args.Error(1)
}

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, resource repository.Resource) (repository.Resource, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockEventRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Resource), args.Error(1)
}

func (m *MockEventRepository) DeleteByID(ctx context.Context, resource repository.Resource) error {
	return m.Called(ctx, resource).Error(0)
}

func (m *MockEventRepository) List(ctx context.Context, query repository.Query) ([]repository.Resource, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Resource), args.Error(1)
}

func (m *MockEventRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status model.EventStatus) error {
	return m.Called(ctx, eventID, status).Error(0)
}

// MockPublisher is a mock implementation of service.MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishServiceRequestMessage(ctx context.Context, msg sqs.ServiceRequestMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// fakeRepos serves the mocks as repository.Transactor. WithinTransaction runs fn against
// the same mocks and counts commits and rollbacks.
type fakeRepos struct {
	users     *MockUserRepository
	vehicles  *MockVehicleRepository
	profiles  *MockMechanicProfileRepository
	requests  *MockServiceRequestRepository
	events    *MockEventRepository
	commits   int
	rollbacks int
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		users:    new(MockUserRepository),
		vehicles: new(MockVehicleRepository),
		profiles: new(MockMechanicProfileRepository),
		requests: new(MockServiceRequestRepository),
		events:   new(MockEventRepository),
	}
}

func (f *fakeRepos) Users() repository.UserRepository                       { return f.users }
func (f *fakeRepos) Vehicles() repository.VehicleRepository                 { return f.vehicles }
func (f *fakeRepos) MechanicProfiles() repository.MechanicProfileRepository { return f.profiles }
func (f *fakeRepos) ServiceRequests() repository.ServiceRequestRepository   { return f.requests }
func (f *fakeRepos) Events() repository.EventRepository                     { return f.events }

func (f *fakeRepos) WithinTransaction(_ context.Context, fn func(repos repository.Repositories) error) error {
	if err := fn(f); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

func (f *fakeRepos) assertExpectations(t mock.TestingT) {
	f.users.AssertExpectations(t)
	f.vehicles.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
	f.requests.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func newUser(roles ...model.Role) *model.User {
	return &model.User{ID: uuid.New(), Name: "Test User", Email: "test@example.com", IsActive: true, Roles: model.NewRoleSet(roles...)}
}

func locatedUser(lat, lon float64, roles ...model.Role) *model.User {
	u := newUser(roles...)
	u.SetLocation(geo.Point{Latitude: lat, Longitude: lon}, time.Now())
	return u
}
