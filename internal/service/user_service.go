package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/auth"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
)

const minPasswordLength = 8

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     model.Role
}

// ProfileInput carries the user-editable profile fields. Nil fields are left unchanged.
type ProfileInput struct {
	Name       *string
	Phone      *string
	Address    *string
	City       *string
	State      *string
	PostalCode *string
}

// NearbyUsersInput filters a nearby-users search.
type NearbyUsersInput struct {
	RadiusKm float64
	Role     model.Role
	Limit    int
}

// UserService handles registration, login and the acting user's own account.
type UserService struct {
	repos  repository.Repositories
	tokens *auth.TokenService
	now    Clock
}

// NewUserService creates a new UserService.
func NewUserService(repos repository.Repositories, tokens *auth.TokenService) *UserService {
	return &UserService{repos: repos, tokens: tokens, now: time.Now}
}

// Register creates an active user with a client or mechanic role and returns a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	if in.Role == "" {
		in.Role = model.RoleClient
	}
	email := normalizeEmail(in.Email)

	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if in.Role != model.RoleClient && in.Role != model.RoleMechanic {
		fields["role"] = "must be cliente or mecanico"
	}
	if len(fields) > 0 {
		return nil, "", &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.repos.Users().Create(ctx, &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Phone:        in.Phone,
		IsActive:     true,
		Roles:        model.NewRoleSet(in.Role),
	})
	if err != nil {
		return nil, "", translate(err, "user")
	}

	metrics.UsersRegistered.WithLabelValues(string(in.Role)).Inc()
	slog.Info("user registered", slog.String("user_id", user.ID.String()), slog.String("role", string(in.Role)))

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns a fresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.repos.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperror.NewUnauthenticated("invalid credentials")
		}
		return nil, "", translate(err, "user")
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, "", apperror.NewUnauthenticated("invalid credentials")
	}
	if !user.IsActive {
		return nil, "", apperror.NewAuthorization("your account is deactivated")
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperror.NewUnauthenticated("token expired")
		}
		return nil, apperror.NewUnauthenticated("invalid token")
	}

	user, err := s.repos.Users().FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewUnauthenticated("user not found")
		}
		return nil, translate(err, "user")
	}
	if !user.IsActive {
		return nil, apperror.NewAuthorization("your account is deactivated")
	}
	return user, nil
}

// UpdateProfile changes the acting user's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.User, in ProfileInput) (*model.User, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}

	user, err := s.repos.Users().FindByID(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, "user")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.NewFieldValidation("name", "is required")
		}
		user.Name = name
	}
	setIfPresent(&user.Phone, in.Phone)
	setIfPresent(&user.Address, in.Address)
	setIfPresent(&user.City, in.City)
	setIfPresent(&user.State, in.State)
	setIfPresent(&user.PostalCode, in.PostalCode)

	if err := s.repos.Users().Update(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// UpdateLocation stores the acting user's coordinates.
func (s *UserService) UpdateLocation(ctx context.Context, actor *model.User, lat, lon float64) (*model.User, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	p, err := geo.NewPoint(lat, lon)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users().FindByID(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, "user")
	}
	user.SetLocation(p, s.now())

	if err := s.repos.Users().Update(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	return user, nil
}

// NearbyUsers returns active users around the acting user, closest first.
func (s *UserService) NearbyUsers(ctx context.Context, actor *model.User, in NearbyUsersInput) ([]search.Result[*model.User], error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	origin, err := search.Origin(actor)
	if err != nil {
		return nil, err
	}
	radius, err := search.NormalizeRadius(in.RadiusKm, search.DefaultUserRadiusKm)
	if err != nil {
		return nil, err
	}

	query := repository.NewQuery().With(repository.ActiveField, "true")
	filters := []search.Filter[*model.User]{search.ExcludeUser(actor.ID), search.ActiveUsers()}
	if in.Role != "" {
		if !in.Role.Valid() {
			return nil, apperror.NewFieldValidation("role", "is invalid")
		}
		query.With(repository.RoleField, string(in.Role))
		filters = append(filters, search.WithRole(in.Role))
	}

	candidates, err := s.repos.Users().ListWithin(ctx, geo.BoundingBox(origin, radius), *query)
	if err != nil {
		return nil, translate(err, "user")
	}

	results, err := search.FindNearby(origin, radius, candidates, search.UserLocation, filters...)
	if err != nil {
		return nil, err
	}
	results = search.Truncate(results, search.NormalizeLimit(in.Limit))
	metrics.ProximityResults.WithLabelValues("users").Observe(float64(len(results)))
	return results, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
