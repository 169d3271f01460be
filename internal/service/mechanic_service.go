package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
)

// MechanicProfileInput carries the mechanic-editable profile fields. On update nil fields
// are left unchanged. Verification and the rating counters are not editable here.
type MechanicProfileInput struct {
	Specializations      *[]model.Specialization
	ExperienceYears      *int
	HourlyRate           *float64
	MinimumServiceFee    *float64
	TravelRadius         *int
	EmergencyAvailable   *bool
	IsAvailable          *bool
	AvailabilitySchedule json.RawMessage
	Bio                  *string
	Certifications       *[]string
	ToolsOwned           *[]string
	AcceptsWeekendJobs   *bool
	AcceptsNightJobs     *bool
}

// MechanicSearchInput filters a nearby-mechanics search.
type MechanicSearchInput struct {
	RadiusKm       float64
	Specialization model.Specialization
	VerifiedOnly   bool
	MaxRate        *float64
	MinRating      *float64
	EmergencyOnly  bool
	Limit          int
}

// MechanicService manages mechanic profiles and mechanic discovery.
type MechanicService struct {
	repos repository.Repositories
}

// NewMechanicService creates a new MechanicService.
func NewMechanicService(repos repository.Repositories) *MechanicService {
	return &MechanicService{repos: repos}
}

// GetProfile returns the acting mechanic's own profile.
func (s *MechanicService) GetProfile(ctx context.Context, actor *model.User) (*model.MechanicProfile, error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, err
	}
	return s.find(ctx, actor.ID)
}

// CreateProfile creates the acting mechanic's profile. A user has at most one profile.
func (s *MechanicService) CreateProfile(ctx context.Context, actor *model.User, in MechanicProfileInput) (*model.MechanicProfile, error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, err
	}

	_, err := s.repos.MechanicProfiles().FindByUserID(ctx, actor.ID)
	switch {
	case err == nil:
		return nil, apperror.NewConflict("a mechanic profile already exists for this user")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, translate(err, "mechanic profile")
	}

	profile := &model.MechanicProfile{
		UserID:       actor.ID,
		IsAvailable:  true,
		TravelRadius: model.DefaultTravelRadius,
	}
	in.apply(profile)
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repos.MechanicProfiles().Create(ctx, profile)
	if err != nil {
		var uniqueErr *repository.UniqueConstraintError
		if errors.As(err, &uniqueErr) {
			return nil, apperror.NewConflict("a mechanic profile already exists for this user")
		}
		return nil, translate(err, "mechanic profile")
	}
	created.User = actor
	return created, nil
}

// UpdateProfile edits the acting mechanic's profile.
func (s *MechanicService) UpdateProfile(ctx context.Context, actor *model.User, in MechanicProfileInput) (*model.MechanicProfile, error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, err
	}
	profile, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	in.apply(profile)
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.MechanicProfiles().Update(ctx, profile); err != nil {
		return nil, translate(err, "mechanic profile")
	}
	return profile, nil
}

// SetAvailability changes the availability flags of the acting mechanic.
func (s *MechanicService) SetAvailability(ctx context.Context, actor *model.User, available, emergency *bool) (*model.MechanicProfile, error) {
	if available == nil && emergency == nil {
		return nil, apperror.NewFieldValidation("is_available", "is required")
	}
	return s.UpdateProfile(ctx, actor, MechanicProfileInput{IsAvailable: available, EmergencyAvailable: emergency})
}

// Estimate returns the acting mechanic's price for a job of the given hours.
func (s *MechanicService) Estimate(ctx context.Context, actor *model.User, hours float64) (float64, error) {
	if hours < model.MinEstimatedDurationHours || hours > model.MaxEstimatedDurationHours {
		return 0, apperror.NewFieldValidation("hours", "must be between 0.5 and 48")
	}
	profile, err := s.GetProfile(ctx, actor)
	if err != nil {
		return 0, err
	}
	return profile.EstimateCost(hours), nil
}

// PublicProfile returns the profile of an active mechanic.
func (s *MechanicService) PublicProfile(ctx context.Context, actor *model.User, userID uuid.UUID) (*model.MechanicProfile, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	profile, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.User == nil || !profile.User.IsActive {
		return nil, apperror.NewNotFound("mechanic profile")
	}
	return profile, nil
}

// Nearby returns available mechanics around the acting user, closest first.
func (s *MechanicService) Nearby(ctx context.Context, actor *model.User, in MechanicSearchInput) ([]search.Result[*model.MechanicProfile], error) {
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
	filters := []search.Filter[*model.MechanicProfile]{
		search.ExcludeMechanic(actor.ID),
		search.ActiveMechanics(),
		search.AvailableOnly(),
	}
	if in.Specialization != "" {
		if !in.Specialization.Valid() {
			return nil, apperror.NewFieldValidation("specialty", "is invalid")
		}
		filters = append(filters, search.WithSpecialization(in.Specialization))
	}
	if in.VerifiedOnly {
		query.With(repository.VerifiedField, "true")
		filters = append(filters, search.VerifiedOnly())
	}
	if in.MaxRate != nil {
		filters = append(filters, search.MaxHourlyRate(*in.MaxRate))
	}
	if in.MinRating != nil {
		filters = append(filters, search.MinRating(*in.MinRating))
	}
	if in.EmergencyOnly {
		filters = append(filters, search.EmergencyOnly())
	}

	candidates, err := s.repos.MechanicProfiles().ListWithin(ctx, geo.BoundingBox(origin, radius), *query)
	if err != nil {
		return nil, translate(err, "mechanic profile")
	}
	results, err := search.FindNearby(origin, radius, candidates, search.MechanicLocation, filters...)
	if err != nil {
		return nil, err
	}
	results = search.Truncate(results, search.NormalizeLimit(in.Limit))
	metrics.ProximityResults.WithLabelValues("mechanics").Observe(float64(len(results)))
	return results, nil
}

func (s *MechanicService) find(ctx context.Context, userID uuid.UUID) (*model.MechanicProfile, error) {
	profile, err := s.repos.MechanicProfiles().FindByUserID(ctx, userID)
	if err != nil {
		return nil, translate(err, "mechanic profile")
	}
	return profile, nil
}

func (in MechanicProfileInput) apply(p *model.MechanicProfile) {
	if in.Specializations != nil {
		p.Specializations = dedupe(*in.Specializations)
	}
	if in.ExperienceYears != nil {
		p.ExperienceYears = *in.ExperienceYears
	}
	if in.HourlyRate != nil {
		p.HourlyRate = in.HourlyRate
	}
	if in.MinimumServiceFee != nil {
		p.MinimumServiceFee = in.MinimumServiceFee
	}
	if in.TravelRadius != nil {
		p.TravelRadius = *in.TravelRadius
	}
	if in.EmergencyAvailable != nil {
		p.EmergencyAvailable = *in.EmergencyAvailable
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.AvailabilitySchedule != nil {
		p.AvailabilitySchedule = in.AvailabilitySchedule
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Certifications != nil {
		p.Certifications = *in.Certifications
	}
	if in.ToolsOwned != nil {
		p.ToolsOwned = *in.ToolsOwned
	}
	if in.AcceptsWeekendJobs != nil {
		p.AcceptsWeekendJobs = *in.AcceptsWeekendJobs
	}
	if in.AcceptsNightJobs != nil {
		p.AcceptsNightJobs = *in.AcceptsNightJobs
	}
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
