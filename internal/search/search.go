// Package search finds entities within a radius of a point and orders them by distance.
package search

import (
	"sort"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

const (
	DefaultUserRadiusKm = 25.0
	MinRadiusKm         = 1.0
	MaxRadiusKm         = 100.0
	DefaultLimit        = 50
	MaxLimit            = 100
)

// ErrLocationRequired is returned when the searching user has no stored coordinates.
var ErrLocationRequired = apperror.NewPrecondition("location required: update your location before searching nearby")

// Filter reports whether a candidate should be kept.
type Filter[T any] func(T) bool

// Locator extracts coordinates from a candidate; ok is false when the candidate has none.
type Locator[T any] func(T) (p geo.Point, ok bool)

// Result is a candidate together with its distance to the search center.
type Result[T any] struct {
	Item       T
	DistanceKm float64
}

// EstimatedArrivalMinutes returns the travel time to the result at the average speed.
func (r Result[T]) EstimatedArrivalMinutes() int {
	return geo.EstimatedArrivalMinutes(r.DistanceKm)
}

// FindNearby keeps candidates that pass every filter, have coordinates and lie within
// radiusKm of center. Results are ordered by ascending distance; ties keep candidate order.
func FindNearby[T any](center geo.Point, radiusKm float64, candidates []T, locate Locator[T], filters ...Filter[T]) ([]Result[T], error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result[T], 0, len(candidates))
next:
	for _, c := range candidates {
		for _, keep := range filters {
			if !keep(c) {
				continue next
			}
		}

		p, ok := locate(c)
		if !ok {
			continue
		}
		d, err := geo.Distance(center, p)
		if err != nil {
			// stored coordinates out of range are treated as unknown
			continue
		}
		if !geo.WithinRadius(d, radiusKm) {
			continue
		}
		results = append(results, Result[T]{Item: c, DistanceKm: d})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

// Truncate returns at most limit results.
func Truncate[T any](results []Result[T], limit int) []Result[T] {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// Origin returns the searcher's stored location or ErrLocationRequired.
func Origin(u *model.User) (geo.Point, error) {
	p, ok := u.Location()
	if !ok {
		return geo.Point{}, ErrLocationRequired
	}
	return p, nil
}

// NormalizeRadius validates an explicit radius or falls back to def when r is zero.
func NormalizeRadius(r, def float64) (float64, error) {
	if r == 0 {
		return def, nil
	}
	if r < MinRadiusKm || r > MaxRadiusKm {
		return 0, apperror.NewFieldValidation("radius", "must be between 1 and 100")
	}
	return r, nil
}

// NormalizeLimit clamps limit to [1, MaxLimit], using DefaultLimit when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// UserLocation locates a user by their stored coordinates.
func UserLocation(u *model.User) (geo.Point, bool) {
	return u.Location()
}

// MechanicLocation locates a mechanic profile by its user's coordinates.
func MechanicLocation(p *model.MechanicProfile) (geo.Point, bool) {
	return p.Location()
}

// ExcludeUser drops the user with the given id.
func ExcludeUser(id uuid.UUID) Filter[*model.User] {
	return func(u *model.User) bool { return u.ID != id }
}

// ActiveUsers keeps active users.
func ActiveUsers() Filter[*model.User] {
	return func(u *model.User) bool { return u.IsActive }
}

// WithRole keeps users holding role.
func WithRole(role model.Role) Filter[*model.User] {
	return func(u *model.User) bool { return u.HasRole(role) }
}

// ExcludeMechanic drops the profile owned by the given user.
func ExcludeMechanic(userID uuid.UUID) Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.UserID != userID }
}

// WithSpecialization keeps mechanics offering s.
func WithSpecialization(s model.Specialization) Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.HasSpecialization(s) }
}

// VerifiedOnly keeps verified mechanics.
func VerifiedOnly() Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.IsVerified }
}

// AvailableOnly keeps mechanics currently accepting work.
func AvailableOnly() Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.IsAvailable }
}

// EmergencyOnly keeps mechanics available for emergencies.
func EmergencyOnly() Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.EmergencyAvailable }
}

// MaxHourlyRate keeps mechanics whose hourly rate is set and does not exceed rate.
func MaxHourlyRate(rate float64) Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.HourlyRate != nil && *p.HourlyRate <= rate }
}

// MinRating keeps mechanics rated at least rating.
func MinRating(rating float64) Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.RatingAverage >= rating }
}

// ActiveMechanics keeps profiles whose user account is active.
func ActiveMechanics() Filter[*model.MechanicProfile] {
	return func(p *model.MechanicProfile) bool { return p.User != nil && p.User.IsActive }
}
