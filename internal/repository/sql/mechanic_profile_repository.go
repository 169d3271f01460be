package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/lib/pq"
)

const (
	profileColumns = `id, user_id, specializations, experience_years, hourly_rate, minimum_service_fee, travel_radius,
	emergency_available, is_available, is_verified, rating_average, total_jobs, total_reviews, availability_schedule,
	bio, certifications, tools_owned, accepts_weekend_jobs, accepts_night_jobs, created_at, updated_at`

	joinedProfileColumns = `mp.id, mp.user_id, mp.specializations, mp.experience_years, mp.hourly_rate,
	mp.minimum_service_fee, mp.travel_radius, mp.emergency_available, mp.is_available, mp.is_verified,
	mp.rating_average, mp.total_jobs, mp.total_reviews, mp.availability_schedule, mp.bio, mp.certifications,
	mp.tools_owned, mp.accepts_weekend_jobs, mp.accepts_night_jobs, mp.created_at, mp.updated_at,
	u.id, u.name, u.email, u.password_hash, u.phone, u.address, u.city, u.state, u.postal_code,
	u.latitude, u.longitude, u.last_location_update, u.is_active, u.roles, u.created_at, u.updated_at`

	profileJoinUsers = ` FROM mechanic_profiles mp JOIN users u ON u.id = mp.user_id`
)

// MechanicProfileRepository stores mechanic profiles in the mechanic_profiles table.
type MechanicProfileRepository struct {
	base
}

// NewMechanicProfileRepository creates a new MechanicProfileRepository instance.
func NewMechanicProfileRepository(db *sql.DB) *MechanicProfileRepository {
	return &MechanicProfileRepository{base{db: db}}
}

// Create inserts a profile. A second profile for the same user yields a UniqueConstraintError.
func (r *MechanicProfileRepository) Create(ctx context.Context, profile *model.MechanicProfile) (*model.MechanicProfile, error) {
	if profile.ID == uuid.Nil {
		profile.InitMeta()
	}

	query := `INSERT INTO mechanic_profiles (` + profileColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := r.exec(ctx, query,
		profile.ID, profile.UserID, pq.Array(specializationStrings(profile.Specializations)), profile.ExperienceYears,
		profile.HourlyRate, profile.MinimumServiceFee, profile.TravelRadius, profile.EmergencyAvailable,
		profile.IsAvailable, profile.IsVerified, profile.RatingAverage, profile.TotalJobs, profile.TotalReviews,
		jsonOrNull(profile.AvailabilitySchedule), profile.Bio, pq.Array(nonNil(profile.Certifications)),
		pq.Array(nonNil(profile.ToolsOwned)), profile.AcceptsWeekendJobs, profile.AcceptsNightJobs,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("failed to insert mechanic profile: %w", err)
	}

	return profile, nil
}

// FindByUserID retrieves the profile of a user together with the user.
func (r *MechanicProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.MechanicProfile, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, `SELECT `+joinedProfileColumns+profileJoinUsers+` WHERE mp.user_id = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	profile, err := scanProfile(stmt.QueryRowContext(ctx, userID), true)
	if err != nil {
		return nil, notFound(err, "mechanic profile")
	}
	return profile, nil
}

// ListWithin returns profiles of located mechanics inside box, closest to the box center first.
func (r *MechanicProfileRepository) ListWithin(ctx context.Context, box geo.Box, query repository.Query) ([]*model.MechanicProfile, error) {
	w := newWhereBuilder(`SELECT ` + joinedProfileColumns + profileJoinUsers)
	w.and(w.next(string(model.RoleMechanic)) + " = ANY(u.roles)")
	w.and("u.latitude IS NOT NULL AND u.longitude IS NOT NULL")
	w.and(fmt.Sprintf("u.latitude BETWEEN %s AND %s", w.next(box.MinLatitude), w.next(box.MaxLatitude)))
	w.and(fmt.Sprintf("u.longitude BETWEEN %s AND %s", w.next(box.MinLongitude), w.next(box.MaxLongitude)))
	for _, field := range query.Fields() {
		value := query.Values[field]
		switch field {
		case repository.ActiveField:
			active, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid is_active value: %w", err)
			}
			w.and("u.is_active = " + w.next(active))
		case repository.VerifiedField:
			verified, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid is_verified value: %w", err)
			}
			w.and("mp.is_verified = " + w.next(verified))
		}
	}
	w.orderByProximity("u.latitude", "u.longitude", box.Center)
	w.raw(", mp.user_id ASC LIMIT " + w.next(maxProximityCandidates))

	var profiles []*model.MechanicProfile
	err := r.queryRows(ctx, w.String(), w.args, func(rows *sql.Rows) error {
		profile, err := scanProfile(rows, true)
		if err != nil {
			return fmt.Errorf("failed to scan mechanic profile: %w", err)
		}
		profiles = append(profiles, profile)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mechanic profiles: %w", err)
	}
	return profiles, nil
}

// Update writes the mechanic-editable columns. Verification, rating and job counters
// are left untouched.
func (r *MechanicProfileRepository) Update(ctx context.Context, profile *model.MechanicProfile) error {
	query := `UPDATE mechanic_profiles SET specializations = $1, experience_years = $2, hourly_rate = $3,
	          minimum_service_fee = $4, travel_radius = $5, emergency_available = $6, is_available = $7,
	          availability_schedule = $8, bio = $9, certifications = $10, tools_owned = $11,
	          accepts_weekend_jobs = $12, accepts_night_jobs = $13, updated_at = NOW()
	          WHERE user_id = $14`

	result, err := r.exec(ctx, query,
		pq.Array(specializationStrings(profile.Specializations)), profile.ExperienceYears, profile.HourlyRate,
		profile.MinimumServiceFee, profile.TravelRadius, profile.EmergencyAvailable, profile.IsAvailable,
		jsonOrNull(profile.AvailabilitySchedule), profile.Bio, pq.Array(nonNil(profile.Certifications)),
		pq.Array(nonNil(profile.ToolsOwned)), profile.AcceptsWeekendJobs, profile.AcceptsNightJobs, profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mechanic profile: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("mechanic profile not found: %w", repository.ErrNotFound))
}

// SetVerified sets the admin-controlled verification flag.
func (r *MechanicProfileRepository) SetVerified(ctx context.Context, userID uuid.UUID, verified bool) error {
	result, err := r.exec(ctx, `UPDATE mechanic_profiles SET is_verified = $1, updated_at = NOW() WHERE user_id = $2`, verified, userID)
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("mechanic profile not found: %w", repository.ErrNotFound))
}

// ApplyRating folds rating into the running average in one statement, so concurrent
// ratings never read a stale average.
func (r *MechanicProfileRepository) ApplyRating(ctx context.Context, userID uuid.UUID, rating int) (*model.MechanicProfile, error) {
	query := `UPDATE mechanic_profiles
	          SET rating_average = ROUND((((rating_average * total_reviews) + $1) / (total_reviews + 1))::numeric, 2)::double precision,
	              total_reviews = total_reviews + 1, updated_at = NOW()
	          WHERE user_id = $2
	          RETURNING ` + profileColumns

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rating statement: %w", err)
	}
	defer stmt.Close()

	profile, err := scanProfile(stmt.QueryRowContext(ctx, rating, userID), false)
	if err != nil {
		return nil, notFound(err, "mechanic profile")
	}
	return profile, nil
}

// IncrementJobs adds one completed job to the mechanic's counter.
func (r *MechanicProfileRepository) IncrementJobs(ctx context.Context, userID uuid.UUID) error {
	result, err := r.exec(ctx, `UPDATE mechanic_profiles SET total_jobs = total_jobs + 1, updated_at = NOW() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to increment jobs: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("mechanic profile not found: %w", repository.ErrNotFound))
}

// profileScan collects the nullable and array columns of a mechanic_profiles row.
type profileScan struct {
	profile               model.MechanicProfile
	specializations       []string
	certifications, tools []string
	hourlyRate, fee       sql.NullFloat64
	schedule              []byte
}

func (s *profileScan) dest() []any {
	p := &s.profile
	return []any{
		&p.ID, &p.UserID, pq.Array(&s.specializations), &p.ExperienceYears, &s.hourlyRate, &s.fee, &p.TravelRadius,
		&p.EmergencyAvailable, &p.IsAvailable, &p.IsVerified, &p.RatingAverage, &p.TotalJobs, &p.TotalReviews,
		&s.schedule, &p.Bio, pq.Array(&s.certifications), pq.Array(&s.tools), &p.AcceptsWeekendJobs,
		&p.AcceptsNightJobs, &p.CreatedAt, &p.UpdatedAt,
	}
}

func (s *profileScan) result() *model.MechanicProfile {
	profile := s.profile
	profile.Specializations = make([]model.Specialization, len(s.specializations))
	for i, spec := range s.specializations {
		profile.Specializations[i] = model.Specialization(spec)
	}
	profile.HourlyRate = floatPtr(s.hourlyRate)
	profile.MinimumServiceFee = floatPtr(s.fee)
	if len(s.schedule) > 0 {
		profile.AvailabilitySchedule = s.schedule
	}
	profile.Certifications = nonNil(s.certifications)
	profile.ToolsOwned = nonNil(s.tools)
	return &profile
}

func scanProfile(row rowScanner, withUser bool) (*model.MechanicProfile, error) {
	var (
		ps profileScan
		us userScan
	)
	dest := ps.dest()
	if withUser {
		dest = append(dest, us.dest()...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	profile := ps.result()
	if withUser {
		profile.User = us.result()
	}
	return profile, nil
}

func specializationStrings(specs []model.Specialization) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = string(s)
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// jsonOrNull stores an empty document as SQL NULL.
func jsonOrNull(doc []byte) any {
	if len(doc) == 0 {
		return nil
	}
	return doc
}
