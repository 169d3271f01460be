package model

import (
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
)

// Specialization is a service category a mechanic works in.
type Specialization string

const (
	SpecializationEngine          Specialization = "motor"
	SpecializationTransmission    Specialization = "transmision"
	SpecializationBrakes          Specialization = "frenos"
	SpecializationSuspension      Specialization = "suspension"
	SpecializationElectrical      Specialization = "electrico"
	SpecializationAirConditioning Specialization = "aire_acondicionado"
	SpecializationDiagnostics     Specialization = "diagnostico"
	SpecializationBodywork        Specialization = "carroceria"
	SpecializationTires           Specialization = "llantas"
	SpecializationOther           Specialization = "otros"
)

// Specializations lists every known specialization.
var Specializations = []Specialization{
	SpecializationEngine,
	SpecializationTransmission,
	SpecializationBrakes,
	SpecializationSuspension,
	SpecializationElectrical,
	SpecializationAirConditioning,
	SpecializationDiagnostics,
	SpecializationBodywork,
	SpecializationTires,
	SpecializationOther,
}

// Valid reports whether s is a known specialization.
func (s Specialization) Valid() bool {
	return slices.Contains(Specializations, s)
}

const (
	MinHourlyRate      = 10.0
	MaxHourlyRate      = 500.0
	MinTravelRadius    = 1
	MaxTravelRadius    = 100
	MaxExperienceYears = 50

	// DefaultTravelRadius is used when a profile is created without one.
	DefaultTravelRadius = 10
)

// MechanicProfile holds the professional data of a user with the mechanic role.
type MechanicProfile struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Specializations      []Specialization
	ExperienceYears      int
	HourlyRate           *float64
	MinimumServiceFee    *float64
	TravelRadius         int
	EmergencyAvailable   bool
	IsAvailable          bool
	IsVerified           bool
	RatingAverage        float64
	TotalJobs            int
	TotalReviews         int
	AvailabilitySchedule json.RawMessage
	Bio                  string
	Certifications       []string
	ToolsOwned           []string
	AcceptsWeekendJobs   bool
	AcceptsNightJobs     bool
	UpdatedAt            time.Time
	CreatedAt            time.Time

	// User is populated by queries that join the owning user.
	User *User
}

// InitMeta initializes the profile metadata including ID and timestamps.
func (p *MechanicProfile) InitMeta() {
	p.ID = uuid.New()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.TravelRadius == 0 {
		p.TravelRadius = DefaultTravelRadius
	}
}

// HasSpecialization reports whether the profile lists s.
func (p *MechanicProfile) HasSpecialization(s Specialization) bool {
	return slices.Contains(p.Specializations, s)
}

// Location returns the owning user's coordinates when the user is loaded.
func (p *MechanicProfile) Location() (geo.Point, bool) {
	if p.User == nil {
		return geo.Point{}, false
	}
	return p.User.Location()
}

// EstimateCost returns hourly_rate * hours, never below the minimum service fee.
func (p *MechanicProfile) EstimateCost(hours float64) float64 {
	var rate, minimum float64
	if p.HourlyRate != nil {
		rate = *p.HourlyRate
	}
	if p.MinimumServiceFee != nil {
		minimum = *p.MinimumServiceFee
	}
	return geo.Round(math.Max(rate*hours, minimum), 2)
}

// Validate checks attribute ranges.
func (p *MechanicProfile) Validate() error {
	fields := map[string]string{}
	for _, s := range p.Specializations {
		if !s.Valid() {
			fields["specializations"] = "contains an unknown specialization: " + string(s)
			break
		}
	}
	if p.ExperienceYears < 0 || p.ExperienceYears > MaxExperienceYears {
		fields["experience_years"] = "must be between 0 and 50"
	}
	if p.HourlyRate != nil && (*p.HourlyRate < MinHourlyRate || *p.HourlyRate > MaxHourlyRate) {
		fields["hourly_rate"] = "must be between 10 and 500"
	}
	if p.MinimumServiceFee != nil && *p.MinimumServiceFee < 0 {
		fields["minimum_service_fee"] = "must not be negative"
	}
	if p.TravelRadius < MinTravelRadius || p.TravelRadius > MaxTravelRadius {
		fields["travel_radius"] = "must be between 1 and 100"
	}
	if len(p.AvailabilitySchedule) > 0 && !json.Valid(p.AvailabilitySchedule) {
		fields["availability_schedule"] = "must be valid JSON"
	}
	if len(fields) > 0 {
		return &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}
	return nil
}
