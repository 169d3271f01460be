package controller

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/service"
	"github.com/iyhunko/mechanic-matching/internal/workflow"
)

// UserResponse represents a user in response bodies.
type UserResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	Address            string     `json:"address,omitempty"`
	City               string     `json:"city,omitempty"`
	State              string     `json:"state,omitempty"`
	PostalCode         string     `json:"postal_code,omitempty"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	LastLocationUpdate *time.Time `json:"last_location_update,omitempty"`
	IsActive           bool       `json:"is_active"`
	Roles              []string   `json:"roles"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:                 u.ID.String(),
		Name:               u.Name,
		Email:              u.Email,
		Phone:              u.Phone,
		Address:            u.Address,
		City:               u.City,
		State:              u.State,
		PostalCode:         u.PostalCode,
		Latitude:           u.Latitude,
		Longitude:          u.Longitude,
		LastLocationUpdate: u.LastLocationUpdate,
		IsActive:           u.IsActive,
		Roles:              u.Roles.Strings(),
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func toUserResponses(users []*model.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

// TokenResponse is returned by registration and login.
type TokenResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
}

// NearbyUserResponse is a user with its distance to the searcher.
type NearbyUserResponse struct {
	UserResponse
	DistanceKm              float64 `json:"distance_km"`
	EstimatedArrivalMinutes int     `json:"estimated_arrival_minutes"`
}

// VehicleResponse represents a vehicle in response bodies.
type VehicleResponse struct {
	ID                    string                `json:"id"`
	UserID                string                `json:"user_id"`
	Make                  string                `json:"make"`
	Model                 string                `json:"model"`
	Year                  int                   `json:"year"`
	Color                 string                `json:"color,omitempty"`
	EngineSize            string                `json:"engine_size,omitempty"`
	FuelType              string                `json:"fuel_type,omitempty"`
	TransmissionType      string                `json:"transmission_type,omitempty"`
	Mileage               int                   `json:"mileage"`
	LicensePlate          string                `json:"license_plate"`
	VIN                   *string               `json:"vin,omitempty"`
	LastServiceDate       *time.Time            `json:"last_service_date,omitempty"`
	NextServiceDue        *time.Time            `json:"next_service_due,omitempty"`
	InsuranceCompany      string                `json:"insurance_company,omitempty"`
	InsurancePolicyNumber string                `json:"insurance_policy_number,omitempty"`
	Notes                 string                `json:"notes,omitempty"`
	ServiceHistory        []model.ServiceRecord `json:"service_history"`
	IsActive              bool                  `json:"is_active"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

func toVehicleResponse(v *model.Vehicle) VehicleResponse {
	history := v.ServiceHistory
	if history == nil {
		history = []model.ServiceRecord{}
	}
	return VehicleResponse{
		ID:                    v.ID.String(),
		UserID:                v.UserID.String(),
		Make:                  v.Make,
		Model:                 v.Model,
		Year:                  v.Year,
		Color:                 v.Color,
		EngineSize:            v.EngineSize,
		FuelType:              string(v.FuelType),
		TransmissionType:      string(v.TransmissionType),
		Mileage:               v.Mileage,
		LicensePlate:          v.LicensePlate,
		VIN:                   v.VIN,
		LastServiceDate:       v.LastServiceDate,
		NextServiceDue:        v.NextServiceDue,
		InsuranceCompany:      v.InsuranceCompany,
		InsurancePolicyNumber: v.InsurancePolicyNumber,
		Notes:                 v.Notes,
		ServiceHistory:        history,
		IsActive:              v.IsActive,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
	}
}

func toVehicleResponses(vehicles []*model.Vehicle) []VehicleResponse {
	out := make([]VehicleResponse, len(vehicles))
	for i, v := range vehicles {
		out[i] = toVehicleResponse(v)
	}
	return out
}

// OwnerResponse is the public part of a vehicle owner shown to nearby mechanics.
type OwnerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	City  string `json:"city,omitempty"`
}

// NearbyVehicleResponse is a vehicle with its owner's distance to the mechanic.
type NearbyVehicleResponse struct {
	VehicleResponse
	Owner      *OwnerResponse `json:"owner,omitempty"`
	DistanceKm float64        `json:"distance_km"`
}

// MechanicProfileResponse represents a mechanic profile in response bodies.
type MechanicProfileResponse struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	Name                 string          `json:"name,omitempty"`
	Specializations      []string        `json:"specializations"`
	ExperienceYears      int             `json:"experience_years"`
	HourlyRate           *float64        `json:"hourly_rate,omitempty"`
	MinimumServiceFee    *float64        `json:"minimum_service_fee,omitempty"`
	TravelRadius         int             `json:"travel_radius"`
	EmergencyAvailable   bool            `json:"emergency_available"`
	IsAvailable          bool            `json:"is_available"`
	IsVerified           bool            `json:"is_verified"`
	RatingAverage        float64         `json:"rating_average"`
	TotalJobs            int             `json:"total_jobs"`
	TotalReviews         int             `json:"total_reviews"`
	AvailabilitySchedule json.RawMessage `json:"availability_schedule,omitempty"`
	Bio                  string          `json:"bio,omitempty"`
	Certifications       []string        `json:"certifications"`
	ToolsOwned           []string        `json:"tools_owned"`
	AcceptsWeekendJobs   bool            `json:"accepts_weekend_jobs"`
	AcceptsNightJobs     bool            `json:"accepts_night_jobs"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func toMechanicProfileResponse(p *model.MechanicProfile) MechanicProfileResponse {
	specs := make([]string, len(p.Specializations))
	for i, s := range p.Specializations {
		specs[i] = string(s)
	}
	resp := MechanicProfileResponse{
		ID:                   p.ID.String(),
		UserID:               p.UserID.String(),
		Specializations:      specs,
		ExperienceYears:      p.ExperienceYears,
		HourlyRate:           p.HourlyRate,
		MinimumServiceFee:    p.MinimumServiceFee,
		TravelRadius:         p.TravelRadius,
		EmergencyAvailable:   p.EmergencyAvailable,
		IsAvailable:          p.IsAvailable,
		IsVerified:           p.IsVerified,
		RatingAverage:        p.RatingAverage,
		TotalJobs:            p.TotalJobs,
		TotalReviews:         p.TotalReviews,
		AvailabilitySchedule: p.AvailabilitySchedule,
		Bio:                  p.Bio,
		Certifications:       nonNil(p.Certifications),
		ToolsOwned:           nonNil(p.ToolsOwned),
		AcceptsWeekendJobs:   p.AcceptsWeekendJobs,
		AcceptsNightJobs:     p.AcceptsNightJobs,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.User != nil {
		resp.Name = p.User.Name
	}
	return resp
}

// NearbyMechanicResponse is a mechanic with its distance to the searcher.
type NearbyMechanicResponse struct {
	MechanicProfileResponse
	DistanceKm              float64 `json:"distance_km"`
	EstimatedArrivalMinutes int     `json:"estimated_arrival_minutes"`
}

// ServiceRequestResponse represents a service request in response bodies.
type ServiceRequestResponse struct {
	ID                     string     `json:"id"`
	ClientID               string     `json:"client_id"`
	MechanicID             *string    `json:"mechanic_id"`
	VehicleID              *string    `json:"vehicle_id,omitempty"`
	PreferredMechanicID    *string    `json:"preferred_mechanic_id,omitempty"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	ServiceType            string     `json:"service_type"`
	UrgencyLevel           string     `json:"urgency_level"`
	EstimatedDurationHours float64    `json:"estimated_duration_hours"`
	BudgetMax              float64    `json:"budget_max,omitempty"`
	IsEmergency            bool       `json:"is_emergency"`
	PreferredDate          *time.Time `json:"preferred_date,omitempty"`
	LocationAddress        string     `json:"location_address,omitempty"`
	LocationNotes          string     `json:"location_notes,omitempty"`
	LocationLatitude       *float64   `json:"location_latitude,omitempty"`
	LocationLongitude      *float64   `json:"location_longitude,omitempty"`
	Status                 string     `json:"status"`
	FinalCost              *float64   `json:"final_cost,omitempty"`
	ClientRating           *int       `json:"client_rating,omitempty"`
	NextStatuses           []string   `json:"next_statuses"`
	IsFinal                bool       `json:"is_final"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toServiceRequestResponse(r *model.ServiceRequest) ServiceRequestResponse {
	return ServiceRequestResponse{
		ID:                     r.ID.String(),
		ClientID:               r.ClientID.String(),
		MechanicID:             idString(r.MechanicID),
		VehicleID:              idString(r.VehicleID),
		PreferredMechanicID:    idString(r.PreferredMechanicID),
		Title:                  r.Title,
		Description:            r.Description,
		ServiceType:            r.ServiceType,
		UrgencyLevel:           string(r.UrgencyLevel),
		EstimatedDurationHours: r.EstimatedDurationHours,
		BudgetMax:              r.BudgetMax,
		IsEmergency:            r.IsEmergency,
		PreferredDate:          r.PreferredDate,
		LocationAddress:        r.LocationAddress,
		LocationNotes:          r.LocationNotes,
		LocationLatitude:       r.LocationLatitude,
		LocationLongitude:      r.LocationLongitude,
		Status:                 string(r.Status),
		FinalCost:              r.FinalCost,
		ClientRating:           r.ClientRating,
		NextStatuses:           nextStatuses(r.Status),
		IsFinal:                workflow.IsTerminal(r.Status),
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func nextStatuses(s model.ServiceRequestStatus) []string {
	next := workflow.NextStatuses(s)
	out := make([]string, len(next))
	for i, n := range next {
		out[i] = string(n)
	}
	return out
}

func toServiceRequestResponses(reqs []*model.ServiceRequest) []ServiceRequestResponse {
	out := make([]ServiceRequestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = toServiceRequestResponse(r)
	}
	return out
}

// AvailableRequestResponse is a pending request offered to a mechanic.
type AvailableRequestResponse struct {
	ServiceRequestResponse
	TimeElapsed service.TimeElapsed `json:"time_elapsed"`
	DistanceKm  *float64            `json:"distance_km,omitempty"`
}

// ListResponse wraps a page of items with its continuation token.
type ListResponse[T any] struct {
	Data          []T    `json:"data"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func nearbyUsers(results []search.Result[*model.User]) []NearbyUserResponse {
	out := make([]NearbyUserResponse, len(results))
	for i, r := range results {
		out[i] = NearbyUserResponse{
			UserResponse:            toUserResponse(r.Item),
			DistanceKm:              roundKm(r.DistanceKm),
			EstimatedArrivalMinutes: r.EstimatedArrivalMinutes(),
		}
	}
	return out
}

func nearbyMechanics(results []search.Result[*model.MechanicProfile]) []NearbyMechanicResponse {
	out := make([]NearbyMechanicResponse, len(results))
	for i, r := range results {
		out[i] = NearbyMechanicResponse{
			MechanicProfileResponse: toMechanicProfileResponse(r.Item),
			DistanceKm:              roundKm(r.DistanceKm),
			EstimatedArrivalMinutes: r.EstimatedArrivalMinutes(),
		}
	}
	return out
}

func nearbyVehicles(results []search.Result[*model.Vehicle]) []NearbyVehicleResponse {
	out := make([]NearbyVehicleResponse, len(results))
	for i, r := range results {
		item := NearbyVehicleResponse{VehicleResponse: toVehicleResponse(r.Item), DistanceKm: roundKm(r.DistanceKm)}
		if o := r.Item.Owner; o != nil {
			item.Owner = &OwnerResponse{ID: o.ID.String(), Name: o.Name, Phone: o.Phone, City: o.City}
		}
		out[i] = item
	}
	return out
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func roundKm(d float64) float64 {
	return geo.Round(d, 2)
}
