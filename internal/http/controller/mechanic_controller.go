package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/service"
)

// MechanicService is the mechanic profile API used by MechanicController.
type MechanicService interface {
	GetProfile(ctx context.Context, actor *model.User) (*model.MechanicProfile, error)
	CreateProfile(ctx context.Context, actor *model.User, in service.MechanicProfileInput) (*model.MechanicProfile, error)
	UpdateProfile(ctx context.Context, actor *model.User, in service.MechanicProfileInput) (*model.MechanicProfile, error)
	SetAvailability(ctx context.Context, actor *model.User, available, emergency *bool) (*model.MechanicProfile, error)
	Estimate(ctx context.Context, actor *model.User, hours float64) (float64, error)
	PublicProfile(ctx context.Context, actor *model.User, userID uuid.UUID) (*model.MechanicProfile, error)
	Nearby(ctx context.Context, actor *model.User, in service.MechanicSearchInput) ([]search.Result[*model.MechanicProfile], error)
}

// MechanicController handles mechanic profiles and mechanic discovery.
type MechanicController struct {
	mechanics MechanicService
}

// NewMechanicController creates a new MechanicController.
func NewMechanicController(mechanics MechanicService) *MechanicController {
	return &MechanicController{mechanics: mechanics}
}

// MechanicProfileRequest represents the request body for creating or editing a profile.
type MechanicProfileRequest struct {
	Specializations      *[]string       `json:"specializations" binding:"omitempty,dive,specialization"`
	ExperienceYears      *int            `json:"experience_years" binding:"omitempty,gte=0,lte=50"`
	HourlyRate           *float64        `json:"hourly_rate" binding:"omitempty,gte=10,lte=500"`
	MinimumServiceFee    *float64        `json:"minimum_service_fee" binding:"omitempty,gte=0"`
	TravelRadius         *int            `json:"travel_radius" binding:"omitempty,gte=1,lte=100"`
	EmergencyAvailable   *bool           `json:"emergency_available"`
	IsAvailable          *bool           `json:"is_available"`
	AvailabilitySchedule json.RawMessage `json:"availability_schedule"`
	Bio                  *string         `json:"bio" binding:"omitempty,max=1000"`
	Certifications       *[]string       `json:"certifications"`
	ToolsOwned           *[]string       `json:"tools_owned"`
	AcceptsWeekendJobs   *bool           `json:"accepts_weekend_jobs"`
	AcceptsNightJobs     *bool           `json:"accepts_night_jobs"`
}

// AvailabilityRequest represents the request body for toggling availability.
type AvailabilityRequest struct {
	IsAvailable        *bool `json:"is_available"`
	EmergencyAvailable *bool `json:"emergency_available"`
}

// EstimateQuery represents the query parameters of a price estimate.
type EstimateQuery struct {
	Hours float64 `form:"hours" binding:"required"`
}

// EstimateResponse is a price estimate.
type EstimateResponse struct {
	Hours         float64 `json:"hours"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// NearbyMechanicsQuery represents the query parameters of the nearby-mechanics search.
type NearbyMechanicsQuery struct {
	Radius    float64  `form:"radius"`
	Specialty string   `form:"specialty" binding:"omitempty,specialization"`
	Verified  bool     `form:"verified"`
	MaxRate   *float64 `form:"max_rate" binding:"omitempty,gt=0"`
	MinRating *float64 `form:"min_rating" binding:"omitempty,gte=0,lte=5"`
	Emergency bool     `form:"emergency"`
	Limit     int      `form:"limit" binding:"omitempty,min=1"`
}

// GetProfile handles GET /mechanic-profile.
func (mc *MechanicController) GetProfile(c *gin.Context) {
	profile, err := mc.mechanics.GetProfile(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMechanicProfileResponse(profile))
}

// CreateProfile handles POST /mechanic-profile.
func (mc *MechanicController) CreateProfile(c *gin.Context) {
	var req MechanicProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := mc.mechanics.CreateProfile(c.Request.Context(), actor(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMechanicProfileResponse(profile))
}

// UpdateProfile handles PUT /mechanic-profile.
func (mc *MechanicController) UpdateProfile(c *gin.Context) {
	var req MechanicProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := mc.mechanics.UpdateProfile(c.Request.Context(), actor(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMechanicProfileResponse(profile))
}

// SetAvailability handles PATCH /mechanic-profile/availability.
func (mc *MechanicController) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := mc.mechanics.SetAvailability(c.Request.Context(), actor(c), req.IsAvailable, req.EmergencyAvailable)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMechanicProfileResponse(profile))
}

// Estimate handles GET /mechanic-profile/estimate.
func (mc *MechanicController) Estimate(c *gin.Context) {
	var req EstimateQuery
	if !bindQuery(c, &req) {
		return
	}
	cost, err := mc.mechanics.Estimate(c.Request.Context(), actor(c), req.Hours)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, EstimateResponse{Hours: req.Hours, EstimatedCost: cost})
}

// PublicProfile handles GET /mechanics/:id.
func (mc *MechanicController) PublicProfile(c *gin.Context) {
	id, ok := pathID(c, "id", "mechanic profile")
	if !ok {
		return
	}
	profile, err := mc.mechanics.PublicProfile(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMechanicProfileResponse(profile))
}

// Nearby handles GET /mechanics/nearby.
func (mc *MechanicController) Nearby(c *gin.Context) {
	var req NearbyMechanicsQuery
	if !bindQuery(c, &req) {
		return
	}

	results, err := mc.mechanics.Nearby(c.Request.Context(), actor(c), service.MechanicSearchInput{
		RadiusKm:       req.Radius,
		Specialization: model.Specialization(req.Specialty),
		VerifiedOnly:   req.Verified,
		MaxRate:        req.MaxRate,
		MinRating:      req.MinRating,
		EmergencyOnly:  req.Emergency,
		Limit:          req.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[NearbyMechanicResponse]{Data: nearbyMechanics(results)})
}

func (r MechanicProfileRequest) input() service.MechanicProfileInput {
	in := service.MechanicProfileInput{
		ExperienceYears:      r.ExperienceYears,
		HourlyRate:           r.HourlyRate,
		MinimumServiceFee:    r.MinimumServiceFee,
		TravelRadius:         r.TravelRadius,
		EmergencyAvailable:   r.EmergencyAvailable,
		IsAvailable:          r.IsAvailable,
		AvailabilitySchedule: r.AvailabilitySchedule,
		Bio:                  r.Bio,
		Certifications:       r.Certifications,
		ToolsOwned:           r.ToolsOwned,
		AcceptsWeekendJobs:   r.AcceptsWeekendJobs,
		AcceptsNightJobs:     r.AcceptsNightJobs,
	}
	if r.Specializations != nil {
		specs := make([]model.Specialization, len(*r.Specializations))
		for i, s := range *r.Specializations {
			specs[i] = model.Specialization(s)
		}
		in.Specializations = &specs
	}
	return in
}
