package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/service"
)

const serviceRequestResource = "service request"

// ServiceRequestService is the service-request API used by ServiceRequestController.
type ServiceRequestService interface {
	Create(ctx context.Context, actor *model.User, in service.ServiceRequestInput) (*model.ServiceRequest, error)
	List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.ServiceRequest, error)
	Available(ctx context.Context, actor *model.User, in service.AvailableInput) ([]service.AvailableRequest, string, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error)
	Distance(ctx context.Context, actor *model.User, id uuid.UUID) (*service.DistanceInfo, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.ServiceRequestInput) (*model.ServiceRequest, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
	Accept(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error)
	Reject(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error)
	Transition(ctx context.Context, actor *model.User, id uuid.UUID, to model.ServiceRequestStatus, finalCost *float64) (*model.ServiceRequest, error)
	Rate(ctx context.Context, actor *model.User, id uuid.UUID, rating int) (*model.ServiceRequest, *model.MechanicProfile, error)
}

// ServiceRequestController handles HTTP requests for service requests.
type ServiceRequestController struct {
	requests ServiceRequestService
}

// NewServiceRequestController creates a new ServiceRequestController.
func NewServiceRequestController(requests ServiceRequestService) *ServiceRequestController {
	return &ServiceRequestController{requests: requests}
}

// ServiceRequestRequest represents the request body for creating or editing a service request.
type ServiceRequestRequest struct {
	VehicleID              *string    `json:"vehicle_id" binding:"omitempty,uuid"`
	PreferredMechanicID    *string    `json:"preferred_mechanic_id" binding:"omitempty,uuid"`
	Title                  *string    `json:"title" binding:"omitempty,max=255"`
	Description            *string    `json:"description"`
	ServiceType            *string    `json:"service_type" binding:"omitempty,max=100"`
	UrgencyLevel           *string    `json:"urgency_level" binding:"omitempty,urgency"`
	EstimatedDurationHours *float64   `json:"estimated_duration_hours" binding:"omitempty,gte=0.5,lte=48"`
	BudgetMax              *float64   `json:"budget_max" binding:"omitempty,gte=0"`
	IsEmergency            *bool      `json:"is_emergency"`
	PreferredDate          *time.Time `json:"preferred_date"`
	LocationAddress        *string    `json:"location_address" binding:"omitempty,max=500"`
	LocationNotes          *string    `json:"location_notes" binding:"omitempty,max=1000"`
	LocationLatitude       *float64   `json:"location_latitude" binding:"omitempty,gte=-90,lte=90"`
	LocationLongitude      *float64   `json:"location_longitude" binding:"omitempty,gte=-180,lte=180"`
}

// ListServiceRequestsQuery represents the query parameters for listing service requests.
type ListServiceRequestsQuery struct {
	Limit  int32  `form:"limit"`
	Token  string `form:"token"`
	Status string `form:"status" binding:"omitempty,status"`
	Search string `form:"search" binding:"max=255"`
}

// AvailableQuery represents the query parameters of the available-requests listing.
type AvailableQuery struct {
	UrgencyLevel     string `form:"urgency_level" binding:"omitempty,urgency"`
	PerPage          int    `form:"per_page" binding:"omitempty,min=1"`
	Token            string `form:"token"`
	WithinRadiusOnly bool   `form:"within_radius_only"`
}

// StatusRequest represents the request body for a status change.
type StatusRequest struct {
	Status    string   `json:"status" binding:"required,status"`
	FinalCost *float64 `json:"final_cost" binding:"omitempty,gte=0"`
}

// RatingRequest represents the request body for rating a completed request.
type RatingRequest struct {
	Rating int `json:"rating" binding:"required,gte=1,lte=5"`
}

// RatingResponse is the rated request together with the mechanic's updated rating.
type RatingResponse struct {
	ServiceRequest ServiceRequestResponse   `json:"service_request"`
	Mechanic       *MechanicProfileResponse `json:"mechanic_profile,omitempty"`
}

// DistanceResponse is the distance between the mechanic and a service location.
type DistanceResponse struct {
	ServiceRequestID        string  `json:"service_request_id"`
	DistanceKm              float64 `json:"distance_km"`
	DistanceFormatted       string  `json:"distance_formatted"`
	EstimatedArrivalMinutes int     `json:"estimated_arrival_minutes"`
	TravelRadiusKm          float64 `json:"travel_radius_km"`
	WithinTravelRadius      bool    `json:"within_travel_radius"`
}

// Create handles POST /service-requests.
func (sc *ServiceRequestController) Create(c *gin.Context) {
	var req ServiceRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := sc.requests.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toServiceRequestResponse(created))
}

// List handles GET /service-requests.
func (sc *ServiceRequestController) List(c *gin.Context) {
	var req ListServiceRequestsQuery
	if !bindQuery(c, &req) {
		return
	}
	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		fail(c, invalidToken())
		return
	}
	if req.Status != "" {
		query.With(repository.StatusField, req.Status)
	}
	if req.Search != "" {
		query.With(repository.SearchField, req.Search)
	}

	reqs, err := sc.requests.List(c.Request.Context(), actor(c), *query)
	if err != nil {
		fail(c, err)
		return
	}

	resp := ListResponse[ServiceRequestResponse]{Data: toServiceRequestResponses(reqs)}
	if n := len(reqs); n > 0 {
		last := reqs[n-1]
		resp.NextPageToken = repository.NextPageToken(n, query.Limit, repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt})
	}
	c.JSON(http.StatusOK, resp)
}

// Available handles GET /service-requests/available.
func (sc *ServiceRequestController) Available(c *gin.Context) {
	var req AvailableQuery
	if !bindQuery(c, &req) {
		return
	}

	items, next, err := sc.requests.Available(c.Request.Context(), actor(c), service.AvailableInput{
		UrgencyLevel:     model.UrgencyLevel(req.UrgencyLevel),
		Limit:            req.PerPage,
		PageToken:        req.Token,
		WithinRadiusOnly: req.WithinRadiusOnly,
	})
	if err != nil {
		fail(c, err)
		return
	}

	data := make([]AvailableRequestResponse, len(items))
	for i, item := range items {
		data[i] = AvailableRequestResponse{
			ServiceRequestResponse: toServiceRequestResponse(item.Request),
			TimeElapsed:            item.TimeElapsed,
			DistanceKm:             item.DistanceKm,
		}
	}
	c.JSON(http.StatusOK, ListResponse[AvailableRequestResponse]{Data: data, NextPageToken: next})
}

// Get handles GET /service-requests/:id.
func (sc *ServiceRequestController) Get(c *gin.Context) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	req, err := sc.requests.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceRequestResponse(req))
}

// Distance handles GET /service-requests/:id/distance.
func (sc *ServiceRequestController) Distance(c *gin.Context) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	info, err := sc.requests.Distance(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DistanceResponse{
		ServiceRequestID:        id.String(),
		DistanceKm:              info.DistanceKm,
		DistanceFormatted:       info.Formatted,
		EstimatedArrivalMinutes: info.EstimatedArrivalMinutes,
		TravelRadiusKm:          info.TravelRadiusKm,
		WithinTravelRadius:      info.WithinTravelRadius,
	})
}

// Update handles PUT /service-requests/:id.
func (sc *ServiceRequestController) Update(c *gin.Context) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	var req ServiceRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := sc.requests.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceRequestResponse(updated))
}

// Delete handles DELETE /service-requests/:id.
func (sc *ServiceRequestController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	if err := sc.requests.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "service request deleted successfully"})
}

// Accept handles POST /service-requests/:id/accept.
func (sc *ServiceRequestController) Accept(c *gin.Context) {
	sc.transition(c, func(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
		return sc.requests.Accept(ctx, actor(c), id)
	})
}

// Reject handles POST /service-requests/:id/reject.
func (sc *ServiceRequestController) Reject(c *gin.Context) {
	sc.transition(c, func(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
		return sc.requests.Reject(ctx, actor(c), id)
	})
}

// UpdateStatus handles PATCH /service-requests/:id/status.
func (sc *ServiceRequestController) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	sc.transition(c, func(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
		return sc.requests.Transition(ctx, actor(c), id, model.ServiceRequestStatus(req.Status), req.FinalCost)
	})
}

// Rate handles POST /service-requests/:id/rating.
func (sc *ServiceRequestController) Rate(c *gin.Context) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	var req RatingRequest
	if !bindJSON(c, &req) {
		return
	}

	rated, profile, err := sc.requests.Rate(c.Request.Context(), actor(c), id, req.Rating)
	if err != nil {
		fail(c, err)
		return
	}
	resp := RatingResponse{ServiceRequest: toServiceRequestResponse(rated)}
	if profile != nil {
		p := toMechanicProfileResponse(profile)
		resp.Mechanic = &p
	}
	c.JSON(http.StatusOK, resp)
}

func (sc *ServiceRequestController) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)) {
	id, ok := pathID(c, "id", serviceRequestResource)
	if !ok {
		return
	}
	updated, err := fn(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toServiceRequestResponse(updated))
}

func (r ServiceRequestRequest) input() service.ServiceRequestInput {
	in := service.ServiceRequestInput{
		VehicleID:              parseOptionalID(r.VehicleID),
		PreferredMechanicID:    parseOptionalID(r.PreferredMechanicID),
		Title:                  r.Title,
		Description:            r.Description,
		ServiceType:            r.ServiceType,
		EstimatedDurationHours: r.EstimatedDurationHours,
		BudgetMax:              r.BudgetMax,
		IsEmergency:            r.IsEmergency,
		PreferredDate:          r.PreferredDate,
		LocationAddress:        r.LocationAddress,
		LocationNotes:          r.LocationNotes,
		LocationLatitude:       r.LocationLatitude,
		LocationLongitude:      r.LocationLongitude,
	}
	if r.UrgencyLevel != nil {
		u := model.UrgencyLevel(*r.UrgencyLevel)
		in.UrgencyLevel = &u
	}
	return in
}

// parseOptionalID parses an id already checked by the uuid binding tag.
func parseOptionalID(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}
