package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/service"
)

// VehicleService is the vehicle API used by VehicleController.
type VehicleService interface {
	Create(ctx context.Context, actor *model.User, in service.VehicleInput) (*model.Vehicle, error)
	List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.Vehicle, error)
	Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Vehicle, error)
	Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.VehicleInput) (*model.Vehicle, error)
	Delete(ctx context.Context, actor *model.User, id uuid.UUID) error
	AddServiceRecord(ctx context.Context, actor *model.User, id uuid.UUID, in service.ServiceRecordInput) (*model.Vehicle, error)
	Nearby(ctx context.Context, actor *model.User, in service.NearbyVehiclesInput) ([]search.Result[*model.Vehicle], error)
}

// VehicleController handles HTTP requests for vehicles.
type VehicleController struct {
	vehicles VehicleService
}

// NewVehicleController creates a new VehicleController.
func NewVehicleController(vehicles VehicleService) *VehicleController {
	return &VehicleController{vehicles: vehicles}
}

// VehicleRequest represents the request body for creating or editing a vehicle. Create
// requires make, model, year and license_plate; the service enforces that.
type VehicleRequest struct {
	Make                  *string    `json:"make" binding:"omitempty,max=50"`
	Model                 *string    `json:"model" binding:"omitempty,max=50"`
	Year                  *int       `json:"year"`
	Color                 *string    `json:"color" binding:"omitempty,max=30"`
	EngineSize            *string    `json:"engine_size" binding:"omitempty,max=20"`
	FuelType              *string    `json:"fuel_type" binding:"omitempty,fuel_type"`
	TransmissionType      *string    `json:"transmission_type" binding:"omitempty,transmission"`
	Mileage               *int       `json:"mileage" binding:"omitempty,gte=0"`
	LicensePlate          *string    `json:"license_plate" binding:"omitempty,max=20"`
	VIN                   *string    `json:"vin" binding:"omitempty,max=17"`
	LastServiceDate       *time.Time `json:"last_service_date"`
	NextServiceDue        *time.Time `json:"next_service_due"`
	InsuranceCompany      *string    `json:"insurance_company" binding:"omitempty,max=100"`
	InsurancePolicyNumber *string    `json:"insurance_policy_number" binding:"omitempty,max=50"`
	Notes                 *string    `json:"notes"`
	IsActive              *bool      `json:"is_active"`
}

// ServiceRecordRequest represents the request body for a service-history entry.
type ServiceRecordRequest struct {
	Date             *time.Time `json:"date"`
	Description      string     `json:"description" binding:"required,max=1000"`
	Mileage          int        `json:"mileage" binding:"gte=0"`
	Cost             float64    `json:"cost" binding:"gte=0"`
	ServiceRequestID *string    `json:"service_request_id" binding:"omitempty,uuid"`
}

// ListVehiclesQuery represents the query parameters for listing vehicles.
type ListVehiclesQuery struct {
	Limit  int32  `form:"limit"`
	Token  string `form:"token"`
	Active string `form:"is_active" binding:"omitempty,oneof=true false"`
}

// NearbyQuery represents the radius and limit parameters of nearby searches.
type NearbyQuery struct {
	Radius float64 `form:"radius"`
	Limit  int     `form:"limit" binding:"omitempty,min=1"`
}

// Create handles POST /vehicles.
func (vc *VehicleController) Create(c *gin.Context) {
	var req VehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := vc.vehicles.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVehicleResponse(v))
}

// List handles GET /vehicles.
func (vc *VehicleController) List(c *gin.Context) {
	var req ListVehiclesQuery
	if !bindQuery(c, &req) {
		return
	}
	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		fail(c, invalidToken())
		return
	}
	if req.Active != "" {
		query.With(repository.ActiveField, req.Active)
	}

	vehicles, err := vc.vehicles.List(c.Request.Context(), actor(c), *query)
	if err != nil {
		fail(c, err)
		return
	}

	resp := ListResponse[VehicleResponse]{Data: toVehicleResponses(vehicles)}
	if n := len(vehicles); n > 0 {
		last := vehicles[n-1]
		resp.NextPageToken = repository.NextPageToken(n, query.Limit, repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt})
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /vehicles/:id.
func (vc *VehicleController) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "vehicle")
	if !ok {
		return
	}
	v, err := vc.vehicles.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(v))
}

// Update handles PUT /vehicles/:id.
func (vc *VehicleController) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "vehicle")
	if !ok {
		return
	}
	var req VehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := vc.vehicles.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(v))
}

// Delete handles DELETE /vehicles/:id.
func (vc *VehicleController) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "vehicle")
	if !ok {
		return
	}
	if err := vc.vehicles.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "vehicle deleted successfully"})
}

// AddServiceRecord handles POST /vehicles/:id/service-records.
func (vc *VehicleController) AddServiceRecord(c *gin.Context) {
	id, ok := pathID(c, "id", "vehicle")
	if !ok {
		return
	}
	var req ServiceRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.ServiceRecordInput{
		Date:             req.Date,
		Description:      req.Description,
		Mileage:          req.Mileage,
		Cost:             req.Cost,
		ServiceRequestID: parseOptionalID(req.ServiceRequestID),
	}

	v, err := vc.vehicles.AddServiceRecord(c.Request.Context(), actor(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVehicleResponse(v))
}

// Nearby handles GET /vehicles/nearby.
func (vc *VehicleController) Nearby(c *gin.Context) {
	var req NearbyQuery
	if !bindQuery(c, &req) {
		return
	}

	results, err := vc.vehicles.Nearby(c.Request.Context(), actor(c), service.NearbyVehiclesInput{RadiusKm: req.Radius, Limit: req.Limit})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[NearbyVehicleResponse]{Data: nearbyVehicles(results)})
}

func (r VehicleRequest) input() service.VehicleInput {
	in := service.VehicleInput{
		Make:                  r.Make,
		Model:                 r.Model,
		Year:                  r.Year,
		Color:                 r.Color,
		EngineSize:            r.EngineSize,
		Mileage:               r.Mileage,
		LicensePlate:          r.LicensePlate,
		VIN:                   r.VIN,
		LastServiceDate:       r.LastServiceDate,
		NextServiceDue:        r.NextServiceDue,
		InsuranceCompany:      r.InsuranceCompany,
		InsurancePolicyNumber: r.InsurancePolicyNumber,
		Notes:                 r.Notes,
		IsActive:              r.IsActive,
	}
	if r.FuelType != nil {
		f := model.FuelType(*r.FuelType)
		in.FuelType = &f
	}
	if r.TransmissionType != nil {
		t := model.Transmission(*r.TransmissionType)
		in.TransmissionType = &t
	}
	return in
}
