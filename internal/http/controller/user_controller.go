package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/service"
)

// UserService is the account API used by UserController.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	UpdateProfile(ctx context.Context, actor *model.User, in service.ProfileInput) (*model.User, error)
	UpdateLocation(ctx context.Context, actor *model.User, lat, lon float64) (*model.User, error)
	NearbyUsers(ctx context.Context, actor *model.User, in service.NearbyUsersInput) ([]search.Result[*model.User], error)
}

// UserController handles authentication and the current user's account.
type UserController struct {
	users       UserService
	tokenExpiry time.Duration
}

// NewUserController creates a new UserController.
func NewUserController(users UserService, tokenExpiry time.Duration) *UserController {
	return &UserController{users: users, tokenExpiry: tokenExpiry}
}

// RegisterRequest represents the request body for self-registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"max=20"`
	Role     string `json:"role" binding:"omitempty,oneof=cliente mecanico"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents the request body for editing the current user.
type UpdateProfileRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=255"`
	Phone      *string `json:"phone" binding:"omitempty,max=20"`
	Address    *string `json:"address" binding:"omitempty,max=500"`
	City       *string `json:"city" binding:"omitempty,max=100"`
	State      *string `json:"state" binding:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" binding:"omitempty,max=10"`
}

// UpdateLocationRequest represents the request body for storing coordinates.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// NearbyUsersQuery represents the query parameters of the nearby-users search.
type NearbyUsersQuery struct {
	Radius float64 `form:"radius"`
	Role   string  `form:"role" binding:"omitempty,role"`
	Limit  int     `form:"limit" binding:"omitempty,min=1"`
}

// Register handles POST /auth/register.
func (uc *UserController) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := uc.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, uc.tokenResponse(user, token))
}

// Login handles POST /auth/login.
func (uc *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := uc.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, uc.tokenResponse(user, token))
}

// Me handles GET /auth/me.
func (uc *UserController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toUserResponse(actor(c)))
}

// UpdateProfile handles PUT /users/me.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.UpdateProfile(c.Request.Context(), actor(c), service.ProfileInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateLocation handles PUT /users/me/location.
func (uc *UserController) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.UpdateLocation(c.Request.Context(), actor(c), *req.Latitude, *req.Longitude)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Nearby handles GET /users/nearby.
func (uc *UserController) Nearby(c *gin.Context) {
	var req NearbyUsersQuery
	if !bindQuery(c, &req) {
		return
	}

	results, err := uc.users.NearbyUsers(c.Request.Context(), actor(c), service.NearbyUsersInput{
		RadiusKm: req.Radius,
		Role:     model.Role(req.Role),
		Limit:    req.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[NearbyUserResponse]{Data: nearbyUsers(results)})
}

func (uc *UserController) tokenResponse(user *model.User, token string) TokenResponse {
	return TokenResponse{
		User:        toUserResponse(user),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(uc.tokenExpiry.Seconds()),
	}
}
