package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/service"
)

const userResource = "user"

// AdminService is the user-administration API used by AdminController.
type AdminService interface {
	ListUsers(ctx context.Context, actor *model.User, query repository.Query) ([]*model.User, error)
	UpdateUser(ctx context.Context, actor *model.User, id uuid.UUID, in service.AdminUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, id uuid.UUID) error
	AssignRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error)
	RemoveRole(ctx context.Context, actor *model.User, id uuid.UUID, role model.Role) (*model.User, error)
	SetStatus(ctx context.Context, actor *model.User, id uuid.UUID, active *bool) (*model.User, error)
	VerifyMechanic(ctx context.Context, actor *model.User, userID uuid.UUID, verified bool) (*model.MechanicProfile, error)
}

// AdminController handles the administrator endpoints.
type AdminController struct {
	admin AdminService
}

// NewAdminController creates a new AdminController.
func NewAdminController(admin AdminService) *AdminController {
	return &AdminController{admin: admin}
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit  int32  `form:"limit"`
	Token  string `form:"token"`
	Search string `form:"search" binding:"max=255"`
	Role   string `form:"role" binding:"omitempty,role"`
	Active string `form:"is_active" binding:"omitempty,oneof=true false"`
}

// AdminUserRequest represents the request body for editing a user.
type AdminUserRequest struct {
	Name  *string   `json:"name" binding:"omitempty,min=1,max=255"`
	Email *string   `json:"email" binding:"omitempty,email,max=255"`
	Phone *string   `json:"phone" binding:"omitempty,max=20"`
	Roles *[]string `json:"roles" binding:"omitempty,min=1,dive,role"`
}

// RoleRequest represents the request body for assigning a role.
type RoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// UserStatusRequest represents the request body for activating or deactivating a user.
// An omitted is_active toggles the current state.
type UserStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// VerifyRequest represents the request body for verifying a mechanic.
type VerifyRequest struct {
	IsVerified *bool `json:"is_verified" binding:"required"`
}

// ListUsers handles GET /admin/users.
func (ac *AdminController) ListUsers(c *gin.Context) {
	var req ListUsersQuery
	if !bindQuery(c, &req) {
		return
	}
	query := repository.NewQuery()
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		fail(c, invalidToken())
		return
	}
	if req.Search != "" {
		query.With(repository.SearchField, req.Search)
	}
	if req.Role != "" {
		query.With(repository.RoleField, req.Role)
	}
	if req.Active != "" {
		query.With(repository.ActiveField, req.Active)
	}

	users, err := ac.admin.ListUsers(c.Request.Context(), actor(c), *query)
	if err != nil {
		fail(c, err)
		return
	}

	resp := ListResponse[UserResponse]{Data: toUserResponses(users)}
	if n := len(users); n > 0 {
		last := users[n-1]
		resp.NextPageToken = repository.NextPageToken(n, query.Limit, repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt})
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateUser handles PUT /admin/users/:id.
func (ac *AdminController) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id", userResource)
	if !ok {
		return
	}
	var req AdminUserRequest
	if !bindJSON(c, &req) {
		return
	}

	in := service.AdminUserInput{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if req.Roles != nil {
		roles := make([]model.Role, len(*req.Roles))
		for i, r := range *req.Roles {
			roles[i] = model.Role(r)
		}
		in.Roles = &roles
	}

	updated, err := ac.admin.UpdateUser(c.Request.Context(), actor(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}

// DeleteUser handles DELETE /admin/users/:id.
func (ac *AdminController) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id", userResource)
	if !ok {
		return
	}
	if err := ac.admin.DeleteUser(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted successfully"})
}

// AssignRole handles POST /admin/users/:id/roles.
func (ac *AdminController) AssignRole(c *gin.Context) {
	id, ok := pathID(c, "id", userResource)
	if !ok {
		return
	}
	var req RoleRequest
	if !bindJSON(c, &req) {
		return
	}
	ac.respondUser(c, func(ctx context.Context) (*model.User, error) {
		return ac.admin.AssignRole(ctx, actor(c), id, model.Role(req.Role))
	})
}

// RemoveRole handles DELETE /admin/users/:id/roles/:role.
func (ac *AdminController) RemoveRole(c *gin.Context) {
	id, ok := pathID(c, "id", userResource)
	if !ok {
		return
	}
	ac.respondUser(c, func(ctx context.Context) (*model.User, error) {
		return ac.admin.RemoveRole(ctx, actor(c), id, model.Role(c.Param("role")))
	})
}

// SetStatus handles PATCH /admin/users/:id/status.
func (ac *AdminController) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id", userResource)
	if !ok {
		return
	}
	var req UserStatusRequest
	// an empty body toggles
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	ac.respondUser(c, func(ctx context.Context) (*model.User, error) {
		return ac.admin.SetStatus(ctx, actor(c), id, req.IsActive)
	})
}

// VerifyMechanic handles PATCH /admin/mechanics/:id/verify.
func (ac *AdminController) VerifyMechanic(c *gin.Context) {
	id, ok := pathID(c, "id", "mechanic profile")
	if !ok {
		return
	}
	var req VerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := ac.admin.VerifyMechanic(c.Request.Context(), actor(c), id, *req.IsVerified)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toMechanicProfileResponse(profile))
}

func (ac *AdminController) respondUser(c *gin.Context, fn func(ctx context.Context) (*model.User, error)) {
	u, err := fn(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}
