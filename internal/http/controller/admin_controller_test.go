package controller

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminController_ListUsers(t *testing.T) {
	// given
	admin := newActor(model.RoleAdmin)
	svc := new(MockAdminService)
	router := newRouter(admin)
	router.GET("/admin/users", NewAdminController(svc).ListUsers)

	svc.On("ListUsers", mock.Anything, admin, mock.MatchedBy(func(q repository.Query) bool {
		return q.Values[repository.RoleField] == "mecanico" &&
			q.Values[repository.SearchField] == "luis" &&
			q.Values[repository.ActiveField] == "true"
	})).Return([]*model.User{newActor(model.RoleMechanic)}, nil)

	// when
	w := doJSON(router, http.MethodGet, "/admin/users?role=mecanico&search=luis&is_active=true", nil)
	bad := doJSON(router, http.MethodGet, "/admin/users?role=superuser", nil)

	// then
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
	svc.AssertExpectations(t)
}

func TestAdminController_DeleteUser(t *testing.T) {
	admin := newActor(model.RoleAdmin)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deleted", nil, http.StatusOK},
		{"last administrator", apperror.NewInvariantViolation("the last administrator cannot be removed"), http.StatusForbidden},
		{"self", apperror.NewAuthorization("you cannot delete your own account"), http.StatusForbidden},
		{"missing", apperror.NewNotFound("user"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAdminService)
			router := newRouter(admin)
			router.DELETE("/admin/users/:id", NewAdminController(svc).DeleteUser)

			id := uuid.New()
			svc.On("DeleteUser", mock.Anything, admin, id).Return(tt.err)

			w := doJSON(router, http.MethodDelete, "/admin/users/"+id.String(), nil)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAdminController_Roles(t *testing.T) {
	admin := newActor(model.RoleAdmin)
	target := newActor(model.RoleClient, model.RoleMechanic)

	t.Run("assigns a role", func(t *testing.T) {
		svc := new(MockAdminService)
		router := newRouter(admin)
		router.POST("/admin/users/:id/roles", NewAdminController(svc).AssignRole)
		svc.On("AssignRole", mock.Anything, admin, target.ID, model.RoleMechanic).Return(target, nil)

		w := doJSON(router, http.MethodPost, "/admin/users/"+target.ID.String()+"/roles", map[string]any{"role": "mecanico"})
		invalid := doJSON(router, http.MethodPost, "/admin/users/"+target.ID.String()+"/roles", map[string]any{"role": "root"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{"cliente", "mecanico"}, decodeBody(t, w)["roles"])
		assert.Equal(t, http.StatusUnprocessableEntity, invalid.Code)
	})

	t.Run("removes a role from the path", func(t *testing.T) {
		svc := new(MockAdminService)
		router := newRouter(admin)
		router.DELETE("/admin/users/:id/roles/:role", NewAdminController(svc).RemoveRole)
		svc.On("RemoveRole", mock.Anything, admin, target.ID, model.RoleAdmin).
			Return(nil, apperror.NewValidation("the user does not have the administrador role"))

		w := doJSON(router, http.MethodDelete, "/admin/users/"+target.ID.String()+"/roles/administrador", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestAdminController_UpdateUser(t *testing.T) {
	admin := newActor(model.RoleAdmin)
	svc := new(MockAdminService)
	router := newRouter(admin)
	router.PUT("/admin/users/:id", NewAdminController(svc).UpdateUser)

	target := newActor(model.RoleClient)
	roles := []model.Role{model.RoleClient, model.RoleMechanic}
	name := "Ana"
	svc.On("UpdateUser", mock.Anything, admin, target.ID, service.AdminUserInput{Name: &name, Roles: &roles}).Return(target, nil)

	w := doJSON(router, http.MethodPut, "/admin/users/"+target.ID.String(), map[string]any{
		"name": "Ana", "roles": []string{"cliente", "mecanico"},
	})
	empty := doJSON(router, http.MethodPut, "/admin/users/"+target.ID.String(), map[string]any{"roles": []string{}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, empty.Code)
	svc.AssertNumberOfCalls(t, "UpdateUser", 1)
}

func TestAdminController_SetStatus(t *testing.T) {
	admin := newActor(model.RoleAdmin)
	target := newActor(model.RoleClient)

	t.Run("toggles without a body", func(t *testing.T) {
		svc := new(MockAdminService)
		router := newRouter(admin)
		router.PATCH("/admin/users/:id/status", NewAdminController(svc).SetStatus)
		svc.On("SetStatus", mock.Anything, admin, target.ID, (*bool)(nil)).Return(target, nil)

		w := doJSON(router, http.MethodPatch, "/admin/users/"+target.ID.String()+"/status", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("sets an explicit state", func(t *testing.T) {
		svc := new(MockAdminService)
		router := newRouter(admin)
		router.PATCH("/admin/users/:id/status", NewAdminController(svc).SetStatus)
		inactive := false
		svc.On("SetStatus", mock.Anything, admin, target.ID, &inactive).Return(target, nil)

		w := doJSON(router, http.MethodPatch, "/admin/users/"+target.ID.String()+"/status", map[string]any{"is_active": false})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestAdminController_VerifyMechanic(t *testing.T) {
	admin := newActor(model.RoleAdmin)
	svc := new(MockAdminService)
	router := newRouter(admin)
	router.PATCH("/admin/mechanics/:id/verify", NewAdminController(svc).VerifyMechanic)

	userID := uuid.New()
	svc.On("VerifyMechanic", mock.Anything, admin, userID, true).
		Return(&model.MechanicProfile{ID: uuid.New(), UserID: userID, IsVerified: true}, nil)

	w := doJSON(router, http.MethodPatch, "/admin/mechanics/"+userID.String()+"/verify", map[string]any{"is_verified": true})
	missing := doJSON(router, http.MethodPatch, "/admin/mechanics/"+userID.String()+"/verify", map[string]any{})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["is_verified"])
	assert.Equal(t, http.StatusUnprocessableEntity, missing.Code)
}
