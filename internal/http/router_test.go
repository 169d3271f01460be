package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/config"
	"github.com/iyhunko/mechanic-matching/internal/http/controller"
	"github.com/iyhunko/mechanic-matching/internal/http/middleware"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/stretchr/testify/assert"
)

// tokenUsers authenticates the token "<role>" as a user holding that role.
type tokenUsers map[string]*model.User

func (t tokenUsers) Authenticate(_ context.Context, token string) (*model.User, error) {
	if u, ok := t[token]; ok {
		return u, nil
	}
	return nil, apperror.NewUnauthenticated("invalid or expired token")
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	users := tokenUsers{}
	for _, role := range []model.Role{model.RoleClient, model.RoleMechanic, model.RoleAdmin} {
		users[string(role)] = &model.User{ID: uuid.New(), IsActive: true, Roles: model.NewRoleSet(role)}
	}

	mw := middleware.New(&config.Config{}, users)
	return InitRouter(mw, gin.New(), Controllers{
		Health:          controller.New(),
		Users:           controller.NewUserController(nil, time.Hour),
		Vehicles:        controller.NewVehicleController(nil),
		Mechanics:       controller.NewMechanicController(nil),
		ServiceRequests: controller.NewServiceRequestController(nil),
		Admin:           controller.NewAdminController(nil),
	})
}

func TestInitRouter(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/health", "", http.StatusOK},
		{"me requires a token", http.MethodGet, "/api/auth/me", "", http.StatusUnauthorized},
		{"me with a token", http.MethodGet, "/api/auth/me", "cliente", http.StatusOK},
		{"unknown token", http.MethodGet, "/api/service-requests", "nobody", http.StatusUnauthorized},
		{"admin area is admin only", http.MethodGet, "/api/admin/users", "cliente", http.StatusForbidden},
		{"mechanics cannot create requests", http.MethodPost, "/api/service-requests", "mecanico", http.StatusForbidden},
		{"clients cannot accept", http.MethodPost, "/api/service-requests/" + uuid.NewString() + "/accept", "cliente", http.StatusForbidden},
		{"clients cannot list available work", http.MethodGet, "/api/service-requests/available", "cliente", http.StatusForbidden},
		{"mechanic profile is mechanic only", http.MethodGet, "/api/mechanic-profile", "administrador", http.StatusForbidden},
		{"nearby vehicles is mechanic only", http.MethodGet, "/api/vehicles/nearby", "cliente", http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/unknown", "cliente", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestInitRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/service-requests", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
