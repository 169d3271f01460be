package http

import (
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/http/controller"
	"github.com/iyhunko/mechanic-matching/internal/http/middleware"
)

// Controllers groups the handlers mounted by InitRouter.
type Controllers struct {
	Health          *controller.Controller
	Users           *controller.UserController
	Vehicles        *controller.VehicleController
	Mechanics       *controller.MechanicController
	ServiceRequests *controller.ServiceRequestController
	Admin           *controller.AdminController
}

func InitRouter(mw *middleware.Middleware, server *gin.Engine, ctrs Controllers) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery(), middleware.Logger(), mw.CORS(), middleware.ErrorHandler())

	api := server.Group("/api")
	api.GET("/health", ctrs.Health.Ping)

	auth := api.Group("/auth")
	{
		auth.POST("/register", ctrs.Users.Register)
		auth.POST("/login", ctrs.Users.Login)
		auth.GET("/me", mw.Authenticate(), ctrs.Users.Me)
	}

	authed := api.Group("", mw.Authenticate())

	users := authed.Group("/users")
	{
		users.PUT("/me", ctrs.Users.UpdateProfile)
		users.PUT("/me/location", ctrs.Users.UpdateLocation)
		users.GET("/nearby", ctrs.Users.Nearby)
	}

	mechanics := authed.Group("/mechanics")
	{
		mechanics.GET("/nearby", ctrs.Mechanics.Nearby)
		mechanics.GET("/:id", ctrs.Mechanics.PublicProfile)
	}

	profile := authed.Group("/mechanic-profile", middleware.RequireRoles(access.Mechanics))
	{
		profile.GET("", ctrs.Mechanics.GetProfile)
		profile.POST("", ctrs.Mechanics.CreateProfile)
		profile.PUT("", ctrs.Mechanics.UpdateProfile)
		profile.PATCH("/availability", ctrs.Mechanics.SetAvailability)
		profile.GET("/estimate", ctrs.Mechanics.Estimate)
	}

	vehicles := authed.Group("/vehicles")
	{
		vehicles.GET("", ctrs.Vehicles.List)
		vehicles.POST("", middleware.RequireRoles(access.ClientsAdmins), ctrs.Vehicles.Create)
		vehicles.GET("/nearby", middleware.RequireRoles(access.Mechanics), ctrs.Vehicles.Nearby)
		vehicles.GET("/:id", ctrs.Vehicles.Get)
		vehicles.PUT("/:id", ctrs.Vehicles.Update)
		vehicles.DELETE("/:id", ctrs.Vehicles.Delete)
		vehicles.POST("/:id/service-records", ctrs.Vehicles.AddServiceRecord)
	}

	requests := authed.Group("/service-requests")
	{
		requests.POST("", middleware.RequireRoles(access.Clients), ctrs.ServiceRequests.Create)
		requests.GET("", ctrs.ServiceRequests.List)
		requests.GET("/available", middleware.RequireRoles(access.Mechanics), ctrs.ServiceRequests.Available)
		requests.GET("/:id", ctrs.ServiceRequests.Get)
		requests.PUT("/:id", ctrs.ServiceRequests.Update)
		requests.DELETE("/:id", ctrs.ServiceRequests.Delete)
		requests.GET("/:id/distance", middleware.RequireRoles(access.Mechanics), ctrs.ServiceRequests.Distance)
		requests.POST("/:id/accept", middleware.RequireRoles(access.Mechanics), ctrs.ServiceRequests.Accept)
		requests.POST("/:id/reject", middleware.RequireRoles(access.Mechanics), ctrs.ServiceRequests.Reject)
		requests.PATCH("/:id/status", ctrs.ServiceRequests.UpdateStatus)
		requests.POST("/:id/rating", middleware.RequireRoles(access.Clients), ctrs.ServiceRequests.Rate)
	}

	admin := authed.Group("/admin", middleware.RequireRoles(access.Admins))
	{
		admin.GET("/users", ctrs.Admin.ListUsers)
		admin.PUT("/users/:id", ctrs.Admin.UpdateUser)
		admin.DELETE("/users/:id", ctrs.Admin.DeleteUser)
		admin.POST("/users/:id/roles", ctrs.Admin.AssignRole)
		admin.DELETE("/users/:id/roles/:role", ctrs.Admin.RemoveRole)
		admin.PATCH("/users/:id/status", ctrs.Admin.SetStatus)
		admin.PATCH("/mechanics/:id/verify", ctrs.Admin.VerifyMechanic)
	}

	return server
}
