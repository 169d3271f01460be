package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/http/middleware"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

// Controller handles general HTTP requests.
type Controller struct{}

// New creates a new Controller.
func New() *Controller {
	return &Controller{}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "pong",
	})
}

// MessageResponse is returned by operations without a resource body.
type MessageResponse struct {
	Message string `json:"message"`
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, bindingError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		fail(c, bindingError(err))
		return false
	}
	return true
}

// pathID parses the named path parameter as a UUID. A malformed id cannot match any
// resource, so it is reported as not found.
func pathID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, apperror.NewNotFound(resource))
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) *model.User {
	return middleware.CurrentUser(c)
}

func invalidToken() error {
	return apperror.NewFieldValidation("token", "is invalid")
}
