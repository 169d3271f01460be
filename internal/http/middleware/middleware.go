package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/config"
	"github.com/iyhunko/mechanic-matching/internal/model"
)

const currentUserKey = "current_user"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type Middleware struct {
	config *config.Config
	auth   Authenticator
}

// New initializes the middleware with the given configuration.
// We don't need ctx here because it always has Gin context.
func New(config *config.Config, auth Authenticator) *Middleware {
	return &Middleware{
		config: config,
		auth:   auth,
	}
}

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
// instead of crashing the server.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered",
					slog.Any("error", err),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"message": "Internal Server Error",
				})
			}
		}()
		c.Next()
	}
}

// Logger logs every request once it has been handled.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			slog.Error("Request handled", attrs...)
			return
		}
		slog.Info("Request handled", attrs...)
	}
}

// CORS allows the configured origins; "*" allows every origin.
func (m *Middleware) CORS() gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        24 * time.Hour,
	}
	if m.config.CORS.AllowsAll() {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = m.config.CORS.AllowedOrigins
		conf.AllowCredentials = true
	}
	return cors.New(conf)
}

// Authenticate requires a valid bearer token and stores the resolved user in the context.
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			_ = c.Error(apperror.NewUnauthenticated("authentication required"))
			c.Abort()
			return
		}

		user, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireRoles lets the request through when the current user holds one of the roles.
func RequireRoles(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Require(CurrentUser(c), capability); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ErrorHandler renders the last error attached to the context as
// {"message": ..., "errors": {...}}. Errors outside the apperror taxonomy become 500s.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			body := gin.H{"message": validationErr.Message}
			if len(validationErr.Fields) > 0 {
				body["errors"] = validationErr.Fields
			}
			c.JSON(validationErr.StatusCode(), body)
			return
		}

		var httpErr apperror.HTTPError
		if errors.As(err, &httpErr) {
			c.JSON(httpErr.StatusCode(), gin.H{"message": httpErr.Error()})
			return
		}

		slog.Error("Request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("err", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
	}
}

// SetCurrentUser stores the authenticated user in the context.
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the authenticated user, or nil on public routes.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
