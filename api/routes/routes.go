package routes

import (
	"net/http"
	"time"

	"outdoortracker/api/handler"
	"outdoortracker/api/middleware"
	"outdoortracker/internal/metrics"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	Admin          *handler.AdminHandler
	Locations      *handler.LocationHandler
	WS             *handler.WSHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	auth *handler.AuthHandler,
	users *handler.UserHandler,
	admin *handler.AdminHandler,
	locations *handler.LocationHandler,
	ws *handler.WSHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           auth,
		Users:          users,
		Admin:          admin,
		Locations:      locations,
		WS:             ws,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	requireAuth := r.AuthMiddleware.RequireAuth
	requireAdmin := middleware.RequireRole("admin")

	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "message": "Service is running"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.POST("/api/auth/register", r.Auth.Register, r.AuthRate.Middleware())
	e.POST("/api/auth/verify-email", r.Auth.VerifyEmail, r.AuthRate.Middleware())
	e.POST("/api/auth/login", r.Auth.Login, r.LoginRate.Middleware())
	e.POST("/api/auth/login/mfa", r.Auth.LoginWithMFA, r.LoginRate.Middleware())
	e.POST("/api/auth/password/forgot", r.Auth.PasswordForgot, r.LoginRate.Middleware())
	e.POST("/api/auth/password/reset", r.Auth.PasswordReset, r.AuthRate.Middleware())
	e.POST("/api/auth/refresh", r.Auth.Refresh, r.AuthRate.Middleware())
	e.POST("/api/auth/logout", r.Auth.Logout, requireAuth)
	e.POST("/api/auth/logout/all", r.Auth.LogoutAll, requireAuth)
	e.POST("/api/auth/mfa/enable", r.Auth.EnableMFA, requireAuth)
	e.POST("/api/auth/mfa/verify", r.Auth.VerifyMFA, requireAuth)
	e.POST("/api/auth/mfa/disable", r.Auth.DisableMFA, requireAuth)

	e.GET("/api/users/me", r.Users.Me, requireAuth)
	e.GET("/api/users/active", r.Users.ActiveUsers, requireAuth)

	e.POST("/api/locations", r.Locations.Submit, requireAuth)
	e.GET("/api/locations/user/:id", r.Locations.History, requireAuth)
	e.GET("/api/locations/latest/:id", r.Locations.Latest, requireAuth)

	e.GET("/api/admin/users", r.Admin.ListUsers, requireAuth, requireAdmin)
	e.PUT("/api/admin/users/:id/approve", r.Admin.ApproveUser, requireAuth, requireAdmin)
	e.PUT("/api/admin/users/:id/toggle-active", r.Admin.ToggleActive, requireAuth, requireAdmin)
	e.DELETE("/api/admin/users/:id", r.Admin.DeleteUser, requireAuth, requireAdmin)

	// Presence handshake: token checked during admission, not by
	// middleware, so rejection happens before the upgrade.
	e.GET("/ws", r.WS.Connect)
}
