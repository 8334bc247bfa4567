package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/subvault/subscription-portal/internal/handler"
    "github.com/subvault/subscription-portal/internal/middleware"
    "github.com/subvault/subscription-portal/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes. Unauthenticated token
// operations live under /v1/auth; /v1/me and /v1/auth/logout sit behind
// the JWT middleware so logout can revoke every session of the caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/refresh-access", a.RefreshAccess)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
    auth.POST("/auth/logout", a.Logout)
}

// RegisterSubscriptions registers the requester-facing subscription
// routes. Every role may read; submitting and renewing is rejected in
// the engine for roles without request rights, so no role gate is
// applied here. The cache middleware, when non-nil, is applied to the
// list endpoint only.
func RegisterSubscriptions(e *echo.Echo, h *handler.SubscriptionHandler, jwtSecret string, cache echo.MiddlewareFunc) {
    g := e.Group("/v1/subscriptions")
    g.Use(middleware.JWTAuth(jwtSecret))

    if cache != nil {
        g.GET("", h.List, cache)
    } else {
        g.GET("", h.List)
    }
    g.POST("", h.Create)
    g.GET("/:id", h.Get)
    g.POST("/:id/renew", h.Renew)
    g.POST("/:id/alert", h.Alert)
    g.POST("/:id/continuation", h.Continuation)
}

// RegisterHOD registers the department-head decision route. The engine
// verifies the actor against the subscription's recorded HOD, which also
// covers heads whose base role is not "hod".
func RegisterHOD(e *echo.Echo, h *handler.HODHandler, jwtSecret string) {
    g := e.Group("/v1/hod")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.POST("/subscriptions/:id/decision", h.Decide)
}

// RegisterFinance registers the finance queue and the APA/AM actions.
// The sub-role split is enforced at the route level and again in the
// engine.
func RegisterFinance(e *echo.Echo, h *handler.FinanceHandler, jwtSecret string) {
    g := e.Group("/v1/finance")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleFinance))

    g.GET("/queue", h.Queue)

    apa := g.Group("/subscriptions/:id", middleware.RequireFinanceSubRole(model.SubRoleAPA))
    apa.POST("/forward", h.Forward)
    apa.POST("/payment", h.Payment)
    apa.POST("/decline", h.Decline)

    am := g.Group("/subscriptions/:id", middleware.RequireFinanceSubRole(model.SubRoleAM))
    am.POST("/amlog", h.AMLog)
}

// RegisterAdmin registers the administration surface. Department listing
// is open to any authenticated user; everything else is admin-only.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/departments", h.ListDepartments)

    g := e.Group("/v1/admin")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleAdmin))
    g.DELETE("/subscriptions/:id", h.DeleteSubscription)
    g.GET("/deleted-subscriptions", h.ListDeleted)
    g.GET("/users", h.ListUsers)
    g.PUT("/users/:id/roles", h.UpdateUserRoles)
    g.POST("/departments", h.CreateDepartment)
}

// RegisterNotifications registers the in-app notification feed.
func RegisterNotifications(e *echo.Echo, h *handler.NotificationHandler, jwtSecret string) {
    g := e.Group("/v1/notifications")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.GET("", h.List)
    g.POST("/:id/read", h.MarkRead)
}
