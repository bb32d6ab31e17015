package router

import (
	"context"

	"github.com/gin-gonic/gin"

	"boardstack.app/workspace-service/internal/http/handler"
	"boardstack.app/workspace-service/internal/http/middleware"
	"boardstack.app/workspace-service/internal/service"
)

// Dependencies carries the upstream facades the route middleware needs.
type Dependencies struct {
	Auth          middleware.TokenValidator
	Profiles      middleware.ProfileResolver
	Subscriptions middleware.SubscriptionVerifier
	Roles         middleware.PermissionDecider
	DBPing        func(ctx context.Context) error
	RedisPing     func(ctx context.Context) error
}

func SetupRoutes(router *gin.Engine, services *service.Services, deps Dependencies) {
	healthHandler := handler.NewHealthHandler(deps.DBPing, deps.RedisPing)
	router.GET("/health", healthHandler.Check)

	v1 := router.Group("/api/v1")
	{
		workspaceHandler := handler.NewWorkspaceHandler(services.Workspaces())
		WorkspaceRouter(v1.Group("/workspaces"), workspaceHandler, deps)
	}
}
