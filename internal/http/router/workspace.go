package router

import (
	"github.com/gin-gonic/gin"

	"boardstack.app/workspace-service/internal/client"
	"boardstack.app/workspace-service/internal/http/handler"
	"boardstack.app/workspace-service/internal/http/middleware"
)

// WorkspaceRouter wires the workspace routes. Everything requires a resolved
// identity; subscription validation runs where the request names a
// subscription, and fine-grained permission checks guard the mutating routes.
func WorkspaceRouter(rg *gin.RouterGroup, h *handler.WorkspaceHandler, deps Dependencies) {
	rg.Use(middleware.RequireAuth(deps.Auth, deps.Profiles))

	validateSub := middleware.ValidateSubscription(deps.Subscriptions)

	rg.GET("", validateSub, h.List)
	rg.GET("/my", h.ListMine)
	rg.GET("/subscription/:subscriptionId", validateSub, h.ListBySubscription)
	rg.POST("", validateSub,
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceCreate, client.ScopeSubscription),
		h.Create)

	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/progress", h.GetProgress)
	rg.PUT("/:id",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceManage, client.ScopeWorkspace),
		h.Update)
	rg.PATCH("/:id/progress",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceUpdate, client.ScopeWorkspace),
		h.UpdateProgress)
	rg.DELETE("/:id",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceManage, client.ScopeWorkspace),
		h.Delete)
	rg.POST("/:id/restore",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceManage, client.ScopeWorkspace),
		h.Restore)
	rg.POST("/:id/users",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceUsers, client.ScopeWorkspace),
		h.AddUsers)
	rg.DELETE("/:id/users",
		middleware.RequirePermission(deps.Roles, client.PermissionWorkspaceUsers, client.ScopeWorkspace),
		h.RemoveUsers)
}
