package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"boardstack.app/workspace-service/internal/client"
)

// PermissionDecider is the fail-closed authorization facade.
type PermissionDecider interface {
	CheckPermission(ctx context.Context, check client.PermissionCheck) bool
}

// RequirePermission gates the route behind a fine-grained permission check.
// For workspace-scoped checks the :id route param becomes the scope id; when
// the route has no :id param the check is subscription-scoped regardless.
func RequirePermission(roles PermissionDecider, permission, scopeType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		identity, ok := GetIdentity(ctx)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "not authenticated",
			})
			return
		}

		check := client.PermissionCheck{
			Token:              identity.Token,
			SubscriptionID:     GetSubscriptionID(ctx),
			RequiredPermission: permission,
			ScopeType:          scopeType,
		}
		if scopeType == client.ScopeWorkspace {
			if workspaceID := c.Param("id"); workspaceID != "" {
				check.ScopeID = workspaceID
			} else {
				check.ScopeType = client.ScopeSubscription
			}
		}

		if !roles.CheckPermission(ctx, check) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "AuthorizationError",
				"message": "permission denied",
			})
			return
		}

		c.Next()
	}
}
