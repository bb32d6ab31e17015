package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"boardstack.app/workspace-service/common/logger"
)

const subscriptionContextKey contextKey = "subscription_id"

// SubscriptionVerifier answers whether a subscription is in approved status.
type SubscriptionVerifier interface {
	IsApproved(ctx context.Context, subscriptionID, token string) bool
}

type subscriptionBody struct {
	SubscriptionID string `json:"subscriptionId"`
}

// ValidateSubscription resolves the subscription id from the route, the query
// string or the request body, and rejects the request unless the subscription
// is approved. Body reads use ShouldBindBodyWith so handlers can rebind.
func ValidateSubscription(subscriptions SubscriptionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		subscriptionID := subscriptionIDFromRequest(c)
		if subscriptionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "ValidationError",
				"message": "subscriptionId is required",
			})
			return
		}

		identity, ok := GetIdentity(ctx)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "not authenticated",
			})
			return
		}

		if !subscriptions.IsApproved(ctx, subscriptionID, identity.Token) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "AuthorizationError",
				"message": "subscription is not approved",
			})
			return
		}

		ctx = WithSubscriptionID(ctx, subscriptionID)
		ctx = logger.WithLogFields(ctx, logger.LogFields{SubscriptionID: logger.Ptr(subscriptionID)})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithSubscriptionID(ctx context.Context, subscriptionID string) context.Context {
	return context.WithValue(ctx, subscriptionContextKey, subscriptionID)
}

func GetSubscriptionID(ctx context.Context) string {
	subscriptionID, _ := ctx.Value(subscriptionContextKey).(string)
	return subscriptionID
}

func subscriptionIDFromRequest(c *gin.Context) string {
	if id := c.Param("subscriptionId"); id != "" {
		return id
	}
	if id := c.Query("subscriptionId"); id != "" {
		return id
	}
	var body subscriptionBody
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
		return body.SubscriptionID
	}
	return ""
}
