package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"boardstack.app/workspace-service/common/logger"
	"boardstack.app/workspace-service/internal/client"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the resolved caller: the raw bearer token for forwarding to
// upstream services, the auth subject, and the internal user id the profile
// service maps it to.
type Identity struct {
	Token  string
	AuthID string
	UserID string
}

// TokenValidator is the slice of the auth client this middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*client.TokenValidation, error)
}

// ProfileResolver maps auth subjects to internal user profiles.
type ProfileResolver interface {
	GetProfile(ctx context.Context, authID string) (*client.Profile, error)
}

// RequireAuth validates the bearer token upstream, extracts the subject from
// the (already validated) JWT and resolves it to an internal user. The token
// signature is not re-verified locally; the auth service is the verifier.
func RequireAuth(auth TokenValidator, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "missing bearer token",
			})
			return
		}

		validation, err := auth.ValidateToken(ctx, token)
		if err != nil {
			slog.WarnContext(ctx, "token validation unavailable", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "unable to validate token",
			})
			return
		}
		if !validation.IsValid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "invalid token",
			})
			return
		}

		authID, err := tokenSubject(token)
		if err != nil || authID == "" {
			slog.WarnContext(ctx, "token subject extraction failed", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "invalid token",
			})
			return
		}

		profile, err := profiles.GetProfile(ctx, authID)
		if err != nil {
			slog.WarnContext(ctx, "profile resolution failed", "auth_id", authID, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "AuthenticationError",
				"message": "unknown user",
			})
			return
		}

		identity := Identity{Token: token, AuthID: authID, UserID: profile.ID}
		ctx = WithIdentity(ctx, identity)
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(profile.ID)})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// tokenSubject pulls the sub claim without verifying the signature; the auth
// service already vouched for the token.
func tokenSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	return claims.GetSubject()
}
