package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boardstack.app/workspace-service/internal/service"
)

// respondServiceError maps service sentinel errors onto the wire taxonomy.
// Anything unrecognized is an opaque 500.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkspaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFoundError", "message": "workspace not found"})
	case errors.Is(err, service.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": "DuplicateError", "message": "workspace name already used in this subscription"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": err.Error()})
	case errors.Is(err, service.ErrNoValidUsers):
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "no users eligible for this subscription"})
	case errors.Is(err, service.ErrUserLimitExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "AuthorizationError", "message": "subscription user limit exceeded"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalServerError", "message": "internal server error"})
	}
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": err.Error()})
}

func respondNotOwner(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "AuthorizationError", "message": "only a workspace owner may do this"})
}

func respondNotAuthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "AuthenticationError", "message": "not authenticated"})
}
