package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"boardstack.app/workspace-service/common/logger"
	"boardstack.app/workspace-service/internal/http/dto"
	"boardstack.app/workspace-service/internal/http/middleware"
	"boardstack.app/workspace-service/internal/model"
	"boardstack.app/workspace-service/internal/service"
	"boardstack.app/workspace-service/internal/store"
)

type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
}

func NewWorkspaceHandler(workspaceService service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	// BodyWith: the subscription middleware already read the body.
	var req dto.CreateWorkspaceRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		slog.WarnContext(ctx, "invalid create workspace request", "error", err)
		respondValidationError(c, err)
		return
	}

	ws, err := h.workspaceService.Create(ctx, service.CreateInput{
		Name:           req.Name,
		Description:    req.Description,
		SubscriptionID: req.SubscriptionID,
		Settings:       req.Settings,
		ActorID:        identity.UserID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	filter := listFilterFromQuery(c)
	filter.SubscriptionID = middleware.GetSubscriptionID(ctx)
	filter.UserID = identity.UserID

	page, err := h.workspaceService.FindAll(ctx, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceListResponse(page.Workspaces, page.Total, page.Page, page.Limit))
}

func (h *WorkspaceHandler) ListMine(c *gin.Context) {
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	filter := listFilterFromQuery(c)
	filter.UserID = identity.UserID
	filter.OwnerOnly = c.Query("ownerOnly") == "true"

	page, err := h.workspaceService.FindAll(ctx, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceListResponse(page.Workspaces, page.Total, page.Page, page.Limit))
}

func (h *WorkspaceHandler) ListBySubscription(c *gin.Context) {
	ctx := c.Request.Context()

	filter := listFilterFromQuery(c)
	filter.SubscriptionID = c.Param("subscriptionId")

	page, err := h.workspaceService.FindAll(ctx, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceListResponse(page.Workspaces, page.Total, page.Page, page.Limit))
}

func (h *WorkspaceHandler) GetByID(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	hasAccess, err := h.workspaceService.HasAccess(ctx, workspaceID, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !hasAccess {
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFoundError", "message": "workspace not found"})
		return
	}

	ws, err := h.workspaceService.FindByID(ctx, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) GetProgress(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	hasAccess, err := h.workspaceService.HasAccess(ctx, workspaceID, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !hasAccess {
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFoundError", "message": "workspace not found"})
		return
	}

	ws, err := h.workspaceService.FindByID(ctx, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProgressResponse(ws.Progress))
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	if !h.requireOwner(c, workspaceID, identity.UserID) {
		return
	}

	var req dto.UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid update workspace request", "error", err)
		respondValidationError(c, err)
		return
	}

	ws, err := h.workspaceService.Update(ctx, workspaceID, service.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
		MemberRoles: req.MemberRoles,
	}, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) UpdateProgress(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	if !h.requireOwner(c, workspaceID, identity.UserID) {
		return
	}

	var req dto.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid progress update request", "error", err)
		respondValidationError(c, err)
		return
	}

	ws, err := h.workspaceService.UpdateProgress(ctx, workspaceID, model.ProgressState(req.State), req.Comment, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	// IsOwner is false both for non-owners and for already-deleted
	// workspaces; only the first is a 403. The deleted case falls through to
	// the service, which answers the repeat delete idempotently.
	isOwner, err := h.workspaceService.IsOwner(ctx, workspaceID, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !isOwner {
		if _, findErr := h.workspaceService.FindByID(ctx, workspaceID); findErr == nil {
			respondNotOwner(c)
			return
		}
	}

	ws, err := h.workspaceService.SoftDelete(ctx, workspaceID, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) Restore(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	// Restore targets a soft-deleted record, so the live-read owner check
	// cannot apply; the permission middleware gates this route instead.
	ws, err := h.workspaceService.Restore(ctx, workspaceID, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToWorkspaceResponse(ws))
}

func (h *WorkspaceHandler) AddUsers(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	var req dto.ModifyUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid add users request", "error", err)
		respondValidationError(c, err)
		return
	}

	result, err := h.workspaceService.AddUsers(ctx, workspaceID, req.UserIDs, identity.UserID, identity.Token)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.AddUsersResponse{
		Workspace:    dto.ToWorkspaceResponse(result.Workspace),
		AddedUsers:   result.AddedUsers,
		InvalidUsers: result.InvalidUsers,
	})
}

func (h *WorkspaceHandler) RemoveUsers(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		respondNotAuthenticated(c)
		return
	}

	var req dto.ModifyUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid remove users request", "error", err)
		respondValidationError(c, err)
		return
	}

	result, err := h.workspaceService.RemoveUsers(ctx, workspaceID, req.UserIDs, identity.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, &dto.RemoveUsersResponse{
		Workspace:    dto.ToWorkspaceResponse(result.Workspace),
		RemovedUsers: result.RemovedUsers,
		NotPresent:   result.NotPresent,
	})
}

func (h *WorkspaceHandler) requireOwner(c *gin.Context, workspaceID int64, userID string) bool {
	isOwner, err := h.workspaceService.IsOwner(c.Request.Context(), workspaceID, userID)
	if err != nil {
		respondServiceError(c, err)
		return false
	}
	if !isOwner {
		respondNotOwner(c)
		return false
	}
	return true
}

// workspaceIDParam parses the :id param and stamps it into the request
// context so every log on the request path carries the workspace id.
func workspaceIDParam(c *gin.Context) (int64, bool) {
	workspaceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || workspaceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "invalid workspace id"})
		return 0, false
	}
	c.Request = c.Request.WithContext(logger.WithLogFields(
		c.Request.Context(), logger.LogFields{WorkspaceID: logger.Ptr(workspaceID)}))
	return workspaceID, true
}

func listFilterFromQuery(c *gin.Context) store.ListFilter {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}
	return store.ListFilter{
		Page:               page,
		Limit:              limit,
		IncludeSoftDeleted: c.Query("includeDeleted") == "true",
	}
}
