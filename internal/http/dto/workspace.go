package dto

import (
	"time"

	"boardstack.app/workspace-service/internal/model"
)

type CreateWorkspaceRequest struct {
	Name           string         `json:"name" binding:"required,min=1,max=255"`
	Description    *string        `json:"description,omitempty" binding:"omitempty,max=2000"`
	SubscriptionID string         `json:"subscriptionId" binding:"required"`
	Settings       map[string]any `json:"settings,omitempty"`
}

type UpdateWorkspaceRequest struct {
	Name        *string           `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string           `json:"description,omitempty" binding:"omitempty,max=2000"`
	Settings    map[string]any    `json:"settings,omitempty"`
	MemberRoles map[string]string `json:"memberRoles,omitempty"`
}

type UpdateProgressRequest struct {
	State   string `json:"state" binding:"required"`
	Comment string `json:"comment,omitempty" binding:"omitempty,max=1000"`
}

type ModifyUsersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1,dive,required"`
}

type ProgressEntryResponse struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedBy string    `json:"updatedBy"`
	Comment   string    `json:"comment,omitempty"`
}

type ProgressResponse struct {
	State       string                  `json:"state"`
	LastUpdated time.Time               `json:"lastUpdated"`
	History     []ProgressEntryResponse `json:"history"`
}

type WorkspaceResponse struct {
	ID             int64             `json:"id,string"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	SubscriptionID string            `json:"subscriptionId"`
	Owner          []string          `json:"owner"`
	Members        []string          `json:"members"`
	MemberRoles    map[string]string `json:"memberRoles"`
	Settings       map[string]any    `json:"settings"`
	Progress       ProgressResponse  `json:"progress"`
	IsDeleted      bool              `json:"isDeleted"`
	DeletedAt      *time.Time        `json:"deletedAt,omitempty"`
	DeletionID     *string           `json:"deletionId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type WorkspaceListResponse struct {
	Workspaces []WorkspaceResponse `json:"workspaces"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
}

type AddUsersResponse struct {
	Workspace    *WorkspaceResponse `json:"workspace"`
	AddedUsers   []string           `json:"addedUsers"`
	InvalidUsers []string           `json:"invalidUsers"`
}

type RemoveUsersResponse struct {
	Workspace    *WorkspaceResponse `json:"workspace"`
	RemovedUsers []string           `json:"removedUsers"`
	NotPresent   []string           `json:"notPresentUsers"`
}

func ToProgressResponse(p model.Progress) ProgressResponse {
	history := make([]ProgressEntryResponse, 0, len(p.History))
	for _, entry := range p.History {
		history = append(history, ProgressEntryResponse{
			State:     string(entry.State),
			Timestamp: entry.Timestamp,
			UpdatedBy: entry.UpdatedBy,
			Comment:   entry.Comment,
		})
	}
	return ProgressResponse{
		State:       string(p.State),
		LastUpdated: p.LastUpdated,
		History:     history,
	}
}

func ToWorkspaceResponse(ws *model.Workspace) *WorkspaceResponse {
	return &WorkspaceResponse{
		ID:             ws.ID,
		Name:           ws.Name,
		Description:    ws.Description,
		SubscriptionID: ws.SubscriptionID,
		Owner:          ws.Owners,
		Members:        ws.Members,
		MemberRoles:    ws.MemberRoles,
		Settings:       ws.Settings,
		Progress:       ToProgressResponse(ws.Progress),
		IsDeleted:      ws.IsDeleted,
		DeletedAt:      ws.DeletedAt,
		DeletionID:     ws.DeletionID,
		CreatedAt:      ws.CreatedAt,
		UpdatedAt:      ws.UpdatedAt,
	}
}

func ToWorkspaceListResponse(workspaces []model.Workspace, total int64, page, limit int) *WorkspaceListResponse {
	items := make([]WorkspaceResponse, 0, len(workspaces))
	for i := range workspaces {
		items = append(items, *ToWorkspaceResponse(&workspaces[i]))
	}
	return &WorkspaceListResponse{
		Workspaces: items,
		Total:      total,
		Page:       page,
		Limit:      limit,
	}
}
