// Package events builds and publishes the workspace domain events other
// services consume. Publication is fire-and-forget from the caller's point of
// view: a failed publish is reported but never unwinds the mutation that
// produced the event.
package events

import (
	"time"

	"github.com/google/uuid"

	"boardstack.app/workspace-service/internal/model"
)

// Event types emitted by this service.
const (
	TypeWorkspaceCreated  = "workspace.created"
	TypeWorkspaceUpdated  = "workspace.updated"
	TypeWorkspaceDeleted  = "workspace.deleted"
	TypeWorkspaceRestored = "workspace.restored"
	TypeProgressUpdated   = "workspace.progress.updated"
	TypeMemberAdded       = "workspace.member.added"
	TypeMemberRemoved     = "workspace.member.removed"
	TypeSettingsUpdated   = "workspace.settings.updated"
)

const source = "workspace-service"

// Event is the envelope wrapped around every published payload.
type Event struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Data          map[string]any `json:"data"`
	Timestamp     string         `json:"timestamp"`
	CorrelationID string         `json:"correlationId"`
	Source        string         `json:"source"`
}

func newEvent(eventType string, data map[string]any) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Data:          data,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: uuid.NewString(),
		Source:        source,
	}
}

// SubscriptionID extracts the subscription routing key from the payload,
// empty when the payload carries none.
func (e Event) SubscriptionID() string {
	if id, ok := e.Data["subscriptionId"].(string); ok {
		return id
	}
	return ""
}

func WorkspaceCreated(w *model.Workspace, actorID string) Event {
	return newEvent(TypeWorkspaceCreated, map[string]any{
		"workspaceId":    w.ID,
		"name":           w.Name,
		"subscriptionId": w.SubscriptionID,
		"owner":          w.Owners,
		"createdBy":      actorID,
	})
}

func WorkspaceUpdated(w *model.Workspace, actorID string, changedFields []string) Event {
	return newEvent(TypeWorkspaceUpdated, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"changedFields":  changedFields,
		"updatedBy":      actorID,
	})
}

func WorkspaceDeleted(w *model.Workspace, actorID string) Event {
	data := map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"deletedBy":      actorID,
	}
	if w.DeletionID != nil {
		data["deletionId"] = *w.DeletionID
	}
	return newEvent(TypeWorkspaceDeleted, data)
}

func WorkspaceRestored(w *model.Workspace, actorID string) Event {
	return newEvent(TypeWorkspaceRestored, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"restoredBy":     actorID,
	})
}

func ProgressUpdated(w *model.Workspace, previous model.ProgressState, actorID string) Event {
	return newEvent(TypeProgressUpdated, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"previousState":  string(previous),
		"currentState":   string(w.Progress.State),
		"updatedBy":      actorID,
	})
}

func MemberAdded(w *model.Workspace, memberID, actorID string) Event {
	return newEvent(TypeMemberAdded, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"memberId":       memberID,
		"addedBy":        actorID,
	})
}

func MemberRemoved(w *model.Workspace, memberID, actorID string) Event {
	return newEvent(TypeMemberRemoved, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"memberId":       memberID,
		"removedBy":      actorID,
	})
}

func SettingsUpdated(w *model.Workspace, actorID string) Event {
	return newEvent(TypeSettingsUpdated, map[string]any{
		"workspaceId":    w.ID,
		"subscriptionId": w.SubscriptionID,
		"settings":       w.Settings,
		"updatedBy":      actorID,
	})
}
