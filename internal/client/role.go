package client

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Permission labels understood by the role service.
const (
	PermissionWorkspaceCreate = "SUBSCRIPTION.WORKSPACES.CREATE"
	PermissionWorkspaceView   = "WORKSPACE.VIEW"
	PermissionWorkspaceManage = "WORKSPACE.MANAGE"
	PermissionWorkspaceUpdate = "WORKSPACE.UPDATE"
	PermissionWorkspaceUsers  = "WORKSPACE.USERS.MANAGE"
)

// Scope types for permission checks.
const (
	ScopeSubscription = "subscription"
	ScopeWorkspace    = "workspace"
)

// PermissionCheck describes one fine-grained authorization question.
type PermissionCheck struct {
	Token              string
	SubscriptionID     string
	RequiredPermission string
	ScopeType          string
	ScopeID            string
}

type permissionRequest struct {
	SubscriptionID     string `json:"subscriptionId"`
	RequiredPermission string `json:"requiredPermission"`
	RoleTemplateType   string `json:"roleTemplateType"`
	ScopeType          string `json:"scopeType"`
	ScopeID            string `json:"scopeId,omitempty"`
}

type permissionResponse struct {
	Data struct {
		HasPermission bool `json:"hasPermission"`
	} `json:"data"`
}

// RoleClient asks the role service for scoped permission decisions. Results
// are never cached: they must reflect live role-assignment state. Any failure
// (transport, bad status, undecodable body) is a deny, never an error: the
// facade fails closed.
type RoleClient struct {
	baseURL string
	http    *http.Client
}

func NewRoleClient(baseURL string, timeout time.Duration) *RoleClient {
	return &RoleClient{
		baseURL: baseURL,
		http:    newHTTPClient(timeout),
	}
}

func (c *RoleClient) CheckPermission(ctx context.Context, check PermissionCheck) bool {
	body, err := json.Marshal(permissionRequest{
		SubscriptionID:     check.SubscriptionID,
		RequiredPermission: check.RequiredPermission,
		RoleTemplateType:   "RoleTemplate",
		ScopeType:          check.ScopeType,
		ScopeID:            check.ScopeID,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		joinURL(c.baseURL, "/api/v1/roles/check-permission"), bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+check.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "permission check failed, denying",
			"permission", check.RequiredPermission, "scope_type", check.ScopeType, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "permission check returned non-200, denying",
			"permission", check.RequiredPermission, "status", resp.StatusCode)
		return false
	}

	var result permissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.WarnContext(ctx, "permission check response undecodable, denying",
			"permission", check.RequiredPermission, "error", err)
		return false
	}
	return result.Data.HasPermission
}
