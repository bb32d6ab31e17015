package service

import (
	"boardstack.app/workspace-service/internal/events"
	"boardstack.app/workspace-service/internal/store"
)

type Services struct {
	workspaces   store.WorkspaceStore
	cache        WorkspaceCache
	entitlements EntitlementChecker
	publisher    events.Publisher
}

func NewServices(
	workspaces store.WorkspaceStore,
	cache WorkspaceCache,
	entitlements EntitlementChecker,
	publisher events.Publisher,
) *Services {
	return &Services{
		workspaces:   workspaces,
		cache:        cache,
		entitlements: entitlements,
		publisher:    publisher,
	}
}

func (s *Services) Workspaces() WorkspaceService {
	return NewWorkspaceService(s.workspaces, s.cache, s.entitlements, s.publisher)
}
