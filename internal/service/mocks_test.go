package service_test

import (
	"context"
	"time"

	"boardstack.app/workspace-service/internal/events"
	"boardstack.app/workspace-service/internal/model"
	"boardstack.app/workspace-service/internal/store"
)

type mockWorkspaceStore struct {
	createFn             func(ctx context.Context, ws *model.Workspace) error
	getByIDFn            func(ctx context.Context, id int64, includeDeleted bool) (*model.Workspace, error)
	listFn               func(ctx context.Context, f store.ListFilter) ([]model.Workspace, int64, error)
	updateFn             func(ctx context.Context, id int64, p store.UpdatePatch) (*model.Workspace, error)
	transitionProgressFn func(ctx context.Context, id int64, from, to model.ProgressState, entry model.ProgressEntry) (*model.Workspace, error)
	addMembersFn         func(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error)
	removeMembersFn      func(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error)
	softDeleteFn         func(ctx context.Context, id int64, deletionID string, deletedAt time.Time) (*model.Workspace, error)
	restoreFn            func(ctx context.Context, id int64) (*model.Workspace, error)

	createCalls     int
	transitionCalls int
	addCalls        int
	removeCalls     int
	softDeleteCalls int
}

func (m *mockWorkspaceStore) Create(ctx context.Context, ws *model.Workspace) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, ws)
	}
	return nil
}

func (m *mockWorkspaceStore) GetByID(ctx context.Context, id int64, includeDeleted bool) (*model.Workspace, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id, includeDeleted)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) List(ctx context.Context, f store.ListFilter) ([]model.Workspace, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}

func (m *mockWorkspaceStore) Update(ctx context.Context, id int64, p store.UpdatePatch) (*model.Workspace, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, p)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) TransitionProgress(ctx context.Context, id int64, from, to model.ProgressState, entry model.ProgressEntry) (*model.Workspace, error) {
	m.transitionCalls++
	if m.transitionProgressFn != nil {
		return m.transitionProgressFn(ctx, id, from, to, entry)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) AddMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error) {
	m.addCalls++
	if m.addMembersFn != nil {
		return m.addMembersFn(ctx, id, userIDs)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) RemoveMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error) {
	m.removeCalls++
	if m.removeMembersFn != nil {
		return m.removeMembersFn(ctx, id, userIDs)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) SoftDelete(ctx context.Context, id int64, deletionID string, deletedAt time.Time) (*model.Workspace, error) {
	m.softDeleteCalls++
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, deletionID, deletedAt)
	}
	return nil, store.ErrNotFound
}

func (m *mockWorkspaceStore) Restore(ctx context.Context, id int64) (*model.Workspace, error) {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

type mockCache struct {
	getFn func(ctx context.Context, id int64) (*model.Workspace, bool)

	puts   []*model.Workspace
	evicts []int64
}

func (m *mockCache) Get(ctx context.Context, id int64) (*model.Workspace, bool) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, false
}

func (m *mockCache) Put(_ context.Context, ws *model.Workspace) {
	m.puts = append(m.puts, ws)
}

func (m *mockCache) Evict(_ context.Context, id int64) {
	m.evicts = append(m.evicts, id)
}

type mockEntitlements struct {
	hasUserFn     func(ctx context.Context, subscriptionID, userID, token string) bool
	withinLimitFn func(ctx context.Context, subscriptionID, token string, n int) bool
}

func (m *mockEntitlements) HasUser(ctx context.Context, subscriptionID, userID, token string) bool {
	if m.hasUserFn != nil {
		return m.hasUserFn(ctx, subscriptionID, userID, token)
	}
	return true
}

func (m *mockEntitlements) WithinUserLimit(ctx context.Context, subscriptionID, token string, n int) bool {
	if m.withinLimitFn != nil {
		return m.withinLimitFn(ctx, subscriptionID, token, n)
	}
	return true
}

type mockPublisher struct {
	publishFn func(ctx context.Context, event events.Event) error

	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, event); err != nil {
			return err
		}
	}
	m.published = append(m.published, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }
