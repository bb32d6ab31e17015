package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"boardstack.app/workspace-service/common/id"
	"boardstack.app/workspace-service/internal/events"
	"boardstack.app/workspace-service/internal/model"
	"boardstack.app/workspace-service/internal/store"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrDuplicateName     = errors.New("workspace name already used in subscription")
	ErrInvalidTransition = errors.New("invalid progress transition")
	ErrNoValidUsers      = errors.New("no users eligible for this subscription")
	ErrUserLimitExceeded = errors.New("subscription user limit exceeded")
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// WorkspaceCache is the slice of the cache layer this service drives. The
// cache is advisory: implementations absorb their own failures.
type WorkspaceCache interface {
	Get(ctx context.Context, id int64) (*model.Workspace, bool)
	Put(ctx context.Context, ws *model.Workspace)
	Evict(ctx context.Context, id int64)
}

// EntitlementChecker answers subscription membership and seat-limit questions.
// Implementations fail closed: an unreachable subscription service means "no".
type EntitlementChecker interface {
	HasUser(ctx context.Context, subscriptionID, userID, token string) bool
	WithinUserLimit(ctx context.Context, subscriptionID, token string, n int) bool
}

type CreateInput struct {
	Name           string
	Description    *string
	SubscriptionID string
	Settings       map[string]any
	ActorID        string
}

type UpdateInput struct {
	Name        *string
	Description *string
	Settings    map[string]any
	MemberRoles map[string]string
}

type WorkspacePage struct {
	Workspaces []model.Workspace
	Total      int64
	Page       int
	Limit      int
}

type AddUsersResult struct {
	Workspace    *model.Workspace
	AddedUsers   []string
	InvalidUsers []string
}

type RemoveUsersResult struct {
	Workspace    *model.Workspace
	RemovedUsers []string
	NotPresent   []string
}

type WorkspaceService interface {
	Create(ctx context.Context, in CreateInput) (*model.Workspace, error)
	FindByID(ctx context.Context, workspaceID int64) (*model.Workspace, error)
	FindAll(ctx context.Context, f store.ListFilter) (*WorkspacePage, error)
	Update(ctx context.Context, workspaceID int64, in UpdateInput, actorID string) (*model.Workspace, error)
	UpdateProgress(ctx context.Context, workspaceID int64, target model.ProgressState, comment, actorID string) (*model.Workspace, error)
	SoftDelete(ctx context.Context, workspaceID int64, actorID string) (*model.Workspace, error)
	Restore(ctx context.Context, workspaceID int64, actorID string) (*model.Workspace, error)
	AddUsers(ctx context.Context, workspaceID int64, userIDs []string, actorID, token string) (*AddUsersResult, error)
	RemoveUsers(ctx context.Context, workspaceID int64, userIDs []string, actorID string) (*RemoveUsersResult, error)
	HasAccess(ctx context.Context, workspaceID int64, userID string) (bool, error)
	IsOwner(ctx context.Context, workspaceID int64, userID string) (bool, error)
}

type workspaceService struct {
	workspaces   store.WorkspaceStore
	cache        WorkspaceCache
	entitlements EntitlementChecker
	publisher    events.Publisher
}

func NewWorkspaceService(
	workspaces store.WorkspaceStore,
	cache WorkspaceCache,
	entitlements EntitlementChecker,
	publisher events.Publisher,
) WorkspaceService {
	return &workspaceService{
		workspaces:   workspaces,
		cache:        cache,
		entitlements: entitlements,
		publisher:    publisher,
	}
}

// publish emits an event after a committed mutation. The returned error never
// unwinds the write: callers surface it alongside the already-mutated record.
func (s *workspaceService) publish(ctx context.Context, event events.Event) error {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "event publish failed", "event_type", event.Type, "event_id", event.ID, "error", err)
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}
	return nil
}

func (s *workspaceService) Create(ctx context.Context, in CreateInput) (*model.Workspace, error) {
	now := time.Now().UTC()
	settings := in.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	ws := &model.Workspace{
		ID:             id.New(),
		Name:           in.Name,
		Description:    in.Description,
		SubscriptionID: in.SubscriptionID,
		Owners:         []string{in.ActorID},
		Members:        []string{in.ActorID},
		MemberRoles:    map[string]string{in.ActorID: "owner"},
		Settings:       settings,
		Progress: model.Progress{
			State:       model.ProgressStateInitial,
			LastUpdated: now,
			History:     []model.ProgressEntry{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.workspaces.Create(ctx, ws); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	s.cache.Put(ctx, ws)
	if err := s.publish(ctx, events.WorkspaceCreated(ws, in.ActorID)); err != nil {
		return ws, err
	}

	slog.InfoContext(ctx, "workspace created", "workspace_id", ws.ID, "subscription_id", ws.SubscriptionID, "created_by", in.ActorID)
	return ws, nil
}

func (s *workspaceService) FindByID(ctx context.Context, workspaceID int64) (*model.Workspace, error) {
	if ws, ok := s.cache.Get(ctx, workspaceID); ok {
		return ws, nil
	}

	ws, err := s.workspaces.GetByID(ctx, workspaceID, false)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("fetching workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, ws)
	return ws, nil
}

func (s *workspaceService) FindAll(ctx context.Context, f store.ListFilter) (*WorkspacePage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}

	workspaces, total, err := s.workspaces.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	return &WorkspacePage{
		Workspaces: workspaces,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
	}, nil
}

func (s *workspaceService) Update(ctx context.Context, workspaceID int64, in UpdateInput, actorID string) (*model.Workspace, error) {
	patch := store.UpdatePatch{
		Name:        in.Name,
		Description: in.Description,
		Settings:    in.Settings,
		MemberRoles: in.MemberRoles,
	}

	ws, err := s.workspaces.Update(ctx, workspaceID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("updating workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, ws)

	var changed []string
	if in.Name != nil {
		changed = append(changed, "name")
	}
	if in.Description != nil {
		changed = append(changed, "description")
	}
	if in.Settings != nil {
		changed = append(changed, "settings")
	}
	if in.MemberRoles != nil {
		changed = append(changed, "memberRoles")
	}

	if err := s.publish(ctx, events.WorkspaceUpdated(ws, actorID, changed)); err != nil {
		return ws, err
	}
	if in.Settings != nil {
		if err := s.publish(ctx, events.SettingsUpdated(ws, actorID)); err != nil {
			return ws, err
		}
	}

	slog.InfoContext(ctx, "workspace updated", "workspace_id", ws.ID, "changed_fields", changed, "updated_by", actorID)
	return ws, nil
}

func (s *workspaceService) UpdateProgress(ctx context.Context, workspaceID int64, target model.ProgressState, comment, actorID string) (*model.Workspace, error) {
	if !model.ValidProgressState(target) {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, target)
	}

	current, err := s.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	from := current.Progress.State
	if !model.CanTransition(from, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	entry := model.ProgressEntry{
		State:     target,
		Timestamp: time.Now().UTC(),
		UpdatedBy: actorID,
		Comment:   comment,
	}

	ws, err := s.workspaces.TransitionProgress(ctx, workspaceID, from, target, entry)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The guarded update matched nothing: either the workspace
			// vanished or a concurrent transition moved it first.
			if _, getErr := s.workspaces.GetByID(ctx, workspaceID, false); errors.Is(getErr, store.ErrNotFound) {
				return nil, ErrWorkspaceNotFound
			}
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
		}
		return nil, fmt.Errorf("transitioning workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, ws)
	if err := s.publish(ctx, events.ProgressUpdated(ws, from, actorID)); err != nil {
		return ws, err
	}

	slog.InfoContext(ctx, "workspace progress updated", "workspace_id", ws.ID, "from", from, "to", target, "updated_by", actorID)
	return ws, nil
}

func (s *workspaceService) SoftDelete(ctx context.Context, workspaceID int64, actorID string) (*model.Workspace, error) {
	deletionID := uuid.NewString()

	ws, err := s.workspaces.SoftDelete(ctx, workspaceID, deletionID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			existing, getErr := s.workspaces.GetByID(ctx, workspaceID, true)
			if getErr != nil {
				if errors.Is(getErr, store.ErrNotFound) {
					return nil, ErrWorkspaceNotFound
				}
				return nil, fmt.Errorf("fetching workspace %d: %w", workspaceID, getErr)
			}
			if existing.IsDeleted {
				// Already deleted: keep the original deletion marker and
				// emit nothing.
				return existing, nil
			}
			return nil, fmt.Errorf("soft deleting workspace %d: %w", workspaceID, err)
		}
		return nil, fmt.Errorf("soft deleting workspace %d: %w", workspaceID, err)
	}

	s.cache.Evict(ctx, workspaceID)
	if err := s.publish(ctx, events.WorkspaceDeleted(ws, actorID)); err != nil {
		return ws, err
	}

	slog.InfoContext(ctx, "workspace soft deleted", "workspace_id", ws.ID, "deletion_id", deletionID, "deleted_by", actorID)
	return ws, nil
}

func (s *workspaceService) Restore(ctx context.Context, workspaceID int64, actorID string) (*model.Workspace, error) {
	ws, err := s.workspaces.Restore(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			existing, getErr := s.workspaces.GetByID(ctx, workspaceID, true)
			if getErr != nil {
				if errors.Is(getErr, store.ErrNotFound) {
					return nil, ErrWorkspaceNotFound
				}
				return nil, fmt.Errorf("fetching workspace %d: %w", workspaceID, getErr)
			}
			if !existing.IsDeleted {
				// Never deleted or already restored: nothing to do.
				return existing, nil
			}
			return nil, fmt.Errorf("restoring workspace %d: %w", workspaceID, err)
		}
		return nil, fmt.Errorf("restoring workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, ws)
	if err := s.publish(ctx, events.WorkspaceRestored(ws, actorID)); err != nil {
		return ws, err
	}

	slog.InfoContext(ctx, "workspace restored", "workspace_id", ws.ID, "restored_by", actorID)
	return ws, nil
}

func (s *workspaceService) AddUsers(ctx context.Context, workspaceID int64, userIDs []string, actorID, token string) (*AddUsersResult, error) {
	ws, err := s.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var valid, invalid []string
	for _, userID := range userIDs {
		if s.entitlements.HasUser(ctx, ws.SubscriptionID, userID, token) {
			valid = append(valid, userID)
		} else {
			invalid = append(invalid, userID)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidUsers
	}

	var newMembers []string
	for _, userID := range valid {
		if !ws.HasUser(userID) {
			newMembers = append(newMembers, userID)
		}
	}
	if len(newMembers) == 0 {
		// Everyone eligible is already in the workspace.
		return &AddUsersResult{Workspace: ws, InvalidUsers: invalid}, nil
	}

	if !s.entitlements.WithinUserLimit(ctx, ws.SubscriptionID, token, len(newMembers)) {
		return nil, ErrUserLimitExceeded
	}

	updated, err := s.workspaces.AddMembers(ctx, workspaceID, newMembers)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("adding members to workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, updated)
	result := &AddUsersResult{Workspace: updated, AddedUsers: newMembers, InvalidUsers: invalid}
	for _, memberID := range newMembers {
		if err := s.publish(ctx, events.MemberAdded(updated, memberID, actorID)); err != nil {
			return result, err
		}
	}

	slog.InfoContext(ctx, "workspace members added", "workspace_id", updated.ID, "added", len(newMembers), "invalid", len(invalid), "added_by", actorID)
	return result, nil
}

func (s *workspaceService) RemoveUsers(ctx context.Context, workspaceID int64, userIDs []string, actorID string) (*RemoveUsersResult, error) {
	ws, err := s.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	// removed stays non-nil so an all-owner or all-unknown request still
	// reaches the store as an empty-array write stamping updated_at.
	removed := []string{}
	var notPresent []string
	for _, userID := range userIDs {
		switch {
		case ws.IsOwnedBy(userID):
			// Owners are only demoted through ownership changes; removal
			// requests against them are a no-op.
		case ws.HasMember(userID):
			removed = append(removed, userID)
		default:
			notPresent = append(notPresent, userID)
		}
	}

	updated, err := s.workspaces.RemoveMembers(ctx, workspaceID, removed)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("removing members from workspace %d: %w", workspaceID, err)
	}

	s.cache.Put(ctx, updated)
	result := &RemoveUsersResult{Workspace: updated, RemovedUsers: removed, NotPresent: notPresent}
	for _, memberID := range removed {
		if err := s.publish(ctx, events.MemberRemoved(updated, memberID, actorID)); err != nil {
			return result, err
		}
	}

	slog.InfoContext(ctx, "workspace members removed", "workspace_id", updated.ID, "removed", len(removed), "removed_by", actorID)
	return result, nil
}

func (s *workspaceService) HasAccess(ctx context.Context, workspaceID int64, userID string) (bool, error) {
	ws, err := s.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			return false, nil
		}
		return false, err
	}
	return ws.HasUser(userID), nil
}

func (s *workspaceService) IsOwner(ctx context.Context, workspaceID int64, userID string) (bool, error) {
	ws, err := s.FindByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, ErrWorkspaceNotFound) {
			return false, nil
		}
		return false, err
	}
	return ws.IsOwnedBy(userID), nil
}
