package store

import (
	"context"
	"errors"
	"time"

	"boardstack.app/workspace-service/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist, or when a
// conditional update matched no row (wrong lifecycle state, already deleted).
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates the (name, subscription_id)
// uniqueness constraint.
var ErrDuplicate = errors.New("duplicate workspace name in subscription")

// ListFilter controls List. Page is 1-based; Limit is clamped by callers to
// 1..100 before reaching the store.
type ListFilter struct {
	Page               int
	Limit              int
	IncludeSoftDeleted bool
	SubscriptionID     string
	UserID             string
	OwnerOnly          bool
}

// UpdatePatch is a partial field-merge; nil fields are left untouched.
// Subscription scope, owners and soft-delete markers are not patchable.
type UpdatePatch struct {
	Name        *string
	Description *string
	Settings    map[string]any
	MemberRoles map[string]string
}

// WorkspaceStore defines the contract for workspace data access. Mutations
// are single atomic statements; the conditional variants (TransitionProgress,
// SoftDelete, Restore) return ErrNotFound when the row exists but is not in
// the required state, leaving the caller to disambiguate.
type WorkspaceStore interface {
	Create(ctx context.Context, ws *model.Workspace) error
	GetByID(ctx context.Context, id int64, includeDeleted bool) (*model.Workspace, error)
	List(ctx context.Context, f ListFilter) ([]model.Workspace, int64, error)
	Update(ctx context.Context, id int64, p UpdatePatch) (*model.Workspace, error)
	TransitionProgress(ctx context.Context, id int64, from, to model.ProgressState, entry model.ProgressEntry) (*model.Workspace, error)
	AddMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error)
	RemoveMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error)
	SoftDelete(ctx context.Context, id int64, deletionID string, deletedAt time.Time) (*model.Workspace, error)
	Restore(ctx context.Context, id int64) (*model.Workspace, error)
}
