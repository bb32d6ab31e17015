package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"boardstack.app/workspace-service/internal/model"
)

const (
	workspaceKeyPrefix  = "workspace:"
	DefaultWorkspaceTTL = time.Hour
)

// WorkspaceCache is the fail-open workspace-document cache. Read errors
// degrade to a miss and write/evict errors are logged and swallowed: the
// repository stays authoritative and a broken cache must never fail a
// request or roll back a committed write.
type WorkspaceCache struct {
	store Store
	ttl   time.Duration
}

func NewWorkspaceCache(store Store, ttl time.Duration) *WorkspaceCache {
	if ttl <= 0 {
		ttl = DefaultWorkspaceTTL
	}
	return &WorkspaceCache{store: store, ttl: ttl}
}

func workspaceKey(id int64) string {
	return fmt.Sprintf("%s%d", workspaceKeyPrefix, id)
}

// Get returns the cached workspace, or (nil, false) on a miss or any store
// failure.
func (c *WorkspaceCache) Get(ctx context.Context, id int64) (*model.Workspace, bool) {
	data, err := c.store.Get(ctx, workspaceKey(id))
	if err != nil {
		if err != ErrCacheMiss {
			slog.WarnContext(ctx, "workspace cache read failed, falling back to store", "workspace_id", id, "error", err)
		}
		return nil, false
	}

	var ws model.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		slog.WarnContext(ctx, "workspace cache entry corrupt, evicting", "workspace_id", id, "error", err)
		c.Evict(ctx, id)
		return nil, false
	}
	return &ws, true
}

// Put writes through the latest committed state of the workspace.
func (c *WorkspaceCache) Put(ctx context.Context, ws *model.Workspace) {
	data, err := json.Marshal(ws)
	if err != nil {
		slog.WarnContext(ctx, "workspace cache encode failed", "workspace_id", ws.ID, "error", err)
		return
	}
	if err := c.store.Set(ctx, workspaceKey(ws.ID), data, c.ttl); err != nil {
		slog.WarnContext(ctx, "workspace cache write failed", "workspace_id", ws.ID, "error", err)
	}
}

func (c *WorkspaceCache) Evict(ctx context.Context, id int64) {
	if err := c.store.Delete(ctx, workspaceKey(id)); err != nil {
		slog.WarnContext(ctx, "workspace cache evict failed", "workspace_id", id, "error", err)
	}
}
