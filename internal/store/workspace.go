package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"boardstack.app/workspace-service/internal/model"
)

const workspaceColumns = `id, name, description, subscription_id, owners, members,
	member_roles, settings, progress_state, progress_last_updated, progress_history,
	is_deleted, deleted_at, deletion_id, created_at, updated_at`

type workspaceStore struct {
	pool *pgxpool.Pool
}

// NewWorkspaceStore creates a WorkspaceStore backed by the given pool.
func NewWorkspaceStore(pool *pgxpool.Pool) WorkspaceStore {
	return &workspaceStore{pool: pool}
}

func (s *workspaceStore) Create(ctx context.Context, ws *model.Workspace) error {
	memberRoles, err := json.Marshal(orEmptyRoles(ws.MemberRoles))
	if err != nil {
		return fmt.Errorf("encoding member roles: %w", err)
	}
	settings, err := json.Marshal(orEmptySettings(ws.Settings))
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO workspaces (id, name, description, subscription_id, owners, members, member_roles, settings, progress_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+workspaceColumns,
		ws.ID, ws.Name, ws.Description, ws.SubscriptionID, ws.Owners, ws.Members,
		memberRoles, settings, ws.Progress.State,
	)

	created, err := scanWorkspace(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	*ws = *created
	return nil
}

func (s *workspaceStore) GetByID(ctx context.Context, id int64, includeDeleted bool) (*model.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	if !includeDeleted {
		query += ` AND is_deleted = false`
	}
	return scanWorkspace(s.pool.QueryRow(ctx, query, id))
}

func (s *workspaceStore) List(ctx context.Context, f ListFilter) ([]model.Workspace, int64, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if !f.IncludeSoftDeleted {
		where = append(where, "is_deleted = false")
	}
	if f.SubscriptionID != "" {
		args = append(args, f.SubscriptionID)
		where = append(where, fmt.Sprintf("subscription_id = $%d", len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		n := len(args)
		if f.OwnerOnly {
			where = append(where, fmt.Sprintf("$%d = ANY(owners)", n))
		} else {
			where = append(where, fmt.Sprintf("($%d = ANY(owners) OR $%d = ANY(members))", n, n))
		}
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM workspaces"+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting workspaces: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf("SELECT %s FROM workspaces%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		workspaceColumns, cond, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var result []model.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (s *workspaceStore) Update(ctx context.Context, id int64, p UpdatePatch) (*model.Workspace, error) {
	var settings, memberRoles []byte
	var err error
	if p.Settings != nil {
		if settings, err = json.Marshal(p.Settings); err != nil {
			return nil, fmt.Errorf("encoding settings: %w", err)
		}
	}
	if p.MemberRoles != nil {
		if memberRoles, err = json.Marshal(p.MemberRoles); err != nil {
			return nil, fmt.Errorf("encoding member roles: %w", err)
		}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			settings = COALESCE($4, settings),
			member_roles = COALESCE($5, member_roles),
			updated_at = now()
		WHERE id = $1 AND is_deleted = false
		RETURNING `+workspaceColumns,
		id, p.Name, p.Description, settings, memberRoles,
	)
	ws, err := scanWorkspace(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ws, nil
}

// TransitionProgress performs a compare-and-swap on the current progress
// state, so two racing transitions cannot both commit against a stale read.
func (s *workspaceStore) TransitionProgress(ctx context.Context, id int64, from, to model.ProgressState, entry model.ProgressEntry) (*model.Workspace, error) {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encoding history entry: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			progress_state = $2,
			progress_last_updated = $3,
			progress_history = progress_history || $4::jsonb,
			updated_at = now()
		WHERE id = $1 AND progress_state = $5 AND is_deleted = false
		RETURNING `+workspaceColumns,
		id, to, entry.Timestamp, encoded, from,
	)
	return scanWorkspace(row)
}

// AddMembers is an atomic push-if-not-present: the union is computed inside
// the statement, so concurrent adds cannot duplicate an entry.
func (s *workspaceStore) AddMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			members = ARRAY(SELECT DISTINCT m FROM unnest(members || $2::text[]) AS m),
			updated_at = now()
		WHERE id = $1 AND is_deleted = false
		RETURNING `+workspaceColumns,
		id, userIDs,
	)
	return scanWorkspace(row)
}

func (s *workspaceStore) RemoveMembers(ctx context.Context, id int64, userIDs []string) (*model.Workspace, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			members = ARRAY(SELECT m FROM unnest(members) AS m WHERE m <> ALL($2::text[])),
			member_roles = member_roles - $2::text[],
			updated_at = now()
		WHERE id = $1 AND is_deleted = false
		RETURNING `+workspaceColumns,
		id, userIDs,
	)
	return scanWorkspace(row)
}

// SoftDelete only matches a live row; re-deleting an already-deleted
// workspace is surfaced as ErrNotFound for the service to resolve.
func (s *workspaceStore) SoftDelete(ctx context.Context, id int64, deletionID string, deletedAt time.Time) (*model.Workspace, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			is_deleted = true,
			deleted_at = $2,
			deletion_id = $3,
			updated_at = now()
		WHERE id = $1 AND is_deleted = false
		RETURNING `+workspaceColumns,
		id, deletedAt, deletionID,
	)
	return scanWorkspace(row)
}

// Restore clears all three soft-delete markers in one statement and only
// matches a currently-deleted row.
func (s *workspaceStore) Restore(ctx context.Context, id int64) (*model.Workspace, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE workspaces SET
			is_deleted = false,
			deleted_at = NULL,
			deletion_id = NULL,
			updated_at = now()
		WHERE id = $1 AND is_deleted = true
		RETURNING `+workspaceColumns,
		id,
	)
	return scanWorkspace(row)
}

func scanWorkspace(row pgx.Row) (*model.Workspace, error) {
	var ws model.Workspace
	var memberRoles, settings, history []byte

	err := row.Scan(
		&ws.ID, &ws.Name, &ws.Description, &ws.SubscriptionID, &ws.Owners, &ws.Members,
		&memberRoles, &settings, &ws.Progress.State, &ws.Progress.LastUpdated, &history,
		&ws.IsDeleted, &ws.DeletedAt, &ws.DeletionID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(memberRoles, &ws.MemberRoles); err != nil {
		return nil, fmt.Errorf("decoding member roles: %w", err)
	}
	if err := json.Unmarshal(settings, &ws.Settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := json.Unmarshal(history, &ws.Progress.History); err != nil {
		return nil, fmt.Errorf("decoding progress history: %w", err)
	}
	if ws.Members == nil {
		ws.Members = []string{}
	}
	if ws.Progress.History == nil {
		ws.Progress.History = []model.ProgressEntry{}
	}
	return &ws, nil
}

func orEmptyRoles(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySettings(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
