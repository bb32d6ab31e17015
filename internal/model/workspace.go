package model

import "time"

// ProgressState is the workspace lifecycle state. The enumeration is part of
// the external contract shared with the task and board services; values are
// stored and published verbatim.
type ProgressState string

const (
	ProgressStateInitial      ProgressState = "INITIAL"
	ProgressStateWaitingTasks ProgressState = "WAITING_TASKS"
	ProgressStateTasksCreated ProgressState = "TASKS_CREATED"
	ProgressStateCompleted    ProgressState = "COMPLETED"
)

// progressTransitions is the forward-only transition table. COMPLETED is
// terminal and has no outbound entry.
var progressTransitions = map[ProgressState]ProgressState{
	ProgressStateInitial:      ProgressStateWaitingTasks,
	ProgressStateWaitingTasks: ProgressStateTasksCreated,
	ProgressStateTasksCreated: ProgressStateCompleted,
}

// CanTransition reports whether moving from one progress state to another is
// allowed. Self-transitions and anything out of COMPLETED are rejected.
func CanTransition(from, to ProgressState) bool {
	next, ok := progressTransitions[from]
	return ok && next == to
}

// ValidProgressState reports whether s is one of the known enumeration values.
func ValidProgressState(s ProgressState) bool {
	switch s {
	case ProgressStateInitial, ProgressStateWaitingTasks, ProgressStateTasksCreated, ProgressStateCompleted:
		return true
	}
	return false
}

// ProgressEntry is one committed state transition. History is append-only;
// entries are never edited or truncated.
type ProgressEntry struct {
	State     ProgressState `json:"state"`
	Timestamp time.Time     `json:"timestamp"`
	UpdatedBy string        `json:"updatedBy"`
	Comment   string        `json:"comment"`
}

type Progress struct {
	State       ProgressState   `json:"state"`
	LastUpdated time.Time       `json:"lastUpdated"`
	History     []ProgressEntry `json:"history"`
}

type Workspace struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	SubscriptionID string            `json:"subscriptionId"`
	Owners         []string          `json:"owner"`
	Members        []string          `json:"members"`
	MemberRoles    map[string]string `json:"memberRoles"`
	Settings       map[string]any    `json:"settings"`
	Progress       Progress          `json:"progress"`
	IsDeleted      bool              `json:"isDeleted"`
	DeletedAt      *time.Time        `json:"deletedAt,omitempty"`
	DeletionID     *string           `json:"deletionId,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// IsOwnedBy reports whether userID is in the owner set.
func (w *Workspace) IsOwnedBy(userID string) bool {
	for _, id := range w.Owners {
		if id == userID {
			return true
		}
	}
	return false
}

// HasMember reports whether userID is in the members set (owners excluded).
func (w *Workspace) HasMember(userID string) bool {
	for _, id := range w.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// HasUser reports whether userID is an owner or a member.
func (w *Workspace) HasUser(userID string) bool {
	return w.IsOwnedBy(userID) || w.HasMember(userID)
}
