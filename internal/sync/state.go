// Package sync implements the generic entity sync controller: it owns the
// client-visible list of records for one feature screen, keeps it
// approximately consistent with the remote store, and reconciles every
// optimistic mutation on failure instead of leaving state silently
// diverged.
package sync

// ListState is the lifecycle of one controller's list.
type ListState int

const (
	StateIdle ListState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s ListState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mark is the per-item sync marker. Items are Synced unless an optimistic
// mutation is in flight for them.
type Mark int

const (
	Synced Mark = iota
	PendingUpdate
	PendingDelete
)

func (m Mark) String() string {
	switch m {
	case Synced:
		return "synced"
	case PendingUpdate:
		return "pending_update"
	case PendingDelete:
		return "pending_delete"
	default:
		return "unknown"
	}
}

// Item pairs an entity with its explicit sync marker.
type Item[T Entity] struct {
	Value T
	Mark  Mark
}
