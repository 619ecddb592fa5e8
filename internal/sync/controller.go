package sync

import (
	"context"
	"sync"
	"time"

	"worklink/internal/models"
	"worklink/internal/observability"
)

// Entity is any record with a server-assigned identifier.
type Entity interface {
	EntityID() string
}

// Filter carries the feature-specific query parameters of one load,
// interpreted by the Store implementation (conversation partner, group id,
// date range, ...).
type Filter map[string]string

// Store is the remote access surface one controller operates against.
// Insert must return the canonical server row (server id, timestamps).
type Store[T Entity] interface {
	List(ctx context.Context, filter Filter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id string, patch map[string]any) (T, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore covers the two dependent writes behind a like toggle. The
// writes are not atomic on the platform; the controller always re-fetches
// the authoritative row after both settle.
type LikeStore interface {
	SetMembership(ctx context.Context, entityID, actorID string, liked bool) error
	BumpCounter(ctx context.Context, entityID string, delta int) error
}

// ErrOperationInFlight rejects a mutation for an entity that already has
// one outstanding. This is the SDK-side equivalent of disabling the
// triggering control while a request is outstanding.
var ErrOperationInFlight = &models.AppError{
	Code:    "OPERATION_IN_FLIGHT",
	Kind:    models.KindValidation,
	Message: "A request for this item is already in flight",
}

// ErrClosed rejects operations on a controller whose screen unmounted.
var ErrClosed = &models.AppError{
	Code:    "CONTROLLER_CLOSED",
	Kind:    models.KindValidation,
	Message: "Controller is closed",
}

const (
	// loadRetries bounds automatic retries of the idempotent read path.
	loadRetries      = 2
	loadRetryBackoff = 500 * time.Millisecond
)

// Options configures one controller instance.
type Options[T Entity] struct {
	// Table names the remote table, used for logging and metrics.
	Table string
	// Validate runs before Create; nil accepts everything.
	Validate func(T) error
	// Prepend inserts confirmed creations at the head (timeline order)
	// instead of the tail (chat order).
	Prepend bool
	// Likes enables ToggleLike; ToggleLocal applies the membership flip
	// to the local copy and reports whether the actor now likes it.
	Likes       LikeStore
	ToggleLocal func(entity T, actorID string) (T, bool)
}

// Controller owns one feature screen's entity list.
type Controller[T Entity] struct {
	store Store[T]
	opts  Options[T]
	log   *observability.SyncLogger

	mu         sync.Mutex
	state      ListState
	loadErr    error
	items      []Item[T]
	lastFilter Filter
	generation int64
	closed     bool
	inflight   map[string]struct{}
}

// New creates an idle controller over store.
func New[T Entity](store Store[T], opts Options[T]) *Controller[T] {
	return &Controller[T]{
		store:    store,
		opts:     opts,
		log:      observability.NewSyncLogger(opts.Table),
		state:    StateIdle,
		inflight: make(map[string]struct{}),
	}
}

// State returns the list lifecycle state.
func (c *Controller[T]) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns a snapshot of the current list.
func (c *Controller[T]) Items() []Item[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item[T], len(c.items))
	copy(out, c.items)
	return out
}

// Values returns a snapshot of the current entities without markers.
func (c *Controller[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	for i, it := range c.items {
		out[i] = it.Value
	}
	return out
}

// Close discards the controller. Late-arriving results of in-flight
// operations are dropped instead of mutating state for an unmounted view.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Load fetches the identity-scoped list for filter and replaces local
// state on success. A failed load leaves prior items untouched; transient
// failures are retried a bounded number of times because the read is
// idempotent.
func (c *Controller[T]) Load(ctx context.Context, filter Filter) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = StateLoading
	c.lastFilter = filter
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	var rows []T
	err := withRetry(ctx, loadRetries, loadRetryBackoff, func() error {
		var fetchErr error
		rows, fetchErr = c.store.List(ctx, filter)
		return fetchErr
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		// A newer load superseded this one, or the screen unmounted.
		return nil
	}
	if err != nil {
		c.state = StateFailed
		c.loadErr = err
		c.log.LogError(ctx, "load", err)
		observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "load", "error").Inc()
		return err
	}

	items := make([]Item[T], len(rows))
	for i, row := range rows {
		items[i] = Item[T]{Value: row, Mark: Synced}
	}
	c.items = items
	c.state = StateReady
	c.loadErr = nil
	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "load", "ok").Inc()
	return nil
}

// Reload re-runs the last load. Used by the realtime listener, which
// treats every change event as "something changed, re-fetch everything".
func (c *Controller[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	filter := c.lastFilter
	c.mu.Unlock()
	return c.Load(ctx, filter)
}

// Create validates input, writes it, and only then inserts the canonical
// server row into local state. Creation is deliberately not optimistic:
// the list never contains client-fabricated ids, so a failure mutates
// nothing locally.
func (c *Controller[T]) Create(ctx context.Context, input T) (T, error) {
	var zero T
	if c.opts.Validate != nil {
		if err := c.opts.Validate(input); err != nil {
			return zero, err
		}
	}
	if err := c.acquire("create"); err != nil {
		return zero, err
	}
	defer c.release("create")

	created, err := c.store.Insert(ctx, input)
	if err != nil {
		c.log.LogError(ctx, "create", err)
		observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "create", "error").Inc()
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return created, nil
	}
	item := Item[T]{Value: created, Mark: Synced}
	if c.opts.Prepend {
		c.items = append([]Item[T]{item}, c.items...)
	} else {
		c.items = append(c.items, item)
	}
	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "create", "ok").Inc()
	return created, nil
}

// Update applies the local patch immediately (optimistic), then writes.
// On write failure the authoritative row is re-fetched; if even the
// re-fetch fails the local copy is rolled back to its pre-patch snapshot.
// Either way the caller sees the typed error and local state never stays
// silently diverged.
func (c *Controller[T]) Update(ctx context.Context, id string, patch map[string]any, apply func(T) T) (T, error) {
	var zero T
	if err := c.acquire("update:" + id); err != nil {
		return zero, err
	}
	defer c.release("update:" + id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return zero, models.NewNotFoundError(c.opts.Table, id)
	}
	snapshot := c.items[idx].Value
	patched := snapshot
	if apply != nil {
		patched = apply(snapshot)
	}
	c.items[idx] = Item[T]{Value: patched, Mark: PendingUpdate}
	c.mu.Unlock()

	updated, err := c.store.Update(ctx, id, patch)
	if err != nil {
		c.reconcileFailedWrite(ctx, "update", id, snapshot, err)
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexOf(id); idx >= 0 {
		c.items[idx] = Item[T]{Value: updated, Mark: Synced}
	}
	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "update", "ok").Inc()
	return updated, nil
}

// Delete removes the item immediately (optimistic) and issues the remote
// delete. On failure the item reappears at its original position and the
// typed error surfaces to the caller.
func (c *Controller[T]) Delete(ctx context.Context, id string) error {
	if err := c.acquire("delete:" + id); err != nil {
		return err
	}
	defer c.release("delete:" + id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return models.NewNotFoundError(c.opts.Table, id)
	}
	removed := c.items[idx]
	removed.Mark = PendingDelete
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.mu.Unlock()

	if err := c.store.Delete(ctx, id); err != nil {
		c.mu.Lock()
		if !c.closed {
			pos := idx
			if pos > len(c.items) {
				pos = len(c.items)
			}
			removed.Mark = Synced
			c.items = append(c.items[:pos], append([]Item[T]{removed}, c.items[pos:]...)...)
		}
		c.mu.Unlock()
		c.log.LogReconcile(ctx, "delete", "reinsert", err)
		observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "delete", "error").Inc()
		return err
	}

	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "delete", "ok").Inc()
	return nil
}

// ToggleLike flips the actor's membership locally, then performs the two
// dependent writes (membership row, denormalized counter). The writes are
// not atomic, so regardless of their individual outcomes the authoritative
// row is re-fetched afterwards. A second toggle for the same id while one
// is in flight is rejected, which makes a rapid double-click a net single
// membership change.
func (c *Controller[T]) ToggleLike(ctx context.Context, id, actorID string) (T, error) {
	var zero T
	if c.opts.Likes == nil || c.opts.ToggleLocal == nil {
		return zero, models.NewValidationError("Likes are not supported for " + c.opts.Table)
	}
	if err := c.acquire("like:" + id); err != nil {
		return zero, err
	}
	defer c.release("like:" + id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return zero, models.NewNotFoundError(c.opts.Table, id)
	}
	snapshot := c.items[idx].Value
	flipped, nowLiked := c.opts.ToggleLocal(snapshot, actorID)
	c.items[idx] = Item[T]{Value: flipped, Mark: PendingUpdate}
	c.mu.Unlock()

	delta := -1
	if nowLiked {
		delta = 1
	}
	memberErr := c.opts.Likes.SetMembership(ctx, id, actorID, nowLiked)
	counterErr := c.opts.Likes.BumpCounter(ctx, id, delta)

	// Reconcile from the authoritative row no matter what happened to the
	// two writes above.
	authoritative, getErr := c.store.Get(ctx, id)

	c.mu.Lock()
	idx = c.indexOf(id)
	if idx >= 0 && !c.closed {
		if getErr == nil {
			c.items[idx] = Item[T]{Value: authoritative, Mark: Synced}
		} else {
			c.items[idx] = Item[T]{Value: snapshot, Mark: Synced}
		}
	}
	c.mu.Unlock()

	for _, err := range []error{memberErr, counterErr, getErr} {
		if err != nil {
			c.log.LogReconcile(ctx, "toggle_like", "refetch", err)
			observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "toggle_like", "error").Inc()
			return zero, err
		}
	}
	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, "toggle_like", "ok").Inc()
	return authoritative, nil
}

func (c *Controller[T]) reconcileFailedWrite(ctx context.Context, op, id string, snapshot T, cause error) {
	authoritative, getErr := c.store.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	idx := c.indexOf(id)
	if idx < 0 {
		return
	}
	if getErr == nil {
		c.items[idx] = Item[T]{Value: authoritative, Mark: Synced}
		c.log.LogReconcile(ctx, op, "refetch", cause)
	} else {
		c.items[idx] = Item[T]{Value: snapshot, Mark: Synced}
		c.log.LogReconcile(ctx, op, "rollback", cause)
	}
	observability.SyncOperationsTotal.WithLabelValues(c.opts.Table, op, "error").Inc()
}

// indexOf is called with c.mu held.
func (c *Controller[T]) indexOf(id string) int {
	for i, it := range c.items {
		if it.Value.EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *Controller[T]) acquire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, busy := c.inflight[key]; busy {
		return ErrOperationInFlight
	}
	c.inflight[key] = struct{}{}
	return nil
}

func (c *Controller[T]) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}

func withRetry(ctx context.Context, retries int, backoff time.Duration, fn func() error) error {
	err := fn()
	for attempt := 1; attempt <= retries && models.IsTransient(err); attempt++ {
		t := time.NewTimer(backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return models.NewTransientError(ctx.Err())
		case <-t.C:
		}
		err = fn()
	}
	return err
}
