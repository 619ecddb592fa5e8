// Package realtime binds change-feed subscriptions to controller reloads.
// No diffing is attempted: every matching event means "something changed,
// re-fetch everything in scope".
package realtime

import (
	"context"
	"sync"

	"worklink/internal/models"
	"worklink/internal/observability"
	"worklink/internal/platform"
)

// Reloader is the controller surface a listener drives. Implemented by
// every sync.Controller.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Listener subscribes one table+filter scope for the current identity and
// triggers a full re-fetch on every matching change event.
type Listener struct {
	feed   *platform.Feed
	table  string
	filter func(identity *models.Identity) string
	target Reloader
	log    *observability.Logger

	mu  sync.Mutex
	sub *platform.FeedSubscription
}

// NewListener builds a listener for table. filter derives the
// identity-scoped filter string; it is only consulted once an identity
// exists.
func NewListener(feed *platform.Feed, table string, filter func(*models.Identity) string, target Reloader) *Listener {
	return &Listener{
		feed:   feed,
		table:  table,
		filter: filter,
		target: target,
		log:    observability.GlobalLogger,
	}
}

// Start subscribes for identity. A nil identity is a guard, not an error:
// screens mount before auth resolves, and subscribing without an identity
// would leak an unscoped subscription. Calling Start again while
// subscribed is a no-op so remounts never double-subscribe.
func (l *Listener) Start(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		return nil
	}

	filter := ""
	if l.filter != nil {
		filter = l.filter(identity)
	}

	sub, err := l.feed.Subscribe(l.table, filter, func(ev platform.ChangeEvent) {
		observability.FeedEventsTotal.WithLabelValues(ev.Table).Inc()
		if err := l.target.Reload(ctx); err != nil {
			l.log.Warn("reload after change event failed",
				"table", l.table, "error", err)
		}
	})
	if err != nil {
		return err
	}
	l.sub = sub
	return nil
}

// Stop unsubscribes unconditionally. Safe to call without a prior Start
// and safe to call twice; screens call it on every unmount.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		l.sub.Unsubscribe()
		l.sub = nil
	}
}

// Active reports whether a subscription is currently held.
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sub != nil
}
