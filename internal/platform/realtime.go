package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"worklink/internal/models"
	"worklink/internal/observability"
)

// ChangeEvent is one "something changed" push from the feed. No payload
// diff is guaranteed beyond the raw row snapshot, so consumers re-fetch.
type ChangeEvent struct {
	Table string         `json:"table"`
	Type  string         `json:"type"`
	Row   map[string]any `json:"row"`
}

type feedFrame struct {
	Event  string         `json:"event"`
	Table  string         `json:"table,omitempty"`
	Filter string         `json:"filter,omitempty"`
	Type   string         `json:"type,omitempty"`
	Row    map[string]any `json:"row,omitempty"`
}

// FeedSubscription is one table+filter registration on the feed.
type FeedSubscription struct {
	id      int
	Table   string
	Filter  string
	handler func(ChangeEvent)
	feed    *Feed
}

// Unsubscribe removes the registration. Safe to call more than once.
func (s *FeedSubscription) Unsubscribe() {
	s.feed.unsubscribe(s)
}

// Feed is the websocket change-feed connection. One Feed serves any number
// of subscriptions; it reconnects with capped backoff and replays its
// subscription frames after reconnect.
type Feed struct {
	url    string
	apiKey string
	dialer *websocket.Dialer
	log    *observability.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[int]*FeedSubscription
	nextID int
	token  string
	closed bool
	cancel context.CancelFunc
}

// NewFeed creates a disconnected feed for the given websocket URL.
func NewFeed(url, apiKey string) *Feed {
	return &Feed{
		url:    url,
		apiKey: apiKey,
		dialer: websocket.DefaultDialer,
		log:    observability.GlobalLogger,
		subs:   make(map[int]*FeedSubscription),
	}
}

// Connect dials the feed and starts the read loop. The bearer token scopes
// which rows the server will emit events for.
func (f *Feed) Connect(ctx context.Context, token string) error {
	f.mu.Lock()
	if f.conn != nil {
		f.mu.Unlock()
		return nil
	}
	f.token = token
	f.closed = false
	f.mu.Unlock()

	conn, err := f.dial(ctx)
	if err != nil {
		return models.NewTransientError(err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.conn = conn
	f.cancel = cancel
	f.mu.Unlock()

	go f.readLoop(loopCtx)
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint := f.url
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	endpoint = fmt.Sprintf("%s%sapikey=%s&token=%s", endpoint, sep, f.apiKey, f.token)
	conn, _, err := f.dialer.DialContext(ctx, endpoint, nil)
	return conn, err
}

// Subscribe registers a handler for change events on table matching
// filter ("column=eq.value", empty for all rows in policy scope).
func (f *Feed) Subscribe(table, filter string, handler func(ChangeEvent)) (*FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, models.NewPermanentError("Feed is closed", nil)
	}

	f.nextID++
	sub := &FeedSubscription{id: f.nextID, Table: table, Filter: filter, handler: handler, feed: f}
	f.subs[sub.id] = sub

	if f.conn != nil {
		frame := feedFrame{Event: "subscribe", Table: table, Filter: filter}
		if err := f.conn.WriteJSON(frame); err != nil {
			delete(f.subs, sub.id)
			return nil, models.NewTransientError(err)
		}
	}
	return sub, nil
}

func (f *Feed) unsubscribe(sub *FeedSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub.id]; !ok {
		return
	}
	delete(f.subs, sub.id)
	if f.conn != nil {
		_ = f.conn.WriteJSON(feedFrame{Event: "unsubscribe", Table: sub.Table, Filter: sub.Filter})
	}
}

// Close tears the connection down and drops all subscriptions.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[int]*FeedSubscription)
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.conn != nil {
		err := f.conn.Close()
		f.conn = nil
		return err
	}
	return nil
}

func (f *Feed) readLoop(ctx context.Context) {
	backoff := time.Second

	for {
		f.mu.Lock()
		conn := f.conn
		closed := f.closed
		f.mu.Unlock()
		if closed || conn == nil || ctx.Err() != nil {
			return
		}

		var frame feedFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("change feed disconnected", "error", err)
			if !f.reconnect(ctx, &backoff) {
				return
			}
			continue
		}
		backoff = time.Second

		if frame.Event != "change" {
			continue
		}
		f.dispatch(ChangeEvent{Table: frame.Table, Type: frame.Type, Row: frame.Row})
	}
}

func (f *Feed) dispatch(ev ChangeEvent) {
	f.mu.Lock()
	matched := make([]*FeedSubscription, 0, 2)
	for _, sub := range f.subs {
		if sub.Table == ev.Table && MatchFilter(sub.Filter, ev.Row) {
			matched = append(matched, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range matched {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("change handler panicked", "table", ev.Table, "panic", r)
				}
			}()
			sub.handler(ev)
		}()
	}
}

func (f *Feed) reconnect(ctx context.Context, backoff *time.Duration) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(*backoff):
		}
		if *backoff < maxReconnectBackoff {
			*backoff *= 2
			if *backoff > maxReconnectBackoff {
				*backoff = maxReconnectBackoff
			}
		}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return false
		}
		f.mu.Unlock()

		conn, err := f.dial(ctx)
		if err != nil {
			f.log.Warn("change feed reconnect failed", "error", err)
			continue
		}

		f.mu.Lock()
		f.conn = conn
		// Replay subscription frames so the server restores scope.
		for _, sub := range f.subs {
			_ = conn.WriteJSON(feedFrame{Event: "subscribe", Table: sub.Table, Filter: sub.Filter})
		}
		f.mu.Unlock()
		f.log.Info("change feed reconnected")
		return true
	}
}

const maxReconnectBackoff = 30 * time.Second

// MatchFilter evaluates a "column=eq.value" filter against a row snapshot.
// An empty filter matches everything; a malformed filter matches nothing.
func MatchFilter(filter string, row map[string]any) bool {
	if filter == "" {
		return true
	}
	column, rest, ok := strings.Cut(filter, "=")
	if !ok {
		return false
	}
	op, want, ok := strings.Cut(rest, ".")
	if !ok || op != "eq" {
		return false
	}
	got, ok := row[column]
	if !ok {
		return false
	}
	switch v := got.(type) {
	case string:
		return v == want
	case json.Number:
		return v.String() == want
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".") == want ||
			fmt.Sprintf("%v", v) == want
	case bool:
		return (want == "true") == v
	default:
		return fmt.Sprintf("%v", v) == want
	}
}
