// Package controller holds the feature-level sync controllers: one per
// screen, each owning its entity list and delegating remote access to the
// records client.
package controller

import (
	"context"
	"fmt"

	"worklink/internal/models"
	"worklink/internal/platform"
	"worklink/internal/sync"
)

// tableStore adapts one remote table to the generic store surface. The
// buildFilters hook translates a feature's filter map into remote query
// conditions.
type tableStore[T sync.Entity] struct {
	records      *platform.RecordsClient
	table        string
	orderBy      string
	ascending    bool
	buildFilters func(sync.Filter) []platform.Filter
}

func (s *tableStore[T]) List(ctx context.Context, filter sync.Filter) ([]T, error) {
	q := platform.Query{
		Table:     s.table,
		OrderBy:   s.orderBy,
		Ascending: s.ascending,
	}
	if s.buildFilters != nil {
		q.Filters = s.buildFilters(filter)
	}
	var rows []T
	if err := s.records.Select(ctx, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *tableStore[T]) Get(ctx context.Context, id string) (T, error) {
	var rows []T
	q := platform.Query{
		Table:   s.table,
		Filters: []platform.Filter{platform.Eq("id", id)},
		Limit:   1,
	}
	var zero T
	if err := s.records.Select(ctx, q, &rows); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, models.NewNotFoundError(s.table, id)
	}
	return rows[0], nil
}

func (s *tableStore[T]) Insert(ctx context.Context, entity T) (T, error) {
	var created T
	if err := s.records.Insert(ctx, s.table, entity, &created); err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

func (s *tableStore[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	var updated T
	if err := s.records.Update(ctx, s.table, id, patch, &updated); err != nil {
		var zero T
		return zero, err
	}
	return updated, nil
}

func (s *tableStore[T]) Delete(ctx context.Context, id string) error {
	return s.records.Delete(ctx, s.table, id)
}

// likeStore performs the two dependent writes behind a like toggle: the
// membership row in the join table, and the denormalized counter on the
// entity row. The counter bump is read-modify-write; the controller
// re-fetches the authoritative row afterwards precisely because neither
// write is atomic with the other.
type likeStore struct {
	records         *platform.RecordsClient
	membershipTable string
	ownerColumn     string
	entityTable     string
}

func (s *likeStore) SetMembership(ctx context.Context, entityID, actorID string, liked bool) error {
	if liked {
		row := map[string]string{
			s.ownerColumn: entityID,
			"user_id":     actorID,
		}
		return s.records.Insert(ctx, s.membershipTable, row, nil)
	}
	return s.records.DeleteWhere(ctx, s.membershipTable, []platform.Filter{
		platform.Eq(s.ownerColumn, entityID),
		platform.Eq("user_id", actorID),
	})
}

func (s *likeStore) BumpCounter(ctx context.Context, entityID string, delta int) error {
	var rows []struct {
		LikeCount int `json:"like_count"`
	}
	q := platform.Query{
		Table:   s.entityTable,
		Filters: []platform.Filter{platform.Eq("id", entityID)},
		Limit:   1,
	}
	if err := s.records.Select(ctx, q, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return models.NewNotFoundError(s.entityTable, entityID)
	}
	next := rows[0].LikeCount + delta
	if next < 0 {
		next = 0
	}
	return s.records.Update(ctx, s.entityTable, entityID, map[string]any{"like_count": next}, nil)
}

// toggleMembership flips actorID in a membership list, returning the new
// list and whether the actor is now a member.
func toggleMembership(ids []string, actorID string) ([]string, bool) {
	for i, id := range ids {
		if id == actorID {
			return append(append([]string{}, ids[:i]...), ids[i+1:]...), false
		}
	}
	return append(append([]string{}, ids...), actorID), true
}

func wildcard(term string) string {
	return fmt.Sprintf("*%s*", term)
}
