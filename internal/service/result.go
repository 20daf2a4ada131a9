package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/salesledger/internal/cache"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/store"
)

// Saved pairs a written record with where the write landed.
type Saved[T any] struct {
	Record T                 `json:"record"`
	Write  store.WriteResult `json:"write"`
}

func findByID[T store.Record](records []T, id string) (int, bool) {
	for i, r := range records {
		if r.RecordID() == id {
			return i, true
		}
	}
	return -1, false
}

func getByID[T store.Record](ctx context.Context, coll *store.Collection[T], kind, id string) (T, error) {
	var zero T
	records, err := coll.Get(ctx)
	if err != nil {
		return zero, err
	}
	i, ok := findByID(records, id)
	if !ok {
		return zero, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return records[i], nil
}

// deleteByID removes the record with id, failing with ErrNotFound when absent.
func deleteByID[T store.Record](ctx context.Context, coll *store.Collection[T], kind, id string) (store.WriteResult, error) {
	return coll.Update(ctx, func(records []T) ([]T, error) {
		i, ok := findByID(records, id)
		if !ok {
			return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return append(records[:i:i], records[i+1:]...), nil
	})
}

func invalidateReports(ctx context.Context, c cache.ReportCache) {
	if err := c.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("report cache invalidation failed")
	}
}
