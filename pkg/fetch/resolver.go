package fetch

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/smarchetti/ticketdesk/pkg/cache"
	"github.com/smarchetti/ticketdesk/pkg/model"
	"github.com/smarchetti/ticketdesk/pkg/token"
)

// Resolver ties the strategy dispatcher to the value cache. It
// deduplicates concurrent fetches for the same field and guarantees
// that a superseded, late-arriving fetch cannot overwrite fresher
// data already cached.
type Resolver struct {
	dispatcher *Dispatcher
	cache      *cache.ValueCache
	normalizer *token.Normalizer
	logger     *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	latest map[model.FieldType]uint64
}

// NewResolver creates a Resolver around a dispatcher and cache.
func NewResolver(dispatcher *Dispatcher, valueCache *cache.ValueCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dispatcher: dispatcher,
		cache:      valueCache,
		normalizer: token.NewNormalizer(logger),
		logger:     logger,
		latest:     make(map[model.FieldType]uint64),
	}
}

// Cache exposes the resolver's cache for stats display.
func (r *Resolver) Cache() *cache.ValueCache {
	return r.cache
}

// Resolve returns the legal values for a field, from cache when a
// valid entry exists, fetching otherwise. Concurrent calls for the
// same field share one fetch.
func (r *Resolver) Resolve(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]model.FieldValue, error) {
	if values, ok := r.cache.Get(field); ok {
		return values, nil
	}
	return r.fetch(ctx, field, progress)
}

// Refresh discards any cached entry and fetches anew. A refresh
// supersedes fetches for the same field still in flight.
func (r *Resolver) Refresh(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]model.FieldValue, error) {
	r.cache.Invalidate(field)
	r.group.Forget(string(field))
	return r.fetch(ctx, field, progress)
}

func (r *Resolver) fetch(ctx context.Context, field model.FieldType, progress ProgressFunc) ([]model.FieldValue, error) {
	result, err, _ := r.group.Do(string(field), func() (any, error) {
		// One sequence per flight, not per caller: a caller joining a
		// shared flight must not make its result look superseded.
		seq := r.nextSeq(field)
		raw, err := r.dispatcher.Fetch(ctx, field, progress)
		if err != nil {
			return nil, err
		}
		values := r.toFieldValues(field, raw)
		if r.isLatest(field, seq) {
			r.cache.Put(field, values)
		} else {
			r.logger.Debug("discarding superseded fetch", "field", string(field))
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.FieldValue), nil
}

func (r *Resolver) nextSeq(field model.FieldType) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[field]++
	return r.latest[field]
}

func (r *Resolver) isLatest(field model.FieldType, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest[field] == seq
}

// toFieldValues converts raw strategy output into canonical field
// values. The display value is never empty for a non-empty original.
func (r *Resolver) toFieldValues(field model.FieldType, raw []string) []model.FieldValue {
	values := make([]model.FieldValue, 0, len(raw))
	for _, original := range raw {
		display := strings.TrimSpace(r.normalizer.NormalizeRaw(original))
		if display == "" {
			display = original
		}
		values = append(values, model.FieldValue{
			Name:         display,
			Value:        original,
			DisplayValue: display,
			FieldType:    field,
		})
	}
	return values
}

// BatchResult is the outcome of a batch load: per-field values and
// per-field failures. A failed field yields an empty value list, not
// a batch abort.
type BatchResult struct {
	Values map[model.FieldType][]model.FieldValue
	Errors map[model.FieldType]error
}

// LoadAll resolves several fields concurrently. Failures are isolated
// per field type.
func (r *Resolver) LoadAll(ctx context.Context, fields []model.FieldType, progress ProgressFunc) BatchResult {
	result := BatchResult{
		Values: make(map[model.FieldType][]model.FieldValue, len(fields)),
		Errors: make(map[model.FieldType]error),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		g.Go(func() error {
			values, err := r.Resolve(gctx, field, progress)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("field load failed", "field", string(field), "error", err)
				result.Errors[field] = err
				result.Values[field] = nil
				return nil
			}
			result.Values[field] = values
			return nil
		})
	}
	g.Wait()
	return result
}
