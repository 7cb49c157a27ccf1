package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
	"github.com/mednais/sop-marketplace/backend/internal/domain/providers"
	"github.com/mednais/sop-marketplace/backend/internal/domain/repositories"
	"github.com/mednais/sop-marketplace/backend/internal/infrastructure/observability"
)

// CachedProcedureAdapter wraps a ProcedureRepository with caching. Procedure
// definitions are read-only to the execution core and fetched on every
// session operation, so they cache well.
type CachedProcedureAdapter struct {
	adapter repositories.ProcedureRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedProcedureAdapter creates a new cached procedure adapter
func NewCachedProcedureAdapter(adapter repositories.ProcedureRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.ProcedureRepository {
	return &CachedProcedureAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// procedureByIDTTL is deliberately short: authors can edit steps while
// someone holds a stale definition, and five minutes bounds the drift.
const procedureByIDTTL = 300

func procedureCacheKey(id string) string {
	return fmt.Sprintf("procedure:%s", id)
}

// GetByID retrieves a procedure by ID with caching
func (a *CachedProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	cacheKey := procedureCacheKey(id)

	cached, err := a.cache.Get(ctx, cacheKey)
	if err == nil {
		var procedure entities.Procedure
		if err := json.Unmarshal(cached, &procedure); err == nil {
			if a.metrics != nil {
				observability.RecordCacheHit(ctx, a.metrics, "procedure")
			}
			procedure.NormalizeSteps()
			return &procedure, nil
		}
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		// A miss is the normal path; anything else is a cache failure worth
		// surfacing in the logs before falling back to the database.
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("procedure_id", id).Msg("procedure cache read failed")
	}

	if a.metrics != nil {
		observability.RecordCacheMiss(ctx, a.metrics, "procedure")
	}

	procedure, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(procedure); err == nil {
			_ = a.cache.Set(bgCtx, cacheKey, data, procedureByIDTTL)
		}
	}()

	return procedure, nil
}
