package plans

import (
	"sort"
	"sync"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
)

// InMemoryRepository keeps plans in a map. Used for STORE_BACKEND=memory and tests.
type InMemoryRepository struct {
	plans map[string]*domain.RebalancePlan
	mu    sync.RWMutex
	log   zerolog.Logger
}

// NewInMemoryRepository creates an empty in-memory plan repository
func NewInMemoryRepository(log zerolog.Logger) *InMemoryRepository {
	return &InMemoryRepository{
		plans: make(map[string]*domain.RebalancePlan),
		log:   log.With().Str("repository", "plans_inmemory").Logger(),
	}
}

func (r *InMemoryRepository) Upsert(plan *domain.RebalancePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plans[plan.ID] = plan.Clone()
	return nil
}

func (r *InMemoryRepository) GetByID(id string) (*domain.RebalancePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plan, ok := r.plans[id]
	if !ok {
		return nil, nil
	}
	return plan.Clone(), nil
}

func (r *InMemoryRepository) List() ([]*domain.RebalancePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.RebalancePlan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
