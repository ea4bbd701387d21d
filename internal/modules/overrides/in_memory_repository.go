package overrides

import (
	"sort"
	"sync"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
)

// InMemoryRepository keeps handlers in a map. Used for STORE_BACKEND=memory and tests.
type InMemoryRepository struct {
	handlers map[string]*domain.OverrideHandler
	mu       sync.RWMutex
	log      zerolog.Logger
}

// NewInMemoryRepository creates an empty in-memory handler repository
func NewInMemoryRepository(log zerolog.Logger) *InMemoryRepository {
	return &InMemoryRepository{
		handlers: make(map[string]*domain.OverrideHandler),
		log:      log.With().Str("repository", "override_handlers_inmemory").Logger(),
	}
}

func (r *InMemoryRepository) Save(h *domain.OverrideHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[h.ID] = h.Clone()
	return nil
}

func (r *InMemoryRepository) GetByID(id string) (*domain.OverrideHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[id]
	if !ok {
		return nil, nil
	}
	return h.Clone(), nil
}

func (r *InMemoryRepository) List(filter domain.HandlerFilter) ([]*domain.OverrideHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.OverrideHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		if filter.Matches(h) {
			out = append(out, h.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
