package domain

// PlanRepository stores rebalance plans keyed by id.
// Implementations: plans.Repository (SQLite) and plans.InMemoryRepository.
type PlanRepository interface {
	// Upsert inserts or replaces the plan with the same id
	Upsert(plan *RebalancePlan) error

	// GetByID returns nil, nil when the plan does not exist
	GetByID(id string) (*RebalancePlan, error)

	// List returns all plans ordered by creation time
	List() ([]*RebalancePlan, error)
}

// HandlerFilter narrows ListOverrides results. Zero values match everything.
type HandlerFilter struct {
	Status      HandlerStatus
	Type        OverrideType
	PlanID      string
	PortfolioID string
}

// Matches reports whether the handler satisfies the filter
func (f HandlerFilter) Matches(h *OverrideHandler) bool {
	if f.Status != "" && h.Status != f.Status {
		return false
	}
	if f.Type != "" && h.Override.Type != f.Type {
		return false
	}
	if f.PlanID != "" && h.PlanID != f.PlanID {
		return false
	}
	if f.PortfolioID != "" && h.PortfolioID != f.PortfolioID {
		return false
	}
	return true
}

// HandlerRepository stores override handlers.
// Implementations: overrides.Repository (SQLite) and overrides.InMemoryRepository.
// Every returned handler is a copy owned by the caller.
type HandlerRepository interface {
	// Save inserts or replaces the handler
	Save(handler *OverrideHandler) error

	// GetByID returns nil, nil when the handler does not exist
	GetByID(id string) (*OverrideHandler, error)

	// List returns matching handlers ordered by creation time
	List(filter HandlerFilter) ([]*OverrideHandler, error)
}
