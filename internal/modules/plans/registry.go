// Package plans stores the baseline rebalance plans overrides are evaluated against.
package plans

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/rs/zerolog"
)

// Registry registers and looks up rebalance plans
type Registry struct {
	repo domain.PlanRepository
	bus  *events.Bus
	log  zerolog.Logger
}

// NewRegistry creates a plan registry. bus may be nil.
func NewRegistry(repo domain.PlanRepository, bus *events.Bus, log zerolog.Logger) *Registry {
	return &Registry{
		repo: repo,
		bus:  bus,
		log:  log.With().Str("service", "plans").Logger(),
	}
}

// Register stores the plan, replacing any plan with the same id
func (r *Registry) Register(ctx context.Context, plan *domain.RebalancePlan) (*domain.RebalancePlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if plan == nil || plan.ID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "plan id is required")
	}
	if plan.PortfolioID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "plan portfolio_id is required", "plan_id", plan.ID)
	}

	stored := plan.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if err := r.repo.Upsert(stored); err != nil {
		return nil, fmt.Errorf("failed to store plan %s: %w", plan.ID, err)
	}

	r.log.Info().
		Str("plan_id", stored.ID).
		Str("portfolio_id", stored.PortfolioID).
		Int("trades", len(stored.Trades)).
		Msg("Plan registered")

	if r.bus != nil {
		r.bus.Emit("plans", &events.PlanRegisteredData{Plan: stored.Clone()})
	}

	return stored.Clone(), nil
}

// Get returns the plan or PLAN_NOT_FOUND
func (r *Registry) Get(ctx context.Context, id string) (*domain.RebalancePlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := r.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %s: %w", id, err)
	}
	if plan == nil {
		return nil, domain.PlanNotFound(id)
	}
	return plan, nil
}

// List returns all registered plans ordered by creation time
func (r *Registry) List(ctx context.Context) ([]*domain.RebalancePlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plans, err := r.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}
