// Package execution builds phased execution plans for approved overrides and runs them.
package execution

import (
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phase and task ids used by the planner and the runner
const (
	PhasePreparation = "preparation"
	PhaseExecution   = "execution"

	TaskValidateOverride = "validate_override"
	TaskPrepareTrades    = "prepare_trades"
	TaskExecuteTrades    = "execute_trades"
	TaskMonitorExecution = "monitor_execution"
)

// Planner derives execution plans. It holds no state.
type Planner struct {
	now func() time.Time
}

// NewPlanner creates a planner using the wall clock
func NewPlanner() *Planner {
	return &Planner{now: func() time.Time { return time.Now().UTC() }}
}

// Build returns the execution plan for the handler plus progress counters
// initialised from the baseline plan's trades. The override's alternative
// trades do not change the totals.
func (p *Planner) Build(plan *domain.RebalancePlan) (*domain.ExecutionPlan, domain.ExecutionProgress) {
	execPlan := &domain.ExecutionPlan{
		ID: uuid.NewString(),
		Phases: []domain.ExecutionPhase{
			{
				ID:    PhasePreparation,
				Name:  "Preparation",
				Order: 1,
				Tasks: []domain.ExecutionTask{
					{ID: TaskValidateOverride, Name: "Validate override", Order: 1, Status: domain.TaskPending},
					{ID: TaskPrepareTrades, Name: "Prepare trades", Order: 2, Status: domain.TaskPending},
				},
				Timeline: domain.PhaseTimeline{
					StartOffset: 0,
					Duration:    15 * time.Minute,
					Buffer:      5 * time.Minute,
				},
			},
			{
				ID:        PhaseExecution,
				Name:      "Execution",
				Order:     2,
				DependsOn: []string{PhasePreparation},
				Tasks: []domain.ExecutionTask{
					{ID: TaskExecuteTrades, Name: "Execute trades", Order: 1, Status: domain.TaskPending},
					{ID: TaskMonitorExecution, Name: "Monitor execution", Order: 2, Status: domain.TaskPending},
				},
				Timeline: domain.PhaseTimeline{
					StartOffset: 15 * time.Minute,
					Duration:    60 * time.Minute,
					Buffer:      15 * time.Minute,
				},
			},
		},
		Rollback:  rollbackPlan(),
		CreatedAt: p.now(),
	}

	trades, value := Totals(plan)
	progress := domain.ExecutionProgress{
		PhasesTotal:   len(execPlan.Phases),
		TradesTotal:   trades,
		TradesPending: trades,
		ValueTotal:    value,
	}
	return execPlan, progress
}

func rollbackPlan() domain.RollbackPlan {
	return domain.RollbackPlan{
		Triggers: []domain.RollbackTrigger{
			{Type: "critical_error", Condition: "execution error or unrecoverable trade failure"},
			{Type: "user_cancel", Condition: "submitter requests cancellation"},
		},
		Actions: []domain.RollbackAction{
			{Order: 1, Type: "stop_execution", Description: "Halt remaining trade submissions"},
			{Order: 2, Type: "restore_original", Description: "Restore the original rebalance plan"},
		},
		Timeline:  30 * time.Minute,
		Resources: []string{"trading_desk", "risk_manager", "original_plan_snapshot"},
	}
}

// Totals returns the trade count and value of the plan's trades. A trade
// without an estimated value is valued at quantity times estimated price.
func Totals(plan *domain.RebalancePlan) (int, float64) {
	if plan == nil {
		return 0, 0
	}
	total := decimal.Zero
	for _, t := range plan.Trades {
		total = total.Add(TradeValue(t))
	}
	value, _ := total.Round(2).Float64()
	return len(plan.Trades), value
}

// TradeValue returns the absolute value of a single trade
func TradeValue(t domain.PlannedTrade) decimal.Decimal {
	if t.EstimatedValue != 0 {
		return decimal.NewFromFloat(t.EstimatedValue).Abs()
	}
	return decimal.NewFromFloat(t.Quantity).Mul(decimal.NewFromFloat(t.EstimatedPrice)).Abs()
}
