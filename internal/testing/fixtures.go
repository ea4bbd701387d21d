package testing

import (
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
)

// Fixture user ids. The plan ACL grants approval rights to Owner, Admin and
// SecondAdmin; Trader is the usual submitter.
const (
	UserOwner         = "alice"
	UserAdmin         = "bob"
	UserSecondAdmin   = "carol"
	UserTrader        = "dave"
	UserViewer        = "erin"
	UserInactiveAdmin = "frank"
)

// NewPlanFixture returns a plan with three trades worth 3200 in total and an
// ACL of three active approvers
func NewPlanFixture(id string) *domain.RebalancePlan {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	return &domain.RebalancePlan{
		ID:          id,
		PortfolioID: "portfolio-1",
		Strategy:    "threshold",
		TargetAllocations: []domain.TargetAllocation{
			{Asset: "AAPL", TargetWeight: 0.40, Deviation: 0.05},
			{Asset: "MSFT", TargetWeight: 0.35, Deviation: -0.04},
			{Asset: "GOOG", TargetWeight: 0.25, Deviation: 0.01},
		},
		Trades: []domain.PlannedTrade{
			{Asset: "AAPL", Side: domain.TradeSideBuy, Quantity: 10, EstimatedPrice: 150, EstimatedValue: 1500},
			{Asset: "MSFT", Side: domain.TradeSideSell, Quantity: 5, EstimatedPrice: 300},
			{Asset: "GOOG", Side: domain.TradeSideBuy, Quantity: 2, EstimatedPrice: 100, EstimatedValue: 200},
		},
		Constraints: domain.PlanConstraints{
			MaxTurnover:     0.2,
			MinTradeValue:   100,
			MaxPositionSize: 0.4,
		},
		RiskAssessment: domain.RiskAssessment{Score: 0.35, Level: "moderate"},
		CostEstimate:   domain.CostEstimate{Commission: 3, Slippage: 1.5, Total: 4.5},
		Timeline: domain.PlanTimeline{
			StartAt: now.Add(time.Hour),
			EndAt:   now.Add(3 * time.Hour),
		},
		AccessControl: []domain.AccessEntry{
			{UserID: UserOwner, Role: domain.RoleOwner, Active: true},
			{UserID: UserAdmin, Role: domain.RoleAdmin, Active: true},
			{UserID: UserSecondAdmin, Role: domain.RoleAdmin, Active: true},
			{UserID: UserTrader, Role: domain.RoleTrader, Active: true},
			{UserID: UserViewer, Role: domain.RoleViewer, Active: true},
			{UserID: UserInactiveAdmin, Role: domain.RoleAdmin, Active: false},
		},
		CreatedAt: now,
	}
}

// NewAllocationOverrideFixture returns a valid, non-critical partial allocation override
func NewAllocationOverrideFixture() domain.RebalanceOverride {
	return domain.RebalanceOverride{
		Type:  domain.OverrideTypeAllocation,
		Scope: domain.ScopePartial,
		Changes: []domain.OverrideChange{
			{
				Field:         "target_weight",
				Asset:         "AAPL",
				OriginalValue: 0.40,
				NewValue:      0.35,
				ChangeType:    domain.ChangeModify,
				Impact:        domain.ImpactMedium,
				Rationale:     "reduce single-name concentration",
			},
			{
				Field:         "target_weight",
				Asset:         "GOOG",
				OriginalValue: 0.25,
				NewValue:      0.30,
				ChangeType:    domain.ChangeModify,
				Impact:        domain.ImpactLow,
				Rationale:     "rotate into GOOG",
			},
		},
		Justification: domain.Justification{
			Reason:   "Concentration above house limit after earnings",
			Category: "risk_management",
			Evidence: []string{"risk-report-2026-01"},
		},
		RiskConsiderations: []domain.RiskConsideration{
			{Risk: "tracking_error", ResidualRisk: 0.3, Mitigation: "review in 2 weeks"},
		},
		Timing: domain.OverrideTiming{Urgency: domain.UrgencyNormal},
	}
}

// NewFullOverrideFixture returns a valid critical override (type full, scope complete)
func NewFullOverrideFixture() domain.RebalanceOverride {
	return domain.RebalanceOverride{
		Type:  domain.OverrideTypeFull,
		Scope: domain.ScopeComplete,
		Changes: []domain.OverrideChange{
			{
				Field:         "trades",
				ChangeType:    domain.ChangeModify,
				Impact:        domain.ImpactCritical,
				OriginalValue: 3,
				NewValue:      1,
				Rationale:     "replace plan with a single hedging trade",
			},
		},
		Justification: domain.Justification{
			Reason:   "Market dislocation",
			Category: "market_event",
			Evidence: []string{"desk-note-17"},
		},
		AlternativePlan: &domain.AlternativePlan{
			Description: "single hedge",
			Trades: []domain.PlannedTrade{
				{Asset: "SPY", Side: domain.TradeSideSell, Quantity: 4, EstimatedPrice: 500, EstimatedValue: 2000},
			},
		},
		RiskConsiderations: []domain.RiskConsideration{
			{Risk: "basis", ResidualRisk: 0.5, Mitigation: "unwind within a week"},
		},
		Timing: domain.OverrideTiming{Urgency: domain.UrgencyHigh},
	}
}

// NewRiskyOverrideFixture returns an override whose residual risk breaches the default threshold
func NewRiskyOverrideFixture() domain.RebalanceOverride {
	o := NewAllocationOverrideFixture()
	o.RiskConsiderations = []domain.RiskConsideration{
		{Risk: "liquidity", ResidualRisk: 0.9, Mitigation: "none"},
	}
	return o
}
