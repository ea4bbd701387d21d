// Package domain provides core domain models and types.
package domain

import "time"

// TradeSide represents the direction of a planned trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// AccessRole represents a user's role on a portfolio
type AccessRole string

const (
	RoleOwner  AccessRole = "owner"
	RoleAdmin  AccessRole = "admin"
	RoleTrader AccessRole = "trader"
	RoleViewer AccessRole = "viewer"
)

// CanApprove reports whether the role is allowed to sign off overrides
func (r AccessRole) CanApprove() bool {
	return r == RoleOwner || r == RoleAdmin
}

// TargetAllocation is a single target weight in a rebalance plan
type TargetAllocation struct {
	Asset        string  `json:"asset" msgpack:"asset"`
	TargetWeight float64 `json:"target_weight" msgpack:"target_weight"`
	Deviation    float64 `json:"deviation" msgpack:"deviation"`
}

// PlannedTrade is a trade proposed by the upstream planner
type PlannedTrade struct {
	Asset          string    `json:"asset" msgpack:"asset"`
	Side           TradeSide `json:"side" msgpack:"side"`
	Quantity       float64   `json:"quantity" msgpack:"quantity"`
	EstimatedPrice float64   `json:"estimated_price" msgpack:"estimated_price"`
	EstimatedValue float64   `json:"estimated_value" msgpack:"estimated_value"`
}

// PlanConstraints holds the limits the plan was generated under
type PlanConstraints struct {
	MaxTurnover     float64  `json:"max_turnover" msgpack:"max_turnover"`
	MinTradeValue   float64  `json:"min_trade_value" msgpack:"min_trade_value"`
	MaxPositionSize float64  `json:"max_position_size" msgpack:"max_position_size"`
	ExcludedAssets  []string `json:"excluded_assets,omitempty" msgpack:"excluded_assets"`
}

// RiskAssessment summarises the plan's risk profile
type RiskAssessment struct {
	Score float64  `json:"score" msgpack:"score"`
	Level string   `json:"level" msgpack:"level"`
	Notes []string `json:"notes,omitempty" msgpack:"notes"`
}

// CostEstimate is the expected cost of executing the plan
type CostEstimate struct {
	Commission float64 `json:"commission" msgpack:"commission"`
	Slippage   float64 `json:"slippage" msgpack:"slippage"`
	Total      float64 `json:"total" msgpack:"total"`
}

// PlanTimeline is the window the plan is expected to execute in
type PlanTimeline struct {
	StartAt time.Time `json:"start_at" msgpack:"start_at"`
	EndAt   time.Time `json:"end_at" msgpack:"end_at"`
}

// AccessEntry grants a user a role on the plan's portfolio
type AccessEntry struct {
	UserID string     `json:"user_id" msgpack:"user_id"`
	Role   AccessRole `json:"role" msgpack:"role"`
	Active bool       `json:"active" msgpack:"active"`
}

// RebalancePlan is the immutable baseline produced by the upstream planner.
// Overrides are always evaluated against a registered plan.
type RebalancePlan struct {
	ID                string             `json:"id" msgpack:"id"`
	PortfolioID       string             `json:"portfolio_id" msgpack:"portfolio_id"`
	Strategy          string             `json:"strategy" msgpack:"strategy"`
	TargetAllocations []TargetAllocation `json:"target_allocations" msgpack:"target_allocations"`
	Trades            []PlannedTrade     `json:"trades" msgpack:"trades"`
	Constraints       PlanConstraints    `json:"constraints" msgpack:"constraints"`
	RiskAssessment    RiskAssessment     `json:"risk_assessment" msgpack:"risk_assessment"`
	CostEstimate      CostEstimate       `json:"cost_estimate" msgpack:"cost_estimate"`
	Timeline          PlanTimeline       `json:"timeline" msgpack:"timeline"`
	AccessControl     []AccessEntry      `json:"access_control" msgpack:"access_control"`
	CreatedAt         time.Time          `json:"created_at" msgpack:"created_at"`
}

// Clone returns a deep copy of the plan
func (p *RebalancePlan) Clone() *RebalancePlan {
	if p == nil {
		return nil
	}
	out := *p
	out.TargetAllocations = cloneSlice(p.TargetAllocations)
	out.Trades = cloneSlice(p.Trades)
	out.Constraints.ExcludedAssets = cloneSlice(p.Constraints.ExcludedAssets)
	out.RiskAssessment.Notes = cloneSlice(p.RiskAssessment.Notes)
	out.AccessControl = cloneSlice(p.AccessControl)
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
