package domain

import "time"

// OverrideType identifies which part of the plan an override touches
type OverrideType string

const (
	OverrideTypeAllocation  OverrideType = "allocation"
	OverrideTypeTiming      OverrideType = "timing"
	OverrideTypeConstraints OverrideType = "constraints"
	OverrideTypeParameters  OverrideType = "parameters"
	OverrideTypeTrades      OverrideType = "trades"
	OverrideTypeFull        OverrideType = "full"
)

// OverrideScope describes how much of the plan an override replaces
type OverrideScope string

const (
	ScopePartial     OverrideScope = "partial"
	ScopeComplete    OverrideScope = "complete"
	ScopeConditional OverrideScope = "conditional"
	ScopeTemporary   OverrideScope = "temporary"
)

// ImpactLevel grades the impact of a single change
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Weight maps the impact level onto [0,1]
func (l ImpactLevel) Weight() float64 {
	switch l {
	case ImpactLow:
		return 0.25
	case ImpactMedium:
		return 0.5
	case ImpactHigh:
		return 0.75
	case ImpactCritical:
		return 1.0
	default:
		return 0
	}
}

// ChangeType describes what kind of edit a change performs
type ChangeType string

const (
	ChangeModify ChangeType = "modify"
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
)

// Urgency is how soon the submitter wants the override applied
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyNormal    Urgency = "normal"
	UrgencyHigh      Urgency = "high"
	UrgencyImmediate Urgency = "immediate"
)

// OverrideChange is a single field-level modification of the plan
type OverrideChange struct {
	Field         string      `json:"field" msgpack:"field"`
	Asset         string      `json:"asset,omitempty" msgpack:"asset"`
	OriginalValue any         `json:"original_value" msgpack:"original_value"`
	NewValue      any         `json:"new_value" msgpack:"new_value"`
	ChangeType    ChangeType  `json:"change_type" msgpack:"change_type"`
	Impact        ImpactLevel `json:"impact" msgpack:"impact"`
	Rationale     string      `json:"rationale" msgpack:"rationale"`
}

// Justification explains why the override is needed
type Justification struct {
	Reason   string   `json:"reason" msgpack:"reason"`
	Category string   `json:"category" msgpack:"category"`
	Evidence []string `json:"evidence,omitempty" msgpack:"evidence"`
}

// AlternativePlan is an optional replacement trade list proposed by the user
type AlternativePlan struct {
	Description       string             `json:"description" msgpack:"description"`
	TargetAllocations []TargetAllocation `json:"target_allocations,omitempty" msgpack:"target_allocations"`
	Trades            []PlannedTrade     `json:"trades,omitempty" msgpack:"trades"`
}

// RiskConsideration is a risk the submitter acknowledges
type RiskConsideration struct {
	Risk         string  `json:"risk" msgpack:"risk"`
	Description  string  `json:"description,omitempty" msgpack:"description"`
	ResidualRisk float64 `json:"residual_risk" msgpack:"residual_risk"`
	Mitigation   string  `json:"mitigation,omitempty" msgpack:"mitigation"`
}

// OverrideTiming controls when the override takes effect
type OverrideTiming struct {
	Urgency     Urgency    `json:"urgency" msgpack:"urgency"`
	EffectiveAt *time.Time `json:"effective_at,omitempty" msgpack:"effective_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" msgpack:"expires_at"`
}

// OverrideCondition gates a conditional override
type OverrideCondition struct {
	Type       string `json:"type" msgpack:"type"`
	Expression string `json:"expression" msgpack:"expression"`
}

// RebalanceOverride is the user's proposed modification to a plan
type RebalanceOverride struct {
	Type               OverrideType        `json:"type" msgpack:"type"`
	Scope              OverrideScope       `json:"scope" msgpack:"scope"`
	Changes            []OverrideChange    `json:"changes" msgpack:"changes"`
	Justification      Justification       `json:"justification" msgpack:"justification"`
	AlternativePlan    *AlternativePlan    `json:"alternative_plan,omitempty" msgpack:"alternative_plan"`
	RiskConsiderations []RiskConsideration `json:"risk_considerations,omitempty" msgpack:"risk_considerations"`
	Timing             OverrideTiming      `json:"timing" msgpack:"timing"`
	Conditions         []OverrideCondition `json:"conditions,omitempty" msgpack:"conditions"`
}

// IsCritical reports whether the override needs the full approval quorum
func (o *RebalanceOverride) IsCritical() bool {
	return o.Type == OverrideTypeFull || o.Scope == ScopeComplete
}

// Clone returns a deep copy of the override
func (o RebalanceOverride) Clone() RebalanceOverride {
	out := o
	out.Changes = cloneSlice(o.Changes)
	out.Justification.Evidence = cloneSlice(o.Justification.Evidence)
	out.RiskConsiderations = cloneSlice(o.RiskConsiderations)
	out.Conditions = cloneSlice(o.Conditions)
	if o.AlternativePlan != nil {
		alt := *o.AlternativePlan
		alt.TargetAllocations = cloneSlice(o.AlternativePlan.TargetAllocations)
		alt.Trades = cloneSlice(o.AlternativePlan.Trades)
		out.AlternativePlan = &alt
	}
	if o.Timing.EffectiveAt != nil {
		t := *o.Timing.EffectiveAt
		out.Timing.EffectiveAt = &t
	}
	if o.Timing.ExpiresAt != nil {
		t := *o.Timing.ExpiresAt
		out.Timing.ExpiresAt = &t
	}
	return out
}
