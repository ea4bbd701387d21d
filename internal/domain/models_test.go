package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRole_CanApprove(t *testing.T) {
	tests := []struct {
		role     AccessRole
		expected bool
	}{
		{RoleOwner, true},
		{RoleAdmin, true},
		{RoleTrader, false},
		{RoleViewer, false},
		{AccessRole("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.CanApprove())
		})
	}
}

func TestRebalanceOverride_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		override RebalanceOverride
		expected bool
	}{
		{"full type", RebalanceOverride{Type: OverrideTypeFull, Scope: ScopePartial}, true},
		{"complete scope", RebalanceOverride{Type: OverrideTypeAllocation, Scope: ScopeComplete}, true},
		{"partial allocation", RebalanceOverride{Type: OverrideTypeAllocation, Scope: ScopePartial}, false},
		{"temporary timing", RebalanceOverride{Type: OverrideTypeTiming, Scope: ScopeTemporary}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.override.IsCritical())
		})
	}
}

func TestImpactLevel_Weight(t *testing.T) {
	assert.Equal(t, 0.25, ImpactLow.Weight())
	assert.Equal(t, 0.5, ImpactMedium.Weight())
	assert.Equal(t, 0.75, ImpactHigh.Weight())
	assert.Equal(t, 1.0, ImpactCritical.Weight())
	assert.Equal(t, 0.0, ImpactLevel("").Weight())
}

func TestHandlerStatus_Transitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusApproved))
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusApproved.CanTransitionTo(StatusExecuting))
	assert.True(t, StatusExecuting.CanTransitionTo(StatusFailed))

	// Executing is only reachable from approved
	assert.False(t, StatusDraft.CanTransitionTo(StatusExecuting))
	assert.False(t, StatusPending.CanTransitionTo(StatusExecuting))

	// Terminal states go nowhere
	for _, s := range []HandlerStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		assert.True(t, s.IsTerminal())
		for _, next := range []HandlerStatus{StatusDraft, StatusPending, StatusApproved, StatusExecuting} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s", s, next)
		}
	}
}

func TestProcessingStage_Index(t *testing.T) {
	for i, stage := range Stages {
		assert.Equal(t, i, stage.Index())
	}
	assert.Equal(t, -1, ProcessingStage("bogus").Index())
	assert.Less(t, StageApproving.Index(), StagePlanning.Index())
}

func TestOverrideHandler_CloneIsDeep(t *testing.T) {
	now := time.Now()
	h := &OverrideHandler{
		ID: "h1",
		Override: RebalanceOverride{
			Changes: []OverrideChange{{Field: "allocation.AAPL", Impact: ImpactHigh}},
			AlternativePlan: &AlternativePlan{
				Trades: []PlannedTrade{{Asset: "AAPL", Quantity: 1}},
			},
		},
		Approval: ApprovalWorkflow{
			Approvers: []Approver{{UserID: "u1", Status: ApproverPending}},
		},
		Execution: OverrideExecution{
			Plan: &ExecutionPlan{Phases: []ExecutionPhase{{ID: "preparation", Tasks: []ExecutionTask{{ID: "t1"}}}}},
		},
		Monitoring:  MonitoringConfig{AlertThresholds: map[string]float64{"drift": 0.05}},
		Results:     &OverrideResults{Success: true},
		CompletedAt: &now,
	}

	c := h.Clone()
	require.NotNil(t, c)

	c.Override.Changes[0].Field = "changed"
	c.Override.AlternativePlan.Trades[0].Quantity = 99
	c.Approval.Approvers[0].Status = ApproverApproved
	c.Execution.Plan.Phases[0].Tasks[0].Status = TaskCompleted
	c.Monitoring.AlertThresholds["drift"] = 1
	c.Results.Success = false
	*c.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, "allocation.AAPL", h.Override.Changes[0].Field)
	assert.Equal(t, 1.0, h.Override.AlternativePlan.Trades[0].Quantity)
	assert.Equal(t, ApproverPending, h.Approval.Approvers[0].Status)
	assert.Equal(t, TaskStatus(""), h.Execution.Plan.Phases[0].Tasks[0].Status)
	assert.Equal(t, 0.05, h.Monitoring.AlertThresholds["drift"])
	assert.True(t, h.Results.Success)
	assert.Equal(t, now, *h.CompletedAt)
}

func TestRebalancePlan_Clone(t *testing.T) {
	p := &RebalancePlan{
		ID:     "p1",
		Trades: []PlannedTrade{{Asset: "MSFT", Quantity: 3}},
		AccessControl: []AccessEntry{
			{UserID: "alice", Role: RoleOwner, Active: true},
		},
	}
	c := p.Clone()
	c.Trades[0].Quantity = 10
	c.AccessControl[0].Active = false

	assert.Equal(t, 3.0, p.Trades[0].Quantity)
	assert.True(t, p.AccessControl[0].Active)
	assert.Nil(t, (*RebalancePlan)(nil).Clone())
}

func TestApprovalWorkflow_FindApprover(t *testing.T) {
	w := ApprovalWorkflow{Approvers: []Approver{{UserID: "a"}, {UserID: "b"}}}

	found := w.FindApprover("b")
	require.NotNil(t, found)
	found.Status = ApproverApproved
	assert.Equal(t, ApproverApproved, w.Approvers[1].Status)

	assert.Nil(t, w.FindApprover("c"))
}
