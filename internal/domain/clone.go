package domain

import "maps"

// Clone returns a deep copy of the handler. Repositories and events hand out
// clones so callers never share memory with the stored aggregate.
func (h *OverrideHandler) Clone() *OverrideHandler {
	if h == nil {
		return nil
	}
	out := *h
	out.Override = h.Override.Clone()

	out.Processing.BlockingIssues = cloneSlice(h.Processing.BlockingIssues)
	out.Processing.StageHistory = cloneSlice(h.Processing.StageHistory)

	out.Validation.Checks = make([]ValidationCheck, len(h.Validation.Checks))
	for i, c := range h.Validation.Checks {
		c.Requires = cloneSlice(c.Requires)
		out.Validation.Checks[i] = c
	}
	out.Validation.Warnings = cloneSlice(h.Validation.Warnings)
	out.Validation.Errors = cloneSlice(h.Validation.Errors)
	out.Validation.Compliance = cloneSlice(h.Validation.Compliance)
	out.Validation.RiskValidation.LimitBreaches = cloneSlice(h.Validation.RiskValidation.LimitBreaches)
	out.Validation.ImpactValidation.AffectedAssets = cloneSlice(h.Validation.ImpactValidation.AffectedAssets)

	out.Approval.Approvers = make([]Approver, len(h.Approval.Approvers))
	for i, a := range h.Approval.Approvers {
		a.DecidedAt = cloneTime(a.DecidedAt)
		out.Approval.Approvers[i] = a
	}
	out.Approval.Deadlines.EscalateTo = cloneSlice(h.Approval.Deadlines.EscalateTo)

	if h.Execution.Plan != nil {
		plan := *h.Execution.Plan
		plan.Phases = make([]ExecutionPhase, len(h.Execution.Plan.Phases))
		for i, p := range h.Execution.Plan.Phases {
			p.DependsOn = cloneSlice(p.DependsOn)
			p.Tasks = cloneSlice(p.Tasks)
			plan.Phases[i] = p
		}
		plan.Rollback.Triggers = cloneSlice(plan.Rollback.Triggers)
		plan.Rollback.Actions = cloneSlice(plan.Rollback.Actions)
		plan.Rollback.Resources = cloneSlice(plan.Rollback.Resources)
		out.Execution.Plan = &plan
	}
	out.Execution.State.StartedAt = cloneTime(h.Execution.State.StartedAt)
	out.Execution.State.FinishedAt = cloneTime(h.Execution.State.FinishedAt)
	out.Execution.State.VisitedPhases = cloneSlice(h.Execution.State.VisitedPhases)

	out.Monitoring.Metrics = cloneSlice(h.Monitoring.Metrics)
	if h.Monitoring.AlertThresholds != nil {
		out.Monitoring.AlertThresholds = maps.Clone(h.Monitoring.AlertThresholds)
	}

	if h.Results != nil {
		results := *h.Results
		out.Results = &results
	}
	out.ApprovedAt = cloneTime(h.ApprovedAt)
	out.ExecutedAt = cloneTime(h.ExecutedAt)
	out.CompletedAt = cloneTime(h.CompletedAt)

	out.Metadata.AuditTrail = cloneSlice(h.Metadata.AuditTrail)
	out.Metadata.Tags = cloneSlice(h.Metadata.Tags)
	return &out
}
