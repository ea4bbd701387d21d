// Package processing holds the stage rules that drive a handler through the pipeline.
package processing

import (
	"fmt"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
)

// Task labels set on processing.currentTask when entering a stage
const (
	TaskValidate     = "validate_override"
	TaskApprovals    = "collect_approvals"
	TaskPlan         = "build_execution_plan"
	TaskAwaitExecute = "await_execution"
	TaskExecute      = "execute_phases"
	TaskMonitor      = "monitor_execution"
	TaskDone         = "done"
)

var stageProgress = map[domain.ProcessingStage]float64{
	domain.StageQueued:     0,
	domain.StageValidating: 15,
	domain.StageApproving:  30,
	domain.StagePlanning:   50,
	domain.StageExecuting:  70,
	domain.StageMonitoring: 90,
	domain.StageCompleted:  100,
}

// Progress returns the progress percentage reported for a stage
func Progress(stage domain.ProcessingStage) float64 {
	return stageProgress[stage]
}

// Step is the outcome of evaluating one tick for a handler
type Step struct {
	Advance  bool
	Next     domain.ProcessingStage
	Task     string
	Blocking string // set when the handler cannot advance
}

// NextStep decides whether the handler can advance one stage.
// Decisions depend only on the handler's current fields.
func NextStep(h *domain.OverrideHandler) Step {
	if h.Status.IsTerminal() {
		return Step{Blocking: fmt.Sprintf("handler is %s", h.Status)}
	}

	switch h.Processing.CurrentStage {
	case "", domain.StageQueued:
		return Step{Advance: true, Next: domain.StageValidating, Task: TaskValidate}

	case domain.StageValidating:
		if !h.Validation.IsValid {
			return Step{Blocking: fmt.Sprintf("validation failed with %d error(s)", len(h.Validation.Errors))}
		}
		return Step{Advance: true, Next: domain.StageApproving, Task: TaskApprovals}

	case domain.StageApproving:
		if h.Status != domain.StatusApproved {
			return Step{Blocking: fmt.Sprintf("awaiting approvals (%d/%d)",
				h.Approval.CurrentApprovals, h.Approval.RequiredApprovals)}
		}
		return Step{Advance: true, Next: domain.StagePlanning, Task: TaskPlan}

	case domain.StagePlanning:
		return Step{Advance: true, Next: domain.StageExecuting, Task: TaskAwaitExecute}

	default:
		// executing and later stages are driven by the execution runner
		return Step{}
	}
}

// Enter moves the handler to stage. Stages never regress; entering the
// current or an earlier stage is an INVALID_STATE error.
func Enter(h *domain.OverrideHandler, stage domain.ProcessingStage, task string, at time.Time) error {
	current := h.Processing.CurrentStage
	if current == "" {
		current = domain.StageQueued
	}
	if stage.Index() < 0 {
		return domain.NewError(domain.CodeInvalidState, "unknown processing stage", "stage", string(stage))
	}
	if stage.Index() <= current.Index() {
		return domain.NewError(domain.CodeInvalidState, "processing stage cannot regress",
			"from", string(current), "to", string(stage))
	}

	h.Processing.CurrentStage = stage
	h.Processing.CurrentTask = task
	h.Processing.Progress = Progress(stage)
	h.Processing.BlockingIssues = nil
	h.Processing.StageHistory = append(h.Processing.StageHistory, domain.StageTransition{Stage: stage, At: at})
	return nil
}

// Start initialises processing state for a new handler
func Start(h *domain.OverrideHandler, at time.Time) {
	h.Processing = domain.ProcessingState{
		CurrentStage: domain.StageQueued,
		CurrentTask:  "queued",
		Progress:     Progress(domain.StageQueued),
		StageHistory: []domain.StageTransition{{Stage: domain.StageQueued, At: at}},
	}
}

// Block records a blocking issue, ignoring duplicates
func Block(h *domain.OverrideHandler, issue string) bool {
	for _, existing := range h.Processing.BlockingIssues {
		if existing == issue {
			return false
		}
	}
	h.Processing.BlockingIssues = append(h.Processing.BlockingIssues, issue)
	return true
}

// InQueue reports whether the tick processor should keep the handler queued
func InQueue(h *domain.OverrideHandler) bool {
	if h.Status.IsTerminal() {
		return false
	}
	return h.Processing.CurrentStage.Index() < domain.StageExecuting.Index()
}
