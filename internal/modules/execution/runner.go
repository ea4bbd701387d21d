package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/modules/processing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sentinel-overrides/execution"

// TaskExecutor performs the work behind a single execution task
type TaskExecutor interface {
	ExecuteTask(ctx context.Context, h *domain.OverrideHandler, phase domain.ExecutionPhase, task domain.ExecutionTask) error
}

// TaskFunc adapts a function to TaskExecutor
type TaskFunc func(ctx context.Context, h *domain.OverrideHandler, phase domain.ExecutionPhase, task domain.ExecutionTask) error

// ExecuteTask calls f
func (f TaskFunc) ExecuteTask(ctx context.Context, h *domain.OverrideHandler, phase domain.ExecutionPhase, task domain.ExecutionTask) error {
	return f(ctx, h, phase, task)
}

// SimulatedExecutor stands in for a broker integration. Each task waits
// Latency and then succeeds.
type SimulatedExecutor struct {
	Latency time.Duration
}

// ExecuteTask sleeps for the configured latency or until ctx is done
func (s SimulatedExecutor) ExecuteTask(ctx context.Context, _ *domain.OverrideHandler, _ domain.ExecutionPhase, _ domain.ExecutionTask) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ProgressSink persists the handler after each visible change
type ProgressSink func(h *domain.OverrideHandler, action string) error

// Runner walks an execution plan phase by phase
type Runner struct {
	executor TaskExecutor
	tracer   trace.Tracer
	now      func() time.Time
	log      zerolog.Logger
}

// NewRunner creates a runner delegating task work to executor.
// A nil tp falls back to the global tracer provider.
func NewRunner(executor TaskExecutor, tp trace.TracerProvider, log zerolog.Logger) *Runner {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Runner{
		executor: executor,
		tracer:   tp.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("service", "execution_runner").Logger(),
	}
}

// Run executes the handler's plan. The caller must hold the handler's lock
// and the handler must be approved with a plan attached. On return the
// handler is either completed or failed; a failure is returned as an
// EXECUTION_FAILED error.
func (r *Runner) Run(ctx context.Context, h *domain.OverrideHandler, sink ProgressSink) error {
	ctx, span := r.tracer.Start(ctx, "execution.Run",
		trace.WithAttributes(
			attribute.String("handler_id", h.ID),
			attribute.String("override_type", string(h.Override.Type)),
		),
	)
	defer span.End()

	if h.Status != domain.StatusApproved {
		return domain.NotApproved(h.ID, h.Status)
	}
	if h.Execution.Plan == nil {
		return domain.NewError(domain.CodeInvalidState, "execution plan missing", "handler_id", h.ID)
	}

	start := r.now()
	h.Status = domain.StatusExecuting
	h.ExecutedAt = &start
	h.Execution.State = domain.ExecutionState{StartedAt: &start}
	if h.Processing.CurrentStage.Index() < domain.StageExecuting.Index() {
		if err := processing.Enter(h, domain.StageExecuting, processing.TaskExecute, start); err != nil {
			return err
		}
	}
	h.Audit("execution_started", "", "", domain.StatusApproved, domain.StatusExecuting)
	if err := sink(h, "execution_started"); err != nil {
		return r.fail(span, h, sink, fmt.Errorf("failed to persist execution start: %w", err))
	}

	r.log.Info().
		Str("handler_id", h.ID).
		Int("phases", len(h.Execution.Plan.Phases)).
		Msg("Starting override execution")

	totalTasks := 0
	for _, phase := range h.Execution.Plan.Phases {
		totalTasks += len(phase.Tasks)
	}
	doneTasks := 0

	for pi := range h.Execution.Plan.Phases {
		phase := &h.Execution.Plan.Phases[pi]
		h.Execution.Progress.Phase = phase.ID
		h.Execution.State.VisitedPhases = append(h.Execution.State.VisitedPhases, phase.ID)

		for ti := range phase.Tasks {
			task := &phase.Tasks[ti]
			h.Execution.Progress.Task = task.ID
			task.Status = domain.TaskRunning
			if err := sink(h, "task_started"); err != nil {
				task.Status = domain.TaskFailed
				return r.fail(span, h, sink, fmt.Errorf("failed to persist task start: %w", err))
			}

			span.AddEvent("task", trace.WithAttributes(
				attribute.String("phase", phase.ID),
				attribute.String("task", task.ID),
			))

			if err := r.executor.ExecuteTask(ctx, h, *phase, *task); err != nil {
				task.Status = domain.TaskFailed
				return r.fail(span, h, sink, fmt.Errorf("task %s/%s: %w", phase.ID, task.ID, err))
			}

			task.Status = domain.TaskCompleted
			doneTasks++
			h.Execution.Progress.Percent = float64(doneTasks) / float64(totalTasks) * 100

			switch task.ID {
			case TaskExecuteTrades:
				p := &h.Execution.Progress
				p.TradesCompleted = p.TradesTotal - p.TradesFailed
				p.TradesPending = 0
				p.ValueCompleted = p.ValueTotal
			case TaskMonitorExecution:
				if h.Processing.CurrentStage.Index() < domain.StageMonitoring.Index() {
					if err := processing.Enter(h, domain.StageMonitoring, processing.TaskMonitor, r.now()); err != nil {
						return r.fail(span, h, sink, err)
					}
					if err := sink(h, "monitoring"); err != nil {
						return r.fail(span, h, sink, fmt.Errorf("failed to persist monitoring stage: %w", err))
					}
				}
			}
		}
		h.Execution.Progress.PhasesCompleted++
	}

	finished := r.now()
	running := h.Processing
	percent := h.Execution.Progress.Percent
	auditLen := len(h.Metadata.AuditTrail)

	h.Status = domain.StatusCompleted
	h.CompletedAt = &finished
	h.Execution.State.FinishedAt = &finished
	if err := processing.Enter(h, domain.StageCompleted, processing.TaskDone, finished); err != nil {
		return r.fail(span, h, sink, err)
	}
	h.Execution.Progress.Percent = 100
	h.Results = &domain.OverrideResults{
		Success:        true,
		Completion:     100,
		TradesExecuted: h.Execution.Progress.TradesCompleted,
		ValueExecuted:  h.Execution.Progress.ValueCompleted,
		Duration:       finished.Sub(start),
		Summary:        fmt.Sprintf("executed %d trade(s) across %d phase(s)", h.Execution.Progress.TradesCompleted, h.Execution.Progress.PhasesCompleted),
	}
	h.Audit("execution_completed", "", "", domain.StatusExecuting, domain.StatusCompleted)
	if err := sink(h, "execution_completed"); err != nil {
		// the stored copy is still executing; record the failure instead
		h.Processing = running
		h.Execution.Progress.Percent = percent
		h.Metadata.AuditTrail = h.Metadata.AuditTrail[:auditLen]
		h.CompletedAt = nil
		h.Status = domain.StatusExecuting
		return r.fail(span, h, sink, fmt.Errorf("failed to persist completed execution: %w", err))
	}

	span.SetStatus(codes.Ok, "")
	r.log.Info().
		Str("handler_id", h.ID).
		Dur("duration", finished.Sub(start)).
		Msg("Override execution completed")
	return nil
}

func (r *Runner) fail(span trace.Span, h *domain.OverrideHandler, sink ProgressSink, cause error) error {
	finished := r.now()
	h.Status = domain.StatusFailed
	h.Execution.State.FinishedAt = &finished
	h.Execution.State.Error = cause.Error()

	var duration time.Duration
	if h.Execution.State.StartedAt != nil {
		duration = finished.Sub(*h.Execution.State.StartedAt)
	}
	h.Results = &domain.OverrideResults{
		Success:        false,
		Completion:     h.Execution.Progress.Percent,
		TradesExecuted: h.Execution.Progress.TradesCompleted,
		ValueExecuted:  h.Execution.Progress.ValueCompleted,
		Duration:       duration,
		Summary:        cause.Error(),
	}
	h.Audit("execution_failed", "", cause.Error(), domain.StatusExecuting, domain.StatusFailed)

	span.RecordError(cause)
	span.SetStatus(codes.Error, "execution failed")
	r.log.Error().
		Err(cause).
		Str("handler_id", h.ID).
		Str("phase", h.Execution.Progress.Phase).
		Str("task", h.Execution.Progress.Task).
		Msg("Override execution failed")

	if err := sink(h, "execution_failed"); err != nil {
		r.log.Error().Err(err).Str("handler_id", h.ID).Msg("Failed to persist failed execution")
	}
	return domain.NewError(domain.CodeExecutionFailed, "override execution failed", "handler_id", h.ID).Wrap(cause)
}
