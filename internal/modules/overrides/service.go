// Package overrides is the override engine: it creates handlers, applies
// approval decisions, advances processing stages and runs executions.
package overrides

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/aristath/sentinel-overrides/internal/modules/analytics"
	"github.com/aristath/sentinel-overrides/internal/modules/approval"
	"github.com/aristath/sentinel-overrides/internal/modules/execution"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/modules/processing"
	"github.com/aristath/sentinel-overrides/internal/modules/validation"
	"github.com/aristath/sentinel-overrides/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const moduleName = "overrides"

// CreateRequest is the input to CreateOverride
type CreateRequest struct {
	PlanID        string                   `json:"plan_id"`
	UserID        string                   `json:"user_id"`
	Override      domain.RebalanceOverride `json:"override"`
	CorrelationID string                   `json:"correlation_id,omitempty"`
	Tags          []string                 `json:"tags,omitempty"`
}

// TickResult reports what a single AdvanceStage call did
type TickResult struct {
	Advanced bool
	Stage    domain.ProcessingStage
	Busy     bool // handler was locked by another operation
	Retain   bool // handler should stay in the processing queue
}

// QueuePositions reports a handler's 1-based position in the processing
// queue, 0 when it is not queued
type QueuePositions interface {
	Position(id string) int
}

// Service owns every handler mutation. All writes go through the per-handler
// lock so the tick, approvals and executions never interleave on one handler.
type Service struct {
	plans      *plans.Registry
	repo       domain.HandlerRepository
	validator  *validation.Validator
	approvals  *approval.Builder
	planner    *execution.Planner
	runner     *execution.Runner
	bus        *events.Bus
	locks      *keyedMutex
	queue      QueuePositions
	monitoring domain.MonitoringConfig
	inflight   sync.WaitGroup
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates the override engine. bus may be nil.
func NewService(
	registry *plans.Registry,
	repo domain.HandlerRepository,
	validator *validation.Validator,
	approvals *approval.Builder,
	planner *execution.Planner,
	runner *execution.Runner,
	bus *events.Bus,
	log zerolog.Logger,
) *Service {
	return &Service{
		plans:      registry,
		repo:       repo,
		validator:  validator,
		approvals:  approvals,
		planner:    planner,
		runner:     runner,
		bus:        bus,
		locks:      newKeyedMutex(),
		monitoring: DefaultMonitoring(),
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With().Str("service", moduleName).Logger(),
	}
}

// DefaultMonitoring is the monitoring config attached to new handlers
func DefaultMonitoring() domain.MonitoringConfig {
	return domain.MonitoringConfig{
		Enabled: true,
		Metrics: []string{"tracking_error", "turnover", "allocation_drift"},
		AlertThresholds: map[string]float64{
			"tracking_error":   0.02,
			"allocation_drift": 0.05,
		},
		ReviewAfter: 7 * 24 * time.Hour,
	}
}

// SetQueue attaches the processing queue so reads report live queue positions
func (s *Service) SetQueue(q QueuePositions) {
	s.queue = q
}

// RegisterPlan stores a baseline plan
func (s *Service) RegisterPlan(ctx context.Context, plan *domain.RebalancePlan) (*domain.RebalancePlan, error) {
	return s.plans.Register(ctx, plan)
}

// GetPlan returns a plan or PLAN_NOT_FOUND
func (s *Service) GetPlan(ctx context.Context, id string) (*domain.RebalancePlan, error) {
	return s.plans.Get(ctx, id)
}

// ListPlans returns every registered plan
func (s *Service) ListPlans(ctx context.Context) ([]*domain.RebalancePlan, error) {
	return s.plans.List(ctx)
}

// CreateOverride validates the override against its plan, builds the
// approval workflow and stores a new handler at stage queued.
func (s *Service) CreateOverride(ctx context.Context, req CreateRequest) (*domain.OverrideHandler, error) {
	if req.PlanID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "plan_id is required")
	}
	if req.UserID == "" {
		return nil, domain.NewError(domain.CodeInvalidInput, "user_id is required", "plan_id", req.PlanID)
	}

	plan, err := s.plans.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	h := &domain.OverrideHandler{
		ID:          uuid.NewString(),
		PlanID:      plan.ID,
		PortfolioID: plan.PortfolioID,
		UserID:      req.UserID,
		Override:    req.Override.Clone(),
		Monitoring:  cloneMonitoring(s.monitoring),
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata: domain.HandlerMetadata{
			CorrelationID: req.CorrelationID,
			Tags:          append([]string(nil), req.Tags...),
		},
	}
	if h.Metadata.CorrelationID == "" {
		h.Metadata.CorrelationID = uuid.NewString()
	}

	processing.Start(h, now)
	h.Validation = s.validator.Validate(plan, &h.Override)

	workflow, blocking := s.approvals.Build(ctx, plan, req.UserID, &h.Override, now)
	h.Approval = workflow
	for _, issue := range blocking {
		processing.Block(h, issue)
	}

	h.Status = domain.StatusDraft
	if workflow.Required {
		h.Status = domain.StatusPending
	}
	h.Audit("created", req.UserID, string(h.Override.Type), "", h.Status)

	if err := s.repo.Save(h); err != nil {
		return nil, fmt.Errorf("failed to store handler: %w", err)
	}

	s.log.Info().
		Str("handler_id", h.ID).
		Str("plan_id", h.PlanID).
		Str("user_id", h.UserID).
		Str("type", string(h.Override.Type)).
		Str("status", string(h.Status)).
		Bool("valid", h.Validation.IsValid).
		Int("required_approvals", h.Approval.RequiredApprovals).
		Msg("Override created")

	s.emit(&events.OverrideCreatedData{Handler: h.Clone()})
	return h.Clone(), nil
}

// GetOverride returns a copy of the handler or HANDLER_NOT_FOUND
func (s *Service) GetOverride(ctx context.Context, id string) (*domain.OverrideHandler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := s.load(id)
	if err != nil {
		return nil, err
	}
	s.fillQueuePosition(h)
	return h, nil
}

// ListOverrides returns handlers matching filter ordered by creation time
func (s *Service) ListOverrides(ctx context.Context, filter domain.HandlerFilter) ([]*domain.OverrideHandler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handlers, err := s.repo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list handlers: %w", err)
	}
	for _, h := range handlers {
		s.fillQueuePosition(h)
	}
	return handlers, nil
}

func (s *Service) fillQueuePosition(h *domain.OverrideHandler) {
	if s.queue != nil {
		h.Processing.QueuePosition = s.queue.Position(h.ID)
	}
}

// Approve records approverID's sign-off. The handler becomes approved
// exactly when the quorum is first reached.
func (s *Service) Approve(ctx context.Context, id, approverID, comment string) (*domain.OverrideHandler, error) {
	return s.mutate(ctx, id, "approve", approverID, func(h *domain.OverrideHandler, now time.Time) (string, error) {
		if !h.Status.CanTransitionTo(domain.StatusApproved) {
			return "", domain.NewError(domain.CodeInvalidState, "override is not awaiting approval",
				"handler_id", h.ID, "status", string(h.Status))
		}
		quorum, err := approval.Approve(&h.Approval, approverID, comment, now)
		if err != nil {
			return "", err
		}
		if quorum {
			h.Status = domain.StatusApproved
			approvedAt := now
			h.ApprovedAt = &approvedAt
		}
		return fmt.Sprintf("%d/%d approvals", h.Approval.CurrentApprovals, h.Approval.RequiredApprovals), nil
	})
}

// Reject records a rejection. One rejection cancels the override.
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (*domain.OverrideHandler, error) {
	return s.mutate(ctx, id, "reject", approverID, func(h *domain.OverrideHandler, now time.Time) (string, error) {
		if !h.Status.CanTransitionTo(domain.StatusCancelled) {
			return "", domain.NewError(domain.CodeInvalidState, "override is not awaiting approval",
				"handler_id", h.ID, "status", string(h.Status))
		}
		if err := approval.Reject(&h.Approval, approverID, reason, now); err != nil {
			return "", err
		}
		h.Status = domain.StatusCancelled
		return reason, nil
	})
}

// CancelOverride withdraws an override that has not started executing.
// Only the submitter may cancel.
func (s *Service) CancelOverride(ctx context.Context, id, userID, reason string) (*domain.OverrideHandler, error) {
	return s.mutate(ctx, id, "cancel", userID, func(h *domain.OverrideHandler, _ time.Time) (string, error) {
		if h.UserID != userID {
			return "", domain.NewError(domain.CodeInvalidInput, "only the submitter may cancel an override",
				"handler_id", h.ID, "user_id", userID)
		}
		if !h.Status.CanTransitionTo(domain.StatusCancelled) {
			return "", domain.NewError(domain.CodeInvalidState, "override can no longer be cancelled",
				"handler_id", h.ID, "status", string(h.Status))
		}
		h.Status = domain.StatusCancelled
		return reason, nil
	})
}

// AdvanceStage moves the handler at most one stage forward. It never waits
// for the handler's lock: a busy handler is reported and left alone.
func (s *Service) AdvanceStage(ctx context.Context, id string) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickResult{Retain: true}, err
	}

	unlock := s.locks.TryLock(id)
	if unlock == nil {
		return TickResult{Busy: true, Retain: true}, nil
	}
	defer unlock()

	h, err := s.load(id)
	if err != nil {
		return TickResult{}, err
	}

	step := processing.NextStep(h)
	if !step.Advance {
		result := TickResult{Stage: h.Processing.CurrentStage, Retain: processing.InQueue(h)}
		if step.Blocking != "" && !h.Status.IsTerminal() && processing.Block(h, step.Blocking) {
			if err := s.persist(h, "blocked"); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	from := h.Processing.CurrentStage
	now := s.now()
	if err := processing.Enter(h, step.Next, step.Task, now); err != nil {
		return TickResult{Stage: from, Retain: processing.InQueue(h)}, err
	}

	switch step.Next {
	case domain.StageApproving:
		if len(h.Approval.Approvers) < h.Approval.RequiredApprovals {
			processing.Block(h, fmt.Sprintf("insufficient approvers: %d eligible, %d required",
				len(h.Approval.Approvers), h.Approval.RequiredApprovals))
		}
	case domain.StagePlanning:
		if err := s.ensurePlan(ctx, h); err != nil {
			return TickResult{Stage: from, Retain: true}, err
		}
	}

	h.Audit("stage_advanced", "", fmt.Sprintf("%s -> %s", from, step.Next), h.Status, h.Status)
	if err := s.persist(h, "stage_advanced"); err != nil {
		return TickResult{Stage: from, Retain: true}, err
	}

	s.log.Debug().
		Str("handler_id", h.ID).
		Str("from", string(from)).
		Str("to", string(step.Next)).
		Msg("Stage advanced")

	return TickResult{Advanced: true, Stage: step.Next, Retain: processing.InQueue(h)}, nil
}

// ExecuteOverride runs the handler's execution plan to completion.
// Fails with NOT_APPROVED unless the handler is approved.
func (s *Service) ExecuteOverride(ctx context.Context, id string) (*domain.OverrideHandler, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	h, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if h.Status != domain.StatusApproved {
		return nil, domain.NotApproved(h.ID, h.Status)
	}
	if err := s.ensurePlan(ctx, h); err != nil {
		return nil, err
	}

	err = s.runner.Run(ctx, h, s.persist)
	if err != nil {
		if h.Status == domain.StatusFailed {
			code := ""
			var derr *domain.Error
			if errors.As(err, &derr) {
				code = string(derr.Code)
			}
			s.emit(&events.OverrideFailedData{HandlerID: h.ID, Error: err.Error(), Code: code})
		}
		return h.Clone(), err
	}

	s.emit(&events.OverrideCompletedData{Handler: h.Clone()})
	return h.Clone(), nil
}

// ExecuteOverrideAsync checks the approval gate and runs the execution in
// the background. Use Wait to drain in-flight executions.
func (s *Service) ExecuteOverrideAsync(ctx context.Context, id string) error {
	h, err := s.GetOverride(ctx, id)
	if err != nil {
		return err
	}
	if h.Status != domain.StatusApproved {
		return domain.NotApproved(h.ID, h.Status)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.ExecuteOverride(context.WithoutCancel(ctx), id); err != nil {
			s.log.Error().Err(err).Str("handler_id", id).Msg("Background execution failed")
		}
	}()
	return nil
}

// Wait blocks until background executions finish
func (s *Service) Wait() {
	s.inflight.Wait()
}

// GetExecutionPlan returns the plan built when the handler entered planning
func (s *Service) GetExecutionPlan(ctx context.Context, id string) (*domain.ExecutionPlan, error) {
	h, err := s.GetOverride(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Execution.Plan == nil {
		return nil, domain.NewError(domain.CodeInvalidState, "execution plan has not been built",
			"handler_id", h.ID, "stage", string(h.Processing.CurrentStage))
	}
	return h.Execution.Plan, nil
}

// GetAnalytics aggregates over every handler
func (s *Service) GetAnalytics(ctx context.Context) (analytics.Report, error) {
	defer utils.OperationTimerWithThreshold("override_analytics", time.Second, s.log)()

	handlers, err := s.ListOverrides(ctx, domain.HandlerFilter{})
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Compute(handlers, s.now()), nil
}

// mutate is the single update path for caller-driven changes: lock, load,
// refuse terminal handlers, apply fn, audit, persist, publish.
func (s *Service) mutate(
	ctx context.Context,
	id, action, actor string,
	fn func(h *domain.OverrideHandler, now time.Time) (detail string, err error),
) (*domain.OverrideHandler, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	h, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if h.Status.IsTerminal() {
		return nil, domain.NewError(domain.CodeInvalidState, "override is in a terminal state",
			"handler_id", h.ID, "status", string(h.Status))
	}

	from := h.Status
	now := s.now()
	detail, err := fn(h, now)
	if err != nil {
		return nil, err
	}

	h.Audit(action, actor, detail, from, h.Status)
	if err := s.persist(h, action); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("handler_id", h.ID).
		Str("action", action).
		Str("actor", actor).
		Str("from", string(from)).
		Str("to", string(h.Status)).
		Msg("Override updated")

	return h.Clone(), nil
}

func (s *Service) persist(h *domain.OverrideHandler, action string) error {
	h.UpdatedAt = s.now()
	if err := s.repo.Save(h); err != nil {
		return fmt.Errorf("failed to store handler %s: %w", h.ID, err)
	}
	s.emit(&events.OverrideUpdatedData{Handler: h.Clone(), Action: action})
	return nil
}

func (s *Service) ensurePlan(ctx context.Context, h *domain.OverrideHandler) error {
	if h.Execution.Plan != nil {
		return nil
	}
	plan, err := s.plans.Get(ctx, h.PlanID)
	if err != nil {
		return err
	}
	h.Execution.Plan, h.Execution.Progress = s.planner.Build(plan)
	return nil
}

func (s *Service) load(id string) (*domain.OverrideHandler, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load handler %s: %w", id, err)
	}
	if h == nil {
		return nil, domain.HandlerNotFound(id)
	}
	return h, nil
}

func (s *Service) emit(data events.EventData) {
	if s.bus != nil {
		s.bus.Emit(moduleName, data)
	}
}

func cloneMonitoring(m domain.MonitoringConfig) domain.MonitoringConfig {
	out := m
	out.Metrics = append([]string(nil), m.Metrics...)
	if m.AlertThresholds != nil {
		out.AlertThresholds = make(map[string]float64, len(m.AlertThresholds))
		for k, v := range m.AlertThresholds {
			out.AlertThresholds[k] = v
		}
	}
	return out
}
