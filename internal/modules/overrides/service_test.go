package overrides

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/aristath/sentinel-overrides/internal/modules/approval"
	"github.com/aristath/sentinel-overrides/internal/modules/execution"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/modules/processing"
	"github.com/aristath/sentinel-overrides/internal/modules/validation"
	testutil "github.com/aristath/sentinel-overrides/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *eventRecorder) record(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t events.EventType) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc    *Service
	repo   *InMemoryRepository
	events *eventRecorder
}

func newFixture(t *testing.T, exec execution.TaskExecutor) *fixture {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)

	rec := &eventRecorder{}
	for _, et := range events.AllTypes {
		bus.Subscribe(et, rec.record)
	}

	if exec == nil {
		exec = execution.SimulatedExecutor{}
	}
	repo := NewInMemoryRepository(log)
	svc := NewService(
		plans.NewRegistry(plans.NewInMemoryRepository(log), bus, log),
		repo,
		validation.NewValidator(validation.DefaultConfig(), log),
		approval.NewBuilder(approval.DefaultConfig(), nil, log),
		execution.NewPlanner(),
		execution.NewRunner(exec, nil, log),
		bus,
		log,
	)

	_, err := svc.RegisterPlan(context.Background(), testutil.NewPlanFixture("plan-1"))
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, events: rec}
}

func (f *fixture) create(t *testing.T, override domain.RebalanceOverride) *domain.OverrideHandler {
	t.Helper()
	h, err := f.svc.CreateOverride(context.Background(), CreateRequest{
		PlanID:   "plan-1",
		UserID:   testutil.UserTrader,
		Override: override,
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) tickUntilStuck(t *testing.T, id string) {
	t.Helper()
	for i := 0; i < 10; i++ {
		res, err := f.svc.AdvanceStage(context.Background(), id)
		require.NoError(t, err)
		if !res.Advanced {
			return
		}
	}
}

func TestCreateOverride_NonCritical(t *testing.T) {
	f := newFixture(t, nil)
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "portfolio-1", h.PortfolioID)
	assert.Equal(t, domain.StatusDraft, h.Status)
	assert.Equal(t, domain.StageQueued, h.Processing.CurrentStage)
	assert.True(t, h.Validation.IsValid)
	assert.False(t, h.Approval.Required)
	assert.Equal(t, 1, h.Approval.RequiredApprovals)
	assert.NotEmpty(t, h.Metadata.CorrelationID)
	assert.True(t, h.Monitoring.Enabled)
	require.Len(t, h.Metadata.AuditTrail, 1)
	assert.Equal(t, "created", h.Metadata.AuditTrail[0].Action)

	created := f.events.ofType(events.OverrideCreated)
	require.Len(t, created, 1)
	data := created[0].Data.(*events.OverrideCreatedData)
	assert.Equal(t, h.ID, data.Handler.ID)
}

func TestCreateOverride_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateOverride(ctx, CreateRequest{PlanID: "missing", UserID: "u", Override: testutil.NewAllocationOverrideFixture()})
	assert.True(t, errors.Is(err, domain.ErrPlanNotFound))

	_, err = f.svc.CreateOverride(ctx, CreateRequest{UserID: "u"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.CreateOverride(ctx, CreateRequest{PlanID: "plan-1"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCreateOverride_EventCarriesCopy(t *testing.T) {
	f := newFixture(t, nil)
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	data := f.events.ofType(events.OverrideCreated)[0].Data.(*events.OverrideCreatedData)
	data.Handler.Status = domain.StatusCompleted

	stored, err := f.svc.GetOverride(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, stored.Status)
}

func TestGetOverride_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.GetOverride(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrHandlerNotFound))
}

// Partial override: the gate refuses execution until approved, then runs both phases.
func TestScenario_HappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	_, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotApproved))

	approved, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "fine by me")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	done, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Results)
	assert.True(t, done.Results.Success)
	assert.Equal(t, 100.0, done.Results.Completion)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, []string{execution.PhasePreparation, execution.PhaseExecution}, done.Execution.State.VisitedPhases)
	assert.Equal(t, 3, done.Execution.Progress.TradesTotal)

	assert.Len(t, f.events.ofType(events.OverrideCompleted), 1)
	assert.Empty(t, f.events.ofType(events.OverrideFailed))
}

func TestScenario_CriticalNeedsTwoApprovals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewFullOverrideFixture())

	assert.True(t, h.Approval.Required)
	assert.Equal(t, 2, h.Approval.RequiredApprovals)
	assert.Equal(t, domain.StatusPending, h.Status)

	h, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, h.Status)
	assert.Equal(t, 1, h.Approval.CurrentApprovals)

	_, err = f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	assert.True(t, errors.Is(err, domain.ErrApproverAlreadyDecided))

	h, err = f.svc.Approve(ctx, h.ID, testutil.UserAdmin, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, h.Status)
	assert.Equal(t, 2, h.Approval.CurrentApprovals)

	// quorum reached: a third approver cannot push the count past the requirement
	_, err = f.svc.Approve(ctx, h.ID, testutil.UserSecondAdmin, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Approval.CurrentApprovals)
}

func TestScenario_ValidationFailureBlocksProgress(t *testing.T) {
	f := newFixture(t, nil)
	h := f.create(t, testutil.NewRiskyOverrideFixture())

	assert.False(t, h.Validation.RiskValidation.WithinLimits)
	require.NotEmpty(t, h.Validation.RiskValidation.LimitBreaches)
	assert.Equal(t, 0.7, h.Validation.RiskValidation.LimitBreaches[0].Threshold)

	f.tickUntilStuck(t, h.ID)

	stored, err := f.svc.GetOverride(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageValidating, stored.Processing.CurrentStage)
	require.NotEmpty(t, stored.Processing.BlockingIssues)
	assert.Contains(t, stored.Processing.BlockingIssues[0], "validation failed")
}

func TestNonCriticalOverrideWithoutACLReachesExecution(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	plan := testutil.NewPlanFixture("plan-open")
	plan.AccessControl = nil
	_, err := f.svc.RegisterPlan(ctx, plan)
	require.NoError(t, err)

	h, err := f.svc.CreateOverride(ctx, CreateRequest{
		PlanID: "plan-open", UserID: "u", Override: testutil.NewAllocationOverrideFixture(),
	})
	require.NoError(t, err)
	assert.False(t, h.Approval.Required)
	assert.Empty(t, h.Processing.BlockingIssues)

	approved, err := f.svc.Approve(ctx, h.ID, "u", "self sign-off")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	f.tickUntilStuck(t, h.ID)

	done, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, domain.StageCompleted, done.Processing.CurrentStage)
}

func TestApprove_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewFullOverrideFixture())

	_, err := f.svc.Approve(ctx, "missing", testutil.UserOwner, "")
	assert.True(t, errors.Is(err, domain.ErrHandlerNotFound))

	_, err = f.svc.Approve(ctx, h.ID, testutil.UserViewer, "")
	assert.True(t, errors.Is(err, domain.ErrApproverNotFound))

	// submitters cannot approve their own critical override
	_, err = f.svc.Approve(ctx, h.ID, testutil.UserTrader, "")
	assert.True(t, errors.Is(err, domain.ErrApproverNotFound))
}

func TestUnknownHandlerLeavesNoLockBehind(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, id := range []string{"ghost-1", "ghost-2", "ghost-3"} {
		_, err := f.svc.Approve(ctx, id, testutil.UserOwner, "")
		assert.True(t, errors.Is(err, domain.ErrHandlerNotFound))
		_, err = f.svc.ExecuteOverride(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrHandlerNotFound))
		_, err = f.svc.AdvanceStage(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrHandlerNotFound))
	}

	assert.Equal(t, 0, f.svc.locks.Len())
}

func TestReject_SingleVeto(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewFullOverrideFixture())

	h, err := f.svc.Reject(ctx, h.ID, testutil.UserOwner, "too aggressive")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, h.Status)
	assert.Equal(t, "too aggressive", h.Approval.RejectionReason)

	_, err = f.svc.Approve(ctx, h.ID, testutil.UserAdmin, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Equal(t, 0, stored.Approval.CurrentApprovals)
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t, nil)
	h := f.create(t, testutil.NewFullOverrideFixture())

	_, err := f.svc.Reject(context.Background(), h.ID, testutil.UserOwner, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCancelOverride(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	_, err := f.svc.CancelOverride(ctx, h.ID, testutil.UserOwner, "not mine")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	cancelled, err := f.svc.CancelOverride(ctx, h.ID, testutil.UserTrader, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	last := cancelled.Metadata.AuditTrail[len(cancelled.Metadata.AuditTrail)-1]
	assert.Equal(t, "cancel", last.Action)
	assert.Equal(t, domain.StatusDraft, last.FromStatus)
	assert.Equal(t, domain.StatusCancelled, last.ToStatus)

	res, err := f.svc.AdvanceStage(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.False(t, res.Retain)
}

func TestCancelOverride_AfterApprovalRefused(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	_, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)

	_, err = f.svc.CancelOverride(ctx, h.ID, testutil.UserTrader, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestAdvanceStage_FullPipeline(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	f.tickUntilStuck(t, h.ID)
	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageApproving, stored.Processing.CurrentStage)
	assert.Contains(t, stored.Processing.BlockingIssues, "awaiting approvals (0/1)")

	_, err = f.svc.Approve(ctx, h.ID, testutil.UserAdmin, "")
	require.NoError(t, err)

	f.tickUntilStuck(t, h.ID)
	stored, err = f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageExecuting, stored.Processing.CurrentStage)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	require.NotNil(t, stored.Execution.Plan)

	plan, err := f.svc.GetExecutionPlan(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Execution.Plan.ID, plan.ID)

	done, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Execution.Plan.ID, done.Execution.Plan.ID)

	var seen []domain.ProcessingStage
	for _, tr := range done.Processing.StageHistory {
		seen = append(seen, tr.Stage)
	}
	assert.Equal(t, []domain.ProcessingStage{
		domain.StageQueued, domain.StageValidating, domain.StageApproving, domain.StagePlanning,
		domain.StageExecuting, domain.StageMonitoring, domain.StageCompleted,
	}, seen)
}

func TestAdvanceStage_BusyHandlerSkipped(t *testing.T) {
	f := newFixture(t, nil)
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	unlock := f.svc.locks.Lock(h.ID)
	res, err := f.svc.AdvanceStage(context.Background(), h.ID)
	unlock()

	require.NoError(t, err)
	assert.True(t, res.Busy)
	assert.True(t, res.Retain)
	assert.False(t, res.Advanced)
}

func TestAdvanceStage_CriticalWithoutQuorumFlagsApprovers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	plan := testutil.NewPlanFixture("plan-thin")
	plan.AccessControl = []domain.AccessEntry{
		{UserID: testutil.UserOwner, Role: domain.RoleOwner, Active: true},
		{UserID: testutil.UserTrader, Role: domain.RoleTrader, Active: true},
	}
	_, err := f.svc.RegisterPlan(ctx, plan)
	require.NoError(t, err)

	h, err := f.svc.CreateOverride(ctx, CreateRequest{
		PlanID: "plan-thin", UserID: testutil.UserTrader, Override: testutil.NewFullOverrideFixture(),
	})
	require.NoError(t, err)
	assert.Contains(t, h.Processing.BlockingIssues, "insufficient approvers: 1 eligible, 2 required")

	_, err = f.svc.AdvanceStage(ctx, h.ID)
	require.NoError(t, err)
	_, err = f.svc.AdvanceStage(ctx, h.ID)
	require.NoError(t, err)

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StageApproving, stored.Processing.CurrentStage)
	assert.Contains(t, stored.Processing.BlockingIssues, "insufficient approvers: 1 eligible, 2 required")
}

func TestExecuteOverride_FailureIsTerminal(t *testing.T) {
	boom := errors.New("venue rejected order")
	exec := execution.TaskFunc(func(_ context.Context, _ *domain.OverrideHandler, _ domain.ExecutionPhase, task domain.ExecutionTask) error {
		if task.ID == execution.TaskExecuteTrades {
			return boom
		}
		return nil
	})
	f := newFixture(t, exec)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())
	_, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)

	failed, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExecutionFailed))
	assert.Equal(t, domain.StatusFailed, failed.Status)

	failedEvents := f.events.ofType(events.OverrideFailed)
	require.Len(t, failedEvents, 1)
	data := failedEvents[0].Data.(*events.OverrideFailedData)
	assert.Equal(t, h.ID, data.HandlerID)
	assert.Equal(t, string(domain.CodeExecutionFailed), data.Code)

	_, err = f.svc.ExecuteOverride(ctx, h.ID)
	assert.True(t, errors.Is(err, domain.ErrNotApproved))

	_, err = f.svc.CancelOverride(ctx, h.ID, testutil.UserTrader, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

// completionFailingRepo rejects saves of completed handlers
type completionFailingRepo struct {
	domain.HandlerRepository
}

func (r *completionFailingRepo) Save(h *domain.OverrideHandler) error {
	if h.Status == domain.StatusCompleted {
		return errors.New("disk full")
	}
	return r.HandlerRepository.Save(h)
}

func TestExecuteOverride_CompletionSaveFailureIsStoredAsFailed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())
	_, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)

	f.svc.repo = &completionFailingRepo{HandlerRepository: f.repo}

	_, err = f.svc.ExecuteOverride(ctx, h.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExecutionFailed))

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, domain.StageMonitoring, stored.Processing.CurrentStage)
	assert.Contains(t, stored.Execution.State.Error, "disk full")
	assert.Len(t, f.events.ofType(events.OverrideFailed), 1)
	assert.Empty(t, f.events.ofType(events.OverrideCompleted))

	_, err = f.svc.ExecuteOverride(ctx, h.ID)
	assert.True(t, errors.Is(err, domain.ErrNotApproved))
}

func TestExecuteOverride_ProgressInvariant(t *testing.T) {
	var mu sync.Mutex
	var violations []string
	exec := execution.TaskFunc(func(_ context.Context, h *domain.OverrideHandler, _ domain.ExecutionPhase, task domain.ExecutionTask) error {
		p := h.Execution.Progress
		if p.TradesCompleted+p.TradesPending+p.TradesFailed != p.TradesTotal {
			mu.Lock()
			violations = append(violations, task.ID)
			mu.Unlock()
		}
		return nil
	})
	f := newFixture(t, exec)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())
	_, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)

	done, err := f.svc.ExecuteOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)
	p := done.Execution.Progress
	assert.Equal(t, p.TradesTotal, p.TradesCompleted+p.TradesPending+p.TradesFailed)
}

// The approval gate holds for every non-approved status.
func TestExecuteOverride_GateForEveryStatus(t *testing.T) {
	statuses := []domain.HandlerStatus{
		domain.StatusDraft, domain.StatusPending, domain.StatusExecuting,
		domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, nil)
			h := f.create(t, testutil.NewAllocationOverrideFixture())

			stored, err := f.repo.GetByID(h.ID)
			require.NoError(t, err)
			stored.Status = status
			require.NoError(t, f.repo.Save(stored))

			_, err = f.svc.ExecuteOverride(context.Background(), h.ID)
			assert.True(t, errors.Is(err, domain.ErrNotApproved))
		})
	}
}

func TestExecuteOverrideAsync(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	err := f.svc.ExecuteOverrideAsync(ctx, h.ID)
	assert.True(t, errors.Is(err, domain.ErrNotApproved))

	_, err = f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.ExecuteOverrideAsync(ctx, h.ID))
	f.svc.Wait()

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestApprovalMonotonicUnderConcurrency(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewFullOverrideFixture())

	var wg sync.WaitGroup
	for _, approver := range []string{testutil.UserOwner, testutil.UserAdmin, testutil.UserSecondAdmin} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = f.svc.Approve(ctx, h.ID, id, "")
		}(approver)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.AdvanceStage(ctx, h.ID)
		}()
	}
	wg.Wait()

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Approval.CurrentApprovals)
	assert.Equal(t, domain.StatusApproved, stored.Status)

	// the updated events never show a decreasing or overflowing count
	last := 0
	for _, e := range f.events.ofType(events.OverrideUpdated) {
		data := e.Data.(*events.OverrideUpdatedData)
		count := data.Handler.Approval.CurrentApprovals
		assert.GreaterOrEqual(t, count, last)
		assert.LessOrEqual(t, count, data.Handler.Approval.RequiredApprovals)
		last = count
	}
}

func TestGetAnalytics(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	done := f.create(t, testutil.NewAllocationOverrideFixture())
	_, err := f.svc.Approve(ctx, done.ID, testutil.UserOwner, "")
	require.NoError(t, err)
	_, err = f.svc.ExecuteOverride(ctx, done.ID)
	require.NoError(t, err)

	f.create(t, testutil.NewFullOverrideFixture())

	report, err := f.svc.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.ByStatus[domain.StatusCompleted])
	assert.Equal(t, 1, report.ByStatus[domain.StatusPending])
	assert.Equal(t, 1, report.ByType[domain.OverrideTypeFull])
	assert.InDelta(t, 0.5, report.SuccessRate, 1e-9)
}

func TestListOverrides_Filter(t *testing.T) {
	f := newFixture(t, nil)
	f.create(t, testutil.NewAllocationOverrideFixture())
	f.create(t, testutil.NewFullOverrideFixture())

	all, err := f.svc.ListOverrides(context.Background(), domain.HandlerFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListOverrides(context.Background(), domain.HandlerFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.OverrideTypeFull, pending[0].Override.Type)
}

func TestStageOrderingAcrossTicks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	h := f.create(t, testutil.NewAllocationOverrideFixture())

	for i := 0; i < 3; i++ {
		_, err := f.svc.AdvanceStage(ctx, h.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Approve(ctx, h.ID, testutil.UserOwner, "")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.svc.AdvanceStage(ctx, h.ID)
		require.NoError(t, err)
	}

	stored, err := f.svc.GetOverride(ctx, h.ID)
	require.NoError(t, err)
	prev := -1
	for _, tr := range stored.Processing.StageHistory {
		idx := tr.Stage.Index()
		assert.Greater(t, idx, prev)
		prev = idx
	}
	assert.LessOrEqual(t, prev, domain.StageExecuting.Index())
	assert.False(t, processing.InQueue(stored))
}
