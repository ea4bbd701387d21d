package domain

import "time"

// HandlerStatus is the outcome dimension of a handler
type HandlerStatus string

const (
	StatusDraft     HandlerStatus = "draft"
	StatusPending   HandlerStatus = "pending"
	StatusApproved  HandlerStatus = "approved"
	StatusExecuting HandlerStatus = "executing"
	StatusCompleted HandlerStatus = "completed"
	StatusFailed    HandlerStatus = "failed"
	StatusCancelled HandlerStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s HandlerStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var statusTransitions = map[HandlerStatus][]HandlerStatus{
	StatusDraft:     {StatusPending, StatusApproved, StatusCancelled},
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusExecuting},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s HandlerStatus) CanTransitionTo(next HandlerStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ProcessingStage is the handler's position in the processing pipeline.
// Stage says where the handler is, status says how it is doing.
type ProcessingStage string

const (
	StageQueued     ProcessingStage = "queued"
	StageValidating ProcessingStage = "validating"
	StageApproving  ProcessingStage = "approving"
	StagePlanning   ProcessingStage = "planning"
	StageExecuting  ProcessingStage = "executing"
	StageMonitoring ProcessingStage = "monitoring"
	StageCompleted  ProcessingStage = "completed"
)

// Stages lists every stage in pipeline order
var Stages = []ProcessingStage{
	StageQueued,
	StageValidating,
	StageApproving,
	StagePlanning,
	StageExecuting,
	StageMonitoring,
	StageCompleted,
}

// Index returns the stage's position in the pipeline, -1 if unknown
func (s ProcessingStage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// StageTransition records a single stage change
type StageTransition struct {
	Stage ProcessingStage `json:"stage" msgpack:"stage"`
	At    time.Time       `json:"at" msgpack:"at"`
}

// ProcessingState tracks pipeline progress
type ProcessingState struct {
	CurrentStage   ProcessingStage   `json:"current_stage" msgpack:"current_stage"`
	CurrentTask    string            `json:"current_task" msgpack:"current_task"`
	Progress       float64           `json:"progress" msgpack:"progress"`
	QueuePosition  int               `json:"queue_position" msgpack:"queue_position"`
	BlockingIssues []string          `json:"blocking_issues,omitempty" msgpack:"blocking_issues"`
	StageHistory   []StageTransition `json:"stage_history" msgpack:"stage_history"`
}

// CheckStatus is the outcome of a single validation check
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// ValidationCheck is one rule evaluated by the validator
type ValidationCheck struct {
	Name     string      `json:"name" msgpack:"name"`
	Category string      `json:"category" msgpack:"category"`
	Status   CheckStatus `json:"status" msgpack:"status"`
	Score    float64     `json:"score" msgpack:"score"`
	Message  string      `json:"message" msgpack:"message"`
	Requires []string    `json:"requires,omitempty" msgpack:"requires"`
}

// ValidationWarning does not block validity
type ValidationWarning struct {
	Field       string `json:"field" msgpack:"field"`
	Message     string `json:"message" msgpack:"message"`
	Dismissible bool   `json:"dismissible" msgpack:"dismissible"`
}

// ValidationIssue blocks validity
type ValidationIssue struct {
	Field   string `json:"field" msgpack:"field"`
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

// ComplianceStatus is the outcome of a compliance rule
type ComplianceStatus string

const (
	Compliant      ComplianceStatus = "compliant"
	NonCompliant   ComplianceStatus = "non_compliant"
	ReviewRequired ComplianceStatus = "review_required"
)

// ComplianceCheck is a governance rule evaluated against the override
type ComplianceCheck struct {
	Rule   string           `json:"rule" msgpack:"rule"`
	Status ComplianceStatus `json:"status" msgpack:"status"`
	Detail string           `json:"detail,omitempty" msgpack:"detail"`
}

// LimitBreach records a risk limit the override exceeds
type LimitBreach struct {
	Limit     string  `json:"limit" msgpack:"limit"`
	Current   float64 `json:"current" msgpack:"current"`
	Threshold float64 `json:"threshold" msgpack:"threshold"`
	Severity  string  `json:"severity" msgpack:"severity"`
}

// RiskValidation is the risk section of a validation result
type RiskValidation struct {
	WithinLimits  bool          `json:"within_limits" msgpack:"within_limits"`
	RiskScore     float64       `json:"risk_score" msgpack:"risk_score"`
	LimitBreaches []LimitBreach `json:"limit_breaches" msgpack:"limit_breaches"`
}

// ImpactValidation is the impact section of a validation result
type ImpactValidation struct {
	WithinTolerance bool     `json:"within_tolerance" msgpack:"within_tolerance"`
	EstimatedImpact float64  `json:"estimated_impact" msgpack:"estimated_impact"`
	AffectedAssets  []string `json:"affected_assets" msgpack:"affected_assets"`
	TradeCountDelta int      `json:"trade_count_delta" msgpack:"trade_count_delta"`
}

// OverrideValidation is the validator's verdict, attached once at creation
type OverrideValidation struct {
	IsValid          bool                `json:"is_valid" msgpack:"is_valid"`
	Score            float64             `json:"score" msgpack:"score"`
	Checks           []ValidationCheck   `json:"checks" msgpack:"checks"`
	Warnings         []ValidationWarning `json:"warnings" msgpack:"warnings"`
	Errors           []ValidationIssue   `json:"errors" msgpack:"errors"`
	Compliance       []ComplianceCheck   `json:"compliance" msgpack:"compliance"`
	RiskValidation   RiskValidation      `json:"risk_validation" msgpack:"risk_validation"`
	ImpactValidation ImpactValidation    `json:"impact_validation" msgpack:"impact_validation"`
	ValidatedAt      time.Time           `json:"validated_at" msgpack:"validated_at"`
}

// ApproverStatus is an individual approver's decision
type ApproverStatus string

const (
	ApproverPending  ApproverStatus = "pending"
	ApproverApproved ApproverStatus = "approved"
	ApproverRejected ApproverStatus = "rejected"
)

// Approver is a user whose sign-off counts toward the quorum
type Approver struct {
	UserID    string         `json:"user_id" msgpack:"user_id"`
	Name      string         `json:"name,omitempty" msgpack:"name"`
	Email     string         `json:"email,omitempty" msgpack:"email"`
	Role      AccessRole     `json:"role" msgpack:"role"`
	Status    ApproverStatus `json:"status" msgpack:"status"`
	Comment   string         `json:"comment,omitempty" msgpack:"comment"`
	DecidedAt *time.Time     `json:"decided_at,omitempty" msgpack:"decided_at"`
}

// ApprovalDeadlines are recorded but not enforced by the scheduler
type ApprovalDeadlines struct {
	DecideBy   time.Time `json:"decide_by" msgpack:"decide_by"`
	EscalateTo []string  `json:"escalate_to,omitempty" msgpack:"escalate_to"`
}

// ApprovalWorkflow is the quorum process gating execution
type ApprovalWorkflow struct {
	Required          bool              `json:"required" msgpack:"required"`
	RequiredApprovals int               `json:"required_approvals" msgpack:"required_approvals"`
	CurrentApprovals  int               `json:"current_approvals" msgpack:"current_approvals"`
	Approvers         []Approver        `json:"approvers" msgpack:"approvers"`
	Deadlines         ApprovalDeadlines `json:"deadlines" msgpack:"deadlines"`
	RejectionReason   string            `json:"rejection_reason,omitempty" msgpack:"rejection_reason"`
}

// FindApprover returns a pointer into the approver list, nil if absent
func (w *ApprovalWorkflow) FindApprover(userID string) *Approver {
	for i := range w.Approvers {
		if w.Approvers[i].UserID == userID {
			return &w.Approvers[i]
		}
	}
	return nil
}

// TaskStatus tracks an individual execution task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// ExecutionTask is a step inside a phase
type ExecutionTask struct {
	ID     string     `json:"id" msgpack:"id"`
	Name   string     `json:"name" msgpack:"name"`
	Order  int        `json:"order" msgpack:"order"`
	Status TaskStatus `json:"status" msgpack:"status"`
}

// PhaseTimeline is a phase's window relative to execution start
type PhaseTimeline struct {
	StartOffset time.Duration `json:"start_offset" msgpack:"start_offset"`
	Duration    time.Duration `json:"duration" msgpack:"duration"`
	Buffer      time.Duration `json:"buffer" msgpack:"buffer"`
}

// ExecutionPhase groups tasks that run together
type ExecutionPhase struct {
	ID        string          `json:"id" msgpack:"id"`
	Name      string          `json:"name" msgpack:"name"`
	Order     int             `json:"order" msgpack:"order"`
	DependsOn []string        `json:"depends_on,omitempty" msgpack:"depends_on"`
	Tasks     []ExecutionTask `json:"tasks" msgpack:"tasks"`
	Timeline  PhaseTimeline   `json:"timeline" msgpack:"timeline"`
}

// RollbackTrigger is a condition under which the rollback plan applies
type RollbackTrigger struct {
	Type      string `json:"type" msgpack:"type"`
	Condition string `json:"condition" msgpack:"condition"`
}

// RollbackAction is an ordered compensating step
type RollbackAction struct {
	Order       int    `json:"order" msgpack:"order"`
	Type        string `json:"type" msgpack:"type"`
	Description string `json:"description" msgpack:"description"`
}

// RollbackPlan is synthesized with every execution plan. It is data only:
// nothing in this service invokes it.
type RollbackPlan struct {
	Triggers  []RollbackTrigger `json:"triggers" msgpack:"triggers"`
	Actions   []RollbackAction  `json:"actions" msgpack:"actions"`
	Timeline  time.Duration     `json:"timeline" msgpack:"timeline"`
	Resources []string          `json:"resources" msgpack:"resources"`
}

// ExecutionPlan is the phased plan derived from an approved override
type ExecutionPlan struct {
	ID        string           `json:"id" msgpack:"id"`
	Phases    []ExecutionPhase `json:"phases" msgpack:"phases"`
	Rollback  RollbackPlan     `json:"rollback" msgpack:"rollback"`
	CreatedAt time.Time        `json:"created_at" msgpack:"created_at"`
}

// ExecutionProgress is tracked against the baseline plan's trades
type ExecutionProgress struct {
	Phase           string  `json:"phase" msgpack:"phase"`
	Task            string  `json:"task" msgpack:"task"`
	PhasesCompleted int     `json:"phases_completed" msgpack:"phases_completed"`
	PhasesTotal     int     `json:"phases_total" msgpack:"phases_total"`
	TradesTotal     int     `json:"trades_total" msgpack:"trades_total"`
	TradesCompleted int     `json:"trades_completed" msgpack:"trades_completed"`
	TradesPending   int     `json:"trades_pending" msgpack:"trades_pending"`
	TradesFailed    int     `json:"trades_failed" msgpack:"trades_failed"`
	ValueTotal      float64 `json:"value_total" msgpack:"value_total"`
	ValueCompleted  float64 `json:"value_completed" msgpack:"value_completed"`
	Percent         float64 `json:"percent" msgpack:"percent"`
}

// ExecutionState records the run itself
type ExecutionState struct {
	StartedAt     *time.Time `json:"started_at,omitempty" msgpack:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" msgpack:"finished_at"`
	VisitedPhases []string   `json:"visited_phases,omitempty" msgpack:"visited_phases"`
	Error         string     `json:"error,omitempty" msgpack:"error"`
}

// OverrideExecution bundles plan, progress and run state
type OverrideExecution struct {
	Plan     *ExecutionPlan    `json:"plan,omitempty" msgpack:"plan"`
	Progress ExecutionProgress `json:"progress" msgpack:"progress"`
	State    ExecutionState    `json:"state" msgpack:"state"`
}

// MonitoringConfig describes post-execution monitoring
type MonitoringConfig struct {
	Enabled         bool               `json:"enabled" msgpack:"enabled"`
	Metrics         []string           `json:"metrics" msgpack:"metrics"`
	AlertThresholds map[string]float64 `json:"alert_thresholds,omitempty" msgpack:"alert_thresholds"`
	ReviewAfter     time.Duration      `json:"review_after" msgpack:"review_after"`
}

// OverrideResults is the final outcome of an execution
type OverrideResults struct {
	Success        bool          `json:"success" msgpack:"success"`
	Completion     float64       `json:"completion" msgpack:"completion"`
	TradesExecuted int           `json:"trades_executed" msgpack:"trades_executed"`
	ValueExecuted  float64       `json:"value_executed" msgpack:"value_executed"`
	Duration       time.Duration `json:"duration" msgpack:"duration"`
	Summary        string        `json:"summary,omitempty" msgpack:"summary"`
}

// AuditEntry is one line in a handler's audit trail
type AuditEntry struct {
	At         time.Time     `json:"at" msgpack:"at"`
	Action     string        `json:"action" msgpack:"action"`
	Actor      string        `json:"actor,omitempty" msgpack:"actor"`
	FromStatus HandlerStatus `json:"from_status,omitempty" msgpack:"from_status"`
	ToStatus   HandlerStatus `json:"to_status,omitempty" msgpack:"to_status"`
	Detail     string        `json:"detail,omitempty" msgpack:"detail"`
}

// HandlerMetadata carries audit and correlation data
type HandlerMetadata struct {
	AuditTrail    []AuditEntry `json:"audit_trail" msgpack:"audit_trail"`
	CorrelationID string       `json:"correlation_id" msgpack:"correlation_id"`
	Tags          []string     `json:"tags,omitempty" msgpack:"tags"`
}

// OverrideHandler is the aggregate root tracking one submitted override
type OverrideHandler struct {
	ID          string             `json:"id" msgpack:"id"`
	PlanID      string             `json:"plan_id" msgpack:"plan_id"`
	PortfolioID string             `json:"portfolio_id" msgpack:"portfolio_id"`
	UserID      string             `json:"user_id" msgpack:"user_id"`
	Override    RebalanceOverride  `json:"override" msgpack:"override"`
	Status      HandlerStatus      `json:"status" msgpack:"status"`
	Processing  ProcessingState    `json:"processing" msgpack:"processing"`
	Validation  OverrideValidation `json:"validation" msgpack:"validation"`
	Approval    ApprovalWorkflow   `json:"approval" msgpack:"approval"`
	Execution   OverrideExecution  `json:"execution" msgpack:"execution"`
	Monitoring  MonitoringConfig   `json:"monitoring" msgpack:"monitoring"`
	Results     *OverrideResults   `json:"results,omitempty" msgpack:"results"`
	CreatedAt   time.Time          `json:"created_at" msgpack:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" msgpack:"updated_at"`
	ApprovedAt  *time.Time         `json:"approved_at,omitempty" msgpack:"approved_at"`
	ExecutedAt  *time.Time         `json:"executed_at,omitempty" msgpack:"executed_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty" msgpack:"completed_at"`
	Metadata    HandlerMetadata    `json:"metadata" msgpack:"metadata"`
}

// Audit appends an entry to the audit trail
func (h *OverrideHandler) Audit(action, actor, detail string, from, to HandlerStatus) {
	h.Metadata.AuditTrail = append(h.Metadata.AuditTrail, AuditEntry{
		At:         time.Now().UTC(),
		Action:     action,
		Actor:      actor,
		FromStatus: from,
		ToStatus:   to,
		Detail:     detail,
	})
}
