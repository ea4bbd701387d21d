// Package approval builds quorum approval workflows and applies approver decisions.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
)

// Identity is the directory record for a user
type Identity struct {
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
}

// IdentityProvider resolves user ids to display identities.
// found is false when the user is unknown to the provider.
type IdentityProvider interface {
	Lookup(ctx context.Context, userID string) (identity Identity, found bool, err error)
}

// Config holds workflow parameters
type Config struct {
	CriticalApprovals int           // approvals needed for critical overrides
	DecisionWindow    time.Duration // deadline offset from creation
	EscalateTo        []string      // escalation contacts recorded on every workflow
}

// DefaultConfig returns the default workflow parameters
func DefaultConfig() Config {
	return Config{
		CriticalApprovals: 2,
		DecisionWindow:    24 * time.Hour,
	}
}

// Builder creates approval workflows from a plan's access-control list
type Builder struct {
	cfg        Config
	identities IdentityProvider
	log        zerolog.Logger
}

// NewBuilder creates a workflow builder. identities may be nil.
func NewBuilder(cfg Config, identities IdentityProvider, log zerolog.Logger) *Builder {
	if cfg.CriticalApprovals < 1 {
		cfg.CriticalApprovals = 1
	}
	return &Builder{
		cfg:        cfg,
		identities: identities,
		log:        log.With().Str("service", "approval").Logger(),
	}
}

// Build creates the workflow for an override submitted by submitterID.
// Every active owner/admin other than the submitter becomes a pending approver.
// Non-critical overrides need a single approval and the submitter may always
// sign off, even when absent from the ACL, unless their access is revoked.
// The returned blocking issues are non-empty when the quorum cannot be reached.
func (b *Builder) Build(
	ctx context.Context,
	plan *domain.RebalancePlan,
	submitterID string,
	override *domain.RebalanceOverride,
	now time.Time,
) (domain.ApprovalWorkflow, []string) {
	required := override.IsCritical()

	workflow := domain.ApprovalWorkflow{
		Required:          required,
		RequiredApprovals: 1,
		Approvers:         make([]domain.Approver, 0),
		Deadlines: domain.ApprovalDeadlines{
			DecideBy:   now.Add(b.cfg.DecisionWindow),
			EscalateTo: append([]string(nil), b.cfg.EscalateTo...),
		},
	}
	if required {
		workflow.RequiredApprovals = b.cfg.CriticalApprovals
	}

	seen := make(map[string]bool)
	revoked := false
	for _, entry := range plan.AccessControl {
		if !entry.Active {
			revoked = revoked || entry.UserID == submitterID
			continue
		}
		if seen[entry.UserID] {
			continue
		}
		eligible := entry.Role.CanApprove() && entry.UserID != submitterID
		selfSignOff := !required && entry.UserID == submitterID
		if !eligible && !selfSignOff {
			continue
		}
		seen[entry.UserID] = true
		workflow.Approvers = append(workflow.Approvers, b.approver(ctx, entry))
	}

	// Submitters outside the ACL can still sign off their own non-critical overrides
	if !required && !seen[submitterID] && !revoked {
		workflow.Approvers = append(workflow.Approvers,
			b.approver(ctx, domain.AccessEntry{UserID: submitterID, Active: true}))
	}

	var blocking []string
	if len(workflow.Approvers) < workflow.RequiredApprovals {
		issue := fmt.Sprintf("insufficient approvers: %d eligible, %d required",
			len(workflow.Approvers), workflow.RequiredApprovals)
		blocking = append(blocking, issue)
		b.log.Warn().
			Str("plan_id", plan.ID).
			Int("eligible", len(workflow.Approvers)).
			Int("required", workflow.RequiredApprovals).
			Msg("Approval quorum cannot be reached")
	}

	return workflow, blocking
}

func (b *Builder) approver(ctx context.Context, entry domain.AccessEntry) domain.Approver {
	a := domain.Approver{
		UserID: entry.UserID,
		Role:   entry.Role,
		Status: domain.ApproverPending,
	}
	if b.identities == nil {
		return a
	}

	identity, found, err := b.identities.Lookup(ctx, entry.UserID)
	if err != nil {
		b.log.Warn().Err(err).Str("user_id", entry.UserID).Msg("Identity lookup failed")
		return a
	}
	if found {
		a.Name = identity.Name
		a.Email = identity.Email
	}
	return a
}

// Approve records an approval. quorum is true when this approval completes
// the required count.
func Approve(workflow *domain.ApprovalWorkflow, approverID, comment string, at time.Time) (quorum bool, err error) {
	approver, err := pendingApprover(workflow, approverID)
	if err != nil {
		return false, err
	}
	if workflow.CurrentApprovals >= workflow.RequiredApprovals {
		return false, domain.NewError(domain.CodeInvalidState, "approval quorum already reached",
			"approver_id", approverID)
	}

	decided := at
	approver.Status = domain.ApproverApproved
	approver.Comment = comment
	approver.DecidedAt = &decided
	workflow.CurrentApprovals++

	return workflow.CurrentApprovals == workflow.RequiredApprovals, nil
}

// Reject records a rejection. A single rejection vetoes the override.
func Reject(workflow *domain.ApprovalWorkflow, approverID, reason string, at time.Time) error {
	if reason == "" {
		return domain.NewError(domain.CodeInvalidInput, "rejection reason is required", "approver_id", approverID)
	}
	approver, err := pendingApprover(workflow, approverID)
	if err != nil {
		return err
	}

	decided := at
	approver.Status = domain.ApproverRejected
	approver.Comment = reason
	approver.DecidedAt = &decided
	workflow.RejectionReason = reason
	return nil
}

func pendingApprover(workflow *domain.ApprovalWorkflow, approverID string) (*domain.Approver, error) {
	approver := workflow.FindApprover(approverID)
	if approver == nil {
		return nil, domain.NewError(domain.CodeApproverNotFound, "user is not an approver for this override",
			"approver_id", approverID)
	}
	if approver.Status != domain.ApproverPending {
		return nil, domain.NewError(domain.CodeApproverAlreadyDecided, "approver has already decided",
			"approver_id", approverID, "decision", string(approver.Status))
	}
	return approver, nil
}
