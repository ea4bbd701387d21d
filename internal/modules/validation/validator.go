// Package validation checks a proposed override against its baseline plan.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Issue codes recorded in OverrideValidation.Errors
const (
	IssueInvalidType         = "INVALID_TYPE"
	IssueInvalidScope        = "INVALID_SCOPE"
	IssueNoChanges           = "NO_CHANGES"
	IssueInvalidChange       = "INVALID_CHANGE"
	IssueMissingReason       = "MISSING_JUSTIFICATION"
	IssueInvalidResidualRisk = "INVALID_RESIDUAL_RISK"
	IssueRiskLimitBreach     = "RISK_LIMIT_BREACH"
)

// Capability required for complete-scope overrides
const CapabilityManagerApproval = "manager_approval"

// breachedRiskScore is the risk score recorded on a risk_threshold breach
const breachedRiskScore = 0.8

// Config holds validator thresholds
type Config struct {
	RiskThreshold   float64 // residual risk above this breaches the limit
	ImpactTolerance float64 // estimated impact above this is out of tolerance
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		RiskThreshold:   0.7,
		ImpactTolerance: 0.75,
	}
}

// Validator evaluates overrides. It never fails: problems are reported in the result.
type Validator struct {
	cfg Config
	log zerolog.Logger
}

// NewValidator creates a new override validator
func NewValidator(cfg Config, log zerolog.Logger) *Validator {
	return &Validator{
		cfg: cfg,
		log: log.With().Str("service", "validation").Logger(),
	}
}

type result struct {
	checks     []domain.ValidationCheck
	warnings   []domain.ValidationWarning
	errors     []domain.ValidationIssue
	compliance []domain.ComplianceCheck
}

func (r *result) check(c domain.ValidationCheck) {
	r.checks = append(r.checks, c)
}

func (r *result) fail(field, code, message string) {
	r.errors = append(r.errors, domain.ValidationIssue{Field: field, Code: code, Message: message})
}

func (r *result) warn(field, message string, dismissible bool) {
	r.warnings = append(r.warnings, domain.ValidationWarning{Field: field, Message: message, Dismissible: dismissible})
}

// Validate evaluates override against plan
func (v *Validator) Validate(plan *domain.RebalancePlan, override *domain.RebalanceOverride) domain.OverrideValidation {
	res := &result{
		checks:     make([]domain.ValidationCheck, 0, 6),
		warnings:   make([]domain.ValidationWarning, 0),
		errors:     make([]domain.ValidationIssue, 0),
		compliance: make([]domain.ComplianceCheck, 0, 3),
	}

	v.checkType(res, override)
	v.checkScope(res, override)
	v.checkChanges(res, override)
	v.checkJustification(res, override)
	risk := v.checkRisk(res, override)
	impact := v.checkImpact(res, plan, override)
	v.checkCompliance(res, override)

	scores := make([]float64, len(res.checks))
	for i, c := range res.checks {
		scores[i] = c.Score
	}

	validation := domain.OverrideValidation{
		IsValid:          len(res.errors) == 0,
		Score:            stat.Mean(scores, nil),
		Checks:           res.checks,
		Warnings:         res.warnings,
		Errors:           res.errors,
		Compliance:       res.compliance,
		RiskValidation:   risk,
		ImpactValidation: impact,
		ValidatedAt:      time.Now().UTC(),
	}

	v.log.Debug().
		Bool("valid", validation.IsValid).
		Float64("score", validation.Score).
		Int("warnings", len(validation.Warnings)).
		Int("errors", len(validation.Errors)).
		Msg("Override validated")

	return validation
}

func (v *Validator) checkType(res *result, o *domain.RebalanceOverride) {
	switch o.Type {
	case domain.OverrideTypeAllocation, domain.OverrideTypeTiming, domain.OverrideTypeConstraints,
		domain.OverrideTypeParameters, domain.OverrideTypeTrades, domain.OverrideTypeFull:
		res.check(domain.ValidationCheck{
			Name: "override_type", Category: "structure", Status: domain.CheckPass, Score: 1,
			Message: fmt.Sprintf("override type %s is supported", o.Type),
		})
	default:
		res.check(domain.ValidationCheck{
			Name: "override_type", Category: "structure", Status: domain.CheckFail, Score: 0,
			Message: fmt.Sprintf("unsupported override type %q", o.Type),
		})
		res.fail("type", IssueInvalidType, fmt.Sprintf("unsupported override type %q", o.Type))
	}
}

func (v *Validator) checkScope(res *result, o *domain.RebalanceOverride) {
	switch o.Scope {
	case domain.ScopeComplete:
		res.check(domain.ValidationCheck{
			Name: "scope_authorization", Category: "authorization", Status: domain.CheckPass, Score: 0.9,
			Message:  "complete scope requires manager approval",
			Requires: []string{CapabilityManagerApproval},
		})
	case domain.ScopePartial, domain.ScopeConditional, domain.ScopeTemporary:
		res.check(domain.ValidationCheck{
			Name: "scope_authorization", Category: "authorization", Status: domain.CheckPass, Score: 1,
			Message: fmt.Sprintf("%s scope is within submitter authority", o.Scope),
		})
	default:
		res.check(domain.ValidationCheck{
			Name: "scope_authorization", Category: "authorization", Status: domain.CheckFail, Score: 0,
			Message: fmt.Sprintf("unsupported scope %q", o.Scope),
		})
		res.fail("scope", IssueInvalidScope, fmt.Sprintf("unsupported scope %q", o.Scope))
	}
}

func (v *Validator) checkChanges(res *result, o *domain.RebalanceOverride) {
	if len(o.Changes) == 0 && o.AlternativePlan == nil {
		res.check(domain.ValidationCheck{
			Name: "change_review", Category: "changes", Status: domain.CheckFail, Score: 0,
			Message: "override contains no changes",
		})
		res.fail("changes", IssueNoChanges, "override must contain at least one change or an alternative plan")
		return
	}

	critical, invalid := 0, 0
	for i, c := range o.Changes {
		field := fmt.Sprintf("changes[%d]", i)
		if c.Field == "" {
			invalid++
			res.fail(field+".field", IssueInvalidChange, "change field is required")
		}
		switch c.ChangeType {
		case domain.ChangeModify, domain.ChangeAdd, domain.ChangeRemove:
		default:
			invalid++
			res.fail(field+".change_type", IssueInvalidChange, fmt.Sprintf("unsupported change type %q", c.ChangeType))
		}
		if c.Impact.Weight() == 0 {
			invalid++
			res.fail(field+".impact", IssueInvalidChange, fmt.Sprintf("unsupported impact level %q", c.Impact))
		}
		if c.Impact == domain.ImpactCritical {
			critical++
			res.warn(field, fmt.Sprintf("critical change to %s requires careful review", describeChange(c)), false)
		}
	}

	check := domain.ValidationCheck{Name: "change_review", Category: "changes"}
	switch {
	case invalid > 0:
		check.Status, check.Score = domain.CheckFail, 0
		check.Message = fmt.Sprintf("%d invalid change attribute(s)", invalid)
	case critical > 0:
		check.Status, check.Score = domain.CheckWarn, 0.8
		check.Message = fmt.Sprintf("%d critical change(s)", critical)
	default:
		check.Status, check.Score = domain.CheckPass, 1
		check.Message = fmt.Sprintf("%d change(s) reviewed", len(o.Changes))
	}
	res.check(check)
}

func (v *Validator) checkJustification(res *result, o *domain.RebalanceOverride) {
	if strings.TrimSpace(o.Justification.Reason) == "" {
		res.check(domain.ValidationCheck{
			Name: "justification", Category: "governance", Status: domain.CheckFail, Score: 0,
			Message: "justification reason is missing",
		})
		res.fail("justification.reason", IssueMissingReason, "a justification reason is required")
		return
	}

	score := 1.0
	status := domain.CheckPass
	msg := "justification documented"
	if len(o.Justification.Evidence) == 0 {
		score, status, msg = 0.7, domain.CheckWarn, "justification has no supporting evidence"
		res.warn("justification.evidence", "no supporting evidence attached", true)
	}
	res.check(domain.ValidationCheck{
		Name: "justification", Category: "governance", Status: status, Score: score, Message: msg,
	})
}

func (v *Validator) checkRisk(res *result, o *domain.RebalanceOverride) domain.RiskValidation {
	risk := domain.RiskValidation{
		WithinLimits:  true,
		LimitBreaches: make([]domain.LimitBreach, 0),
	}

	maxResidual := 0.0
	for i, rc := range o.RiskConsiderations {
		if rc.ResidualRisk < 0 || rc.ResidualRisk > 1 {
			res.fail(fmt.Sprintf("risk_considerations[%d].residual_risk", i), IssueInvalidResidualRisk,
				fmt.Sprintf("residual risk %v is outside [0,1]", rc.ResidualRisk))
			continue
		}
		if rc.ResidualRisk > maxResidual {
			maxResidual = rc.ResidualRisk
		}
	}
	risk.RiskScore = maxResidual

	if maxResidual > v.cfg.RiskThreshold {
		risk.WithinLimits = false
		risk.RiskScore = breachedRiskScore
		breach := domain.LimitBreach{
			Limit:     "risk_threshold",
			Current:   breachedRiskScore,
			Threshold: v.cfg.RiskThreshold,
			Severity:  "major",
		}
		risk.LimitBreaches = append(risk.LimitBreaches, breach)
		res.fail("risk_considerations", IssueRiskLimitBreach,
			fmt.Sprintf("residual risk %.2f exceeds threshold %.2f", maxResidual, v.cfg.RiskThreshold))
	}

	check := domain.ValidationCheck{Name: "risk_limits", Category: "risk", Score: 1 - maxResidual}
	if risk.WithinLimits {
		check.Status = domain.CheckPass
		check.Message = "residual risk within limits"
	} else {
		check.Status = domain.CheckFail
		check.Message = "residual risk exceeds the configured threshold"
	}
	res.check(check)

	return risk
}

func (v *Validator) checkImpact(res *result, plan *domain.RebalancePlan, o *domain.RebalanceOverride) domain.ImpactValidation {
	impact := domain.ImpactValidation{AffectedAssets: make([]string, 0)}

	seen := make(map[string]bool)
	added, removed := 0, 0
	for _, c := range o.Changes {
		if w := c.Impact.Weight(); w > impact.EstimatedImpact {
			impact.EstimatedImpact = w
		}
		if c.Asset != "" && !seen[c.Asset] {
			seen[c.Asset] = true
			impact.AffectedAssets = append(impact.AffectedAssets, c.Asset)
		}
		switch c.ChangeType {
		case domain.ChangeAdd:
			added++
		case domain.ChangeRemove:
			removed++
		}
	}

	if o.AlternativePlan != nil && plan != nil {
		impact.TradeCountDelta = len(o.AlternativePlan.Trades) - len(plan.Trades)
		for _, t := range o.AlternativePlan.Trades {
			if t.Asset != "" && !seen[t.Asset] {
				seen[t.Asset] = true
				impact.AffectedAssets = append(impact.AffectedAssets, t.Asset)
			}
		}
	} else {
		impact.TradeCountDelta = added - removed
	}
	sort.Strings(impact.AffectedAssets)

	impact.WithinTolerance = impact.EstimatedImpact <= v.cfg.ImpactTolerance

	check := domain.ValidationCheck{Name: "impact_tolerance", Category: "impact"}
	if impact.WithinTolerance {
		check.Status, check.Score = domain.CheckPass, 1
		check.Message = fmt.Sprintf("estimated impact %.2f within tolerance", impact.EstimatedImpact)
	} else {
		check.Status, check.Score = domain.CheckWarn, 0.6
		check.Message = fmt.Sprintf("estimated impact %.2f exceeds tolerance %.2f", impact.EstimatedImpact, v.cfg.ImpactTolerance)
		res.warn("changes", "estimated impact exceeds tolerance", true)
	}
	res.check(check)

	return impact
}

func (v *Validator) checkCompliance(res *result, o *domain.RebalanceOverride) {
	documented := domain.ComplianceCheck{Rule: "justification_documented", Status: domain.Compliant}
	if strings.TrimSpace(o.Justification.Reason) == "" {
		documented.Status = domain.NonCompliant
		documented.Detail = "no justification reason"
	}

	evidence := domain.ComplianceCheck{Rule: "evidence_provided", Status: domain.Compliant}
	if len(o.Justification.Evidence) == 0 {
		evidence.Status = domain.ReviewRequired
		evidence.Detail = "no evidence attached"
	}

	acknowledged := domain.ComplianceCheck{Rule: "risk_acknowledged", Status: domain.Compliant}
	if len(o.RiskConsiderations) == 0 && o.IsCritical() {
		acknowledged.Status = domain.ReviewRequired
		acknowledged.Detail = "critical override lists no risk considerations"
	}

	res.compliance = append(res.compliance, documented, evidence, acknowledged)
}

func describeChange(c domain.OverrideChange) string {
	if c.Asset != "" {
		return c.Field + " of " + c.Asset
	}
	return c.Field
}
