package analytics

import (
	"testing"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/stretchr/testify/assert"
)

var base = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func handler(status domain.HandlerStatus, typ domain.OverrideType, took time.Duration) *domain.OverrideHandler {
	h := &domain.OverrideHandler{
		Status:    status,
		Override:  domain.RebalanceOverride{Type: typ},
		CreatedAt: base,
	}
	if status == domain.StatusCompleted {
		done := base.Add(took)
		approved := base.Add(took / 2)
		h.CompletedAt = &done
		h.ApprovedAt = &approved
	}
	return h
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil, base)
	assert.Equal(t, 0, r.Total)
	assert.Equal(t, 0.0, r.SuccessRate)
	assert.Equal(t, time.Duration(0), r.AverageProcessingTime)
	assert.NotNil(t, r.ByStatus)
}

func TestCompute_CountsAndRates(t *testing.T) {
	rejected := handler(domain.StatusCancelled, domain.OverrideTypeTrades, 0)
	rejected.Approval.RejectionReason = "too risky"

	handlers := []*domain.OverrideHandler{
		handler(domain.StatusCompleted, domain.OverrideTypeAllocation, 10*time.Minute),
		handler(domain.StatusCompleted, domain.OverrideTypeAllocation, 20*time.Minute),
		handler(domain.StatusCompleted, domain.OverrideTypeFull, 30*time.Minute),
		handler(domain.StatusPending, domain.OverrideTypeTiming, 0),
		rejected,
	}

	r := Compute(handlers, base)

	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 3, r.ByStatus[domain.StatusCompleted])
	assert.Equal(t, 1, r.ByStatus[domain.StatusPending])
	assert.Equal(t, 2, r.ByType[domain.OverrideTypeAllocation])
	assert.Equal(t, 1, r.ByType[domain.OverrideTypeFull])
	assert.InDelta(t, 0.6, r.SuccessRate, 1e-9)
	assert.InDelta(t, 0.2, r.RejectionRate, 1e-9)

	assert.Equal(t, 20*time.Minute, r.AverageProcessingTime)
	assert.Equal(t, 20*time.Minute, r.MedianProcessingTime)
	assert.Equal(t, 30*time.Minute, r.P95ProcessingTime)
	assert.Equal(t, 10*time.Minute, r.AverageApprovalLatency)
}

func TestCompute_FailedExecutionsExcludedFromProcessingTime(t *testing.T) {
	failed := handler(domain.StatusFailed, domain.OverrideTypeAllocation, 0)
	done := base.Add(time.Hour)
	failed.CompletedAt = &done

	r := Compute([]*domain.OverrideHandler{
		failed,
		handler(domain.StatusCompleted, domain.OverrideTypeAllocation, 10*time.Minute),
	}, base)

	assert.Equal(t, 10*time.Minute, r.AverageProcessingTime)
	assert.InDelta(t, 0.5, r.SuccessRate, 1e-9)
}
