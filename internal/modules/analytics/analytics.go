// Package analytics computes aggregate statistics over override handlers.
package analytics

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Report is recomputed from the full handler set on every call
type Report struct {
	Total         int                            `json:"total"`
	ByStatus      map[domain.HandlerStatus]int   `json:"by_status"`
	ByType        map[domain.OverrideType]int    `json:"by_type"`
	ByStage       map[domain.ProcessingStage]int `json:"by_stage"`
	SuccessRate   float64                        `json:"success_rate"`
	RejectionRate float64                        `json:"rejection_rate"`

	// Processing times are completedAt - createdAt over completed handlers
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	MedianProcessingTime  time.Duration `json:"median_processing_time"`
	P95ProcessingTime     time.Duration `json:"p95_processing_time"`

	// ApprovalLatency is approvedAt - createdAt over approved handlers
	AverageApprovalLatency time.Duration `json:"average_approval_latency"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Compute builds a report. An empty handler set yields zero rates.
func Compute(handlers []*domain.OverrideHandler, now time.Time) Report {
	r := Report{
		Total:       len(handlers),
		ByStatus:    make(map[domain.HandlerStatus]int),
		ByType:      make(map[domain.OverrideType]int),
		ByStage:     make(map[domain.ProcessingStage]int),
		GeneratedAt: now,
	}

	var processing, approval []float64
	rejected := 0
	for _, h := range handlers {
		r.ByStatus[h.Status]++
		r.ByType[h.Override.Type]++
		r.ByStage[h.Processing.CurrentStage]++

		if h.Approval.RejectionReason != "" {
			rejected++
		}
		if h.Status == domain.StatusCompleted && h.CompletedAt != nil {
			processing = append(processing, float64(h.CompletedAt.Sub(h.CreatedAt)))
		}
		if h.ApprovedAt != nil {
			approval = append(approval, float64(h.ApprovedAt.Sub(h.CreatedAt)))
		}
	}

	if r.Total == 0 {
		return r
	}
	r.SuccessRate = float64(r.ByStatus[domain.StatusCompleted]) / float64(r.Total)
	r.RejectionRate = float64(rejected) / float64(r.Total)

	if len(processing) > 0 {
		sort.Float64s(processing)
		r.AverageProcessingTime = time.Duration(stat.Mean(processing, nil))
		r.MedianProcessingTime = time.Duration(stat.Quantile(0.5, stat.Empirical, processing, nil))
		r.P95ProcessingTime = time.Duration(stat.Quantile(0.95, stat.Empirical, processing, nil))
	}
	if len(approval) > 0 {
		r.AverageApprovalLatency = time.Duration(stat.Mean(approval, nil))
	}
	return r
}
