package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerFilter_Matches(t *testing.T) {
	h := &OverrideHandler{
		PlanID:      "plan-1",
		PortfolioID: "pf-1",
		Status:      StatusPending,
		Override:    RebalanceOverride{Type: OverrideTypeFull},
	}

	assert.True(t, HandlerFilter{}.Matches(h))
	assert.True(t, HandlerFilter{Status: StatusPending, Type: OverrideTypeFull}.Matches(h))
	assert.True(t, HandlerFilter{PlanID: "plan-1", PortfolioID: "pf-1"}.Matches(h))
	assert.False(t, HandlerFilter{Status: StatusApproved}.Matches(h))
	assert.False(t, HandlerFilter{Type: OverrideTypeTiming}.Matches(h))
	assert.False(t, HandlerFilter{PlanID: "plan-2"}.Matches(h))
	assert.False(t, HandlerFilter{PortfolioID: "pf-2"}.Matches(h))
}
