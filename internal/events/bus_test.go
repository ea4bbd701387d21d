package events

import (
	"testing"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus() *Bus {
	return NewBus(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestBus_EmitDeliversToSubscribersOfType(t *testing.T) {
	bus := newTestBus()

	var created, failed []*Event
	bus.Subscribe(OverrideCreated, func(e *Event) { created = append(created, e) })
	bus.Subscribe(OverrideFailed, func(e *Event) { failed = append(failed, e) })

	bus.Emit("overrides", &OverrideCreatedData{Handler: &domain.OverrideHandler{ID: "h1"}})

	require.Len(t, created, 1)
	assert.Empty(t, failed)
	assert.Equal(t, OverrideCreated, created[0].Type)
	assert.Equal(t, "overrides", created[0].Module)
	assert.False(t, created[0].Timestamp.IsZero())

	data, ok := created[0].Data.(*OverrideCreatedData)
	require.True(t, ok)
	assert.Equal(t, "h1", data.Handler.ID)
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := newTestBus()

	var order []int
	for i := 0; i < 3; i++ {
		bus.Subscribe(PlanRegistered, func(*Event) { order = append(order, i) })
	}

	bus.Emit("plans", &PlanRegisteredData{})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus()

	calls := 0
	sub := bus.Subscribe(OverrideUpdated, func(*Event) { calls++ })
	other := bus.Subscribe(OverrideUpdated, func(*Event) {})
	assert.Equal(t, 2, bus.SubscriberCount(OverrideUpdated))

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	assert.Equal(t, 1, bus.SubscriberCount(OverrideUpdated))

	bus.Emit("overrides", &OverrideUpdatedData{Action: "approve"})
	assert.Equal(t, 0, calls)

	bus.Unsubscribe(other)
	assert.Equal(t, 0, bus.SubscriberCount(OverrideUpdated))
}

func TestBus_RecoversFromPanickingHandler(t *testing.T) {
	bus := newTestBus()

	reached := false
	bus.Subscribe(OverrideFailed, func(*Event) { panic("boom") })
	bus.Subscribe(OverrideFailed, func(*Event) { reached = true })

	assert.NotPanics(t, func() {
		bus.Emit("execution", &OverrideFailedData{HandlerID: "h1", Error: "x"})
	})
	assert.True(t, reached)
}

func TestBus_HandlerMaySubscribeDuringEmit(t *testing.T) {
	bus := newTestBus()

	bus.Subscribe(PlanRegistered, func(*Event) {
		bus.Subscribe(PlanRegistered, func(*Event) {})
	})

	assert.NotPanics(t, func() { bus.Emit("plans", &PlanRegisteredData{}) })
	assert.Equal(t, 2, bus.SubscriberCount(PlanRegistered))
}

func TestEventData_Types(t *testing.T) {
	tests := []struct {
		data     EventData
		expected EventType
	}{
		{&PlanRegisteredData{}, PlanRegistered},
		{&OverrideCreatedData{}, OverrideCreated},
		{&OverrideUpdatedData{}, OverrideUpdated},
		{&OverrideCompletedData{}, OverrideCompleted},
		{&OverrideFailedData{}, OverrideFailed},
		{&BackupCompletedData{}, BackupCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.data.EventType())
			assert.Contains(t, AllTypes, tt.expected)
		})
	}
}
