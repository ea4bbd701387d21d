package events

import (
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PlanRegisteredData contains data for PlanRegistered events
type PlanRegisteredData struct {
	Plan *domain.RebalancePlan `json:"plan"`
}

// EventType returns the event type for PlanRegisteredData
func (d *PlanRegisteredData) EventType() EventType {
	return PlanRegistered
}

// OverrideCreatedData contains data for OverrideCreated events
type OverrideCreatedData struct {
	Handler *domain.OverrideHandler `json:"handler"`
}

// EventType returns the event type for OverrideCreatedData
func (d *OverrideCreatedData) EventType() EventType {
	return OverrideCreated
}

// OverrideUpdatedData contains data for OverrideUpdated events.
// Action names the mutation (approve, reject, stage_advanced, ...).
type OverrideUpdatedData struct {
	Handler *domain.OverrideHandler `json:"handler"`
	Action  string                  `json:"action"`
}

// EventType returns the event type for OverrideUpdatedData
func (d *OverrideUpdatedData) EventType() EventType {
	return OverrideUpdated
}

// OverrideCompletedData contains data for OverrideCompleted events
type OverrideCompletedData struct {
	Handler *domain.OverrideHandler `json:"handler"`
}

// EventType returns the event type for OverrideCompletedData
func (d *OverrideCompletedData) EventType() EventType {
	return OverrideCompleted
}

// OverrideFailedData contains data for OverrideFailed events
type OverrideFailedData struct {
	HandlerID string `json:"handler_id"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
}

// EventType returns the event type for OverrideFailedData
func (d *OverrideFailedData) EventType() EventType {
	return OverrideFailed
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string        `json:"key"`
	SizeBytes int64         `json:"size_bytes"`
	Duration  time.Duration `json:"duration"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}
