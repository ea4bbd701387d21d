// Package events provides the in-process event bus and typed event payloads.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	PlanRegistered    EventType = "PLAN_REGISTERED"
	OverrideCreated   EventType = "OVERRIDE_CREATED"
	OverrideUpdated   EventType = "OVERRIDE_UPDATED"
	OverrideCompleted EventType = "OVERRIDE_COMPLETED"
	OverrideFailed    EventType = "OVERRIDE_FAILED"
	BackupCompleted   EventType = "BACKUP_COMPLETED"
)

// AllTypes lists every event type the service emits
var AllTypes = []EventType{
	PlanRegistered,
	OverrideCreated,
	OverrideUpdated,
	OverrideCompleted,
	OverrideFailed,
	BackupCompleted,
}

// Event is a published event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
