// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/sentinel-overrides/internal/database"
	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/aristath/sentinel-overrides/internal/modules/approval"
	"github.com/aristath/sentinel-overrides/internal/modules/execution"
	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/modules/validation"
	"github.com/aristath/sentinel-overrides/internal/queue"
	"github.com/aristath/sentinel-overrides/internal/reliability"
	"github.com/aristath/sentinel-overrides/internal/scheduler"
	"github.com/aristath/sentinel-overrides/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Container holds all application dependencies.
// It is created by Wire and is the single owner of every service instance.
type Container struct {
	// Storage; DB is nil for the memory backend
	DB          *database.DB
	PlanRepo    domain.PlanRepository
	HandlerRepo domain.HandlerRepository

	EventBus *events.Bus

	// Override pipeline
	Roster          *approval.Roster // nil without APPROVERS_FILE
	PlanRegistry    *plans.Registry
	Validator       *validation.Validator
	ApprovalBuilder *approval.Builder
	Planner         *execution.Planner
	Runner          *execution.Runner
	OverrideService *overrides.Service

	// Processing queue
	Queue     *queue.Queue
	Processor *queue.Processor

	BackupService *reliability.BackupService // nil when backups are disabled

	TracerProvider  trace.TracerProvider
	shutdownTracing tracing.ShutdownFunc
}

// Close flushes pending spans and releases the database, if any
func (c *Container) Close() error {
	var errs []error
	if c.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.shutdownTracing(ctx); err != nil {
			errs = append(errs, err)
		}
		c.shutdownTracing = nil
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds the scheduled jobs for manual triggering
type JobInstances struct {
	Processing    scheduler.Job
	CheckDatabase scheduler.Job
	Maintenance   scheduler.Job
	Backup        scheduler.Job // nil when backups are disabled
}
