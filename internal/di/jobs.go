package di

import (
	"fmt"

	"github.com/aristath/sentinel-overrides/internal/config"
	"github.com/aristath/sentinel-overrides/internal/reliability"
	"github.com/aristath/sentinel-overrides/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules (cron with seconds)
const (
	checkDatabaseSchedule = "0 */5 * * * *" // every 5 minutes
	maintenanceSchedule   = "0 0 4 * * *"   // 04:00 daily
)

type scheduledJob struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the background jobs and registers them with sched
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		Processing:    container.Processor,
		CheckDatabase: scheduler.NewCheckDatabaseJob(container.DB, log),
		Maintenance:   reliability.NewMaintenanceJob(container.DB, cfg.DataDir, log),
	}
	if container.BackupService != nil {
		instances.Backup = container.BackupService
	}

	schedules := []scheduledJob{
		{"@every " + cfg.ProcessingInterval.String(), instances.Processing},
		{checkDatabaseSchedule, instances.CheckDatabase},
		{maintenanceSchedule, instances.Maintenance},
	}
	if instances.Backup != nil {
		schedules = append(schedules, scheduledJob{cfg.Backup.Schedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Jobs registered")
	return instances, nil
}
