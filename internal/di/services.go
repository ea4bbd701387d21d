package di

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-overrides/internal/config"
	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/events"
	"github.com/aristath/sentinel-overrides/internal/modules/approval"
	"github.com/aristath/sentinel-overrides/internal/modules/execution"
	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/modules/processing"
	"github.com/aristath/sentinel-overrides/internal/modules/validation"
	"github.com/aristath/sentinel-overrides/internal/queue"
	"github.com/aristath/sentinel-overrides/internal/reliability"
	"github.com/aristath/sentinel-overrides/internal/tracing"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event bus, the override pipeline, the
// processing queue and, when enabled, the backup service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus(log)

	tp, shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	container.TracerProvider = tp
	container.shutdownTracing = shutdown

	// Approver roster (optional)
	approvalCfg := approval.DefaultConfig()
	approvalCfg.CriticalApprovals = cfg.CriticalApprovals
	var identities approval.IdentityProvider
	if cfg.ApproversFile != "" {
		roster, err := approval.LoadRoster(cfg.ApproversFile)
		if err != nil {
			return fmt.Errorf("failed to load approver roster: %w", err)
		}
		container.Roster = roster
		identities = roster
		approvalCfg.EscalateTo = roster.EscalationContacts()
		log.Info().Int("approvers", roster.Size()).Msg("Approver roster loaded")
	}

	validationCfg := validation.DefaultConfig()
	validationCfg.RiskThreshold = cfg.RiskThreshold

	container.PlanRegistry = plans.NewRegistry(container.PlanRepo, container.EventBus, log)
	container.Validator = validation.NewValidator(validationCfg, log)
	container.ApprovalBuilder = approval.NewBuilder(approvalCfg, identities, log)
	container.Planner = execution.NewPlanner()
	container.Runner = execution.NewRunner(
		execution.SimulatedExecutor{Latency: cfg.PhaseLatency},
		container.TracerProvider,
		log,
	)

	container.OverrideService = overrides.NewService(
		container.PlanRegistry,
		container.HandlerRepo,
		container.Validator,
		container.ApprovalBuilder,
		container.Planner,
		container.Runner,
		container.EventBus,
		log,
	)

	// Processing queue: new handlers are enqueued from OverrideCreated events
	container.Queue = queue.New()
	queue.RegisterListeners(container.EventBus, container.Queue, log)
	container.OverrideService.SetQueue(container.Queue)
	container.Processor = queue.NewProcessor(container.Queue, container.OverrideService, log)

	if err := restoreQueue(container, log); err != nil {
		return err
	}

	if cfg.Backup.Enabled && container.DB != nil {
		store, err := reliability.NewR2Client(context.Background(), reliability.R2ClientConfig{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			store,
			[]reliability.Snapshotter{container.DB},
			cfg.DataDir,
			cfg.Backup.RetentionDays,
			container.EventBus,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup service initialized")
	}

	log.Info().Msg("Services initialized")
	return nil
}

// restoreQueue re-enqueues persisted handlers that are still before
// execution, oldest first
func restoreQueue(container *Container, log zerolog.Logger) error {
	handlers, err := container.HandlerRepo.List(domain.HandlerFilter{})
	if err != nil {
		return fmt.Errorf("failed to restore processing queue: %w", err)
	}

	restored := 0
	for _, h := range handlers {
		if processing.InQueue(h) && container.Queue.Enqueue(h.ID) {
			restored++
		}
	}

	if restored > 0 {
		log.Info().Int("handlers", restored).Msg("Processing queue restored")
	}
	return nil
}
