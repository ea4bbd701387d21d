package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/sentinel-overrides/internal/config"
	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/scheduler"
	testutil "github.com/aristath/sentinel-overrides/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:            t.TempDir(),
		Port:               8001,
		StoreBackend:       backend,
		ProcessingInterval: 5 * time.Second,
		CriticalApprovals:  2,
		RiskThreshold:      0.7,
		Backup: config.BackupConfig{
			Schedule:      "0 0 3 * * *",
			Region:        "auto",
			RetentionDays: 30,
		},
	}
}

func createOverride(t *testing.T, c *Container) string {
	t.Helper()
	ctx := context.Background()
	_, err := c.OverrideService.RegisterPlan(ctx, testutil.NewPlanFixture("plan-1"))
	require.NoError(t, err)
	h, err := c.OverrideService.CreateOverride(ctx, overrides.CreateRequest{
		PlanID:   "plan-1",
		UserID:   testutil.UserTrader,
		Override: testutil.NewAllocationOverrideFixture(),
	})
	require.NoError(t, err)
	return h.ID
}

func TestWire_MemoryBackend(t *testing.T) {
	c, err := Wire(testConfig(t, config.StoreMemory), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.IsType(t, &plans.InMemoryRepository{}, c.PlanRepo)
	assert.IsType(t, &overrides.InMemoryRepository{}, c.HandlerRepo)
	assert.NotNil(t, c.OverrideService)
	assert.NotNil(t, c.Processor)
	assert.Nil(t, c.BackupService)
	assert.Nil(t, c.Roster)
	assert.NotNil(t, c.TracerProvider)

	id := createOverride(t, c)
	assert.Equal(t, []string{id}, c.Queue.Snapshot())
}

func TestWire_SQLiteRestoresQueue(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite)

	first, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, first.DB)
	assert.IsType(t, &plans.Repository{}, first.PlanRepo)
	assert.IsType(t, &overrides.Repository{}, first.HandlerRepo)

	id := createOverride(t, first)
	require.NoError(t, first.Close())

	second, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, []string{id}, second.Queue.Snapshot())

	h, err := second.OverrideService.GetOverride(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Processing.QueuePosition)
}

func TestWire_LoadsApproverRoster(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory)
	cfg.ApproversFile = filepath.Join(t.TempDir(), "approvers.yaml")
	roster := []byte(`approvers:
  - user_id: alice
    name: Alice Owner
    email: alice@example.com
escalation:
  - risk-committee@example.com
`)
	require.NoError(t, os.WriteFile(cfg.ApproversFile, roster, 0o600))

	c, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()
	require.NotNil(t, c.Roster)

	id := createOverride(t, c)
	h, err := c.OverrideService.GetOverride(context.Background(), id)
	require.NoError(t, err)

	owner := h.Approval.FindApprover(testutil.UserOwner)
	require.NotNil(t, owner)
	assert.Equal(t, "Alice Owner", owner.Name)
	assert.Equal(t, []string{"risk-committee@example.com"}, h.Approval.Deadlines.EscalateTo)
}

func TestWire_BadRosterFails(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory)
	cfg.ApproversFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_BackupService(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite)
	cfg.Backup.Enabled = true
	cfg.Backup.Endpoint = "http://127.0.0.1:9000"
	cfg.Backup.Bucket = "overrides"
	cfg.Backup.AccessKeyID = "key"
	cfg.Backup.SecretAccessKey = "secret"

	c, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.BackupService)
}

func TestWire_TracingProvider(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory)
	cfg.Tracing = config.TracingConfig{
		Enabled:     true,
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "overrides-test",
		SampleRatio: 1,
	}

	c, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)

	_, isSDK := c.TracerProvider.(*sdktrace.TracerProvider)
	assert.True(t, isSDK)
	assert.NoError(t, c.Close())
}

func TestRegisterJobs(t *testing.T) {
	c, err := Wire(testConfig(t, config.StoreMemory), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	jobs, err := RegisterJobs(c, testConfig(t, config.StoreMemory), scheduler.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "override_processing_tick", jobs.Processing.Name())
	assert.Equal(t, "check_database", jobs.CheckDatabase.Name())
	assert.Equal(t, "maintenance", jobs.Maintenance.Name())
	assert.Nil(t, jobs.Backup)

	// memory backend: database checks are no-ops
	assert.NoError(t, jobs.CheckDatabase.Run())
}

func TestRegisterJobs_RejectsBadBackupSchedule(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite)
	cfg.Backup.Enabled = true
	cfg.Backup.Bucket = "overrides"
	cfg.Backup.AccessKeyID = "key"
	cfg.Backup.SecretAccessKey = "secret"
	cfg.Backup.Schedule = "whenever"

	c, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	_, err = RegisterJobs(c, cfg, scheduler.New(zerolog.Nop()), zerolog.Nop())
	assert.Error(t, err)
}

func TestInitializeRepositories_NilContainer(t *testing.T) {
	assert.Error(t, InitializeRepositories(nil, zerolog.Nop()))
}
