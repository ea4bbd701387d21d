package scheduler

import (
	"context"
	"time"

	"github.com/aristath/sentinel-overrides/internal/database"
	"github.com/rs/zerolog"
)

// CheckDatabaseJob checks the store's integrity and truncates its WAL
type CheckDatabaseJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCheckDatabaseJob creates a new CheckDatabaseJob. db may be nil when
// the memory backend is used; the job is then a no-op.
func NewCheckDatabaseJob(db *database.DB, log zerolog.Logger) *CheckDatabaseJob {
	return &CheckDatabaseJob{
		db:  db,
		log: log.With().Str("job", "check_database").Logger(),
	}
}

// Name returns the job name
func (j *CheckDatabaseJob) Name() string {
	return "check_database"
}

// Run executes the health check and WAL checkpoint
func (j *CheckDatabaseJob) Run() error {
	if j.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		return err
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, walFrames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &walFrames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
		return nil
	}

	if busy == 0 && walFrames > 1000 {
		if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
		j.log.Info().Int("wal_frames", walFrames).Msg("WAL truncated")
	}

	j.log.Debug().
		Int("busy", busy).
		Int("wal_frames", walFrames).
		Int("checkpointed", checkpointed).
		Msg("Database check completed")
	return nil
}
