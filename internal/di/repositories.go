package di

import (
	"fmt"

	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the plan and handler repositories,
// SQLite-backed when a database is open and in-memory otherwise
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	if container.DB == nil {
		container.PlanRepo = plans.NewInMemoryRepository(log)
		container.HandlerRepo = overrides.NewInMemoryRepository(log)
		log.Info().Msg("In-memory repositories initialized")
		return nil
	}

	container.PlanRepo = plans.NewRepository(container.DB.Conn(), log)
	container.HandlerRepo = overrides.NewRepository(container.DB.Conn(), log)
	log.Info().Msg("SQLite repositories initialized")
	return nil
}
