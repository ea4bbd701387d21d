package di

import (
	"fmt"

	"github.com/aristath/sentinel-overrides/internal/config"
	"github.com/aristath/sentinel-overrides/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the override store and applies its schema.
// The memory backend needs no database and leaves container.DB nil.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if cfg.StoreBackend == config.StoreMemory {
		log.Warn().Msg("Using in-memory store; plans and overrides are lost on restart")
		return container, nil
	}

	// overrides.db - plans and handlers with their audit trails
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileDurable,
		Name:    "overrides",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize overrides database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized and schema applied")

	return container, nil
}
