package overrides

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository persists override handlers in SQLite (override_handlers table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new SQLite handler repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "override_handlers").Logger(),
	}
}

// Save inserts or replaces the handler
func (r *Repository) Save(h *domain.OverrideHandler) error {
	payload, err := msgpack.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode handler: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO override_handlers
			(id, plan_id, portfolio_id, user_id, override_type, status, stage, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			stage = excluded.stage,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`,
		h.ID, h.PlanID, h.PortfolioID, h.UserID, string(h.Override.Type),
		string(h.Status), string(h.Processing.CurrentStage), payload,
		h.CreatedAt.UnixNano(), h.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save handler: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the handler does not exist
func (r *Repository) GetByID(id string) (*domain.OverrideHandler, error) {
	var payload []byte
	err := r.db.QueryRow("SELECT payload FROM override_handlers WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query handler: %w", err)
	}
	return decodeHandler(payload)
}

// List returns matching handlers ordered by creation time
func (r *Repository) List(filter domain.HandlerFilter) ([]*domain.OverrideHandler, error) {
	query := "SELECT payload FROM override_handlers"
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "override_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.PlanID != "" {
		where = append(where, "plan_id = ?")
		args = append(args, filter.PlanID)
	}
	if filter.PortfolioID != "" {
		where = append(where, "portfolio_id = ?")
		args = append(args, filter.PortfolioID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query handlers: %w", err)
	}
	defer rows.Close()

	handlers := make([]*domain.OverrideHandler, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan handler: %w", err)
		}
		h, err := decodeHandler(payload)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating handlers: %w", err)
	}
	return handlers, nil
}

func decodeHandler(payload []byte) (*domain.OverrideHandler, error) {
	var h domain.OverrideHandler
	if err := msgpack.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("failed to decode handler: %w", err)
	}
	return &h, nil
}
