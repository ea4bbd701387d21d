package plans

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository persists plans in SQLite (plans table).
// The full plan is stored as a msgpack payload.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new SQLite plan repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "plans").Logger(),
	}
}

// Upsert inserts or replaces the plan
func (r *Repository) Upsert(plan *domain.RebalancePlan) error {
	payload, err := msgpack.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO plans (id, portfolio_id, strategy, payload, created_at, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			portfolio_id = excluded.portfolio_id,
			strategy = excluded.strategy,
			payload = excluded.payload,
			created_at = excluded.created_at,
			registered_at = excluded.registered_at
	`, plan.ID, plan.PortfolioID, plan.Strategy, payload, plan.CreatedAt.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the plan does not exist
func (r *Repository) GetByID(id string) (*domain.RebalancePlan, error) {
	var payload []byte
	err := r.db.QueryRow("SELECT payload FROM plans WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	return decodePlan(payload)
}

// List returns all plans ordered by creation time
func (r *Repository) List() ([]*domain.RebalancePlan, error) {
	rows, err := r.db.Query("SELECT payload FROM plans ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.RebalancePlan, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plan, err := decodePlan(payload)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return plans, nil
}

func decodePlan(payload []byte) (*domain.RebalancePlan, error) {
	var plan domain.RebalancePlan
	if err := msgpack.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}
