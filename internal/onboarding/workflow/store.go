// internal/onboarding/workflow/store.go
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	goerrors "errors"
	"fmt"

	"carrier-onboarding/internal/models"
)

// ErrStateNotFound is returned when no onboarding state exists for the
// carrier.
var ErrStateNotFound = goerrors.New("onboarding state not found")

// StateStore persists OnboardingState keyed by carrier id.
type StateStore interface {
	Load(ctx context.Context, carrierID string) (*models.OnboardingState, error)
	Save(ctx context.Context, state *models.OnboardingState) error
	Delete(ctx context.Context, carrierID string) error
}

// PostgresStateStore keeps the serialized state in a single jsonb row per
// carrier. The stage column is denormalized for operational queries.
type PostgresStateStore struct {
	db *sql.DB
}

func NewPostgresStateStore(db *sql.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS onboarding_states (
	carrier_id TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Init creates the backing table if it is missing.
func (s *PostgresStateStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createStateTableSQL); err != nil {
		return fmt.Errorf("create onboarding_states table: %w", err)
	}
	return nil
}

func (s *PostgresStateStore) Load(ctx context.Context, carrierID string) (*models.OnboardingState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM onboarding_states WHERE carrier_id = $1`,
		carrierID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}

	var state models.OnboardingState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode onboarding state: %w", err)
	}
	if state.Documents == nil {
		state.Documents = make(map[models.DocumentSlot]models.StoredDocument)
	}
	return &state, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, state *models.OnboardingState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode onboarding state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO onboarding_states (carrier_id, stage, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (carrier_id)
		DO UPDATE SET stage = $2, state = $3, updated_at = $4`,
		state.CarrierID, string(state.Stage), raw, state.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save onboarding state: %w", err)
	}
	return nil
}

func (s *PostgresStateStore) Delete(ctx context.Context, carrierID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM onboarding_states WHERE carrier_id = $1`,
		carrierID,
	); err != nil {
		return fmt.Errorf("delete onboarding state: %w", err)
	}
	return nil
}
