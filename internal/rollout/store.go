package rollout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps the whole gate state in a single JSONB row. Load and save
// stay atomic, and phases can gain fields without schema churn.
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

// Load returns the persisted state, or nil when none has been saved yet.
func (s *PGStore) Load(ctx context.Context) (*State, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, "SELECT state FROM rollout_state WHERE id = 1").Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rollout state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode rollout state: %w", err)
	}
	return &state, nil
}

func (s *PGStore) Save(ctx context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rollout state: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO rollout_state (id, state, updated_at)
		 VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		raw,
	)
	if err != nil {
		return fmt.Errorf("upsert rollout state: %w", err)
	}
	return nil
}
