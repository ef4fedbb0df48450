package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"captionstudio/internal/httpkit"
	"captionstudio/internal/models"
	"captionstudio/internal/render"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSessionNotFound = errors.New("render session not found")
var ErrSessionExists = errors.New("render session already exists")

const schema = `
CREATE TABLE IF NOT EXISTS render_sessions (
	id             TEXT PRIMARY KEY,
	composition_id TEXT NOT NULL,
	input_props    JSONB NOT NULL,
	state_json     JSONB NOT NULL,
	generation     BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS render_sessions_created_at_idx ON render_sessions (created_at DESC);
`

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

func (r *SessionRepository) Create(ctx context.Context, s *models.RenderSession) error {
	state, err := json.Marshal(s.State)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO render_sessions (id, composition_id, input_props, state_json, generation)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, s.ID, s.CompositionID, []byte(s.InputProps), state, s.Generation).Scan(&s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrSessionExists
		}
		return err
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.RenderSession, error) {
	var (
		s     models.RenderSession
		props []byte
		state []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, composition_id, input_props, state_json, generation, created_at, updated_at
		FROM render_sessions
		WHERE id=$1
	`, id).Scan(&s.ID, &s.CompositionID, &props, &state, &s.Generation, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if httpkit.IsNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	s.InputProps = props
	if err := json.Unmarshal(state, &s.State); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns the most recent sessions without their input props.
func (r *SessionRepository) List(ctx context.Context, limit int) ([]models.RenderSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, composition_id, state_json, generation, created_at, updated_at
		FROM render_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.RenderSession{}
	for rows.Next() {
		var (
			s     models.RenderSession
			state []byte
		)
		if err := rows.Scan(&s.ID, &s.CompositionID, &state, &s.Generation, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(state, &s.State); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateState stores snap if the session is still at generation. It reports
// false when an undo has moved the session on.
func (r *SessionRepository) UpdateState(ctx context.Context, id string, generation int64, snap render.Snapshot) (bool, error) {
	state, err := json.Marshal(snap)
	if err != nil {
		return false, err
	}
	cmd, err := r.db.Exec(ctx, `
		UPDATE render_sessions
		SET state_json=$3, updated_at=now()
		WHERE id=$1 AND generation=$2
	`, id, generation, state)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// Reset puts the session back to init and bumps its generation, returning
// the new generation.
func (r *SessionRepository) Reset(ctx context.Context, id string) (int64, error) {
	state, err := json.Marshal(render.SnapshotOf(render.Init{}))
	if err != nil {
		return 0, err
	}
	var gen int64
	err = r.db.QueryRow(ctx, `
		UPDATE render_sessions
		SET state_json=$2, generation=generation+1, updated_at=now()
		WHERE id=$1
		RETURNING generation
	`, id, state).Scan(&gen)
	if err != nil {
		if httpkit.IsNoRows(err) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	return gen, nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
