package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velora-ai/velora/internal/interview"
)

// PostgresStore persists sessions as jsonb rows, letting a stateless
// front end resume interviews across processes. The caller owns the *sql.DB
// (opened with the pgx stdlib driver) and its lifetime.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the backing table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const q = `
create table if not exists interview_sessions (
	id         text primary key,
	payload    jsonb not null,
	updated_at timestamptz not null default now()
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("migrate interview_sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*interview.Session, error) {
	const q = `select payload from interview_sessions where id = $1`

	var payload []byte
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interview.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session %q: %w", id, err)
	}

	var sess interview.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", id, err)
	}

	return &sess, nil
}

func (s *PostgresStore) Put(ctx context.Context, id string, sess *interview.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", id, err)
	}

	const q = `
insert into interview_sessions (id, payload)
values ($1, $2)
on conflict (id)
do update set payload = excluded.payload, updated_at = now()`

	if _, err := s.db.ExecContext(ctx, q, id, payload); err != nil {
		return fmt.Errorf("put session %q: %w", id, err)
	}
	return nil
}
