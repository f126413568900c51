package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// SessionStore is a sqlite-backed store for chat sessions.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.SQL()}
}

func (s *SessionStore) Create(ctx context.Context, session *entity.ChatSession) error {
	body, err := json.MarshalString(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, body) VALUES (?, ?, ?)`,
		session.ID, session.CreatedAt, body)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*entity.ChatSession, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE id = ?`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errno.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	var session entity.ChatSession
	if err := json.UnmarshalString(body, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Update(ctx context.Context, session *entity.ChatSession) error {
	body, err := json.MarshalString(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET body = ? WHERE id = ?`, body, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return errno.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return errno.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]*entity.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM sessions ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*entity.ChatSession
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var sess entity.ChatSession
		if err := json.UnmarshalString(body, &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}
