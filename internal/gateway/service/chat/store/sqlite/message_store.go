package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// MessageStore is a sqlite-backed store for chat messages. The full row is
// stored as a JSON body; indexed columns are denormalized for queries.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db.SQL()}
}

func (s *MessageStore) Create(ctx context.Context, msg *entity.ChatMessage) error {
	body, err := json.MarshalString(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, task_id, status, created_at, last_updated_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.TaskID, string(msg.Status), msg.CreatedAt, msg.LastUpdatedAt, body)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*entity.ChatMessage, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT body FROM messages WHERE id = ?`, id), errno.ErrMessageNotFound)
}

func (s *MessageStore) GetByTaskID(ctx context.Context, taskID string) (*entity.ChatMessage, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT body FROM messages WHERE task_id = ?`, taskID), errno.ErrTaskNotFound)
}

func (s *MessageStore) scanOne(row *sql.Row, notFound error) (*entity.ChatMessage, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	var msg entity.ChatMessage
	if err := json.UnmarshalString(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) Update(ctx context.Context, msg *entity.ChatMessage) error {
	body, err := json.MarshalString(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET task_id = ?, status = ?, last_updated_at = ?, body = ? WHERE id = ?`,
		msg.TaskID, string(msg.Status), msg.LastUpdatedAt, body, msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return errno.ErrMessageNotFound
	}
	return nil
}

func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]*entity.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM messages WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by session %q: %w", sessionID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *MessageStore) ListStaleStreaming(ctx context.Context, cutoff time.Time) ([]*entity.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM messages WHERE status = ? AND last_updated_at < ?`,
		string(entity.MessageStatusStreaming), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale streaming messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*entity.ChatMessage, error) {
	var msgs []*entity.ChatMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		var m entity.ChatMessage
		if err := json.UnmarshalString(body, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
