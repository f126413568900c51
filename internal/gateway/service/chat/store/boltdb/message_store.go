package boltdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// MessageStore is a BoltDB-backed store for chat messages.
type MessageStore struct {
	db *bolt.DB
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db.Bolt()}
}

func (s *MessageStore) Create(_ context.Context, msg *entity.ChatMessage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		return b.Put([]byte(msg.ID), data)
	})
}

func (s *MessageStore) Get(_ context.Context, id string) (*entity.ChatMessage, error) {
	var msg entity.ChatMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		data := b.Get([]byte(id))
		if data == nil {
			return errno.ErrMessageNotFound
		}
		return json.Unmarshal(data, &msg)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MessageStore) GetByTaskID(_ context.Context, taskID string) (*entity.ChatMessage, error) {
	var found *entity.ChatMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		return b.ForEach(func(k, v []byte) error {
			var m entity.ChatMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			if m.TaskID == taskID {
				found = &m
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errno.ErrTaskNotFound
	}
	return found, nil
}

func (s *MessageStore) Update(_ context.Context, msg *entity.ChatMessage) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		if b.Get([]byte(msg.ID)) == nil {
			return errno.ErrMessageNotFound
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		return b.Put([]byte(msg.ID), data)
	})
}

func (s *MessageStore) ListBySession(_ context.Context, sessionID string) ([]*entity.ChatMessage, error) {
	var msgs []*entity.ChatMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		return b.ForEach(func(k, v []byte) error {
			var m entity.ChatMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			if m.SessionID == sessionID {
				msgs = append(msgs, &m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by session %q: %w", sessionID, err)
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (s *MessageStore) ListStaleStreaming(_ context.Context, cutoff time.Time) ([]*entity.ChatMessage, error) {
	var stale []*entity.ChatMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMessageStore)
		return b.ForEach(func(k, v []byte) error {
			var m entity.ChatMessage
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			if m.Status == entity.MessageStatusStreaming && m.LastUpdatedAt.Before(cutoff) {
				stale = append(stale, &m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stale streaming messages: %w", err)
	}
	return stale, nil
}
