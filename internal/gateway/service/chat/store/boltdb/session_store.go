package boltdb

import (
	"context"
	"fmt"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/utils/json"
)

// SessionStore is a BoltDB-backed store for chat sessions.
type SessionStore struct {
	db *bolt.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.Bolt()}
}

func (s *SessionStore) Create(_ context.Context, session *entity.ChatSession) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionStore)
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return b.Put([]byte(session.ID), data)
	})
}

func (s *SessionStore) Get(_ context.Context, id string) (*entity.ChatSession, error) {
	var session entity.ChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionStore)
		data := b.Get([]byte(id))
		if data == nil {
			return errno.ErrSessionNotFound
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Update(_ context.Context, session *entity.ChatSession) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionStore)
		if b.Get([]byte(session.ID)) == nil {
			return errno.ErrSessionNotFound
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return b.Put([]byte(session.ID), data)
	})
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionStore)
		if b.Get([]byte(id)) == nil {
			return errno.ErrSessionNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *SessionStore) List(_ context.Context) ([]*entity.ChatSession, error) {
	var sessions []*entity.ChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionStore)
		return b.ForEach(func(k, v []byte) error {
			var sess entity.ChatSession
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			sessions = append(sessions, &sess)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}
