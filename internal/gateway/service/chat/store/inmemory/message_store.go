package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/copier"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
)

// MessageStore keeps ChatMessage rows in process memory.
//
// Reads return deep copies so pollers and stream subscribers get snapshot
// semantics while the owning worker keeps writing.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]*entity.ChatMessage
	order    map[string]int
	seq      int
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string]*entity.ChatMessage),
		order:    make(map[string]int),
	}
}

func (s *MessageStore) Create(_ context.Context, msg *entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.order[msg.ID] = s.seq
	s.messages[msg.ID] = cloneMessage(msg)
	return nil
}

func (s *MessageStore) Get(_ context.Context, id string) (*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, errno.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (s *MessageStore) GetByTaskID(_ context.Context, taskID string) (*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.messages {
		if msg.TaskID == taskID {
			return cloneMessage(msg), nil
		}
	}
	return nil, errno.ErrTaskNotFound
}

func (s *MessageStore) Update(_ context.Context, msg *entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return errno.ErrMessageNotFound
	}
	s.messages[msg.ID] = cloneMessage(msg)
	return nil
}

func (s *MessageStore) ListBySession(_ context.Context, sessionID string) ([]*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]*entity.ChatMessage, 0)
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			msgs = append(msgs, cloneMessage(msg))
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return s.order[msgs[i].ID] < s.order[msgs[j].ID]
	})
	return msgs, nil
}

func (s *MessageStore) ListStaleStreaming(_ context.Context, cutoff time.Time) ([]*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []*entity.ChatMessage
	for _, msg := range s.messages {
		if msg.Status == entity.MessageStatusStreaming && msg.LastUpdatedAt.Before(cutoff) {
			stale = append(stale, cloneMessage(msg))
		}
	}
	return stale, nil
}

func cloneMessage(in *entity.ChatMessage) *entity.ChatMessage {
	var out entity.ChatMessage
	_ = copier.CopyWithOption(&out, in, copier.Option{DeepCopy: true})
	return &out
}
