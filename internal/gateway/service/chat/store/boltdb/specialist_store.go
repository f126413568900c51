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

// SpecialistStore is a BoltDB-backed store for specialists.
type SpecialistStore struct {
	db *bolt.DB
}

// NewSpecialistStore creates a new SpecialistStore.
func NewSpecialistStore(db *DB) *SpecialistStore {
	return &SpecialistStore{db: db.Bolt()}
}

func (s *SpecialistStore) Create(_ context.Context, sp *entity.Specialist) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		data, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("failed to marshal specialist: %w", err)
		}
		return b.Put([]byte(sp.ID), data)
	})
}

func (s *SpecialistStore) Get(_ context.Context, id string) (*entity.Specialist, error) {
	var sp entity.Specialist
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		data := b.Get([]byte(id))
		if data == nil {
			return errno.ErrSpecialistNotFound
		}
		return json.Unmarshal(data, &sp)
	})
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *SpecialistStore) GetByName(_ context.Context, name string) (*entity.Specialist, error) {
	var found *entity.Specialist
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		return b.ForEach(func(k, v []byte) error {
			var sp entity.Specialist
			if err := json.Unmarshal(v, &sp); err != nil {
				return fmt.Errorf("failed to unmarshal specialist: %w", err)
			}
			if found == nil && sp.Name == name {
				found = &sp
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errno.ErrSpecialistNotFound
	}
	return found, nil
}

func (s *SpecialistStore) Update(_ context.Context, sp *entity.Specialist) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		if b.Get([]byte(sp.ID)) == nil {
			return errno.ErrSpecialistNotFound
		}
		data, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("failed to marshal specialist: %w", err)
		}
		return b.Put([]byte(sp.ID), data)
	})
}

func (s *SpecialistStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		if b.Get([]byte(id)) == nil {
			return errno.ErrSpecialistNotFound
		}
		return b.Delete([]byte(id))
	})
}

func (s *SpecialistStore) List(_ context.Context) ([]*entity.Specialist, error) {
	var sps []*entity.Specialist
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSpecialistStore)
		return b.ForEach(func(k, v []byte) error {
			var sp entity.Specialist
			if err := json.Unmarshal(v, &sp); err != nil {
				return fmt.Errorf("failed to unmarshal specialist: %w", err)
			}
			sps = append(sps, &sp)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list specialists: %w", err)
	}
	sort.Slice(sps, func(i, j int) bool {
		return sps[i].CreatedAt.Before(sps[j].CreatedAt)
	})
	return sps, nil
}
