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

// SpecialistStore is a sqlite-backed store for specialists. List order
// follows rowid, which is insertion (registration) order.
type SpecialistStore struct {
	db *sql.DB
}

// NewSpecialistStore creates a new SpecialistStore.
func NewSpecialistStore(db *DB) *SpecialistStore {
	return &SpecialistStore{db: db.SQL()}
}

func (s *SpecialistStore) Create(ctx context.Context, sp *entity.Specialist) error {
	body, err := json.MarshalString(sp)
	if err != nil {
		return fmt.Errorf("failed to marshal specialist: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO specialists (id, name, created_at, body) VALUES (?, ?, ?, ?)`,
		sp.ID, sp.Name, sp.CreatedAt, body)
	if err != nil {
		return fmt.Errorf("failed to insert specialist: %w", err)
	}
	return nil
}

func (s *SpecialistStore) Get(ctx context.Context, id string) (*entity.Specialist, error) {
	return s.queryOne(ctx, `SELECT body FROM specialists WHERE id = ?`, id)
}

func (s *SpecialistStore) GetByName(ctx context.Context, name string) (*entity.Specialist, error) {
	return s.queryOne(ctx, `SELECT body FROM specialists WHERE name = ?`, name)
}

func (s *SpecialistStore) queryOne(ctx context.Context, query, arg string) (*entity.Specialist, error) {
	var body string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errno.ErrSpecialistNotFound
		}
		return nil, fmt.Errorf("failed to query specialist: %w", err)
	}
	var sp entity.Specialist
	if err := json.UnmarshalString(body, &sp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal specialist: %w", err)
	}
	return &sp, nil
}

func (s *SpecialistStore) Update(ctx context.Context, sp *entity.Specialist) error {
	body, err := json.MarshalString(sp)
	if err != nil {
		return fmt.Errorf("failed to marshal specialist: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE specialists SET name = ?, body = ? WHERE id = ?`, sp.Name, body, sp.ID)
	if err != nil {
		return fmt.Errorf("failed to update specialist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return errno.ErrSpecialistNotFound
	}
	return nil
}

func (s *SpecialistStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM specialists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete specialist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return errno.ErrSpecialistNotFound
	}
	return nil
}

func (s *SpecialistStore) List(ctx context.Context) ([]*entity.Specialist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM specialists ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list specialists: %w", err)
	}
	defer rows.Close()

	var sps []*entity.Specialist
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan specialist row: %w", err)
		}
		var sp entity.Specialist
		if err := json.UnmarshalString(body, &sp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal specialist: %w", err)
		}
		sps = append(sps, &sp)
	}
	return sps, rows.Err()
}
