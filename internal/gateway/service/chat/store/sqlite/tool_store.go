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

// ToolStore is a sqlite-backed store for tool definitions.
type ToolStore struct {
	db *sql.DB
}

// NewToolStore creates a new ToolStore.
func NewToolStore(db *DB) *ToolStore {
	return &ToolStore{db: db.SQL()}
}

func (s *ToolStore) Create(ctx context.Context, tool *entity.Tool) error {
	body, err := json.MarshalString(tool)
	if err != nil {
		return fmt.Errorf("failed to marshal tool: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tools (id, name, symbol, created_at, body) VALUES (?, ?, ?, ?, ?)`,
		tool.ID, tool.Name, tool.Symbol, tool.CreatedAt, body)
	if err != nil {
		return fmt.Errorf("failed to insert tool: %w", err)
	}
	return nil
}

func (s *ToolStore) Get(ctx context.Context, id string) (*entity.Tool, error) {
	return s.queryOne(ctx, `SELECT body FROM tools WHERE id = ?`, id)
}

func (s *ToolStore) GetByName(ctx context.Context, name string) (*entity.Tool, error) {
	return s.queryOne(ctx, `SELECT body FROM tools WHERE name = ?`, name)
}

func (s *ToolStore) GetBySymbol(ctx context.Context, symbol string) (*entity.Tool, error) {
	return s.queryOne(ctx, `SELECT body FROM tools WHERE symbol = ?`, symbol)
}

func (s *ToolStore) queryOne(ctx context.Context, query, arg string) (*entity.Tool, error) {
	var body string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errno.ErrToolNotFound
		}
		return nil, fmt.Errorf("failed to query tool: %w", err)
	}
	var tool entity.Tool
	if err := json.UnmarshalString(body, &tool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool: %w", err)
	}
	return &tool, nil
}

func (s *ToolStore) Update(ctx context.Context, tool *entity.Tool) error {
	body, err := json.MarshalString(tool)
	if err != nil {
		return fmt.Errorf("failed to marshal tool: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tools SET name = ?, symbol = ?, body = ? WHERE id = ?`,
		tool.Name, tool.Symbol, body, tool.ID)
	if err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return errno.ErrToolNotFound
	}
	return nil
}

func (s *ToolStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return errno.ErrToolNotFound
	}
	return nil
}

func (s *ToolStore) List(ctx context.Context) ([]*entity.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM tools ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var tools []*entity.Tool
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan tool row: %w", err)
		}
		var t entity.Tool
		if err := json.UnmarshalString(body, &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool: %w", err)
		}
		tools = append(tools, &t)
	}
	return tools, rows.Err()
}
