package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/logger"
)

// SpecialistService manages the specialist registry: CRUD plus cloning a
// template into a concrete specialist.
type SpecialistService struct {
	spRepo repo.SpecialistRepository
}

// NewSpecialistService creates a SpecialistService.
func NewSpecialistService(spRepo repo.SpecialistRepository) *SpecialistService {
	return &SpecialistService{spRepo: spRepo}
}

// Create registers a new specialist or template.
func (s *SpecialistService) Create(ctx context.Context, sp *entity.Specialist) (*entity.Specialist, error) {
	if strings.TrimSpace(sp.Name) == "" || strings.TrimSpace(sp.Role) == "" {
		return nil, errno.ErrMissingInput
	}
	if err := s.checkDuplicateName(ctx, sp.Name, ""); err != nil {
		return nil, err
	}
	if sp.ParentTemplateID != "" {
		parent, err := s.spRepo.Get(ctx, sp.ParentTemplateID)
		if err != nil {
			return nil, err
		}
		if !parent.IsTemplate {
			return nil, errno.ErrInvalidEnum
		}
	}

	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	now := time.Now()
	sp.CreatedAt = now
	sp.UpdatedAt = now
	if err := s.spRepo.Create(ctx, sp); err != nil {
		return nil, err
	}
	logger.InfoX(pkg.ModuleName, "[SpecialistService] registered specialist %s (%s)", sp.Name, sp.Role)
	return sp, nil
}

// CloneTemplate instantiates a concrete specialist from a template. The
// clone references its template through ParentTemplateID only; templates
// are one level deep, so clones never act as templates themselves.
func (s *SpecialistService) CloneTemplate(ctx context.Context, templateID, name string) (*entity.Specialist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errno.ErrMissingInput
	}
	tmpl, err := s.spRepo.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsTemplate {
		return nil, errno.ErrInvalidEnum
	}
	if err := s.checkDuplicateName(ctx, name, ""); err != nil {
		return nil, err
	}

	clone := &entity.Specialist{}
	if err := copier.CopyWithOption(clone, tmpl, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	now := time.Now()
	clone.ID = uuid.New().String()
	clone.Name = name
	clone.IsTemplate = false
	clone.ParentTemplateID = tmpl.ID
	clone.CreatedAt = now
	clone.UpdatedAt = now
	if err := s.spRepo.Create(ctx, clone); err != nil {
		return nil, err
	}
	logger.InfoX(pkg.ModuleName, "[SpecialistService] cloned template %s into %s", tmpl.Name, clone.Name)
	return clone, nil
}

// Get retrieves one specialist.
func (s *SpecialistService) Get(ctx context.Context, id string) (*entity.Specialist, error) {
	return s.spRepo.Get(ctx, id)
}

// Update persists edits to a specialist.
func (s *SpecialistService) Update(ctx context.Context, sp *entity.Specialist) (*entity.Specialist, error) {
	current, err := s.spRepo.Get(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	if sp.Name != current.Name {
		if err := s.checkDuplicateName(ctx, sp.Name, sp.ID); err != nil {
			return nil, err
		}
	}
	sp.CreatedAt = current.CreatedAt
	sp.UpdatedAt = time.Now()
	if err := s.spRepo.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Delete removes a specialist.
func (s *SpecialistService) Delete(ctx context.Context, id string) error {
	if _, err := s.spRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.spRepo.Delete(ctx, id)
}

// List returns all specialists in registration order.
func (s *SpecialistService) List(ctx context.Context) ([]*entity.Specialist, error) {
	return s.spRepo.List(ctx)
}

func (s *SpecialistService) checkDuplicateName(ctx context.Context, name, selfID string) error {
	existing, err := s.spRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, errno.ErrSpecialistNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return errno.ErrDuplicateName
	}
	return nil
}
