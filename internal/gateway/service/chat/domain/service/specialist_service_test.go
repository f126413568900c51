package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/store/inmemory"
)

func TestSpecialistCreateValidation(t *testing.T) {
	svc := NewSpecialistService(inmemory.NewSpecialistStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, &entity.Specialist{Role: "cardiology"}); !errors.Is(err, errno.ErrMissingInput) {
		t.Errorf("missing name = %v, want ErrMissingInput", err)
	}
	if _, err := svc.Create(ctx, &entity.Specialist{Name: "Cardio"}); !errors.Is(err, errno.ErrMissingInput) {
		t.Errorf("missing role = %v, want ErrMissingInput", err)
	}

	if _, err := svc.Create(ctx, &entity.Specialist{Name: "Cardio", Role: "cardiology"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, &entity.Specialist{Name: "Cardio", Role: "oncology"}); !errors.Is(err, errno.ErrDuplicateName) {
		t.Errorf("duplicate name = %v, want ErrDuplicateName", err)
	}
}

func TestSpecialistCloneTemplate(t *testing.T) {
	svc := NewSpecialistService(inmemory.NewSpecialistStore())
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, &entity.Specialist{
		Name:         "Consult Template",
		Role:         "generic",
		SystemPrompt: "You are a consulting specialist.",
		Enabled:      true,
		IsTemplate:   true,
	})
	if err != nil {
		t.Fatalf("Create template: %v", err)
	}

	clone, err := svc.CloneTemplate(ctx, tmpl.ID, "Pharma")
	if err != nil {
		t.Fatalf("CloneTemplate: %v", err)
	}
	if clone.ID == tmpl.ID {
		t.Error("clone shares the template's ID")
	}
	if clone.Name != "Pharma" {
		t.Errorf("clone name = %q", clone.Name)
	}
	if clone.IsTemplate {
		t.Error("clone must not be a template (one-level tree)")
	}
	if clone.ParentTemplateID != tmpl.ID {
		t.Errorf("parent link = %q, want %q", clone.ParentTemplateID, tmpl.ID)
	}
	if clone.SystemPrompt != tmpl.SystemPrompt {
		t.Errorf("prompt not inherited: %q", clone.SystemPrompt)
	}

	// Cloning a non-template is rejected.
	if _, err := svc.CloneTemplate(ctx, clone.ID, "Another"); !errors.Is(err, errno.ErrInvalidEnum) {
		t.Errorf("clone of non-template = %v, want ErrInvalidEnum", err)
	}
	// Clone names join the uniqueness space.
	if _, err := svc.CloneTemplate(ctx, tmpl.ID, "Pharma"); !errors.Is(err, errno.ErrDuplicateName) {
		t.Errorf("duplicate clone name = %v, want ErrDuplicateName", err)
	}
}

func TestSpecialistUpdatePreservesCreation(t *testing.T) {
	svc := NewSpecialistService(inmemory.NewSpecialistStore())
	ctx := context.Background()

	sp, err := svc.Create(ctx, &entity.Specialist{Name: "Cardio", Role: "cardiology"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := sp.CreatedAt

	sp.Description = "heart questions"
	updated, err := svc.Update(ctx, sp)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Error("update rewrote CreatedAt")
	}
	if !updated.UpdatedAt.After(created) && !updated.UpdatedAt.Equal(created) {
		t.Error("UpdatedAt not bumped")
	}
}

func TestSpecialistListRegistrationOrder(t *testing.T) {
	svc := NewSpecialistService(inmemory.NewSpecialistStore())
	ctx := context.Background()

	for _, name := range []string{"First", "Second", "Third"} {
		if _, err := svc.Create(ctx, &entity.Specialist{Name: name, Role: "generic"}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	sps, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make([]string, len(sps))
	for i, sp := range sps {
		got[i] = sp.Name
	}
	want := []string{"First", "Second", "Third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("registration order = %v, want %v", got, want)
		}
	}
}
