package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg/errno"
	"github.com/clinicore/clinicore/pkg/logger"
)

// ToolPatch is a partial tool update. Nil fields are left untouched.
type ToolPatch struct {
	Name                 *string
	Symbol               *string
	Code                 *string
	Entrypoint           *string
	APIEndpoint          *string
	RequestSchema        *string
	ResponseSchema       *string
	Examples             *string
	Description          *string
	Scope                *entity.ToolScope
	Enabled              *bool
	TestPassed           *bool
	AssignedSpecialistID *string
}

// ToolUpdateResult reports the applied update. AutoDisabled flags the case
// where an edit invalidated the test of a previously enabled tool and the
// gate demoted it instead of rejecting the update.
type ToolUpdateResult struct {
	Tool         *entity.Tool
	AutoDisabled bool
}

// ToolGate validates and mutates tool definitions. It is the single write
// path for tools and enforces the enabling invariant: a tool may only be
// enabled while its current definition has a passed test.
type ToolGate struct {
	toolRepo repo.ToolRepository
}

// NewToolGate creates a ToolGate.
func NewToolGate(toolRepo repo.ToolRepository) *ToolGate {
	return &ToolGate{toolRepo: toolRepo}
}

// Create validates and stores a new tool definition.
func (g *ToolGate) Create(ctx context.Context, tool *entity.Tool) (*entity.Tool, error) {
	if strings.TrimSpace(tool.Name) == "" || strings.TrimSpace(tool.Symbol) == "" {
		return nil, errno.ErrMissingInput
	}
	if !tool.Type.Valid() {
		return nil, errno.ErrInvalidEnum
	}
	if tool.Scope == "" {
		tool.Scope = entity.ToolScopeGlobal
	}
	if !tool.Scope.Valid() {
		return nil, errno.ErrInvalidEnum
	}
	if !tool.HasPayload() {
		return nil, errno.ErrMissingPayload
	}
	if tool.Type == entity.ToolTypeFunction && strings.TrimSpace(tool.Entrypoint) == "" {
		return nil, errno.ErrNoEntrypoint
	}
	if tool.Enabled && !tool.TestPassed {
		return nil, errno.ErrInvariantViolation
	}

	// Name uniqueness is checked before symbol uniqueness.
	if err := g.checkDuplicateName(ctx, tool.Name, ""); err != nil {
		return nil, err
	}
	if err := g.checkDuplicateSymbol(ctx, tool.Symbol, ""); err != nil {
		return nil, err
	}

	if tool.ID == "" {
		tool.ID = uuid.New().String()
	}
	now := time.Now()
	tool.CreatedAt = now
	tool.UpdatedAt = now
	if err := g.toolRepo.Create(ctx, tool); err != nil {
		return nil, err
	}
	logger.InfoX(pkg.ModuleName, "[ToolGate] created tool %s (%s)", tool.Name, tool.Symbol)
	return tool, nil
}

// Update applies a partial update under the gate rules:
//   - an edit to code or api_endpoint invalidates the prior test result
//     unless the patch itself asserts test_passed=true;
//   - an explicit enable request while the test is not passed fails with
//     the invariant violation;
//   - an edit that silently breaks the invariant of an already enabled tool
//     demotes the tool to disabled, flagged on the result.
func (g *ToolGate) Update(ctx context.Context, id string, patch *ToolPatch) (*ToolUpdateResult, error) {
	tool, err := g.toolRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasEnabled := tool.Enabled

	if patch.Name != nil && *patch.Name != tool.Name {
		if err := g.checkDuplicateName(ctx, *patch.Name, id); err != nil {
			return nil, err
		}
		tool.Name = *patch.Name
	}
	if patch.Symbol != nil && *patch.Symbol != tool.Symbol {
		if err := g.checkDuplicateSymbol(ctx, *patch.Symbol, id); err != nil {
			return nil, err
		}
		tool.Symbol = *patch.Symbol
	}

	payloadEdited := false
	if patch.Code != nil && *patch.Code != tool.Code {
		tool.Code = *patch.Code
		payloadEdited = true
	}
	if patch.APIEndpoint != nil && *patch.APIEndpoint != tool.APIEndpoint {
		tool.APIEndpoint = *patch.APIEndpoint
		payloadEdited = true
	}
	if patch.Entrypoint != nil {
		tool.Entrypoint = *patch.Entrypoint
	}
	if patch.RequestSchema != nil {
		tool.RequestSchema = *patch.RequestSchema
	}
	if patch.ResponseSchema != nil {
		tool.ResponseSchema = *patch.ResponseSchema
	}
	if patch.Examples != nil {
		tool.Examples = *patch.Examples
	}
	if patch.Description != nil {
		tool.Description = *patch.Description
	}
	if patch.Scope != nil {
		if !patch.Scope.Valid() {
			return nil, errno.ErrInvalidEnum
		}
		tool.Scope = *patch.Scope
	}
	if patch.AssignedSpecialistID != nil {
		tool.AssignedSpecialistID = *patch.AssignedSpecialistID
	}
	if patch.TestPassed != nil {
		tool.TestPassed = *patch.TestPassed
	} else if payloadEdited {
		// The prior test result no longer covers the edited definition.
		tool.TestPassed = false
	}
	if patch.Enabled != nil {
		tool.Enabled = *patch.Enabled
	}
	if !tool.HasPayload() {
		return nil, errno.ErrMissingPayload
	}
	if tool.Type == entity.ToolTypeFunction && strings.TrimSpace(tool.Entrypoint) == "" {
		return nil, errno.ErrNoEntrypoint
	}

	autoDisabled := false
	if tool.Enabled && !tool.TestPassed {
		if patch.Enabled != nil && *patch.Enabled {
			// The caller explicitly asked to enable an untested tool.
			return nil, errno.ErrInvariantViolation
		}
		// The tool was enabled before the edit invalidated its test;
		// demote rather than reject.
		tool.Enabled = false
		autoDisabled = wasEnabled
		logger.WarnX(pkg.ModuleName, "[ToolGate] tool %s auto-disabled: edit invalidated its test", tool.Symbol)
	}

	tool.UpdatedAt = time.Now()
	if err := g.toolRepo.Update(ctx, tool); err != nil {
		return nil, err
	}
	return &ToolUpdateResult{Tool: tool, AutoDisabled: autoDisabled}, nil
}

// MarkTested records the outcome of a test run against the current
// definition.
func (g *ToolGate) MarkTested(ctx context.Context, id string, passed bool) (*entity.Tool, error) {
	tool, err := g.toolRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tool.TestPassed = passed
	if !passed && tool.Enabled {
		tool.Enabled = false
		logger.WarnX(pkg.ModuleName, "[ToolGate] tool %s auto-disabled: test failed", tool.Symbol)
	}
	tool.UpdatedAt = time.Now()
	if err := g.toolRepo.Update(ctx, tool); err != nil {
		return nil, err
	}
	return tool, nil
}

// Delete removes a tool definition, including its specialist assignment.
func (g *ToolGate) Delete(ctx context.Context, id string) error {
	if _, err := g.toolRepo.Get(ctx, id); err != nil {
		return err
	}
	return g.toolRepo.Delete(ctx, id)
}

// Get retrieves one tool.
func (g *ToolGate) Get(ctx context.Context, id string) (*entity.Tool, error) {
	return g.toolRepo.Get(ctx, id)
}

// List returns all tools.
func (g *ToolGate) List(ctx context.Context) ([]*entity.Tool, error) {
	return g.toolRepo.List(ctx)
}

func (g *ToolGate) checkDuplicateName(ctx context.Context, name, selfID string) error {
	existing, err := g.toolRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, errno.ErrToolNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return errno.ErrDuplicateName
	}
	return nil
}

func (g *ToolGate) checkDuplicateSymbol(ctx context.Context, symbol, selfID string) error {
	existing, err := g.toolRepo.GetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, errno.ErrToolNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return errno.ErrDuplicateSymbol
	}
	return nil
}
