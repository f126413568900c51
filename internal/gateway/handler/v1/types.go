package v1

import (
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
)

// --- Chat ---

// DispatchRequest is the request body for POST /v1/chat.
type DispatchRequest struct {
	// SessionID selects the conversation; empty creates a new session.
	SessionID string `json:"session_id,omitempty"`

	// Input is the user message text.
	Input string `json:"input" binding:"required"`

	// Title seeds the session title when a new session is created.
	Title string `json:"title,omitempty"`
}

// --- Tools ---

// CreateToolRequest is the request body for POST /v1/tools.
type CreateToolRequest struct {
	Name                 string `json:"name" binding:"required"`
	Symbol               string `json:"symbol" binding:"required"`
	Type                 string `json:"tool_type" binding:"required"`
	Code                 string `json:"code,omitempty"`
	Entrypoint           string `json:"entrypoint,omitempty"`
	APIEndpoint          string `json:"api_endpoint,omitempty"`
	RequestSchema        string `json:"request_schema,omitempty"`
	ResponseSchema       string `json:"response_schema,omitempty"`
	Examples             string `json:"examples,omitempty"`
	Description          string `json:"description,omitempty"`
	Scope                string `json:"scope,omitempty"`
	Enabled              bool   `json:"enabled,omitempty"`
	TestPassed           bool   `json:"test_passed,omitempty"`
	AssignedSpecialistID string `json:"assigned_specialist_id,omitempty"`
}

// UpdateToolRequest is the request body for PATCH /v1/tools/:id. Absent
// fields are left untouched.
type UpdateToolRequest struct {
	Name                 *string `json:"name,omitempty"`
	Symbol               *string `json:"symbol,omitempty"`
	Code                 *string `json:"code,omitempty"`
	Entrypoint           *string `json:"entrypoint,omitempty"`
	APIEndpoint          *string `json:"api_endpoint,omitempty"`
	RequestSchema        *string `json:"request_schema,omitempty"`
	ResponseSchema       *string `json:"response_schema,omitempty"`
	Examples             *string `json:"examples,omitempty"`
	Description          *string `json:"description,omitempty"`
	Scope                *string `json:"scope,omitempty"`
	Enabled              *bool   `json:"enabled,omitempty"`
	TestPassed           *bool   `json:"test_passed,omitempty"`
	AssignedSpecialistID *string `json:"assigned_specialist_id,omitempty"`
}

// TestToolRequest is the request body for POST /v1/tools/:id/test.
type TestToolRequest struct {
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResponse is the API shape of a tool record.
type ToolResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Type                 string `json:"tool_type"`
	Code                 string `json:"code,omitempty"`
	Entrypoint           string `json:"entrypoint,omitempty"`
	APIEndpoint          string `json:"api_endpoint,omitempty"`
	RequestSchema        string `json:"request_schema,omitempty"`
	ResponseSchema       string `json:"response_schema,omitempty"`
	Examples             string `json:"examples,omitempty"`
	Description          string `json:"description,omitempty"`
	Scope                string `json:"scope"`
	Enabled              bool   `json:"enabled"`
	TestPassed           bool   `json:"test_passed"`
	AssignedSpecialistID string `json:"assigned_specialist_id,omitempty"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

func toToolResponse(t *entity.Tool) ToolResponse {
	return ToolResponse{
		ID:                   t.ID,
		Name:                 t.Name,
		Symbol:               t.Symbol,
		Type:                 string(t.Type),
		Code:                 t.Code,
		Entrypoint:           t.Entrypoint,
		APIEndpoint:          t.APIEndpoint,
		RequestSchema:        t.RequestSchema,
		ResponseSchema:       t.ResponseSchema,
		Examples:             t.Examples,
		Description:          t.Description,
		Scope:                string(t.Scope),
		Enabled:              t.Enabled,
		TestPassed:           t.TestPassed,
		AssignedSpecialistID: t.AssignedSpecialistID,
		CreatedAt:            FormatTime(t.CreatedAt),
		UpdatedAt:            FormatTime(t.UpdatedAt),
	}
}

// --- Specialists ---

// CreateSpecialistRequest is the request body for POST /v1/specialists.
type CreateSpecialistRequest struct {
	Name         string `json:"name" binding:"required"`
	Role         string `json:"role" binding:"required"`
	Description  string `json:"description,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Enabled      bool   `json:"enabled,omitempty"`
	IsTemplate   bool   `json:"is_template,omitempty"`
}

// UpdateSpecialistRequest is the request body for PUT /v1/specialists/:id.
type UpdateSpecialistRequest struct {
	Name         string `json:"name" binding:"required"`
	Role         string `json:"role" binding:"required"`
	Description  string `json:"description,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// CloneSpecialistRequest is the request body for POST /v1/specialists/:id/clone.
type CloneSpecialistRequest struct {
	Name string `json:"name" binding:"required"`
}

// SpecialistResponse is the API shape of a specialist record.
type SpecialistResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	Description      string `json:"description,omitempty"`
	SystemPrompt     string `json:"system_prompt,omitempty"`
	Enabled          bool   `json:"enabled"`
	IsTemplate       bool   `json:"is_template"`
	ParentTemplateID string `json:"parent_template_id,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toSpecialistResponse(sp *entity.Specialist) SpecialistResponse {
	return SpecialistResponse{
		ID:               sp.ID,
		Name:             sp.Name,
		Role:             sp.Role,
		Description:      sp.Description,
		SystemPrompt:     sp.SystemPrompt,
		Enabled:          sp.Enabled,
		IsTemplate:       sp.IsTemplate,
		ParentTemplateID: sp.ParentTemplateID,
		CreatedAt:        FormatTime(sp.CreatedAt),
		UpdatedAt:        FormatTime(sp.UpdatedAt),
	}
}

// --- Sessions ---

// SessionResponse is the API shape of a session record.
type SessionResponse struct {
	ID           string             `json:"id"`
	Title        string             `json:"title,omitempty"`
	Usage        *entity.TokenUsage `json:"usage,omitempty"`
	MessageCount int                `json:"message_count"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

func toSessionResponse(s *entity.ChatSession) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		Usage:     s.Usage,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
	}
}

// MessageResponse is the API shape of a message record.
type MessageResponse struct {
	ID            string             `json:"id"`
	SessionID     string             `json:"session_id"`
	Role          string             `json:"role"`
	Content       string             `json:"content"`
	Status        string             `json:"status"`
	TaskID        string             `json:"task_id,omitempty"`
	Logs          []string           `json:"logs,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	Usage         *entity.TokenUsage `json:"usage,omitempty"`
	CompletedAt   string             `json:"completed_at,omitempty"`
	LastUpdatedAt string             `json:"last_updated_at"`
	CreatedAt     string             `json:"created_at"`
}

func toMessageResponse(m *entity.ChatMessage) MessageResponse {
	resp := MessageResponse{
		ID:            m.ID,
		SessionID:     m.SessionID,
		Role:          string(m.Role),
		Content:       m.Content,
		Status:        string(m.Status),
		TaskID:        m.TaskID,
		Logs:          m.Logs,
		ErrorMessage:  m.ErrorMessage,
		Usage:         m.Usage,
		LastUpdatedAt: FormatTime(m.LastUpdatedAt),
		CreatedAt:     FormatTime(m.CreatedAt),
	}
	if m.CompletedAt != nil {
		resp.CompletedAt = FormatTime(*m.CompletedAt)
	}
	return resp
}

// FormatTime formats a time value for API responses.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
