package entity

import (
	"time"
)

// Specialist is a secondary agent the primary assistant consults for
// delegated input (cardiology, pharmacology, ...).
//
// Templates form a one-level tree: a template is cloned into concrete
// specialists that reference it through ParentTemplateID. The reference is
// a plain foreign key, never an object back-reference, so no cycle can form.
type Specialist struct {
	// ID is the unique specialist identifier.
	ID string `json:"id"`

	// Name is the unique display name cited in consultation reports.
	Name string `json:"name"`

	// Role is the specialty key (e.g. "cardiology").
	Role string `json:"role"`

	// Description is shown to the primary agent in the decision context.
	Description string `json:"description,omitempty"`

	// SystemPrompt is the specialist's own system prompt.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Enabled controls whether the specialist appears in the decision
	// context and may be consulted.
	Enabled bool `json:"enabled"`

	// IsTemplate marks this record as a clonable template.
	IsTemplate bool `json:"is_template"`

	// ParentTemplateID references the template this specialist was cloned
	// from. Empty for templates and hand-created specialists.
	ParentTemplateID string `json:"parent_template_id,omitempty"`

	// CreatedAt is when this specialist was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this specialist was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}
