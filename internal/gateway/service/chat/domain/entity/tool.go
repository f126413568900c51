package entity

import (
	"strings"
	"time"
)

// ToolType distinguishes inline-code tools from remote API tools.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
	ToolTypeAPI      ToolType = "api"
)

// Valid reports whether the value is a known tool type.
func (t ToolType) Valid() bool {
	return t == ToolTypeFunction || t == ToolTypeAPI
}

// ToolScope controls whether a tool is available to every agent or only to
// the specialist it is assigned to.
type ToolScope string

const (
	ToolScopeGlobal     ToolScope = "global"
	ToolScopeAssignable ToolScope = "assignable"
)

// Valid reports whether the value is a known tool scope.
func (s ToolScope) Valid() bool {
	return s == ToolScopeGlobal || s == ToolScopeAssignable
}

// Tool is a user-defined tool definition guarded by the gate invariant:
// a tool may only be enabled after its current definition passed a test run
// (Enabled ⇒ TestPassed, enforced on every create and update).
type Tool struct {
	// ID is the unique tool identifier.
	ID string `json:"id"`

	// Name is the globally unique display name.
	Name string `json:"name"`

	// Symbol is the globally unique invocation symbol exposed to the agent.
	Symbol string `json:"symbol"`

	// Type selects code execution or remote API invocation.
	Type ToolType `json:"tool_type"`

	// Code is the tool body for function tools.
	Code string `json:"code,omitempty"`

	// Entrypoint names the callable inside Code the sandbox invokes.
	// Function tools must declare it; discovery by position is not supported.
	Entrypoint string `json:"entrypoint,omitempty"`

	// APIEndpoint is the remote URL for api tools.
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// RequestSchema documents the expected request payload for api tools.
	RequestSchema string `json:"request_schema,omitempty"`

	// ResponseSchema documents the expected response for api tools.
	ResponseSchema string `json:"response_schema,omitempty"`

	// Examples holds example invocations shown to the agent.
	Examples string `json:"examples,omitempty"`

	// Description is the agent-facing summary of what the tool does.
	Description string `json:"description,omitempty"`

	// Scope is global or assignable.
	Scope ToolScope `json:"scope"`

	// Enabled marks the tool as available for invocation.
	Enabled bool `json:"enabled"`

	// TestPassed records that the current definition passed a test run.
	// Invalidated whenever Code or APIEndpoint changes.
	TestPassed bool `json:"test_passed"`

	// AssignedSpecialistID binds an assignable tool to one specialist.
	AssignedSpecialistID string `json:"assigned_specialist_id,omitempty"`

	// CreatedAt is when this tool was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this tool was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// PayloadFor returns the executable payload for the tool's type: the code
// body for function tools, the endpoint for api tools.
func (t *Tool) PayloadFor() string {
	if t.Type == ToolTypeFunction {
		return t.Code
	}
	return t.APIEndpoint
}

// HasPayload reports whether the type-specific required field is present.
func (t *Tool) HasPayload() bool {
	return strings.TrimSpace(t.PayloadFor()) != ""
}

// ToolCall is the agent's request to invoke a tool during a turn.
type ToolCall struct {
	// ID is the unique identifier for the tool call.
	ID string `json:"id"`
	// Symbol is the tool symbol to invoke.
	Symbol string `json:"symbol"`
	// Arguments is the JSON object of call arguments.
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of one tool call, as fed back to the agent.
type ToolResult struct {
	// ToolCallID is the call this result corresponds to.
	ToolCallID string `json:"tool_call_id"`
	// Symbol is the tool symbol that was invoked.
	Symbol string `json:"symbol"`
	// Content is the stringified tool output.
	Content string `json:"content"`
	// Error is the classified failure message, if the call failed.
	Error string `json:"error,omitempty"`
}
