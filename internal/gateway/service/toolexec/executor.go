// Package toolexec runs a single tool invocation and always reports the
// outcome as a well-formed result envelope. Faults are classified and
// recovered locally; no call path raises across the package boundary.
package toolexec

import (
	"context"
	"strings"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/pkg/logger"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform outcome of one tool invocation or test run.
// Exactly one of Result and Error is meaningful, selected by Status.
type Envelope struct {
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func successEnvelope(result string) Envelope {
	return Envelope{Status: StatusSuccess, Result: result}
}

func errorEnvelope(msg string) Envelope {
	return Envelope{Status: StatusError, Error: msg}
}

// Options bounds a single execution.
type Options struct {
	// FunctionTimeout caps one sandboxed code run.
	FunctionTimeout time.Duration
	// APITimeout caps one remote call.
	APITimeout time.Duration
	// PythonBin is the interpreter used for function tools.
	PythonBin string
}

func (o *Options) withDefaults() Options {
	out := Options{FunctionTimeout: 30 * time.Second, APITimeout: 30 * time.Second, PythonBin: "python3"}
	if o == nil {
		return out
	}
	if o.FunctionTimeout > 0 {
		out.FunctionTimeout = o.FunctionTimeout
	}
	if o.APITimeout > 0 {
		out.APITimeout = o.APITimeout
	}
	if o.PythonBin != "" {
		out.PythonBin = o.PythonBin
	}
	return out
}

// Executor dispatches a tool invocation to the runner matching its type.
type Executor struct {
	opts Options
}

// New creates an Executor. A nil opts selects the defaults.
func New(opts *Options) *Executor {
	return &Executor{opts: opts.withDefaults()}
}

// Test executes the tool against the given arguments and returns the result
// envelope. It never returns a Go error: every failure mode is classified
// into an error envelope.
func (e *Executor) Test(ctx context.Context, tool *entity.Tool, args map[string]any) Envelope {
	switch tool.Type {
	case entity.ToolTypeFunction:
		if strings.TrimSpace(tool.Code) == "" {
			return errorEnvelope("function tool has no code")
		}
		if strings.TrimSpace(tool.Entrypoint) == "" {
			return errorEnvelope("function tool does not declare an entrypoint")
		}
		env := e.runFunction(ctx, tool.Code, tool.Entrypoint, args)
		if env.Status == StatusError {
			logger.WarnX("toolexec", "function tool %s test failed: %s", tool.Symbol, env.Error)
		}
		return env
	case entity.ToolTypeAPI:
		if strings.TrimSpace(tool.APIEndpoint) == "" {
			return errorEnvelope("api tool has no endpoint")
		}
		env := e.callAPI(ctx, tool.APIEndpoint, args)
		if env.Status == StatusError {
			logger.WarnX("toolexec", "api tool %s test failed: %s", tool.Symbol, env.Error)
		}
		return env
	default:
		return errorEnvelope("unknown tool type: " + string(tool.Type))
	}
}
