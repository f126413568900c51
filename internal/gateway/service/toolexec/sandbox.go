package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clinicore/clinicore/pkg/utils/json"
)

// harness loads the tool body, resolves the declared entrypoint by name,
// invokes it with the supplied keyword arguments (awaiting coroutines), and
// prints exactly one result envelope on stdout. It distinguishes a missing
// entrypoint from a raised one so the caller can classify the failure.
const harness = `import asyncio, inspect, json, sys

def emit(obj):
    sys.stdout.write(json.dumps(obj))
    sys.stdout.flush()

def main():
    src, entry = sys.argv[1], sys.argv[2]
    args = json.load(sys.stdin)
    ns = {}
    try:
        with open(src) as f:
            code = f.read()
        exec(compile(code, "tool", "exec"), ns)
    except Exception as exc:
        emit({"status": "error", "error": "tool code failed to load: %s: %s" % (type(exc).__name__, exc)})
        return
    fn = ns.get(entry)
    if not callable(fn):
        emit({"status": "error", "error": "no entry point found: %r is not defined or not callable" % entry})
        return
    try:
        out = fn(**args)
        if inspect.iscoroutine(out):
            out = asyncio.run(out)
    except Exception as exc:
        emit({"status": "error", "error": "entry point raised: %s: %s" % (type(exc).__name__, exc)})
        return
    emit({"status": "success", "result": str(out)})

main()
`

// runFunction executes the tool body in an isolated interpreter subprocess.
// The process runs with -I (no user site, no inherited PYTHONPATH), a
// scrubbed environment, and a throwaway working directory, and is killed at
// the function timeout.
func (e *Executor) runFunction(ctx context.Context, code, entrypoint string, args map[string]any) Envelope {
	dir, err := os.MkdirTemp("", "clinicore-tool-*")
	if err != nil {
		return errorEnvelope(fmt.Sprintf("failed to prepare sandbox: %v", err))
	}
	defer os.RemoveAll(dir)

	toolPath := filepath.Join(dir, "tool.py")
	if err := os.WriteFile(toolPath, []byte(code), 0600); err != nil {
		return errorEnvelope(fmt.Sprintf("failed to prepare sandbox: %v", err))
	}
	runnerPath := filepath.Join(dir, "runner.py")
	if err := os.WriteFile(runnerPath, []byte(harness), 0600); err != nil {
		return errorEnvelope(fmt.Sprintf("failed to prepare sandbox: %v", err))
	}

	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return errorEnvelope(fmt.Sprintf("failed to encode arguments: %v", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, e.opts.FunctionTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.opts.PythonBin, "-I", runnerPath, toolPath, entrypoint)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + dir,
		"LC_ALL=C",
	}
	cmd.Stdin = bytes.NewReader(argsJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return errorEnvelope(fmt.Sprintf("tool execution timeout after %s", e.opts.FunctionTimeout))
	}

	// The harness prints an envelope on every handled path; anything else
	// means the interpreter itself failed.
	var env Envelope
	if jsonErr := json.Unmarshal(stdout.Bytes(), &env); jsonErr == nil && env.Status != "" {
		return env
	}
	if runErr != nil {
		return errorEnvelope(fmt.Sprintf("tool runtime failed: %v: %s", runErr, excerpt(stderr.String(), 500)))
	}
	return errorEnvelope("tool runtime produced no result: " + excerpt(stdout.String(), 500))
}

// excerpt trims s to at most n characters.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
