package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/pkg/logger"
)

// SpecialistRuntime produces one specialist's answer to a consultation.
type SpecialistRuntime interface {
	Consult(ctx context.Context, sp *entity.Specialist, message string) (string, error)
}

// Coordinator delegates questions to specialists under a bounded timeout and
// renders every outcome as exactly one well-formed report. The three report
// variants (success, timeout, failure) are textually distinct and never
// partially written.
type Coordinator struct {
	runtime SpecialistRuntime
	spRepo  repo.SpecialistRepository
	timeout time.Duration

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewCoordinator creates a Coordinator. A non-positive timeout defaults to
// 60 seconds.
func NewCoordinator(runtime SpecialistRuntime, spRepo repo.SpecialistRepository, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Coordinator{
		runtime:  runtime,
		spRepo:   spRepo,
		timeout:  timeout,
		inFlight: make(map[string]*sync.Mutex),
	}
}

// specialistLock serializes consultations per specialist: at most one
// outstanding consultation per specialist at any time.
func (c *Coordinator) specialistLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.inFlight[id]
	if !ok {
		l = &sync.Mutex{}
		c.inFlight[id] = l
	}
	return l
}

// Consult runs one consultation and returns the report. The error return is
// always nil for a resolved specialist: timeouts and runtime failures are
// folded into the report text so the enclosing turn is never aborted.
func (c *Coordinator) Consult(ctx context.Context, sp *entity.Specialist, message string) string {
	l := c.specialistLock(sp.ID)
	l.Lock()
	defer l.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		content string
		err     error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("specialist runtime panic: %v", r)}
			}
		}()
		content, err := c.runtime.Consult(runCtx, sp, message)
		ch <- outcome{content: content, err: err}
	}()

	select {
	case <-runCtx.Done():
		// runCtx expires on the consultation budget, but also whenever the
		// enclosing turn is canceled; only the former is a timeout.
		if err := runCtx.Err(); !errors.Is(err, context.DeadlineExceeded) {
			logger.WarnX(pkg.ModuleName, "[Coordinator] consultation with %s canceled: %v", sp.Name, err)
			return fmt.Sprintf("CONSULTATION WITH SPECIALIST **%s** FAILED: %s consultation error: %v", sp.Name, sp.Role, err)
		}
		logger.WarnX(pkg.ModuleName, "[Coordinator] consultation with %s timed out after %s", sp.Name, c.timeout)
		return fmt.Sprintf("CONSULTATION WITH SPECIALIST **%s** TIMED OUT after %s; no report was produced.", sp.Name, c.timeout)
	case out := <-ch:
		if out.err != nil {
			logger.WarnX(pkg.ModuleName, "[Coordinator] consultation with %s failed: %v", sp.Name, out.err)
			return fmt.Sprintf("CONSULTATION WITH SPECIALIST **%s** FAILED: %s consultation error: %v", sp.Name, sp.Role, out.err)
		}
		return fmt.Sprintf("REPORT FROM SPECIALIST **%s**: %s", sp.Name, out.content)
	}
}

// ConsultByName resolves the specialist and consults it.
func (c *Coordinator) ConsultByName(ctx context.Context, name, message string) (string, error) {
	sp, err := c.spRepo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return c.Consult(ctx, sp, message), nil
}

// DecisionContext assembles the delegation context shown to the primary
// agent: every enabled specialist's name, role key, and description in
// registration order, or an explicit notice when none exist.
func (c *Coordinator) DecisionContext(ctx context.Context) (string, error) {
	sps, err := c.spRepo.List(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, sp := range sps {
		if !sp.Enabled || sp.IsTemplate {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", sp.Name, sp.Role, sp.Description)
	}
	if b.Len() == 0 {
		return "no specialists available", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
