package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/forge-ai/forge-core/internal/backoff"
	"github.com/forge-ai/forge-core/internal/config"
)

// killGrace is the pause between SIGTERM and SIGKILL when a hook
// subprocess blows its timeout.
const killGrace = 2 * time.Second

// retryableExitCodes is the default set of exit codes the dispatcher
// treats as transient, in addition to spawn errors and timeouts.
var retryableExitCodes = map[int]bool{75: true} // EX_TEMPFAIL (sysexits.h)

// DispatchResult is one hook subprocess's outcome.
type DispatchResult struct {
	Name     string
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Attempts int
	Err      error
	DryRun   bool
}

// HookBlockedError is returned by Fire when a blocking hook on a
// pre:* event exits non-zero; the caller must abort the about-to-happen
// operation rather than treat this as an ordinary hook failure.
type HookBlockedError struct {
	Hook   string
	Event  string
	Result DispatchResult
}

func (e *HookBlockedError) Error() string {
	return fmt.Sprintf("hook %q blocked event %q (exit %d): %s", e.Hook, e.Event, e.Result.ExitCode, firstLine(e.Result.Stderr))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// Dispatcher fires lifecycle events (§4.4: session:start, tool:pre,
// agent:post, ...) to user-configured external commands. Each
// registered hook runs as its own child process, one invocation at a
// time per hook (queued behind a per-hook mutex) to prevent
// self-fork-bombing, fed the event payload as compact JSON on stdin.
type Dispatcher struct {
	logger *slog.Logger
	dryRun bool

	mu    sync.RWMutex
	hooks []config.HookDefinition
	locks map[string]*sync.Mutex

	defaultTimeout time.Duration
	envDenylist    []string
}

// alwaysDeniedEnv is stripped from every hook subprocess's environment
// regardless of config, per §4.4's "dangerous variables rejected".
var alwaysDeniedEnv = []string{"LD_PRELOAD", "LD_LIBRARY_PATH", "PYTHONPATH", "DYLD_INSERT_LIBRARIES", "DYLD_LIBRARY_PATH"}

// NewDispatcher builds a Dispatcher from configuration. dryRun, when
// true, makes Fire compute the commands that would run and return them
// without executing anything.
func NewDispatcher(cfg config.HookConfig, logger *slog.Logger, dryRun bool) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		logger:         logger.With("component", "hook-dispatcher"),
		dryRun:         dryRun,
		hooks:          append([]config.HookDefinition(nil), cfg.Hooks...),
		locks:          make(map[string]*sync.Mutex),
		defaultTimeout: time.Duration(cfg.DefaultTimeoutMs) * time.Millisecond,
		envDenylist:    cfg.EnvDenylist,
	}
	if d.defaultTimeout <= 0 {
		d.defaultTimeout = 5 * time.Second
	}
	for _, h := range d.hooks {
		d.locks[h.Name] = &sync.Mutex{}
	}
	return d
}

// matches reports whether a hook's event pattern matches the fired
// event name. A pattern ending in "*" matches by prefix; otherwise it
// is matched literally or, if it starts with "^", as a regex-free
// glob-of-one (anchors are accepted but treated the same as literal
// since event names contain no regex metacharacters worth compiling
// for).
func matchesEvent(pattern, event string) bool {
	pattern = strings.TrimPrefix(pattern, "^")
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(event, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == event
}

// Fire runs every hook whose Event pattern matches event, each against
// payload marshalled to JSON on stdin. Hooks run concurrently with
// respect to each other (each serialized against its own prior
// invocation only). If a blocking hook registered against a pre:*-style
// event exits non-zero after retries, Fire returns a *HookBlockedError
// immediately; non-blocking failures and failures on post-events are
// returned in the result slice but never as the error return.
func (d *Dispatcher) Fire(ctx context.Context, event string, payload any) ([]DispatchResult, error) {
	d.mu.RLock()
	var matched []config.HookDefinition
	for _, h := range d.hooks {
		if matchesEvent(h.Event, event) {
			matched = append(matched, h)
		}
	}
	d.mu.RUnlock()

	if len(matched) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hooks: marshal payload for event %q: %w", event, err)
	}

	results := make([]DispatchResult, 0, len(matched))
	for _, h := range matched {
		res := d.runOne(ctx, h, event, body)
		results = append(results, res)
		if h.Blocking && res.Err != nil && res.ExitCode != 0 {
			return results, &HookBlockedError{Hook: h.Name, Event: event, Result: res}
		}
	}
	return results, nil
}

// DryRunCommands reports the commands Fire would execute for event
// without running any of them.
func (d *Dispatcher) DryRunCommands(event string) [][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out [][]string
	for _, h := range d.hooks {
		if matchesEvent(h.Event, event) {
			out = append(out, append([]string(nil), h.Command...))
		}
	}
	return out
}

func (d *Dispatcher) runOne(ctx context.Context, h config.HookDefinition, event string, body []byte) DispatchResult {
	if d.dryRun {
		return DispatchResult{Name: h.Name, Command: h.Command, DryRun: true}
	}

	d.mu.RLock()
	lock := d.locks[h.Name]
	d.mu.RUnlock()
	if lock == nil {
		lock = &sync.Mutex{}
	}
	lock.Lock()
	defer lock.Unlock()

	timeout := time.Duration(h.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	maxAttempts := h.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last DispatchResult
	retryResult, retryErr := backoff.RetryWithBackoff(ctx, backoff.DefaultPolicy(), maxAttempts, func(attempt int) (DispatchResult, error) {
		res := d.exec(ctx, h, event, body, timeout)
		res.Attempts = attempt
		last = res
		if res.Err != nil && isRetryable(res) {
			return res, res.Err
		}
		return res, nil
	})
	if retryErr != nil && retryErr != backoff.ErrMaxAttemptsExhausted {
		// context cancelled mid-retry
		last.Err = retryErr
		return last
	}
	return retryResult.Value
}

func isRetryable(res DispatchResult) bool {
	if res.ExitCode == -1 {
		return true // spawn error or timeout
	}
	return retryableExitCodes[res.ExitCode]
}

func (d *Dispatcher) exec(ctx context.Context, h config.HookDefinition, event string, body []byte, timeout time.Duration) DispatchResult {
	if len(h.Command) == 0 {
		return DispatchResult{Name: h.Name, Err: fmt.Errorf("hook %q: empty command", h.Name), ExitCode: -1}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, h.Command[0], h.Command[1:]...)
	cmd.Env = sanitizeEnv(os.Environ(), d.envDenylist)
	cmd.Env = append(cmd.Env, "FORGE_HOOK_EVENT="+event)
	if denied := h.DeniedEnvOverrides(d.envDenylist); len(denied) > 0 {
		d.logger.Warn("hook env override rejected", "hook", h.Name, "vars", denied)
	}
	cmd.Env = append(cmd.Env, sanitizeEnv(h.Env, d.envDenylist)...)
	cmd.Dir = h.WorkingDir
	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Start()
	if err != nil {
		return DispatchResult{Name: h.Name, Command: h.Command, Err: fmt.Errorf("spawn: %w", err), ExitCode: -1, Duration: time.Since(start)}
	}

	waitErr := cmd.Wait()
	dur := time.Since(start)

	res := DispatchResult{
		Name:     h.Name,
		Command:  h.Command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: dur,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		res.Err = fmt.Errorf("hook %q timed out after %s", h.Name, timeout)
		return res
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		res.Err = waitErr
		return res
	}

	res.ExitCode = 0
	return res
}

// sanitizeEnv strips denylisted variable names/prefixes plus the
// always-dangerous set from env, returning a fresh slice.
func sanitizeEnv(env []string, denylist []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if isDenied(name, denylist) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isDenied(name string, denylist []string) bool {
	for _, d := range alwaysDeniedEnv {
		if strings.HasPrefix(name, d) {
			return true
		}
	}
	for _, d := range denylist {
		if strings.HasPrefix(name, d) {
			return true
		}
	}
	return false
}

// WorkingDirOrDefault resolves a hook's working directory, falling back
// to dir when the hook does not specify one of its own.
func WorkingDirOrDefault(hookDir, dir string) string {
	if hookDir == "" {
		return dir
	}
	if filepath.IsAbs(hookDir) {
		return hookDir
	}
	return filepath.Join(dir, hookDir)
}
