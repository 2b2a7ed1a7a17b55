package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	defaultTimeout = 2 * time.Minute
	baseRetryDelay = 500 * time.Millisecond
	maxRetryDelay  = 5 * time.Second
)

// Runner is the production Executor backed by os/exec.
type Runner struct {
	timeout time.Duration
	logger  hclog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds each Run invocation. Zero keeps the default.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger hclog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner returns a Runner with the default timeout.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout: defaultTimeout,
		logger:  hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, program string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running command", "program", program, "args", args)

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command %s timed out after %s", program, r.timeout)
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return "", &CommandError{
			Program:  program,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	// Launch failure: binary missing, not executable, etc.
	return "", fmt.Errorf("unable to launch %s: %w", program, err)
}

func (r *Runner) Spawn(ctx context.Context, program string, args ...string) (int, error) {
	cmd := exec.Command(program, args...)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("unable to spawn %s: %w", program, err)
	}

	pid := cmd.Process.Pid
	r.logger.Debug("spawned process", "program", program, "pid", pid)

	// Reap the child in the background so it never becomes a zombie; the
	// caller deliberately does not wait for it.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

func (r *Runner) RunIgnoringErrors(ctx context.Context, program string, args []string, ignore []string) (string, error) {
	out, err := r.Run(ctx, program, args...)
	if err == nil {
		return out, nil
	}
	if matchesIgnore(err, ignore) {
		r.logger.Debug("ignoring known command failure", "program", program, "error", err)
		return "", nil
	}
	return "", err
}

func (r *Runner) RunWithRetry(ctx context.Context, program string, args []string, maxRetries int) (string, error) {
	var lastErr error
	delay := baseRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}

		out, err := r.Run(ctx, program, args...)
		if err == nil {
			return out, nil
		}
		lastErr = err
		r.logger.Debug("command attempt failed", "program", program, "attempt", attempt+1, "error", err)
	}

	return "", fmt.Errorf("command %s failed after %d attempts: %w", program, maxRetries+1, lastErr)
}
