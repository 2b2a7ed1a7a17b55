// Package command abstracts external program execution so that device
// managers can be exercised against canned output in tests.
package command

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs external programs. Run and RunWithRetry may suspend the
// calling goroutine until the child exits; Spawn returns as soon as the
// process is scheduled and never waits for it.
type Executor interface {
	// Run executes the program and returns its captured stdout. A non-zero
	// exit status yields a *CommandError carrying exit code, stdout and
	// stderr; a program that cannot be launched yields the underlying
	// launch error.
	Run(ctx context.Context, program string, args ...string) (string, error)

	// Spawn starts a long-running process detached from the caller and
	// returns its PID immediately.
	Spawn(ctx context.Context, program string, args ...string) (int, error)

	// RunIgnoringErrors behaves like Run, except that a failure whose
	// stderr (or message) contains any of the ignore substrings is treated
	// as success with empty output. This models idempotent operations such
	// as booting an already-booted simulator.
	RunIgnoringErrors(ctx context.Context, program string, args []string, ignore []string) (string, error)

	// RunWithRetry retries Run up to maxRetries additional times with an
	// increasing bounded delay between attempts. Delays are cancelled with
	// the context.
	RunWithRetry(ctx context.Context, program string, args []string, maxRetries int) (string, error)
}

// CommandError is a failure raised by an external program.
type CommandError struct {
	Program  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed with exit code %d (stdout: %s) (stderr: %s)",
		e.Program, strings.Join(e.Args, " "), e.ExitCode,
		strings.TrimSpace(e.Stdout), strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error { return e.Err }

// matchesIgnore reports whether a failure should be absorbed given the
// configured ignore substrings.
func matchesIgnore(err error, ignore []string) bool {
	if err == nil || len(ignore) == 0 {
		return false
	}
	haystack := err.Error()
	if ce, ok := err.(*CommandError); ok {
		haystack = haystack + " " + ce.Stderr + " " + ce.Stdout
	}
	for _, pattern := range ignore {
		if pattern != "" && strings.Contains(haystack, pattern) {
			return true
		}
	}
	return false
}

// cacheKey normalizes a (program, args) pair into the ledger key shared by
// the mock executor and its tests.
func cacheKey(program string, args []string) string {
	return program + " " + strings.Join(args, " ")
}
