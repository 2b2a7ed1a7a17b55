package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotConfigured marks a mock invocation with no canned response. It is a
// distinct sentinel so tests never mistake a missing fixture for a real
// command failure.
var ErrNotConfigured = errors.New("no mock response configured")

type mockResponse struct {
	output string
	err    error
	delay  time.Duration
}

// Call is one recorded mock invocation.
type Call struct {
	Program string
	Args    []string
	At      time.Time
}

// MockExecutor is a deterministic Executor substitute keyed by the exact
// (program, joined args) pair. Every call is recorded for later assertions;
// unmatched invocations fail loudly.
type MockExecutor struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	spawns    map[string]int
	history   []Call
}

// NewMockExecutor returns an empty mock.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		responses: make(map[string]mockResponse),
		spawns:    make(map[string]int),
	}
}

// WithSuccess configures stdout for an exact invocation.
func (m *MockExecutor) WithSuccess(program string, args []string, output string) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cacheKey(program, args)] = mockResponse{output: output}
	return m
}

// WithError configures a failure for an exact invocation.
func (m *MockExecutor) WithError(program string, args []string, message string) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cacheKey(program, args)] = mockResponse{err: errors.New(message)}
	return m
}

// WithCommandError configures a full *CommandError failure, for tests that
// assert on exit codes or stderr-based ignore patterns.
func (m *MockExecutor) WithCommandError(program string, args []string, exitCode int, stderr string) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cacheKey(program, args)] = mockResponse{err: &CommandError{
		Program:  program,
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}}
	return m
}

// WithSpawn configures the PID returned for a spawned invocation.
func (m *MockExecutor) WithSpawn(program string, args []string, pid int) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawns[cacheKey(program, args)] = pid
	return m
}

// WithDelay adds an artificial delay before an already-configured response
// is returned.
func (m *MockExecutor) WithDelay(program string, args []string, d time.Duration) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cacheKey(program, args)
	resp := m.responses[key]
	resp.delay = d
	m.responses[key] = resp
	return m
}

// Clear resets all configured responses and the call history, isolating
// test scenarios from one another.
func (m *MockExecutor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = make(map[string]mockResponse)
	m.spawns = make(map[string]int)
	m.history = nil
}

// History returns a copy of every recorded call in order.
func (m *MockExecutor) History() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.history))
	copy(out, m.history)
	return out
}

// Calls returns how many times the exact invocation was made.
func (m *MockExecutor) Calls(program string, args []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.history {
		if cacheKey(c.Program, c.Args) == cacheKey(program, args) {
			n++
		}
	}
	return n
}

func (m *MockExecutor) record(program string, args []string) {
	copied := make([]string, len(args))
	copy(copied, args)
	m.history = append(m.history, Call{Program: program, Args: copied, At: time.Now()})
}

// lookup resolves a response for the full key, falling back to the program
// basename so managers configured with absolute tool paths still match
// fixtures keyed by bare tool names.
func (m *MockExecutor) lookup(program string, args []string) (mockResponse, bool) {
	if resp, ok := m.responses[cacheKey(program, args)]; ok {
		return resp, true
	}
	resp, ok := m.responses[cacheKey(filepath.Base(program), args)]
	return resp, ok
}

func (m *MockExecutor) Run(ctx context.Context, program string, args ...string) (string, error) {
	m.mu.Lock()
	m.record(program, args)
	resp, ok := m.lookup(program, args)
	m.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w for: %s", ErrNotConfigured, cacheKey(program, args))
	}
	if resp.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(resp.delay):
		}
	}
	if resp.err != nil {
		return "", resp.err
	}
	return resp.output, nil
}

func (m *MockExecutor) Spawn(ctx context.Context, program string, args ...string) (int, error) {
	m.mu.Lock()
	m.record(program, args)
	pid, ok := m.spawns[cacheKey(program, args)]
	if !ok {
		pid, ok = m.spawns[cacheKey(filepath.Base(program), args)]
	}
	m.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w for spawn: %s", ErrNotConfigured, cacheKey(program, args))
	}
	return pid, nil
}

func (m *MockExecutor) RunIgnoringErrors(ctx context.Context, program string, args []string, ignore []string) (string, error) {
	out, err := m.Run(ctx, program, args...)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, ErrNotConfigured) && matchesIgnore(err, ignore) {
		return "", nil
	}
	return "", err
}

func (m *MockExecutor) RunWithRetry(ctx context.Context, program string, args []string, maxRetries int) (string, error) {
	// Retries collapse to one attempt in the mock; the retry loop itself is
	// covered by the Runner tests.
	return m.Run(ctx, program, args...)
}
