package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunnerRunCapturesStdout(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	out, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestRunnerRunNonZeroExit(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	_, err := r.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", cmdErr.ExitCode)
	}
	if !strings.Contains(cmdErr.Stderr, "oops") {
		t.Errorf("stderr not captured: %q", cmdErr.Stderr)
	}
	if !strings.Contains(err.Error(), "exit code 3") {
		t.Errorf("message should carry the exit code: %q", err.Error())
	}
}

func TestRunnerRunMissingBinary(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected launch error")
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		t.Errorf("launch failure should not be a CommandError, got %v", err)
	}
}

func TestRunnerRunTimeout(t *testing.T) {
	t.Parallel()

	r := NewRunner(WithTimeout(50 * time.Millisecond))
	_, err := r.Run(context.Background(), "sh", "-c", "sleep 5")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRunnerSpawnReturnsImmediately(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	start := time.Now()
	pid, err := r.Spawn(context.Background(), "sh", "-c", "sleep 2")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want positive", pid)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Spawn blocked for %v", elapsed)
	}
}

func TestRunnerRunIgnoringErrors(t *testing.T) {
	t.Parallel()

	r := NewRunner()

	out, err := r.RunIgnoringErrors(context.Background(), "sh",
		[]string{"-c", "echo already booted >&2; exit 1"}, []string{"already booted"})
	if err != nil {
		t.Fatalf("matching failure should be absorbed, got %v", err)
	}
	if out != "" {
		t.Errorf("absorbed failure should yield empty output, got %q", out)
	}

	_, err = r.RunIgnoringErrors(context.Background(), "sh",
		[]string{"-c", "echo real failure >&2; exit 1"}, []string{"already booted"})
	if err == nil {
		t.Fatal("non-matching failure should propagate")
	}
}

func TestRunnerRetryExhaustion(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	_, err := r.RunWithRetry(context.Background(), "sh", []string{"-c", "exit 1"}, 2)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("message should count attempts: %q", err.Error())
	}
}

func TestRunnerRetryCancellable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := NewRunner()
	start := time.Now()
	_, err := r.RunWithRetry(ctx, "sh", []string{"-c", "exit 1"}, 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("retry loop ignored cancellation, ran for %v", elapsed)
	}
}

func TestRunnerRetrySucceedsEventually(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Fails until the marker file exists, which the first attempt creates.
	script := "if [ -f " + dir + "/marker ]; then echo done; else touch " + dir + "/marker; exit 1; fi"

	r := NewRunner()
	out, err := r.RunWithRetry(context.Background(), "sh", []string{"-c", script}, 3)
	if err != nil {
		t.Fatalf("RunWithRetry: %v", err)
	}
	if strings.TrimSpace(out) != "done" {
		t.Errorf("output = %q, want done", out)
	}
}
