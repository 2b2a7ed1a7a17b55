package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMockRunConfiguredSuccess(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSuccess("avdmanager", []string{"list", "avd"}, "Name: Pixel_7_API_34\n")

	out, err := mock.Run(context.Background(), "avdmanager", "list", "avd")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "Name: Pixel_7_API_34\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMockRunConfiguredError(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithError("adb", []string{"devices"}, "adb server not running")

	_, err := mock.Run(context.Background(), "adb", "devices")
	if err == nil || err.Error() != "adb server not running" {
		t.Fatalf("expected configured error, got %v", err)
	}
}

func TestMockRunNotConfiguredFailsLoudly(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor()

	_, err := mock.Run(context.Background(), "avdmanager", "list", "avd")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if !strings.Contains(err.Error(), "avdmanager list avd") {
		t.Errorf("error should name the invocation, got %q", err.Error())
	}
}

func TestMockBasenameFallback(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSuccess("adb", []string{"devices"}, "List of devices attached\n")

	out, err := mock.Run(context.Background(), "/opt/android-sdk/platform-tools/adb", "devices")
	if err != nil {
		t.Fatalf("Run with absolute path: %v", err)
	}
	if out == "" {
		t.Error("expected fixture keyed by bare name to match")
	}
}

func TestMockSpawn(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSpawn("emulator", []string{"-avd", "Pixel_7_API_34"}, 4242)

	pid, err := mock.Spawn(context.Background(), "emulator", "-avd", "Pixel_7_API_34")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}

	if _, err := mock.Spawn(context.Background(), "emulator", "-avd", "Other"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured spawn should fail loudly, got %v", err)
	}
}

func TestMockHistoryAndCalls(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSuccess("adb", []string{"devices"}, "")

	before := time.Now()
	_, _ = mock.Run(context.Background(), "adb", "devices")
	_, _ = mock.Run(context.Background(), "adb", "devices")
	_, _ = mock.Run(context.Background(), "avdmanager", "list", "avd")

	history := mock.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", len(history))
	}
	if history[0].Program != "adb" || history[2].Program != "avdmanager" {
		t.Errorf("history out of order: %+v", history)
	}
	if history[0].At.Before(before) {
		t.Error("call timestamp should be set at invocation time")
	}
	if n := mock.Calls("adb", []string{"devices"}); n != 2 {
		t.Errorf("Calls = %d, want 2", n)
	}
}

func TestMockClear(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSuccess("adb", []string{"devices"}, "")
	_, _ = mock.Run(context.Background(), "adb", "devices")

	mock.Clear()

	if len(mock.History()) != 0 {
		t.Error("Clear should drop the call history")
	}
	if _, err := mock.Run(context.Background(), "adb", "devices"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Clear should drop configured responses, got %v", err)
	}
}

func TestMockDelayHonorsContext(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithSuccess("sdkmanager", []string{"--list"}, "ok").
		WithDelay("sdkmanager", []string{"--list"}, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mock.Run(ctx, "sdkmanager", "--list")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMockRunIgnoringErrors(t *testing.T) {
	t.Parallel()

	mock := NewMockExecutor().
		WithCommandError("xcrun", []string{"simctl", "boot", "X"}, 164,
			"Unable to boot device in current state: Booted")

	out, err := mock.RunIgnoringErrors(context.Background(), "xcrun",
		[]string{"simctl", "boot", "X"}, []string{"Unable to boot device in current state"})
	if err != nil {
		t.Fatalf("ignored failure should succeed, got %v", err)
	}
	if out != "" {
		t.Errorf("absorbed failure should yield empty output, got %q", out)
	}

	// An unconfigured invocation is never absorbed by ignore patterns.
	_, err = mock.RunIgnoringErrors(context.Background(), "xcrun",
		[]string{"simctl", "boot", "Y"}, []string{"not configured"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured to surface, got %v", err)
	}
}
