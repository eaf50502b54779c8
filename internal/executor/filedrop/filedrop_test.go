package filedrop

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/job"
)

func TestExecutor_Trigger_WritesFileAndRunsCommand(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell command")
	}

	dir := t.TempDir()
	e := New(Config{
		TriggerDir: dir,
		Command:    "sh",
		Args:       []string{"-c", "cat {{file}}"},
	})

	result, err := e.Trigger(context.Background(), executor.TriggerRequest{Message: "nudge now", Priority: job.PriorityHigh})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "nudge now") {
		t.Fatalf("trigger file does not contain the message: %s", data)
	}
}

// consumeOne polls dir until a file appears, then removes it, acting as
// the external runtime in pickup mode.
func consumeOne(t *testing.T, dir string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) > 0 {
			if err := os.Remove(filepath.Join(dir, entries[0].Name())); err == nil {
				return
			}
		}
		select {
		case <-deadline:
			t.Error("consumer timed out waiting for a trigger file")
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestExecutor_Trigger_PickupMode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := New(Config{TriggerDir: dir})

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeOne(t, dir)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := e.Trigger(ctx, executor.TriggerRequest{Message: "watched"})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success once the file was picked up")
	}
	<-done
}

func TestExecutor_Trigger_PickupTimeout(t *testing.T) {
	t.Parallel()

	e := New(Config{TriggerDir: t.TempDir()})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Trigger(ctx, executor.TriggerRequest{Message: "ignored"})
	if err == nil || !executor.IsTimeout(err) {
		t.Fatalf("expected timeout error when nothing picks the file up, got %v", err)
	}
}

func TestExecutor_Notify_DropsFileWithoutCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e := New(Config{TriggerDir: dir})

	if err := e.Notify(context.Background(), "hello", job.PriorityLow); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 dropped notification file", len(entries))
	}
}
