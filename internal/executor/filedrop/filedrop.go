// Package filedrop implements an executor.Executor that atomically
// writes a trigger file describing the job's action, then either
// invokes a child process to consume it or waits for an external
// watcher of the trigger directory to pick it up.
package filedrop

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/job"
)

// Config configures an Executor.
type Config struct {
	// TriggerDir is the directory trigger files are written into.
	TriggerDir string

	// Command is the child process invoked after a trigger file is
	// written; Args may reference "{{file}}" which is replaced with the
	// trigger file's path. When Command is empty the external runtime is
	// assumed to watch TriggerDir itself, and Trigger succeeds once the
	// file has been picked up (removed) before the attempt deadline.
	Command string
	Args    []string

	// NotifyCommand, if set, is invoked for Notify the same way Command is
	// invoked for Trigger. Without one, Notify just drops the file.
	NotifyCommand string
	NotifyArgs    []string
}

// Executor is an executor.Executor backed by a trigger file plus a child
// process invocation.
type Executor struct {
	cfg Config
}

// Compile-time interface check.
var _ executor.Executor = (*Executor)(nil)

// New constructs an Executor from cfg.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

type triggerFile struct {
	Message  string            `json:"message"`
	Priority job.Priority      `json:"priority"`
	Context  map[string]string `json:"context,omitempty"`
}

// Trigger implements executor.Executor. It writes the action to a
// temp file in TriggerDir and renames it into place atomically (same
// filesystem, so rename is atomic on POSIX), then either runs Command
// or, when no Command is configured, waits for the external runtime to
// pick the file up.
func (e *Executor) Trigger(ctx context.Context, req executor.TriggerRequest) (executor.TriggerResult, error) {
	path, err := e.writeTriggerFile(triggerFile{Message: req.Message, Priority: req.Priority, Context: req.Context})
	if err != nil {
		return executor.TriggerResult{}, err
	}

	if e.cfg.Command == "" {
		if err := awaitPickup(ctx, path); err != nil {
			if ctx.Err() != nil {
				return executor.TriggerResult{}, executor.ErrTimeout
			}
			return executor.TriggerResult{}, err
		}
		return executor.TriggerResult{Success: true}, nil
	}

	out, err := e.run(ctx, e.cfg.Command, e.cfg.Args, path)
	if err != nil {
		return executor.TriggerResult{}, err
	}

	return executor.TriggerResult{Success: true, Message: string(out)}, nil
}

// Notify implements executor.Executor. The notification file is always
// dropped; NotifyCommand, when configured, is invoked on it. Without one
// the drop itself is the best-effort notification and nothing waits on
// its pickup.
func (e *Executor) Notify(ctx context.Context, message string, priority job.Priority) error {
	path, err := e.writeTriggerFile(triggerFile{Message: message, Priority: priority})
	if err != nil {
		return err
	}

	if e.cfg.NotifyCommand == "" {
		return nil
	}

	_, err = e.run(ctx, e.cfg.NotifyCommand, e.cfg.NotifyArgs, path)
	return err
}

func (e *Executor) writeTriggerFile(payload triggerFile) (string, error) {
	if err := os.MkdirAll(e.cfg.TriggerDir, 0o700); err != nil {
		return "", fmt.Errorf("filedrop: create trigger dir: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("filedrop: marshal trigger: %w", err)
	}

	final := filepath.Join(e.cfg.TriggerDir, fmt.Sprintf("%s.json", uuid.NewString()))
	tmp := final + ".tmp" + strconv.FormatInt(time.Now().UnixNano(), 10)

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("filedrop: write trigger file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("filedrop: rename trigger file into place: %w", err)
	}

	return final, nil
}

func (e *Executor) run(ctx context.Context, command string, args []string, triggerPath string) ([]byte, error) {
	resolved := make([]string, len(args))
	for i, a := range args {
		resolved[i] = strings.ReplaceAll(a, "{{file}}", triggerPath)
	}

	//nolint:gosec // command and args are operator-configured, not user input.
	cmd := exec.CommandContext(ctx, command, resolved...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, executor.ErrTimeout
		}
		if isPermissionErr(err) {
			return nil, &executor.FatalError{Err: executor.ErrPermissionDenied}
		}
		return nil, fmt.Errorf("filedrop: command failed: %w: %s", err, out)
	}
	return out, nil
}

func isPermissionErr(err error) bool {
	return os.IsPermission(err)
}
