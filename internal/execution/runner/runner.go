package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// QuickRunFile is the single scratch file shared by every quick run.
const QuickRunFile = "temp_code.py"

const defaultWaitDelay = 2 * time.Second

// Output is the captured result of one child process.
type Output struct {
	Stdout     string
	Stderr     string
	ReturnCode int
	TimedOut   bool
}

// Runner executes source files with a fixed interpreter binary.
type Runner struct {
	interpreter string
	quickRunDir string
	waitDelay   time.Duration
}

// New creates a Runner invoking interpreter. Quick runs write their scratch
// file into quickRunDir.
func New(interpreter, quickRunDir string) *Runner {
	return &Runner{
		interpreter: interpreter,
		quickRunDir: quickRunDir,
		waitDelay:   defaultWaitDelay,
	}
}

// Run executes file and waits for it to exit or for timeout to elapse. A
// non-zero exit is a normal result; only failures to start or wait on the
// process are returned as errors. A zero timeout disables the deadline.
func (r *Runner) Run(ctx context.Context, file string, timeout time.Duration) (Output, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.interpreter, file)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = r.waitDelay

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() != nil {
		return Output{}, fmt.Errorf("run %s: %w", file, ctx.Err())
	}
	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
		out.ReturnCode = -1
		out.Stderr = fmt.Sprintf("Execution timed out after %s seconds",
			strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64))
		return out, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		out.ReturnCode = 0
	case errors.As(err, &exitErr):
		out.ReturnCode = exitErr.ExitCode()
	default:
		return Output{}, fmt.Errorf("run %s: %w", file, err)
	}
	return out, nil
}

// QuickRun writes code to the shared scratch file and runs it with no
// deadline and no history. It returns stdout when the program exits cleanly
// and stderr otherwise. Concurrent quick runs overwrite each other's file.
func (r *Runner) QuickRun(ctx context.Context, code string) (string, error) {
	if err := os.MkdirAll(r.quickRunDir, 0o755); err != nil {
		return "", fmt.Errorf("create quick run dir: %w", err)
	}
	file := filepath.Join(r.quickRunDir, QuickRunFile)
	if err := os.WriteFile(file, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", QuickRunFile, err)
	}

	out, err := r.Run(ctx, file, 0)
	if err != nil {
		return "", err
	}
	if out.ReturnCode != 0 {
		return out.Stderr, nil
	}
	return out.Stdout, nil
}
