package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/runner"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/logging"
	projdomain "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

const (
	sourceExt       = ".py"
	maxNameAttempts = 1000
)

// Runner starts child processes.
type Runner interface {
	Run(ctx context.Context, file string, timeout time.Duration) (runner.Output, error)
	QuickRun(ctx context.Context, code string) (string, error)
}

// History persists and lists execution records.
type History interface {
	Record(ctx context.Context, projectID string, rec domain.Record) error
	Recent(ctx context.Context, projectID string, limit int) ([]domain.Record, error)
}

// Options configures an ExecutionService.
type Options struct {
	WorkspaceDir string
	Timeout      time.Duration
	HistoryLimit int
	Clock        func() time.Time
}

// ExecutionService materializes submitted code into per-project workspaces,
// runs it and keeps the execution history.
type ExecutionService struct {
	runner       Runner
	history      History
	workspaceDir string
	timeout      time.Duration
	limit        int
	now          func() time.Time
}

// NewExecutionService creates a new execution service
func NewExecutionService(r Runner, h History, opts Options) *ExecutionService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &ExecutionService{
		runner:       r,
		history:      h,
		workspaceDir: opts.WorkspaceDir,
		timeout:      opts.Timeout,
		limit:        opts.HistoryLimit,
		now:          opts.Clock,
	}
}

// Execute runs code for projectID and returns the new record together with
// the recent history. A run killed by the timeout is recorded and returned
// alongside an error matching projdomain.ErrTimeout. Machinery failures are
// returned as *domain.SandboxError and are not recorded.
func (s *ExecutionService) Execute(ctx context.Context, projectID, code string) (*domain.Result, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, projdomain.MissingField("projectId")
	}
	if strings.TrimSpace(code) == "" {
		return nil, projdomain.MissingField("code")
	}
	if !safeSegment(projectID) {
		return nil, projdomain.Validation("projectId", "Invalid 'projectId': must not contain path separators.")
	}

	log := logging.FromContext(ctx).With(zap.String("project_id", projectID))

	dir := filepath.Join(s.workspaceDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, s.fail(log, fmt.Errorf("create workspace: %w", err))
	}
	ts, path, err := s.writeSnapshot(dir, code)
	if err != nil {
		return nil, s.fail(log, fmt.Errorf("write source: %w", err))
	}
	fileName := filepath.Base(path)

	out, err := s.runner.Run(ctx, path, s.timeout)
	if err != nil {
		return nil, s.fail(log, err)
	}

	rec := domain.Record{
		Timestamp:  ts,
		Status:     domain.StatusCompleted,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		ReturnCode: out.ReturnCode,
		FileName:   fileName,
	}
	if out.TimedOut {
		rec.Status = domain.StatusTimedOut
		rec.Error = domain.TimeoutMarker
	}

	if err := s.history.Record(ctx, projectID, rec); err != nil {
		return nil, s.fail(log, err)
	}
	recent, err := s.history.Recent(ctx, projectID, s.limit)
	if err != nil {
		return nil, s.fail(log, err)
	}

	res := &domain.Result{CurrentOutput: rec, ExecutionHistory: recent, FilePath: path}
	if rec.TimedOut() {
		log.Warn("execution timed out", zap.Duration("timeout", s.timeout), zap.String("file", fileName))
		return res, projdomain.Timeout("Execution timed out after %s seconds",
			strconv.FormatFloat(s.timeout.Seconds(), 'f', -1, 64))
	}

	log.Info("execution completed", zap.String("file", fileName), zap.Int("returncode", rec.ReturnCode))
	return res, nil
}

// History returns the most recent records for projectID, newest first.
// Ids that are not a single path element are reported as not found.
func (s *ExecutionService) History(ctx context.Context, projectID string) ([]domain.Record, error) {
	if !safeSegment(projectID) {
		return nil, projdomain.NotFound("Execution history not found.")
	}
	return s.history.Recent(ctx, projectID, s.limit)
}

// GetCode reads back a materialized source snapshot.
func (s *ExecutionService) GetCode(ctx context.Context, projectID, fileName string) (string, error) {
	if !safeSegment(projectID) || !safeSegment(fileName) {
		return "", projdomain.NotFound("File not found.")
	}

	data, err := os.ReadFile(filepath.Join(s.workspaceDir, projectID, fileName))
	if errors.Is(err, fs.ErrNotExist) {
		return "", projdomain.NotFound("File not found.")
	}
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	return string(data), nil
}

// QuickRun runs code through the shared scratch file without a deadline or
// history.
func (s *ExecutionService) QuickRun(ctx context.Context, code string) (string, error) {
	return s.runner.QuickRun(ctx, code)
}

// writeSnapshot creates the source file under a timestamp name no earlier run
// has taken. On a collision the clock reading is moved forward a microsecond.
func (s *ExecutionService) writeSnapshot(dir, code string) (string, string, error) {
	at := s.now()
	for i := 0; i < maxNameAttempts; i++ {
		ts := domain.NewTimestamp(at)
		path := filepath.Join(dir, ts+sourceExt)
		f, openErr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(openErr, fs.ErrExist) {
			at = at.Add(time.Microsecond)
			continue
		}
		if openErr != nil {
			return "", "", openErr
		}
		if _, err := f.WriteString(code); err != nil {
			f.Close()
			os.Remove(path)
			return "", "", err
		}
		if err := f.Close(); err != nil {
			return "", "", err
		}
		return ts, path, nil
	}
	return "", "", fmt.Errorf("no free snapshot name in %s after %d attempts", dir, maxNameAttempts)
}

func (s *ExecutionService) fail(log *zap.Logger, err error) error {
	trace := string(debug.Stack())
	log.Error("execution failed", zap.Error(err))
	return &domain.SandboxError{Err: err, Trace: trace}
}

// safeSegment accepts a single path element that cannot escape its parent.
func safeSegment(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
