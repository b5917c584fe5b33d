package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/repository"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/runner"
	projdomain "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2024, 7, 1, 9, 0, 0, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	svc       *ExecutionService
	workspace string
	outputs   string
}

func newFixture(t *testing.T, r Runner, timeout time.Duration) fixture {
	t.Helper()
	workspace := filepath.Join(t.TempDir(), "projects")
	outputs := filepath.Join(t.TempDir(), "outputs")
	svc := NewExecutionService(r, repository.NewHistoryRepository(outputs), Options{
		WorkspaceDir: workspace,
		Timeout:      timeout,
		HistoryLimit: 10,
		Clock:        steppingClock(),
	})
	return fixture{svc: svc, workspace: workspace, outputs: outputs}
}

func TestExecute_Completed(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), 5*time.Second)

	res, err := f.svc.Execute(context.Background(), "p-fresh", "echo $((1+1))")
	require.NoError(t, err)
	assert.Contains(t, res.CurrentOutput.Stdout, "2")
	assert.Equal(t, 0, res.CurrentOutput.ReturnCode)
	assert.Equal(t, domain.StatusCompleted, res.CurrentOutput.Status)
	require.Len(t, res.ExecutionHistory, 1)
	assert.Equal(t, res.CurrentOutput, res.ExecutionHistory[0])

	assert.Equal(t, filepath.Join(f.workspace, "p-fresh", res.CurrentOutput.FileName), res.FilePath)
	src, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "echo $((1+1))", string(src))
}

func TestExecute_NonZeroExitIsRecorded(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), 5*time.Second)

	res, err := f.svc.Execute(context.Background(), "p1", "exit 7")
	require.NoError(t, err)
	assert.Equal(t, 7, res.CurrentOutput.ReturnCode)
	assert.Len(t, res.ExecutionHistory, 1)
}

func TestExecute_TimedOut(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), 200*time.Millisecond)

	res, err := f.svc.Execute(context.Background(), "p1", "while :; do :; done")
	require.Error(t, err)
	assert.ErrorIs(t, err, projdomain.ErrTimeout)
	require.NotNil(t, res)
	assert.True(t, res.CurrentOutput.TimedOut())
	assert.Equal(t, -1, res.CurrentOutput.ReturnCode)

	hist, err := f.svc.History(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.TimeoutMarker, hist[0].Error)
}

func TestExecute_Validation(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), time.Second)

	_, err := f.svc.Execute(context.Background(), "  ", "echo")
	assert.ErrorIs(t, err, projdomain.ErrValidation)
	assert.EqualError(t, err, "Invalid or missing 'projectId': must be a non-empty string.")

	_, err = f.svc.Execute(context.Background(), "p1", " \n ")
	assert.ErrorIs(t, err, projdomain.ErrValidation)

	_, err = f.svc.Execute(context.Background(), "../escape", "echo")
	assert.ErrorIs(t, err, projdomain.ErrValidation)
}

type brokenRunner struct{ err error }

func (b brokenRunner) Run(context.Context, string, time.Duration) (runner.Output, error) {
	return runner.Output{}, b.err
}

func (b brokenRunner) QuickRun(context.Context, string) (string, error) { return "", b.err }

func TestExecute_MachineryFailureIsNotRecorded(t *testing.T) {
	boom := errors.New("exec: interpreter missing")
	f := newFixture(t, brokenRunner{err: boom}, time.Second)

	res, err := f.svc.Execute(context.Background(), "p1", "print(1)")
	assert.Nil(t, res)

	var sandboxErr *domain.SandboxError
	require.ErrorAs(t, err, &sandboxErr)
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, sandboxErr.Trace)

	hist, err := f.svc.History(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestExecute_HistoryIsBoundedAndDescending(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), 5*time.Second)
	ctx := context.Background()

	var last *domain.Result
	for i := 0; i < 12; i++ {
		res, err := f.svc.Execute(ctx, "p1", "echo run")
		require.NoError(t, err)
		last = res
	}

	require.Len(t, last.ExecutionHistory, 10)
	assert.Equal(t, last.CurrentOutput.Timestamp, last.ExecutionHistory[0].Timestamp)
	for i := 1; i < len(last.ExecutionHistory); i++ {
		assert.Greater(t, last.ExecutionHistory[i-1].Timestamp, last.ExecutionHistory[i].Timestamp)
	}
}

func TestGetCode(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), 5*time.Second)
	ctx := context.Background()

	res, err := f.svc.Execute(ctx, "p1", "echo snapshot")
	require.NoError(t, err)

	code, err := f.svc.GetCode(ctx, "p1", res.CurrentOutput.FileName)
	require.NoError(t, err)
	assert.Equal(t, "echo snapshot", code)

	_, err = f.svc.GetCode(ctx, "p1", "missing.py")
	assert.ErrorIs(t, err, projdomain.ErrNotFound)

	_, err = f.svc.GetCode(ctx, "p1", "../p1/"+res.CurrentOutput.FileName)
	assert.ErrorIs(t, err, projdomain.ErrNotFound)

	_, err = f.svc.GetCode(ctx, "..", "outputs")
	assert.ErrorIs(t, err, projdomain.ErrNotFound)
}

func TestExecute_SameInstantRunsKeepDistinctSnapshots(t *testing.T) {
	workspace := filepath.Join(t.TempDir(), "projects")
	frozen := time.Date(2024, 7, 1, 9, 0, 0, 0, time.Local)
	svc := NewExecutionService(runner.New("sh", t.TempDir()), repository.NewHistoryRepository(filepath.Join(t.TempDir(), "outputs")), Options{
		WorkspaceDir: workspace,
		Timeout:      5 * time.Second,
		HistoryLimit: 10,
		Clock:        func() time.Time { return frozen },
	})
	ctx := context.Background()

	first, err := svc.Execute(ctx, "p1", "echo first")
	require.NoError(t, err)
	second, err := svc.Execute(ctx, "p1", "echo second")
	require.NoError(t, err)

	assert.Equal(t, "20240701_090000.000000.py", first.CurrentOutput.FileName)
	assert.Equal(t, "20240701_090000.000001.py", second.CurrentOutput.FileName)
	assert.Equal(t, "20240701_090000.000001", second.CurrentOutput.Timestamp)

	code, err := svc.GetCode(ctx, "p1", first.CurrentOutput.FileName)
	require.NoError(t, err)
	assert.Equal(t, "echo first", code)

	require.Len(t, second.ExecutionHistory, 2)
	assert.Contains(t, second.ExecutionHistory[0].Stdout, "second")
	assert.Contains(t, second.ExecutionHistory[1].Stdout, "first")
}

func TestHistory_UnsafeProjectID(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), time.Second)

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := f.svc.History(context.Background(), id)
		assert.ErrorIs(t, err, projdomain.ErrNotFound, id)
	}
}

func TestQuickRun(t *testing.T) {
	f := newFixture(t, runner.New("sh", t.TempDir()), time.Second)

	out, err := f.svc.QuickRun(context.Background(), "echo quick")
	require.NoError(t, err)
	assert.Equal(t, "quick\n", out)
}
