package cronjob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

type lookup struct {
	live    map[string]bool
	failing map[string]bool
	calls   atomic.Int32
}

func (l *lookup) Get(_ context.Context, id string) (*domain.Project, error) {
	l.calls.Add(1)
	if l.failing[id] {
		return nil, errors.New("store unavailable")
	}
	if l.live[id] {
		return &domain.Project{ProjectID: id}, nil
	}
	return nil, domain.ProjectNotFound()
}

const grace = time.Hour

// mkWorkspace creates a workspace with one snapshot, both last modified age ago.
func mkWorkspace(t *testing.T, root, id string, age time.Duration) {
	t.Helper()
	dir := filepath.Join(root, id)
	file := filepath.Join(dir, "20240101_000000.000000.py")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(file, []byte("print(1)"), 0o644))

	at := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(file, at, at))
	require.NoError(t, os.Chtimes(dir, at, at))
}

func TestSweep(t *testing.T) {
	root := t.TempDir()
	mkWorkspace(t, root, "alive", 2*grace)
	mkWorkspace(t, root, "deleted", 2*grace)
	mkWorkspace(t, root, "flaky", 2*grace)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), nil, 0o644))

	store := &lookup{live: map[string]bool{"alive": true}, failing: map[string]bool{"flaky": true}}
	removed, err := NewSweeper(root, store, grace, zap.NewNop()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"deleted"}, removed)

	assert.DirExists(t, filepath.Join(root, "alive"))
	assert.DirExists(t, filepath.Join(root, "flaky"))
	assert.NoDirExists(t, filepath.Join(root, "deleted"))
	assert.FileExists(t, filepath.Join(root, "stray.txt"))
}

func TestSweep_SkipsWorkspacesWithinGrace(t *testing.T) {
	root := t.TempDir()
	mkWorkspace(t, root, "adhoc-fresh", 0)
	mkWorkspace(t, root, "adhoc-stale", 2*grace)

	// An older workspace that just received a new snapshot is still in use.
	mkWorkspace(t, root, "adhoc-rerun", 2*grace)
	require.NoError(t, os.WriteFile(filepath.Join(root, "adhoc-rerun", "20240102_000000.000000.py"), []byte("print(2)"), 0o644))
	old := time.Now().Add(-2 * grace)
	require.NoError(t, os.Chtimes(filepath.Join(root, "adhoc-rerun"), old, old))

	store := &lookup{}
	removed, err := NewSweeper(root, store, grace, zap.NewNop()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"adhoc-stale"}, removed)

	assert.DirExists(t, filepath.Join(root, "adhoc-fresh"))
	assert.DirExists(t, filepath.Join(root, "adhoc-rerun"))
	assert.FileExists(t, filepath.Join(root, "adhoc-fresh", "20240101_000000.000000.py"))
	assert.Equal(t, int32(1), store.calls.Load(), "workspaces inside the grace window skip the store lookup")
}

func TestSweep_MissingRoot(t *testing.T) {
	removed, err := NewSweeper(filepath.Join(t.TempDir(), "none"), &lookup{}, grace, zap.NewNop()).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestScheduler(t *testing.T) {
	t.Run("disabled when spec is empty", func(t *testing.T) {
		s := NewScheduler("", NewSweeper(t.TempDir(), &lookup{}, grace, zap.NewNop()), zap.NewNop())
		require.NoError(t, s.Start())
		s.Stop()
	})

	t.Run("rejects a bad spec", func(t *testing.T) {
		s := NewScheduler("every tuesday", NewSweeper(t.TempDir(), &lookup{}, grace, zap.NewNop()), zap.NewNop())
		assert.Error(t, s.Start())
	})

	t.Run("runs the sweep on schedule", func(t *testing.T) {
		root := t.TempDir()
		mkWorkspace(t, root, "gone", 2*grace)
		store := &lookup{}

		s := NewScheduler("@every 1s", NewSweeper(root, store, grace, zap.NewNop()), zap.NewNop())
		require.NoError(t, s.Start())
		defer s.Stop()

		assert.Eventually(t, func() bool {
			_, err := os.Stat(filepath.Join(root, "gone"))
			return os.IsNotExist(err)
		}, 5*time.Second, 50*time.Millisecond)
		assert.GreaterOrEqual(t, store.calls.Load(), int32(1))
	})
}
