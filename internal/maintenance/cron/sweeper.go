package cronjob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

// ProjectLookup is the part of the project store the sweeper needs.
type ProjectLookup interface {
	Get(ctx context.Context, projectID string) (*domain.Project, error)
}

// Sweeper removes idle source-snapshot workspaces that have no stored
// project. That covers deleted projects and ad-hoc execution ids alike.
// Workspaces touched within the grace window are left alone, as is the
// execution history, which lives elsewhere.
type Sweeper struct {
	root   string
	store  ProjectLookup
	grace  time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewSweeper(root string, store ProjectLookup, grace time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{root: root, store: store, grace: grace, now: time.Now, logger: logger}
}

// Sweep returns the project ids whose workspaces were removed. Lookup
// failures other than not-found leave the workspace in place.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspaces: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		id := e.Name()
		dir := filepath.Join(s.root, id)
		if s.recentlyUsed(dir, cutoff) {
			continue
		}

		_, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			continue
		case errors.Is(err, domain.ErrNotFound):
		default:
			s.logger.Warn("workspace lookup failed", zap.String("project_id", id), zap.Error(err))
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("workspace removal failed", zap.String("project_id", id), zap.Error(err))
			continue
		}
		removed = append(removed, id)
	}

	s.logger.Info("workspace sweep finished", zap.Int("removed", len(removed)))
	return removed, nil
}

// recentlyUsed reports whether the workspace or any snapshot in it was
// modified after cutoff. Unreadable workspaces count as in use.
func (s *Sweeper) recentlyUsed(dir string, cutoff time.Time) bool {
	info, err := os.Stat(dir)
	if err != nil {
		return true
	}
	if info.ModTime().After(cutoff) {
		return true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(cutoff) {
			return true
		}
	}
	return false
}
