package repository

import (
	"context"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

// Store persists project documents. Every mutation is applied as one atomic
// update against a single project and re-checks its own preconditions, so a
// concurrent request that wins a race is reported as domain.ErrNotFound or
// domain.ErrConflict instead of being overwritten.
type Store interface {
	// Create inserts p. A duplicate projectId fails with domain.ErrConflict.
	Create(ctx context.Context, p *domain.Project) error
	// List returns summaries in insertion order; an empty store yields an empty slice.
	List(ctx context.Context) ([]domain.ProjectSummary, error)
	Get(ctx context.Context, projectID string) (*domain.Project, error)
	// AppendFile adds f only if no file with the same path exists.
	AppendFile(ctx context.Context, projectID string, f domain.File, lastUpdated string) error
	UpdateFileCode(ctx context.Context, projectID string, u domain.CodeUpdate) error
	// RenameFile rewrites oldPath to newPath in place, keeping order and code.
	RenameFile(ctx context.Context, projectID, oldPath, newPath, lastUpdated string) error
	RemoveFile(ctx context.Context, projectID, filePath, lastUpdated string) error
	Delete(ctx context.Context, projectID string) error

	// Migrate creates indexes or schema the backend relies on. It is idempotent.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}
