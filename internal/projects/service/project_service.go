package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/logging"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/templates"
)

// QuickRunner executes python code for file updates.
type QuickRunner interface {
	QuickRun(ctx context.Context, code string) (string, error)
}

// UpdateResult is returned by UpdateFileCode. Output is set only when the
// update triggered a quick run.
type UpdateResult struct {
	Output *string
}

// ProjectService handles project-related business logic
type ProjectService struct {
	store    repository.Store
	registry *templates.Registry
	runner   QuickRunner
	now      domain.Clock
}

// NewProjectService creates a new project service. A nil clock uses time.Now.
func NewProjectService(store repository.Store, registry *templates.Registry, runner QuickRunner, clock domain.Clock) *ProjectService {
	if clock == nil {
		clock = time.Now
	}
	return &ProjectService{
		store:    store,
		registry: registry,
		runner:   runner,
		now:      clock,
	}
}

// CreateProject instantiates the language template and stores the project.
// projectID may be empty, in which case one is derived from the clock.
func (s *ProjectService) CreateProject(ctx context.Context, projectName, lang, projectID string) (*domain.Project, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return nil, domain.MissingField("projectName")
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil, domain.MissingField("lang")
	}

	files, deps, err := s.registry.Instantiate(lang)
	if err != nil {
		return nil, err
	}

	now := s.now()
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		projectID = domain.NewProjectID(now)
	}

	p := &domain.Project{
		ProjectID:       projectID,
		ProjectName:     projectName,
		Lang:            lang,
		LastUpdatedDate: domain.FormatDate(now),
		FileSets:        files,
		Dependencies:    deps,
	}
	if p.HasRuntime() {
		p.AttachRuntime()
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("project created",
		zap.String("project_id", p.ProjectID),
		zap.String("lang", p.Lang),
		zap.Int("files", len(p.FileSets)))
	return p, nil
}

// ListProjects returns every project summary.
func (s *ProjectService) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.NotFound(domain.MsgNoProjects)
	}
	return items, nil
}

func (s *ProjectService) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, projectID)
}

// AddFile appends a new file. The code is optional and stored trimmed.
func (s *ProjectService) AddFile(ctx context.Context, projectID, filePath, code string) error {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return err
	}
	if filePath, err = required("filePath", filePath); err != nil {
		return err
	}

	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.FindFile(filePath) >= 0 {
		return domain.FileExists(filePath)
	}

	f := domain.File{FilePath: filePath, Code: strings.TrimSpace(code)}
	if err := s.store.AppendFile(ctx, projectID, f, s.today()); err != nil {
		return err
	}
	return nil
}

// UpdateFileCode overwrites one file. Node projects have their runtime state
// reset in the same write; python projects then run the new code through the
// quick-run path and report its output.
func (s *ProjectService) UpdateFileCode(ctx context.Context, projectID, filePath, code string) (*UpdateResult, error) {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return nil, err
	}
	if filePath, err = required("filePath", filePath); err != nil {
		return nil, err
	}
	if code, err = required("code", code); err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.FindFile(filePath) < 0 {
		return nil, domain.FileNotFound(filePath)
	}

	u := domain.CodeUpdate{
		FilePath:        filePath,
		Code:            code,
		LastUpdatedDate: s.today(),
	}
	if p.HasRuntime() {
		u.ResetRuntime = true
		u.DataStatus = domain.DataStatusIdle
	}
	if err := s.store.UpdateFileCode(ctx, projectID, u); err != nil {
		return nil, err
	}

	res := &UpdateResult{}
	if p.Lang == domain.LangPython && s.runner != nil {
		out, err := s.runner.QuickRun(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("run updated code: %w", err)
		}
		res.Output = &out
	}
	return res, nil
}

func (s *ProjectService) RenameFile(ctx context.Context, projectID, oldPath, newPath string) error {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return err
	}
	if oldPath, err = required("oldFilePath", oldPath); err != nil {
		return err
	}
	if newPath, err = required("newFilePath", newPath); err != nil {
		return err
	}

	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.FindFile(oldPath) < 0 {
		return domain.FileNotFound(oldPath)
	}
	if p.FindFile(newPath) >= 0 {
		return domain.FileExists(newPath)
	}
	return s.store.RenameFile(ctx, projectID, oldPath, newPath, s.today())
}

func (s *ProjectService) DeleteFile(ctx context.Context, projectID, filePath string) error {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return err
	}
	if filePath, err = required("filePath", filePath); err != nil {
		return err
	}

	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.FindFile(filePath) < 0 {
		return domain.FileNotFound(filePath)
	}
	return s.store.RemoveFile(ctx, projectID, filePath, s.today())
}

// DeleteProject removes the project document. Workspaces and history on disk
// are left in place.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID string) error {
	projectID, err := required("projectId", projectID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, projectID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("project deleted", zap.String("project_id", projectID))
	return nil
}

func (s *ProjectService) today() string {
	return domain.FormatDate(s.now())
}

func required(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", domain.MissingField(field)
	}
	return v, nil
}
