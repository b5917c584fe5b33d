package bootstrap

import (
	"fmt"

	"github.com/GoSim-25-26J-441/code-editor-backend/config"
	execrepo "github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/repository"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/runner"
	execsvc "github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/service"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/repository"
	projectsvc "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/service"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/templates"
)

type Services struct {
	Projects  *projectsvc.ProjectService
	Execution *execsvc.ExecutionService
}

// BuildServices wires the project and execution services around store.
func BuildServices(cfg *config.ExecutionConfig, store repository.Store) (*Services, error) {
	registry, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	run := runner.New(cfg.PythonBin, cfg.QuickRunDir)
	return &Services{
		Projects: projectsvc.NewProjectService(store, registry, run, nil),
		Execution: execsvc.NewExecutionService(run, execrepo.NewHistoryRepository(cfg.OutputDir), execsvc.Options{
			WorkspaceDir: cfg.ProjectsDir,
			Timeout:      cfg.Timeout,
			HistoryLimit: cfg.HistoryLimit,
		}),
	}, nil
}
