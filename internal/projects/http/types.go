package http

import "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/service"

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	svc *service.ProjectService
}

func New(svc *service.ProjectService) *Handler {
	return &Handler{svc: svc}
}

type addProjectReq struct {
	ProjectName string `json:"projectName"`
	Lang        string `json:"lang"`
	ProjectID   string `json:"projectId"`
}

type projectIDReq struct {
	ProjectID string `json:"projectId"`
}

type addFileReq struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	Code      string `json:"code"`
}

type updateFileCodeReq struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	Code      string `json:"code"`
}

type renameFileReq struct {
	ProjectID   string `json:"projectId"`
	OldFilePath string `json:"oldFilePath"`
	NewFilePath string `json:"newFilePath"`
}

type deleteFileReq struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
}
