package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

func (h *Handler) addProject(c *gin.Context) {
	var req addProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	p, err := h.svc.CreateProject(c.Request.Context(), req.ProjectName, req.Lang, req.ProjectID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Project added successfully.",
		"projectId": p.ProjectID,
	})
}

// getProjects and getProjectDetails report a missing resource under
// "message" rather than "error".
func (h *Handler) getProjects(c *gin.Context) {
	items, err := h.svc.ListProjects(c.Request.Context())
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) getProjectDetails(c *gin.Context) {
	var req projectIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	p, err := h.svc.GetProject(c.Request.Context(), req.ProjectID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) addFile(c *gin.Context) {
	var req addFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	if err := h.svc.AddFile(c.Request.Context(), req.ProjectID, req.FilePath, req.Code); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "File added successfully.",
		"projectId": strings.TrimSpace(req.ProjectID),
		"filePath":  strings.TrimSpace(req.FilePath),
	})
}

func (h *Handler) updateFileCode(c *gin.Context) {
	var req updateFileCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	res, err := h.svc.UpdateFileCode(c.Request.Context(), req.ProjectID, req.FilePath, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"message":   "File code updated successfully.",
		"projectId": strings.TrimSpace(req.ProjectID),
		"filePath":  strings.TrimSpace(req.FilePath),
	}
	if res.Output != nil {
		body["output"] = *res.Output
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) renameFile(c *gin.Context) {
	var req renameFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	if err := h.svc.RenameFile(c.Request.Context(), req.ProjectID, req.OldFilePath, req.NewFilePath); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "File renamed successfully.",
		"projectId":   strings.TrimSpace(req.ProjectID),
		"oldFilePath": strings.TrimSpace(req.OldFilePath),
		"newFilePath": strings.TrimSpace(req.NewFilePath),
	})
}

func (h *Handler) deleteFile(c *gin.Context) {
	var req deleteFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	if err := h.svc.DeleteFile(c.Request.Context(), req.ProjectID, req.FilePath); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "File deleted successfully.",
		"projectId": strings.TrimSpace(req.ProjectID),
		"filePath":  strings.TrimSpace(req.FilePath),
	})
}

func (h *Handler) deleteProject(c *gin.Context) {
	var req projectIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadBody(c)
		return
	}

	if err := h.svc.DeleteProject(c.Request.Context(), req.ProjectID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Project deleted successfully.",
		"projectId": strings.TrimSpace(req.ProjectID),
	})
}
