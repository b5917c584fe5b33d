package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/domain"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/service"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/logging"
	projdomain "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

const msgUnexpected = "An unexpected error occurred."

// Handler serves the code execution endpoints.
type Handler struct {
	svc *service.ExecutionService
}

func New(svc *service.ExecutionService) *Handler {
	return &Handler{svc: svc}
}

// Register attaches execution routes to the given router.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/execute-code", h.executeCode)
	r.GET("/get-execution-history/:projectId", h.history)
	r.GET("/get-code/:projectId/:fileName", h.getCode)
	r.POST("/execute", h.quickRun)
}

type executeReq struct {
	ProjectID string `json:"projectId"`
	Code      string `json:"code"`
}

func (h *Handler) executeCode(c *gin.Context) {
	var req executeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	res, err := h.svc.Execute(c.Request.Context(), req.ProjectID, req.Code)
	if errors.Is(err, projdomain.ErrTimeout) && res != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error":             err.Error(),
			"current_output":    res.CurrentOutput,
			"execution_history": res.ExecutionHistory,
			"file_path":         res.FilePath,
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) history(c *gin.Context) {
	records, err := h.svc.History(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) getCode(c *gin.Context) {
	fileName := c.Param("fileName")
	code, err := h.svc.GetCode(c.Request.Context(), c.Param("projectId"), fileName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "file_name": fileName})
}

type quickRunReq struct {
	CodeFromEditor string `json:"codeFromEditor"`
}

func (h *Handler) quickRun(c *gin.Context) {
	var req quickRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body."})
		return
	}

	out, err := h.svc.QuickRun(c.Request.Context(), req.CodeFromEditor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}

// writeError translates a service error into a JSON response. Sandbox
// failures also carry the captured stack under "traceback".
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, projdomain.ErrValidation), errors.Is(err, projdomain.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, projdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, projdomain.ErrTimeout):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}

	logging.FromContext(c.Request.Context()).Error("request failed",
		zap.String("path", c.FullPath()), zap.Error(err))

	body := gin.H{"error": msgUnexpected, "details": err.Error()}
	var sandboxErr *domain.SandboxError
	if errors.As(err, &sandboxErr) {
		body["traceback"] = sandboxErr.Trace
	}
	c.JSON(http.StatusInternalServerError, body)
}
