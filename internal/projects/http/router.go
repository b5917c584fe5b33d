package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/add-project", h.addProject)
	r.GET("/get-projects", h.getProjects)
	r.POST("/get-project-details", h.getProjectDetails)
	r.POST("/add-file", h.addFile)
	r.POST("/update-file-code", h.updateFileCode)
	r.POST("/rename-file", h.renameFile)
	r.POST("/delete-file", h.deleteFile)
	r.POST("/delete-project", h.deleteProject)
}
