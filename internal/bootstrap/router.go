package bootstrap

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/code-editor-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/api/http/middleware"
	exechttp "github.com/GoSim-25-26J-441/code-editor-backend/internal/execution/http"
	projecthttp "github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/repository"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	AllowOrigins []string
	Logger       *zap.Logger
	StoreDriver  string
	Store        repository.Store
	Services     *Services
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(dep.AllowOrigins)))
	r.Use(middleware.RequestIDMiddleware(dep.Logger))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.StoreDriver, dep.Store)
	healthHandler.RegisterRoutes(r)

	projecthttp.New(dep.Services.Projects).Register(r)
	exechttp.New(dep.Services.Execution).Register(r)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
