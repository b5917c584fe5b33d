package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const storePingTimeout = time.Second

// Pinger is satisfied by every project store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealth describes the configured project store.
type StoreHealth struct {
	Driver    string `json:"driver"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is served on /health and /healthz. Status turns to
// "degraded" while the store is unreachable; the endpoint itself keeps
// answering 200 so liveness probes do not restart the process over a
// database outage.
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Service   string      `json:"service"`
	Version   string      `json:"version"`
	Store     StoreHealth `json:"store"`
}

type HealthHandler struct {
	serviceName string
	version     string
	driver      string
	store       Pinger
}

// NewHealthHandler reports on store, labelled with the STORE_DRIVER value.
// A nil store is reported as disabled.
func NewHealthHandler(serviceName, version, driver string, store Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		driver:      driver,
		store:       store,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	store := h.checkStore(c.Request.Context())

	status := "healthy"
	if store.Status == "down" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     store,
	})
}

func (h *HealthHandler) checkStore(ctx context.Context) StoreHealth {
	sh := StoreHealth{Driver: h.driver, Status: "disabled"}
	if h.store == nil {
		return sh
	}

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.Ping(pingCtx)
	sh.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		sh.Status = "down"
		sh.Error = err.Error()
		return sh
	}
	sh.Status = "up"
	return sh
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
