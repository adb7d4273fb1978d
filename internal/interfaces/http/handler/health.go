package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/cashflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// healthTimeout bounds the database ping of a health check
const healthTimeout = 2 * time.Second

// Pinger is a dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Database string `json:"database,omitempty"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
}

// SystemHandler reports liveness and the record source in use
type SystemHandler struct {
	BaseHandler
	version   string
	source    string
	db        Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db is nil when the
// dashboard reads the built-in fixture.
func NewSystemHandler(version, source string, db Pinger) *SystemHandler {
	return &SystemHandler{
		version:   version,
		source:    source,
		db:        db,
		startTime: time.Now(),
	}
}

// Health pings the database when there is one. An unreachable database
// answers 503 so load balancers stop routing here.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		Source:  h.source,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if status != http.StatusOK {
		body := dto.NewErrorResponseWithRequestID(dto.ErrCodeServiceUnavailable, "Database unreachable", getRequestID(c))
		body.Data = resp
		c.JSON(status, body)
		return
	}
	h.Success(c, resp)
}

// SystemInfoResponse describes the running binary
type SystemInfoResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Source    string `json:"source"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns build and runtime details
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Version:   h.version,
		GoVersion: runtime.Version(),
		Source:    h.source,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
