package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// JobReporter exposes the state of a background job
type JobReporter interface {
	Name() string
	IsRunning() bool
	LastRun() *scheduler.RunRecord
}

// SystemHandler handles health and system endpoints
type SystemHandler struct {
	BaseHandler
	db        Pinger
	version   string
	startTime time.Time
	jobs      []JobReporter
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		version:   version,
		startTime: time.Now(),
	}
}

// AddJob lists a background job in /system/info
func (h *SystemHandler) AddJob(job JobReporter) {
	h.jobs = append(h.jobs, job)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string    `json:"name" example:"stockledger"`
	Version   string    `json:"version" example:"1.0.0"`
	GoVersion string    `json:"go_version" example:"go1.25.5"`
	Uptime    string    `json:"uptime" example:"1h30m45s"`
	Jobs      []JobInfo `json:"jobs,omitempty"`
}

// JobInfo is a background job and its most recent run
type JobInfo struct {
	Name          string     `json:"name" example:"reorder_scan"`
	Scheduled     bool       `json:"scheduled"`
	LastStatus    string     `json:"last_status,omitempty" example:"SUCCESS"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Database string `json:"database" example:"connected"`
}

// Health godoc
// @ID           health
// @Summary      Liveness and database connectivity
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "disconnected"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Database: "connected"})
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "stockledger",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	for _, job := range h.jobs {
		ji := JobInfo{Name: job.Name(), Scheduled: job.IsRunning()}
		if last := job.LastRun(); last != nil {
			started := last.StartedAt
			ji.LastStatus = string(last.Status)
			ji.LastStartedAt = &started
			ji.LastError = last.Error
		}
		info.Jobs = append(info.Jobs, ji)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
