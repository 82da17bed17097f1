package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/jmoiron/sqlx"
)

// HealthService reports process and dependency health.
type HealthService struct {
	version   string
	db        *sqlx.DB
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth is the health of one dependency.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service.
func NewHealthService(version string, db *sqlx.DB, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		db:        db,
		startTime: time.Now(),
		logger:    logger,
	}
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// Info returns build and runtime version details.
func (s *HealthService) Info() VersionInfo {
	return VersionInfo{
		Version:   s.version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Check pings the snapshot store and assembles the overall status. The
// service reports degraded, not down, when the database is unreachable:
// estimates against a cached snapshot still work.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
		Services: map[string]interface{}{},
	}

	dbHealth := ServiceHealth{Status: "healthy"}
	if s.db == nil {
		dbHealth = ServiceHealth{Status: "unconfigured", Message: "no database connection"}
		status.Status = "degraded"
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(pingCtx); err != nil {
			s.logger.WarnContext(ctx, "database ping failed", "error", err)
			dbHealth = ServiceHealth{Status: "unhealthy", Message: err.Error()}
			status.Status = "degraded"
		}
	}
	status.Services["database"] = dbHealth

	return status
}
