package services

import (
	"fmt"

	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	PDFRenderer  string            `json:"pdfRenderer"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthCheck checks the database and any configured remote dependencies
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:      "healthy",
		Authorizer:  "disabled",
		PDFRenderer: "local",
		Details:     make(map[string]string),
	}
	fail := func(component, detailKey string, err error) {
		result.Status = "unhealthy"
		result.Details[detailKey] = err.Error()
		msg := fmt.Sprintf("%s check failed: %v", component, err)
		if result.ErrorMessage == "" {
			result.ErrorMessage = msg
		} else {
			result.ErrorMessage += "; " + msg
		}
		zap.L().Warn("Health check failed", zap.String("component", component), zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		fail("Database", "database_error", err)
	} else if err := sqlDB.Ping(); err != nil {
		result.Database = "unreachable"
		fail("Database", "database_ping_error", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
	}

	if cfg.AuthEnabled() {
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			result.Authorizer = "unreachable"
			fail("Authorizer", "authorizer_error", err)
		} else {
			result.Authorizer = "ok"
			result.Details["authorizer_url"] = cfg.AuthzURL
		}
	}

	if cfg.ChromeRemoteURL != "" {
		if err := utils.PingChrome(cfg.ChromeRemoteURL); err != nil {
			result.PDFRenderer = "unreachable"
			fail("PDF renderer", "pdf_renderer_error", err)
		} else {
			result.PDFRenderer = "ok"
		}
	}

	if result.Status == "healthy" {
		zap.L().Debug("Health check passed")
	}
	return result
}
