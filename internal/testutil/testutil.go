package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/localnerve/lxnotes/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps
// every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateProduction inserts a production
func CreateProduction(t *testing.T, db *gorm.DB, name string) *models.Production {
	t.Helper()
	prod := &models.Production{Name: name, Abbreviation: "TST"}
	if err := db.Create(prod).Error; err != nil {
		t.Fatalf("Failed to create production: %v", err)
	}
	return prod
}

// CreateNote inserts a note directly, bypassing validation
func CreateNote(t *testing.T, db *gorm.DB, note models.Note) *models.Note {
	t.Helper()
	if note.Priority == "" {
		note.Priority = models.PriorityMedium
	}
	if note.Status == "" {
		note.Status = models.StatusTodo
	}
	if note.Type == "" {
		note.Type = "cue"
	}
	if err := db.Create(&note).Error; err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	return &note
}

// ProductionVersion reads the current version of a production
func ProductionVersion(t *testing.T, db *gorm.DB, productionID string) uint64 {
	t.Helper()
	var prod models.Production
	if err := db.Unscoped().First(&prod, "id = ?", productionID).Error; err != nil {
		t.Fatalf("Failed to load production %s: %v", productionID, err)
	}
	return prod.Version
}

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("Expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

// ParseJSON decodes the response body into the target
func ParseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}
