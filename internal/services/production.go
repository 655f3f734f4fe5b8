package services

import (
	"errors"
	"strings"
	"time"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// ProductionInput carries the writable production fields. Nil pointers are left unchanged.
type ProductionInput struct {
	Name         *string    `json:"name"`
	Abbreviation *string    `json:"abbreviation"`
	Description  *string    `json:"description"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

// CreateProduction creates an empty production
func CreateProduction(db *gorm.DB, input ProductionInput) (*models.Production, error) {
	prod := &models.Production{}
	if err := applyProductionInput(prod, input); err != nil {
		return nil, err
	}
	if prod.Name == "" {
		return nil, types.Validationf("production name is required")
	}
	if err := db.Create(prod).Error; err != nil {
		return nil, err
	}
	return prod, nil
}

// ListProductions returns productions by name; includeDeleted also returns the trash
func ListProductions(db *gorm.DB, includeDeleted bool) ([]models.Production, error) {
	var prods []models.Production
	query := db
	if includeDeleted {
		query = query.Unscoped()
	}
	if err := query.Order("name").Find(&prods).Error; err != nil {
		return nil, err
	}
	return prods, nil
}

// GetProduction loads an active production
func GetProduction(db *gorm.DB, id string) (*models.Production, error) {
	var prod models.Production
	if err := db.Where("id = ?", id).First(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("production", id)
		}
		return nil, err
	}
	return &prod, nil
}

// UpdateProduction applies a partial update and bumps the version
func UpdateProduction(db *gorm.DB, id string, input ProductionInput) (*models.Production, error) {
	var prod *models.Production
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		prod, err = GetProduction(tx, id)
		if err != nil {
			return err
		}
		if err := applyProductionInput(prod, input); err != nil {
			return err
		}
		if prod.Name == "" {
			return types.Validationf("production name is required")
		}
		prod.Version++
		return tx.Save(prod).Error
	})
	return prod, err
}

// DeleteProduction moves a production to the trash
func DeleteProduction(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Production{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("production", id)
	}
	InvalidateFixtureIndex(id)
	return nil
}

// RestoreProduction takes a production out of the trash
func RestoreProduction(db *gorm.DB, id string) (*models.Production, error) {
	result := db.Unscoped().Model(&models.Production{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, notFound("deleted production", id)
	}
	return GetProduction(db, id)
}

// PurgeProduction permanently removes a production and everything scoped to it
func PurgeProduction(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Production{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("production", id)
		}
		if err := clearProductionContent(tx, id, true); err != nil {
			return err
		}
		if err := tx.Where("production_id = ?", id).Delete(&models.Checkpoint{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", id).Delete(&models.Production{}).Error
	})
}

// clearProductionContent deletes every scoped row of a production; presets optionally
func clearProductionContent(tx *gorm.DB, id string, withPresets bool) error {
	scoped := []interface{}{&models.Note{}, &models.SceneSong{}, &models.ScriptPage{}, &models.FixtureInfo{}}
	if withPresets {
		scoped = append(scoped, &models.Preset{})
	}
	for _, m := range scoped {
		if err := tx.Where("production_id = ?", id).Delete(m).Error; err != nil {
			return err
		}
	}
	InvalidateFixtureIndex(id)
	return nil
}

// touchProduction bumps the production version after a scoped mutation
func touchProduction(tx *gorm.DB, productionID string) error {
	result := tx.Model(&models.Production{}).
		Where("id = ?", productionID).
		UpdateColumns(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("production", productionID)
	}
	return nil
}

func applyProductionInput(prod *models.Production, input ProductionInput) error {
	if input.Name != nil {
		prod.Name = strings.TrimSpace(*input.Name)
	}
	if input.Abbreviation != nil {
		prod.Abbreviation = strings.TrimSpace(*input.Abbreviation)
	}
	if input.Description != nil {
		prod.Description = *input.Description
	}
	if input.StartDate != nil {
		prod.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		prod.EndDate = input.EndDate
	}
	if prod.StartDate != nil && prod.EndDate != nil && prod.EndDate.Before(*prod.StartDate) {
		return types.Validationf("end date must not be before start date")
	}
	return nil
}
