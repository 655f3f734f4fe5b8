package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// PageStyleConfig controls the printed page layout
type PageStyleConfig struct {
	PaperSize         string `json:"paperSize" validate:"required,oneof=a4 letter legal"`
	Orientation       string `json:"orientation" validate:"required,oneof=portrait landscape"`
	IncludeCheckboxes bool   `json:"includeCheckboxes"`
}

// FilterSortConfig is a stored note filter and sort
type FilterSortConfig struct {
	ModuleType      models.ModuleType               `json:"moduleType" validate:"required,oneof=cue work production"`
	StatusFilter    *models.NoteStatus              `json:"statusFilter" validate:"omitempty,oneof=todo complete cancelled"`
	TypeFilters     types.FlexList[string]          `json:"typeFilters"`
	PriorityFilters types.FlexList[models.Priority] `json:"priorityFilters" validate:"dive,oneof=critical very_high high medium low very_low"`
	SortField       string                          `json:"sortField" validate:"omitempty,oneof=cue_number priority status type title created_at updated_at script_page"`
	SortOrder       string                          `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	GroupByType     bool                            `json:"groupByType"`
}

// EmailMessageConfig is a stored email template
type EmailMessageConfig struct {
	Recipients            types.FlexList[string] `json:"recipients" validate:"required,min=1,dive,email"`
	Subject               string                 `json:"subject" validate:"required"`
	Message               string                 `json:"message"`
	FilterAndSortPresetID string                 `json:"filterAndSortPresetId"`
	PageStylePresetID     string                 `json:"pageStylePresetId"`
	IncludeNotesInBody    bool                   `json:"includeNotesInBody"`
	AttachPdf             bool                   `json:"attachPdf"`
}

// PrintConfig pairs a filter preset with a page style
type PrintConfig struct {
	FilterAndSortPresetID string `json:"filterAndSortPresetId" validate:"required"`
	PageStylePresetID     string `json:"pageStylePresetId" validate:"required"`
}

// PresetInput carries writable preset fields
type PresetInput struct {
	Type      *models.PresetType `json:"type"`
	Name      *string            `json:"name" validate:"omitempty,max=255"`
	IsDefault *bool              `json:"isDefault"`
	Config    *json.RawMessage   `json:"config"`
}

// Filter converts the stored filter into a note listing filter
func (c FilterSortConfig) Filter() NoteFilter {
	f := NoteFilter{
		ModuleType:  c.ModuleType,
		Priorities:  c.PriorityFilters,
		Types:       c.TypeFilters,
		SortField:   c.SortField,
		SortOrder:   c.SortOrder,
		GroupByType: c.GroupByType,
	}
	if c.StatusFilter != nil {
		f.Statuses = []models.NoteStatus{*c.StatusFilter}
	}
	return f
}

// DecodePresetConfig decodes and validates raw config for a preset type
func DecodePresetConfig(presetType models.PresetType, raw []byte) (any, error) {
	var cfg any
	switch presetType {
	case models.PresetPageStyle:
		cfg = &PageStyleConfig{}
	case models.PresetFilterSort:
		cfg = &FilterSortConfig{}
	case models.PresetEmailMessage:
		cfg = &EmailMessageConfig{}
	case models.PresetPrint:
		cfg = &PrintConfig{}
	default:
		return nil, types.Validationf("unknown preset type '%s'", presetType)
	}
	if len(raw) == 0 {
		return nil, types.Validationf("preset config is required")
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, types.Validationf("invalid %s config: %v", presetType, err)
	}
	if err := ValidateStruct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListPresets returns the system defaults followed by the production's presets, by name
func ListPresets(db *gorm.DB, productionID string, presetType models.PresetType) ([]models.Preset, error) {
	if presetType != "" && !presetType.Valid() {
		return nil, types.Validationf("unknown preset type '%s'", presetType)
	}
	if _, err := GetProduction(db, productionID); err != nil {
		return nil, err
	}
	query := db.Where("production_id = ? OR production_id = ''", productionID)
	if presetType != "" {
		query = query.Where("type = ?", presetType)
	}
	var presets []models.Preset
	err := query.Order("CASE WHEN production_id = '' THEN 0 ELSE 1 END, type, name").Find(&presets).Error
	return presets, err
}

// GetPreset loads a preset visible to a production, system defaults included
func GetPreset(db *gorm.DB, productionID, presetID string) (*models.Preset, error) {
	var preset models.Preset
	err := db.Where("id = ? AND (production_id = ? OR production_id = '')", presetID, productionID).First(&preset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("preset", presetID)
		}
		return nil, err
	}
	return &preset, nil
}

// CreatePreset adds a production preset. Names are unique per production and type.
func CreatePreset(db *gorm.DB, productionID string, input PresetInput) (*models.Preset, error) {
	if input.Type == nil || input.Name == nil || input.Config == nil {
		return nil, types.Validationf("preset type, name and config are required")
	}
	preset := &models.Preset{ProductionID: productionID}
	if err := applyPresetInput(preset, input); err != nil {
		return nil, err
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkPresetName(tx, preset); err != nil {
			return err
		}
		if err := tx.Create(preset).Error; err != nil {
			return err
		}
		if err := clearOtherDefaults(tx, preset); err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return preset, nil
}

// UpdatePreset applies a partial update. System defaults are read-only.
func UpdatePreset(db *gorm.DB, productionID, presetID string, input PresetInput) (*models.Preset, error) {
	var preset *models.Preset
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if preset, err = GetPreset(tx, productionID, presetID); err != nil {
			return err
		}
		if preset.IsSystem() {
			return readOnly(preset)
		}
		if input.Type != nil && *input.Type != preset.Type && input.Config == nil {
			return types.Validationf("changing the preset type requires a new config")
		}
		if err := applyPresetInput(preset, input); err != nil {
			return err
		}
		if err := checkPresetName(tx, preset); err != nil {
			return err
		}
		if err := tx.Save(preset).Error; err != nil {
			return err
		}
		if err := clearOtherDefaults(tx, preset); err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
	if err != nil {
		return nil, err
	}
	return preset, nil
}

// DeletePreset removes a production preset. System defaults are read-only.
func DeletePreset(db *gorm.DB, productionID, presetID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		preset, err := GetPreset(tx, productionID, presetID)
		if err != nil {
			return err
		}
		if preset.IsSystem() {
			return readOnly(preset)
		}
		if err := tx.Delete(preset).Error; err != nil {
			return err
		}
		return touchProduction(tx, productionID)
	})
}

// LoadPresetConfig loads a preset of the expected type and decodes its config into out
func LoadPresetConfig(db *gorm.DB, productionID, presetID string, presetType models.PresetType, out any) (*models.Preset, error) {
	preset, err := GetPreset(db, productionID, presetID)
	if err != nil {
		return nil, err
	}
	if preset.Type != presetType {
		return nil, types.Validationf("preset '%s' is a %s preset, expected %s", preset.Name, preset.Type, presetType)
	}
	if err := preset.Config.Decode(out); err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", preset.ID, err)
	}
	return preset, nil
}

// SystemPreset is an entry of the embedded default preset file
type SystemPreset struct {
	Type      models.PresetType `json:"type"`
	Name      string            `json:"name"`
	IsDefault bool              `json:"isDefault"`
	Config    json.RawMessage   `json:"config"`
}

// SeedSystemPresets creates or refreshes the read-only system presets from a JSON list
func SeedSystemPresets(db *gorm.DB, data []byte) (int, error) {
	var defaults []SystemPreset
	if err := json.Unmarshal(data, &defaults); err != nil {
		return 0, fmt.Errorf("parse system presets: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, def := range defaults {
			if _, err := DecodePresetConfig(def.Type, def.Config); err != nil {
				return fmt.Errorf("system preset %s/%s: %w", def.Type, def.Name, err)
			}
			var preset models.Preset
			err := tx.Where("production_id = '' AND type = ? AND name = ?", def.Type, def.Name).First(&preset).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			preset.Type = def.Type
			preset.Name = def.Name
			preset.IsDefault = def.IsDefault
			preset.Config = models.JSON{}
			if err := preset.Config.UnmarshalJSON(def.Config); err != nil {
				return err
			}
			if err := tx.Save(&preset).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(defaults), nil
}

func applyPresetInput(preset *models.Preset, input PresetInput) error {
	if input.Type != nil {
		preset.Type = *input.Type
	}
	if !preset.Type.Valid() {
		return types.Validationf("unknown preset type '%s'", preset.Type)
	}
	if input.Name != nil {
		preset.Name = strings.TrimSpace(*input.Name)
	}
	if preset.Name == "" {
		return types.Validationf("preset name is required")
	}
	if input.IsDefault != nil {
		preset.IsDefault = *input.IsDefault
	}
	if input.Config != nil {
		if _, err := DecodePresetConfig(preset.Type, *input.Config); err != nil {
			return err
		}
		if err := preset.Config.UnmarshalJSON(*input.Config); err != nil {
			return err
		}
	}
	return nil
}

func checkPresetName(tx *gorm.DB, preset *models.Preset) error {
	var count int64
	query := tx.Model(&models.Preset{}).
		Where("production_id = ? AND type = ? AND name = ?", preset.ProductionID, preset.Type, preset.Name)
	if preset.ID != "" {
		query = query.Where("id <> ?", preset.ID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return types.Validationf("a %s preset named '%s' already exists", preset.Type, preset.Name)
	}
	return nil
}

// clearOtherDefaults keeps at most one default preset per production and type
func clearOtherDefaults(tx *gorm.DB, preset *models.Preset) error {
	if !preset.IsDefault {
		return nil
	}
	return tx.Model(&models.Preset{}).
		Where("production_id = ? AND type = ? AND id <> ?", preset.ProductionID, preset.Type, preset.ID).
		Update("is_default", false).Error
}

func readOnly(preset *models.Preset) error {
	return &types.CustomError{
		Code:    http.StatusForbidden,
		Message: fmt.Sprintf("system preset '%s' is read-only: %v", preset.Name, ErrReadOnly),
		Type:    types.ErrTypeReadOnly,
	}
}
