package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/services"
	"gorm.io/gorm"
)

// PresetHandler handles preset routes
type PresetHandler struct {
	DB *gorm.DB
}

// ListPresets handles GET /api/productions/:productionId/presets
// @Summary List presets
// @Description System defaults first, then the production's own presets
// @Tags Presets
// @Produce json
// @Param productionId path string true "Production ID"
// @Param type query string false "page_style, filter_sort, email_message or print"
// @Success 200 {array} models.Preset
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/presets [get]
func (h *PresetHandler) ListPresets(c *fiber.Ctx) error {
	presets, err := services.ListPresets(h.DB, c.Params("productionId"), models.PresetType(c.Query("type")))
	if err != nil {
		return respondError(c, err, "listPresets")
	}
	if presets == nil {
		presets = []models.Preset{}
	}
	return c.JSON(presets)
}

// CreatePreset handles POST /api/productions/:productionId/presets
// @Summary Create a preset
// @Tags Presets
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body services.PresetInput true "Preset"
// @Success 201 {object} models.Preset
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/presets [post]
func (h *PresetHandler) CreatePreset(c *fiber.Ctx) error {
	var body services.PresetInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "createPreset")
	}
	preset, err := services.CreatePreset(h.DB, c.Params("productionId"), body)
	if err != nil {
		return respondError(c, err, "createPreset")
	}
	return c.Status(fiber.StatusCreated).JSON(preset)
}

// GetPreset handles GET /api/productions/:productionId/presets/:presetId
// @Summary Get a preset
// @Tags Presets
// @Produce json
// @Param productionId path string true "Production ID"
// @Param presetId path string true "Preset ID"
// @Success 200 {object} models.Preset
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/presets/{presetId} [get]
func (h *PresetHandler) GetPreset(c *fiber.Ctx) error {
	preset, err := services.GetPreset(h.DB, c.Params("productionId"), c.Params("presetId"))
	if err != nil {
		return respondError(c, err, "getPreset")
	}
	return c.JSON(preset)
}

// UpdatePreset handles PATCH /api/productions/:productionId/presets/:presetId
// @Summary Update a preset
// @Description System presets are read-only
// @Tags Presets
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param presetId path string true "Preset ID"
// @Param body body services.PresetInput true "Fields to change"
// @Success 200 {object} models.Preset
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/presets/{presetId} [patch]
func (h *PresetHandler) UpdatePreset(c *fiber.Ctx) error {
	var body services.PresetInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "updatePreset")
	}
	preset, err := services.UpdatePreset(h.DB, c.Params("productionId"), c.Params("presetId"), body)
	if err != nil {
		return respondError(c, err, "updatePreset")
	}
	return c.JSON(preset)
}

// DeletePreset handles DELETE /api/productions/:productionId/presets/:presetId
// @Summary Delete a preset
// @Description System presets are read-only
// @Tags Presets
// @Produce json
// @Param productionId path string true "Production ID"
// @Param presetId path string true "Preset ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/presets/{presetId} [delete]
func (h *PresetHandler) DeletePreset(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	if err := services.DeletePreset(h.DB, productionID, c.Params("presetId")); err != nil {
		return respondError(c, err, "deletePreset")
	}
	return versionedResponse(c, h.DB, productionID, 1)
}
