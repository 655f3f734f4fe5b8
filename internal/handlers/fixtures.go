package handlers

import (
	"encoding/json"
	"strconv"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/csvimport"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"github.com/localnerve/lxnotes/internal/utils"
	"gorm.io/gorm"
)

// FixtureHandler handles fixture and hookup import routes
type FixtureHandler struct {
	DB             *gorm.DB
	MaxUploadBytes int64
	MaxRowErrors   int
}

// ListFixtures handles GET /api/productions/:productionId/fixtures
// @Summary List fixtures
// @Tags Fixtures
// @Produce json
// @Param productionId path string true "Production ID"
// @Param active query bool false "Only active (true) or inactive (false) fixtures"
// @Param channel query int false "Channel"
// @Param position query string false "Hanging position"
// @Success 200 {array} models.FixtureInfo
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures [get]
func (h *FixtureHandler) ListFixtures(c *fiber.Ctx) error {
	filter := services.FixtureFilter{Position: c.Query("position")}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return respondError(c, types.Validationf("invalid active flag '%s'", v), "listFixtures")
		}
		filter.Active = &active
	}
	if v := c.Query("channel"); v != "" {
		channel, ok := services.ParseChannel(v)
		if !ok {
			return respondError(c, types.Validationf("invalid channel '%s'", v), "listFixtures")
		}
		filter.Channel = &channel
	}

	fixtures, err := services.ListFixtures(h.DB, c.Params("productionId"), filter)
	if err != nil {
		return respondError(c, err, "listFixtures")
	}
	if fixtures == nil {
		fixtures = []models.FixtureInfo{}
	}
	return c.JSON(fixtures)
}

// GetFixture handles GET /api/productions/:productionId/fixtures/:fixtureId
// @Summary Get a fixture
// @Tags Fixtures
// @Produce json
// @Param productionId path string true "Production ID"
// @Param fixtureId path string true "Fixture ID"
// @Success 200 {object} models.FixtureInfo
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures/{fixtureId} [get]
func (h *FixtureHandler) GetFixture(c *fiber.Ctx) error {
	fixture, err := services.GetFixture(h.DB, c.Params("productionId"), c.Params("fixtureId"))
	if err != nil {
		return respondError(c, err, "getFixture")
	}
	return c.JSON(fixture)
}

// LookupChannel handles GET /api/productions/:productionId/fixtures/channels/:channel
// @Summary Active fixtures on a channel
// @Tags Fixtures
// @Produce json
// @Param productionId path string true "Production ID"
// @Param channel path int true "Channel"
// @Success 200 {array} models.FixtureInfo
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures/channels/{channel} [get]
func (h *FixtureHandler) LookupChannel(c *fiber.Ctx) error {
	channel, ok := services.ParseChannel(c.Params("channel"))
	if !ok {
		return respondError(c, types.Validationf("invalid channel '%s'", c.Params("channel")), "lookupChannel")
	}
	fixtures, err := services.LookupChannel(h.DB, c.Params("productionId"), channel)
	if err != nil {
		return respondError(c, err, "lookupChannel")
	}
	if fixtures == nil {
		fixtures = []models.FixtureInfo{}
	}
	return c.JSON(fixtures)
}

// DeleteFixture handles DELETE /api/productions/:productionId/fixtures/:fixtureId
// @Summary Delete a fixture
// @Description Notes linked to the fixture are unlinked
// @Tags Fixtures
// @Produce json
// @Param productionId path string true "Production ID"
// @Param fixtureId path string true "Fixture ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures/{fixtureId} [delete]
func (h *FixtureHandler) DeleteFixture(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	if err := services.DeleteFixture(h.DB, productionID, c.Params("fixtureId")); err != nil {
		return respondError(c, err, "deleteFixture")
	}
	return versionedResponse(c, h.DB, productionID, 1)
}

// DeleteAllFixtures handles DELETE /api/productions/:productionId/fixtures
// @Summary Delete every fixture of a production
// @Tags Fixtures
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures [delete]
func (h *FixtureHandler) DeleteAllFixtures(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	affected, err := services.DeleteAllFixtures(h.DB, productionID)
	if err != nil {
		return respondError(c, err, "deleteAllFixtures")
	}
	return versionedResponse(c, h.DB, productionID, affected)
}

// ImportHookup handles POST /api/productions/:productionId/fixtures/import
// @Summary Import a Lightwright hookup CSV
// @Description Upserts fixtures by Lightwright ID. Rows with errors are skipped and reported.
// @Tags Fixtures
// @Accept multipart/form-data
// @Produce json
// @Param productionId path string true "Production ID"
// @Param file formData file true "Hookup CSV"
// @Param mapping formData string false "JSON object of field to CSV header"
// @Param deactivateMissing formData bool false "Deactivate fixtures absent from the file"
// @Param delimiter formData string false "Field delimiter, default comma"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 413 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/fixtures/import [post]
func (h *FixtureHandler) ImportHookup(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, "Hookup file is required", fiber.StatusBadRequest, types.ErrTypeImport)
	}
	if h.MaxUploadBytes > 0 && header.Size > h.MaxUploadBytes {
		return respondError(c, csvimport.ErrFileTooLarge, "importHookup")
	}

	opts := services.HookupImportOptions{
		MaxBytes:     h.MaxUploadBytes,
		MaxRowErrors: h.MaxRowErrors,
	}
	if v := c.FormValue("deactivateMissing"); v != "" {
		deactivate, err := strconv.ParseBool(v)
		if err != nil {
			return respondError(c, types.Validationf("invalid deactivateMissing '%s'", v), "importHookup")
		}
		opts.DeactivateMissing = deactivate
	}
	if v := c.FormValue("mapping"); v != "" {
		if err := json.Unmarshal([]byte(v), &opts.Mapping); err != nil {
			return respondError(c, types.Validationf("invalid mapping: %v", err), "importHookup")
		}
	}
	if v := c.FormValue("delimiter"); v != "" {
		d, size := utf8.DecodeRuneInString(v)
		if size != len(v) {
			return respondError(c, types.Validationf("delimiter must be a single character"), "importHookup")
		}
		opts.Delimiter = d
	}

	file, err := header.Open()
	if err != nil {
		return respondError(c, err, "importHookup")
	}
	defer file.Close()

	result, err := services.ImportHookupCSV(h.DB, c.Params("productionId"), file, opts)
	if err != nil {
		return respondError(c, err, "importHookup")
	}
	return c.JSON(result)
}
