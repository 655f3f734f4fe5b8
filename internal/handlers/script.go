package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/services"
	"gorm.io/gorm"
)

// ScriptHandler handles script page and scene/song routes
type ScriptHandler struct {
	DB *gorm.DB
}

// ListScriptPages handles GET /api/productions/:productionId/script/pages
// @Summary List script pages
// @Description Pages in natural page order (2, 10, 10a, 10b, 11)
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {array} models.ScriptPage
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages [get]
func (h *ScriptHandler) ListScriptPages(c *fiber.Ctx) error {
	pages, err := services.ListScriptPages(h.DB, c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "listScriptPages")
	}
	if pages == nil {
		pages = []models.ScriptPage{}
	}
	return c.JSON(pages)
}

// CreateScriptPage handles POST /api/productions/:productionId/script/pages
// @Summary Create a script page
// @Tags Script
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body services.ScriptPageInput true "Page"
// @Success 201 {object} models.ScriptPage
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages [post]
func (h *ScriptHandler) CreateScriptPage(c *fiber.Ctx) error {
	var body services.ScriptPageInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "createScriptPage")
	}
	page, err := services.CreateScriptPage(h.DB, c.Params("productionId"), body)
	if err != nil {
		return respondError(c, err, "createScriptPage")
	}
	return c.Status(fiber.StatusCreated).JSON(page)
}

// UpdateScriptPage handles PATCH /api/productions/:productionId/script/pages/:pageId
// @Summary Update a script page
// @Tags Script
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param pageId path string true "Page ID"
// @Param body body services.ScriptPageInput true "Fields to change"
// @Success 200 {object} models.ScriptPage
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages/{pageId} [patch]
func (h *ScriptHandler) UpdateScriptPage(c *fiber.Ctx) error {
	var body services.ScriptPageInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "updateScriptPage")
	}
	page, err := services.UpdateScriptPage(h.DB, c.Params("productionId"), c.Params("pageId"), body)
	if err != nil {
		return respondError(c, err, "updateScriptPage")
	}
	return c.JSON(page)
}

// DeleteScriptPage handles DELETE /api/productions/:productionId/script/pages/:pageId
// @Summary Delete a script page and its scenes/songs
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Param pageId path string true "Page ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages/{pageId} [delete]
func (h *ScriptHandler) DeleteScriptPage(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	if err := services.DeleteScriptPage(h.DB, productionID, c.Params("pageId")); err != nil {
		return respondError(c, err, "deleteScriptPage")
	}
	return versionedResponse(c, h.DB, productionID, 1)
}

// ListScenesSongs handles GET /api/productions/:productionId/script/pages/:pageId/scenes
// @Summary List the scenes and songs of a page
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Param pageId path string true "Page ID"
// @Success 200 {array} models.SceneSong
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages/{pageId}/scenes [get]
func (h *ScriptHandler) ListScenesSongs(c *fiber.Ctx) error {
	scenes, err := services.ListScenesSongs(h.DB, c.Params("productionId"), c.Params("pageId"))
	if err != nil {
		return respondError(c, err, "listScenesSongs")
	}
	if scenes == nil {
		scenes = []models.SceneSong{}
	}
	return c.JSON(scenes)
}

// CreateSceneSong handles POST /api/productions/:productionId/script/pages/:pageId/scenes
// @Summary Add a scene or song to a page
// @Tags Script
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param pageId path string true "Page ID"
// @Param body body services.SceneSongInput true "Scene/song"
// @Success 201 {object} models.SceneSong
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/pages/{pageId}/scenes [post]
func (h *ScriptHandler) CreateSceneSong(c *fiber.Ctx) error {
	var body services.SceneSongInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "createSceneSong")
	}
	scene, err := services.CreateSceneSong(h.DB, c.Params("productionId"), c.Params("pageId"), body)
	if err != nil {
		return respondError(c, err, "createSceneSong")
	}
	return c.Status(fiber.StatusCreated).JSON(scene)
}

// UpdateSceneSong handles PATCH /api/productions/:productionId/script/scenes/:sceneId
// @Summary Update a scene or song
// @Description An empty continuesFromId clears the continuation link
// @Tags Script
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param sceneId path string true "Scene/song ID"
// @Param body body services.SceneSongInput true "Fields to change"
// @Success 200 {object} models.SceneSong
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/scenes/{sceneId} [patch]
func (h *ScriptHandler) UpdateSceneSong(c *fiber.Ctx) error {
	var body services.SceneSongInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "updateSceneSong")
	}
	scene, err := services.UpdateSceneSong(h.DB, c.Params("productionId"), c.Params("sceneId"), body)
	if err != nil {
		return respondError(c, err, "updateSceneSong")
	}
	return c.JSON(scene)
}

// DeleteSceneSong handles DELETE /api/productions/:productionId/script/scenes/:sceneId
// @Summary Delete a scene or song
// @Description A scene in the middle of a chain is spliced out
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Param sceneId path string true "Scene/song ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/scenes/{sceneId} [delete]
func (h *ScriptHandler) DeleteSceneSong(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	if err := services.DeleteSceneSong(h.DB, productionID, c.Params("sceneId")); err != nil {
		return respondError(c, err, "deleteSceneSong")
	}
	return versionedResponse(c, h.DB, productionID, 1)
}

// ContinueSceneSong handles POST /api/productions/:productionId/script/scenes/:sceneId/continue
// @Summary Continue a scene or song onto a later page
// @Tags Script
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param sceneId path string true "Scene/song ID"
// @Param body body object true "{targetPageId}"
// @Success 201 {object} models.SceneSong
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/scenes/{sceneId}/continue [post]
func (h *ScriptHandler) ContinueSceneSong(c *fiber.Ctx) error {
	var body struct {
		TargetPageID string `json:"targetPageId" validate:"required"`
	}
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "continueSceneSong")
	}
	scene, err := services.ContinueSceneSong(h.DB, c.Params("productionId"), c.Params("sceneId"), body.TargetPageID)
	if err != nil {
		return respondError(c, err, "continueSceneSong")
	}
	return c.Status(fiber.StatusCreated).JSON(scene)
}

// ResolveChain handles GET /api/productions/:productionId/script/scenes/:sceneId/chain
// @Summary Resolve the continuation chain of a scene or song
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Param sceneId path string true "Scene/song ID"
// @Success 200 {array} models.SceneSong
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/scenes/{sceneId}/chain [get]
func (h *ScriptHandler) ResolveChain(c *fiber.Ctx) error {
	chain, err := services.ResolveChain(h.DB, c.Params("productionId"), c.Params("sceneId"))
	if err != nil {
		return respondError(c, err, "resolveChain")
	}
	return c.JSON(chain)
}

// CueOrderWarnings handles GET /api/productions/:productionId/script/warnings
// @Summary Cue order warnings
// @Tags Script
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {array} services.CueOrderWarning
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/script/warnings [get]
func (h *ScriptHandler) CueOrderWarnings(c *fiber.Ctx) error {
	warnings, err := services.CueOrderWarnings(h.DB, c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "cueOrderWarnings")
	}
	return c.JSON(warnings)
}
