package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/services"
	"gorm.io/gorm"
)

// ProductionHandler handles production routes
type ProductionHandler struct {
	DB *gorm.DB
}


// ListProductions handles GET /api/productions
// @Summary List productions
// @Description List productions ordered by name. Trashed productions are included with includeDeleted=true.
// @Tags Productions
// @Produce json
// @Param includeDeleted query bool false "Include productions in the trash"
// @Success 200 {array} models.Production
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /productions [get]
func (h *ProductionHandler) ListProductions(c *fiber.Ctx) error {
	prods, err := services.ListProductions(h.DB, queryBool(c, "includeDeleted"))
	if err != nil {
		return respondError(c, err, "listProductions")
	}
	return c.JSON(prods)
}

// CreateProduction handles POST /api/productions
// @Summary Create a production
// @Tags Productions
// @Accept json
// @Produce json
// @Param body body services.ProductionInput true "Production"
// @Success 201 {object} models.Production
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /productions [post]
func (h *ProductionHandler) CreateProduction(c *fiber.Ctx) error {
	var body services.ProductionInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "createProduction")
	}
	prod, err := services.CreateProduction(h.DB, body)
	if err != nil {
		return respondError(c, err, "createProduction")
	}
	return c.Status(fiber.StatusCreated).JSON(prod)
}

// GetProduction handles GET /api/productions/:productionId
// @Summary Get a production
// @Tags Productions
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {object} models.Production
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId} [get]
func (h *ProductionHandler) GetProduction(c *fiber.Ctx) error {
	prod, err := services.GetProduction(h.DB, c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "getProduction")
	}
	return c.JSON(prod)
}

// UpdateProduction handles PATCH /api/productions/:productionId
// @Summary Update a production
// @Description Partial update; omitted fields are unchanged
// @Tags Productions
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body services.ProductionInput true "Fields to change"
// @Success 200 {object} models.Production
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId} [patch]
func (h *ProductionHandler) UpdateProduction(c *fiber.Ctx) error {
	var body services.ProductionInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "updateProduction")
	}
	prod, err := services.UpdateProduction(h.DB, c.Params("productionId"), body)
	if err != nil {
		return respondError(c, err, "updateProduction")
	}
	return c.JSON(prod)
}

// DeleteProduction handles DELETE /api/productions/:productionId
// @Summary Move a production to the trash
// @Tags Productions
// @Param productionId path string true "Production ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId} [delete]
func (h *ProductionHandler) DeleteProduction(c *fiber.Ctx) error {
	if err := services.DeleteProduction(h.DB, c.Params("productionId")); err != nil {
		return respondError(c, err, "deleteProduction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreProduction handles POST /api/productions/:productionId/restore
// @Summary Restore a production from the trash
// @Tags Productions
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {object} models.Production
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/restore [post]
func (h *ProductionHandler) RestoreProduction(c *fiber.Ctx) error {
	prod, err := services.RestoreProduction(h.DB, c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "restoreProduction")
	}
	return c.JSON(prod)
}

// PurgeProduction handles DELETE /api/productions/:productionId/purge
// @Summary Permanently delete a production and everything in it
// @Tags Productions
// @Param productionId path string true "Production ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /productions/{productionId}/purge [delete]
func (h *ProductionHandler) PurgeProduction(c *fiber.Ctx) error {
	if err := services.PurgeProduction(h.DB, c.Params("productionId")); err != nil {
		return respondError(c, err, "purgeProduction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
