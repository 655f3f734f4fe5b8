package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/middleware"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/types"
	"gorm.io/gorm"
)

// SnapshotHandler handles export, import and checkpoint routes
type SnapshotHandler struct {
	DB          *gorm.DB
	Checkpoints *services.CheckpointService
}

// ExportProduction handles GET /api/productions/:productionId/export
// @Summary Export a production snapshot
// @Tags Snapshots
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {object} services.Snapshot
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/export [get]
func (h *SnapshotHandler) ExportProduction(c *fiber.Ctx) error {
	snap, err := services.ExportProduction(h.DB, c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "exportProduction")
	}
	name := snap.Production.Abbreviation
	if name == "" {
		name = snap.Production.ID
	}
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s-%s.json"`, strings.ReplaceAll(name, `"`, ""), snap.ExportedAt.Format("20060102T150405Z")))
	return c.JSON(snap)
}

// ImportSnapshot handles POST /api/productions/import
// @Summary Import a production snapshot
// @Description The snapshot is the JSON body or a multipart "file". Mode "new" creates a production, "replace" replaces the content of targetId.
// @Tags Snapshots
// @Accept json,multipart/form-data
// @Produce json
// @Param mode query string false "new (default) or replace"
// @Param targetId query string false "Production to replace"
// @Success 201 {object} services.SnapshotImport
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/import [post]
func (h *SnapshotHandler) ImportSnapshot(c *fiber.Ctx) error {
	data, err := snapshotPayload(c)
	if err != nil {
		return respondError(c, err, "importSnapshot")
	}
	snap, err := services.DecodeSnapshot(data)
	if err != nil {
		return respondError(c, err, "importSnapshot")
	}

	mode := c.Query("mode", services.ImportModeNew)
	targetID := c.Query("targetId")
	if mode == services.ImportModeReplace && targetID == "" {
		return respondError(c, types.Validationf("targetId is required to replace a production"), "importSnapshot")
	}
	result, err := services.ImportSnapshot(h.DB, snap, mode, targetID)
	if err != nil {
		return respondError(c, err, "importSnapshot")
	}

	status := fiber.StatusCreated
	if mode == services.ImportModeReplace {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(result)
}

func snapshotPayload(c *fiber.Ctx) ([]byte, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if len(c.Body()) == 0 {
			return nil, types.Validationf("snapshot body is empty")
		}
		return c.Body(), nil
	}
	header, err := c.FormFile("file")
	if err != nil {
		return nil, types.Validationf("snapshot file is required")
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// ListCheckpoints handles GET /api/productions/:productionId/checkpoints
// @Summary List checkpoints, newest first
// @Tags Checkpoints
// @Produce json
// @Param productionId path string true "Production ID"
// @Success 200 {array} models.Checkpoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/checkpoints [get]
func (h *SnapshotHandler) ListCheckpoints(c *fiber.Ctx) error {
	checkpoints, err := h.Checkpoints.ListCheckpoints(c.Params("productionId"))
	if err != nil {
		return respondError(c, err, "listCheckpoints")
	}
	return c.JSON(checkpoints)
}

// CreateCheckpoint handles POST /api/productions/:productionId/checkpoints
// @Summary Create a checkpoint
// @Description Label defaults to "Version N"
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body object false "{label}"
// @Success 201 {object} models.Checkpoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/checkpoints [post]
func (h *SnapshotHandler) CreateCheckpoint(c *fiber.Ctx) error {
	var body struct {
		Label string `json:"label" validate:"max=255"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &body); err != nil {
			return respondError(c, err, "createCheckpoint")
		}
	}
	checkpoint, err := h.Checkpoints.CreateCheckpoint(c.UserContext(), c.Params("productionId"), body.Label, middleware.CurrentUser(c, ""))
	if err != nil {
		return respondError(c, err, "createCheckpoint")
	}
	return c.Status(fiber.StatusCreated).JSON(checkpoint)
}

// GetCheckpoint handles GET /api/productions/:productionId/checkpoints/:checkpointId
// @Summary Get a checkpoint with its snapshot
// @Tags Checkpoints
// @Produce json
// @Param productionId path string true "Production ID"
// @Param checkpointId path string true "Checkpoint ID"
// @Success 200 {object} services.CheckpointDetail
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/checkpoints/{checkpointId} [get]
func (h *SnapshotHandler) GetCheckpoint(c *fiber.Ctx) error {
	detail, err := h.Checkpoints.GetCheckpoint(c.UserContext(), c.Params("productionId"), c.Params("checkpointId"))
	if err != nil {
		return respondError(c, err, "getCheckpoint")
	}
	return c.JSON(detail)
}

// DeleteCheckpoint handles DELETE /api/productions/:productionId/checkpoints/:checkpointId
// @Summary Delete a checkpoint
// @Tags Checkpoints
// @Param productionId path string true "Production ID"
// @Param checkpointId path string true "Checkpoint ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/checkpoints/{checkpointId} [delete]
func (h *SnapshotHandler) DeleteCheckpoint(c *fiber.Ctx) error {
	if err := h.Checkpoints.DeleteCheckpoint(c.UserContext(), c.Params("productionId"), c.Params("checkpointId")); err != nil {
		return respondError(c, err, "deleteCheckpoint")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreCheckpoint handles POST /api/productions/:productionId/checkpoints/:checkpointId/restore
// @Summary Restore a checkpoint
// @Description Refused with 409 E_VERSION when the production changed since version was read
// @Tags Checkpoints
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param checkpointId path string true "Checkpoint ID"
// @Param body body object true "{version}"
// @Success 200 {object} services.SnapshotImport
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/checkpoints/{checkpointId}/restore [post]
func (h *SnapshotHandler) RestoreCheckpoint(c *fiber.Ctx) error {
	var body struct {
		Version *types.FlexUint64 `json:"version" validate:"required"`
	}
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "restoreCheckpoint")
	}
	result, err := h.Checkpoints.RestoreCheckpoint(c.UserContext(), c.Params("productionId"), c.Params("checkpointId"), body.Version.Uint64())
	if err != nil {
		return respondError(c, err, "restoreCheckpoint")
	}
	return c.JSON(result)
}
