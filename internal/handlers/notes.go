package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/console"
	"github.com/localnerve/lxnotes/internal/middleware"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/services"
	"gorm.io/gorm"
)

// NoteHandler handles note routes
type NoteHandler struct {
	DB      *gorm.DB
	Console console.Recaller
}

// noteFilterFromQuery builds a note filter from query parameters. A filter_sort
// preset named by presetId replaces the explicit parameters.
func noteFilterFromQuery(c *fiber.Ctx, db *gorm.DB, productionID string) (services.NoteFilter, error) {
	if presetID := c.Query("presetId"); presetID != "" {
		var cfg services.FilterSortConfig
		if _, err := services.LoadPresetConfig(db, productionID, presetID, models.PresetFilterSort, &cfg); err != nil {
			return services.NoteFilter{}, err
		}
		filter := cfg.Filter()
		filter.Search = c.Query("search")
		return filter, nil
	}

	return services.NoteFilter{
		ModuleType:   models.ModuleType(c.Query("moduleType")),
		Statuses:     convertList[models.NoteStatus](parseQueryList(c, "status")),
		Priorities:   convertList[models.Priority](parseQueryList(c, "priority")),
		Types:        parseQueryList(c, "type"),
		Search:       c.Query("search"),
		ScriptPageID: c.Query("scriptPageId"),
		SceneSongID:  c.Query("sceneSongId"),
		FixtureID:    c.Query("fixtureId"),
		SortField:    c.Query("sortField"),
		SortOrder:    c.Query("sortOrder"),
		GroupByType:  queryBool(c, "groupByType"),
	}, nil
}

// ListNotes handles GET /api/productions/:productionId/notes
// @Summary List notes
// @Description Filter and sort the notes of a production. Multi-valued filters accept repeated keys or comma-separated values.
// @Tags Notes
// @Produce json
// @Param productionId path string true "Production ID"
// @Param moduleType query string false "cue, work or production"
// @Param status query string false "Statuses"
// @Param priority query string false "Priorities"
// @Param type query string false "Note types"
// @Param search query string false "Case-insensitive search over title, description and cue number"
// @Param scriptPageId query string false "Script page link"
// @Param sceneSongId query string false "Scene/song link"
// @Param fixtureId query string false "Fixture link"
// @Param sortField query string false "cue_number, priority, status, type, title, created_at, updated_at, script_page"
// @Param sortOrder query string false "asc or desc"
// @Param groupByType query bool false "Group by note type first"
// @Param presetId query string false "filter_sort preset to apply instead of explicit filters"
// @Success 200 {array} models.Note
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes [get]
func (h *NoteHandler) ListNotes(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	filter, err := noteFilterFromQuery(c, h.DB, productionID)
	if err != nil {
		return respondError(c, err, "listNotes")
	}
	notes, err := services.ListNotes(h.DB, productionID, filter)
	if err != nil {
		return respondError(c, err, "listNotes")
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return c.JSON(notes)
}

// CreateNote handles POST /api/productions/:productionId/notes
// @Summary Create a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param body body services.NoteInput true "Note"
// @Success 201 {object} models.Note
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes [post]
func (h *NoteHandler) CreateNote(c *fiber.Ctx) error {
	var body services.NoteInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "createNote")
	}
	if body.CreatedBy == nil {
		if user := middleware.CurrentUser(c, ""); user != "" {
			body.CreatedBy = &user
		}
	}
	note, err := services.CreateNote(h.DB, c.Params("productionId"), body)
	if err != nil {
		return respondError(c, err, "createNote")
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetNote handles GET /api/productions/:productionId/notes/:noteId
// @Summary Get a note
// @Tags Notes
// @Produce json
// @Param productionId path string true "Production ID"
// @Param noteId path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes/{noteId} [get]
func (h *NoteHandler) GetNote(c *fiber.Ctx) error {
	note, err := services.GetNote(h.DB, c.Params("productionId"), c.Params("noteId"))
	if err != nil {
		return respondError(c, err, "getNote")
	}
	return c.JSON(note)
}

// UpdateNote handles PATCH /api/productions/:productionId/notes/:noteId
// @Summary Update a note
// @Description Partial update; an empty link id clears the link
// @Tags Notes
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param noteId path string true "Note ID"
// @Param body body services.NoteInput true "Fields to change"
// @Success 200 {object} models.Note
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes/{noteId} [patch]
func (h *NoteHandler) UpdateNote(c *fiber.Ctx) error {
	var body services.NoteInput
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "updateNote")
	}
	note, err := services.UpdateNote(h.DB, c.Params("productionId"), c.Params("noteId"), body)
	if err != nil {
		return respondError(c, err, "updateNote")
	}
	return c.JSON(note)
}

// SetNoteStatus handles PUT /api/productions/:productionId/notes/:noteId/status
// @Summary Set the status of a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param productionId path string true "Production ID"
// @Param noteId path string true "Note ID"
// @Param body body object true "{status: todo|complete|cancelled}"
// @Success 200 {object} models.Note
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes/{noteId}/status [put]
func (h *NoteHandler) SetNoteStatus(c *fiber.Ctx) error {
	var body struct {
		Status models.NoteStatus `json:"status" validate:"required,oneof=todo complete cancelled"`
	}
	if err := parseBody(c, &body); err != nil {
		return respondError(c, err, "setNoteStatus")
	}
	note, err := services.SetNoteStatus(h.DB, c.Params("productionId"), c.Params("noteId"), body.Status)
	if err != nil {
		return respondError(c, err, "setNoteStatus")
	}
	return c.JSON(note)
}

// DeleteNote handles DELETE /api/productions/:productionId/notes/:noteId
// @Summary Delete a note
// @Tags Notes
// @Produce json
// @Param productionId path string true "Production ID"
// @Param noteId path string true "Note ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes/{noteId} [delete]
func (h *NoteHandler) DeleteNote(c *fiber.Ctx) error {
	productionID := c.Params("productionId")
	if err := services.DeleteNote(h.DB, productionID, c.Params("noteId")); err != nil {
		return respondError(c, err, "deleteNote")
	}
	return versionedResponse(c, h.DB, productionID, 1)
}

// RecallCue handles POST /api/productions/:productionId/notes/:noteId/recall
// @Summary Fire the cue of a note on the lighting console
// @Tags Notes
// @Produce json
// @Param productionId path string true "Production ID"
// @Param noteId path string true "Note ID"
// @Success 200 {object} services.RecallResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /productions/{productionId}/notes/{noteId}/recall [post]
func (h *NoteHandler) RecallCue(c *fiber.Ctx) error {
	result, err := services.RecallCue(c.UserContext(), h.DB, h.Console, c.Params("productionId"), c.Params("noteId"))
	if err != nil {
		return respondError(c, err, "recallCue")
	}
	return c.JSON(result)
}

