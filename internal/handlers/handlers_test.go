package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/data"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/handlers"
	"github.com/localnerve/lxnotes/internal/models"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/testutil"
	"github.com/localnerve/lxnotes/internal/types"
	"github.com/localnerve/lxnotes/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupApp registers every route on a fresh in-memory database with auth disabled
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		DBType:         "sqlite",
		MaxUploadBytes: 4096,
		MaxRowErrors:   10,
		PDFTimeout:     5 * time.Second,
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(app.Group("/api"), handlers.Dependencies{
		Config:      cfg,
		DB:          db,
		Engine:      printing.NewTemplateEngine(),
		Checkpoints: services.NewCheckpointService(db, nil, nil),
	})
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func uploadCSV(t *testing.T, app *fiber.App, url, content string, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "hookup.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, url, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/health", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)

	var result services.HealthCheckResult
	testutil.ParseJSON(t, resp, &result)
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "disabled", result.Authorizer)
}

func TestProductionRoutes(t *testing.T) {
	app, _ := setupApp(t)

	resp := doJSON(t, app, fiber.MethodPost, "/api/productions", map[string]any{"name": "  Hamlet ", "abbreviation": "HAM"})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var prod models.Production
	testutil.ParseJSON(t, resp, &prod)
	assert.Equal(t, "Hamlet", prod.Name)

	resp = doJSON(t, app, fiber.MethodPost, "/api/productions", map[string]any{"name": ""})
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)

	resp = doJSON(t, app, fiber.MethodDelete, "/api/productions/"+prod.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusNoContent)

	resp = doJSON(t, app, fiber.MethodGet, "/api/productions/"+prod.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusNotFound)

	resp = doJSON(t, app, fiber.MethodGet, "/api/productions?includeDeleted=true", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var list []models.Production
	testutil.ParseJSON(t, resp, &list)
	require.Len(t, list, 1)

	resp = doJSON(t, app, fiber.MethodPost, "/api/productions/"+prod.ID+"/restore", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)

	resp = doJSON(t, app, fiber.MethodDelete, "/api/productions/"+prod.ID+"/purge", nil)
	testutil.AssertStatus(t, resp, fiber.StatusNoContent)

	resp = doJSON(t, app, fiber.MethodGet, "/api/productions?includeDeleted=true", nil)
	testutil.ParseJSON(t, resp, &list)
	assert.Empty(t, list)
}

func TestNoteRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	base := "/api/productions/" + prod.ID + "/notes"

	resp := doJSON(t, app, fiber.MethodPost, base, map[string]any{
		"moduleType": "cue", "title": "Ghost entrance", "type": "cue", "cueNumber": "12", "priority": "high",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var note models.Note
	testutil.ParseJSON(t, resp, &note)
	assert.Equal(t, models.StatusTodo, note.Status)

	resp = doJSON(t, app, fiber.MethodPost, base, map[string]any{
		"moduleType": "cue", "title": "Storm", "type": "cue", "cueNumber": "9",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)

	resp = doJSON(t, app, fiber.MethodPost, base, map[string]any{"moduleType": "lights", "title": "x", "type": "cue"})
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)

	resp = doJSON(t, app, fiber.MethodGet, base+"?moduleType=cue", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var notes []models.Note
	testutil.ParseJSON(t, resp, &notes)
	require.Len(t, notes, 2)
	assert.Equal(t, "Storm", notes[0].Title)
	storm := notes[0]

	resp = doJSON(t, app, fiber.MethodGet, base+"?search=ghost&priority=high,critical", nil)
	testutil.ParseJSON(t, resp, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, note.ID, notes[0].ID)

	resp = doJSON(t, app, fiber.MethodGet, base+"?sortField=colour", nil)
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)

	resp = doJSON(t, app, fiber.MethodPut, base+"/"+note.ID+"/status", map[string]any{"status": "complete"})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var updated models.Note
	testutil.ParseJSON(t, resp, &updated)
	assert.Equal(t, models.StatusComplete, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	resp = doJSON(t, app, fiber.MethodPatch, base+"/"+note.ID, map[string]any{"title": "Ghost exit"})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	testutil.ParseJSON(t, resp, &updated)
	assert.Equal(t, "Ghost exit", updated.Title)

	version := testutil.ProductionVersion(t, db, prod.ID)
	resp = doJSON(t, app, fiber.MethodDelete, base+"/"+note.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var mutation utils.SuccessResponseStruct
	testutil.ParseJSON(t, resp, &mutation)
	assert.True(t, mutation.Ok)
	assert.Equal(t, fmt.Sprintf("%d", version+1), mutation.NewVersion)

	resp = doJSON(t, app, fiber.MethodGet, base+"/"+note.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusNotFound)
	var notFound utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &notFound)
	assert.Equal(t, "data.notfound", notFound.Type)
	assert.False(t, notFound.Ok)

	// recall without a configured console
	resp = doJSON(t, app, fiber.MethodPost, base+"/"+storm.ID+"/recall", nil)
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app, _ := setupApp(t)
	resp := doJSON(t, app, fiber.MethodGet, "/api/nowhere", nil)
	testutil.AssertStatus(t, resp, fiber.StatusNotFound)
}

func TestScriptRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	base := "/api/productions/" + prod.ID + "/script"

	var p1, p2 models.ScriptPage
	resp := doJSON(t, app, fiber.MethodPost, base+"/pages", map[string]any{"pageNumber": "10"})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	testutil.ParseJSON(t, resp, &p2)
	resp = doJSON(t, app, fiber.MethodPost, base+"/pages", map[string]any{"pageNumber": "2"})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	testutil.ParseJSON(t, resp, &p1)

	resp = doJSON(t, app, fiber.MethodPost, base+"/pages", map[string]any{"pageNumber": "2"})
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)

	resp = doJSON(t, app, fiber.MethodGet, base+"/pages", nil)
	var pages []models.ScriptPage
	testutil.ParseJSON(t, resp, &pages)
	require.Len(t, pages, 2)
	assert.Equal(t, "2", pages[0].PageNumber)

	var scene models.SceneSong
	resp = doJSON(t, app, fiber.MethodPost, base+"/pages/"+p1.ID+"/scenes", map[string]any{"name": "Battlements", "type": "scene"})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	testutil.ParseJSON(t, resp, &scene)

	resp = doJSON(t, app, fiber.MethodPost, base+"/scenes/"+scene.ID+"/continue", map[string]any{"targetPageId": p2.ID})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)

	resp = doJSON(t, app, fiber.MethodGet, base+"/scenes/"+scene.ID+"/chain", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var chain []models.SceneSong
	testutil.ParseJSON(t, resp, &chain)
	assert.Len(t, chain, 2)

	resp = doJSON(t, app, fiber.MethodGet, base+"/warnings", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
}

const hookupCSV = `Lightwright ID,Channel,Position,Unit #,Instrument Type,Purpose,U/A
101,1,1st Electric,1,Source Four 26deg,DSL area,1/1
102,2,1st Electric,2,Source Four 26deg,DSC area,1/2
103,x,Box Boom SL,1,Source Four 19deg,Front,1/3
`

func TestImportHookupRoute(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	base := "/api/productions/" + prod.ID + "/fixtures"

	resp := uploadCSV(t, app, base+"/import", hookupCSV, map[string]string{"deactivateMissing": "true"})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var result services.ImportResult
	testutil.ParseJSON(t, resp, &result)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)

	resp = doJSON(t, app, fiber.MethodGet, base+"/channels/2", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var fixtures []models.FixtureInfo
	testutil.ParseJSON(t, resp, &fixtures)
	require.Len(t, fixtures, 1)
	assert.Equal(t, "102", fixtures[0].LWID)

	resp = uploadCSV(t, app, base+"/import", hookupCSV, map[string]string{"delimiter": ";;"})
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)

	resp = uploadCSV(t, app, base+"/import", strings.Repeat("x", 5000), nil)
	testutil.AssertStatus(t, resp, fiber.StatusRequestEntityTooLarge)

	resp = uploadCSV(t, app, base+"/import", "Name,Notes\nfoo,bar\n", nil)
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)
	var importErr utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &importErr)
	assert.Equal(t, types.ErrTypeImport, importErr.Type)

	resp = doJSON(t, app, fiber.MethodDelete, base, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var mutation utils.SuccessResponseStruct
	testutil.ParseJSON(t, resp, &mutation)
	assert.Equal(t, int64(2), mutation.AffectedRows)
}

func TestPresetRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	_, err := services.SeedSystemPresets(db, data.DefaultPresets)
	require.NoError(t, err)
	base := "/api/productions/" + prod.ID + "/presets"

	resp := doJSON(t, app, fiber.MethodPost, base, map[string]any{
		"type": "filter_sort", "name": "Open cues", "config": map[string]any{"moduleType": "cue", "statusFilter": "todo"},
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var preset models.Preset
	testutil.ParseJSON(t, resp, &preset)

	system, err := services.ListPresets(db, prod.ID, models.PresetPageStyle)
	require.NoError(t, err)
	require.NotEmpty(t, system)
	require.True(t, system[0].IsSystem())

	resp = doJSON(t, app, fiber.MethodPatch, base+"/"+system[0].ID, map[string]any{"name": "Mine now"})
	testutil.AssertStatus(t, resp, fiber.StatusForbidden)
	var readOnly utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &readOnly)
	assert.Equal(t, types.ErrTypeReadOnly, readOnly.Type)

	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Open", CueNumber: "1"})
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Done", CueNumber: "2", Status: models.StatusComplete})

	resp = doJSON(t, app, fiber.MethodGet, "/api/productions/"+prod.ID+"/notes?presetId="+preset.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var notes []models.Note
	testutil.ParseJSON(t, resp, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "Open", notes[0].Title)

	resp = doJSON(t, app, fiber.MethodDelete, base+"/"+preset.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
}

func TestPrintRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleCue, Title: "Ghost special", CueNumber: "14"})
	base := "/api/productions/" + prod.ID

	resp := doJSON(t, app, fiber.MethodPost, base+"/print/preview", map[string]any{"title": "Tonight"})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Ghost special")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")

	// no renderer configured
	resp = doJSON(t, app, fiber.MethodPost, base+"/print", nil)
	testutil.AssertStatus(t, resp, fiber.StatusServiceUnavailable)
}

func TestSnapshotRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleWork, Title: "Hang boom"})
	base := "/api/productions/" + prod.ID

	resp := doJSON(t, app, fiber.MethodGet, base+"/export", nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="TST-`)
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/productions/import", bytes.NewReader(exported))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var imported services.SnapshotImport
	testutil.ParseJSON(t, resp, &imported)
	assert.NotEqual(t, prod.ID, imported.Production.ID)
	assert.Equal(t, 1, imported.Notes)

	resp = doJSON(t, app, fiber.MethodPost, "/api/productions/import?mode=replace", json.RawMessage(exported))
	testutil.AssertStatus(t, resp, fiber.StatusBadRequest)
}

func TestCheckpointRoutes(t *testing.T) {
	app, db := setupApp(t)
	prod := testutil.CreateProduction(t, db, "Hamlet")
	testutil.CreateNote(t, db, models.Note{ProductionID: prod.ID, ModuleType: models.ModuleWork, Title: "Hang boom"})
	base := "/api/productions/" + prod.ID + "/checkpoints"

	resp := doJSON(t, app, fiber.MethodPost, base, map[string]any{"label": "Tech 1"})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)
	var checkpoint models.Checkpoint
	testutil.ParseJSON(t, resp, &checkpoint)
	assert.Equal(t, "Tech 1", checkpoint.Label)

	resp = doJSON(t, app, fiber.MethodGet, base, nil)
	testutil.AssertStatus(t, resp, fiber.StatusOK)

	resp = doJSON(t, app, fiber.MethodPost, "/api/productions/"+prod.ID+"/notes", map[string]any{
		"moduleType": "work", "title": "Focus", "type": "work",
	})
	testutil.AssertStatus(t, resp, fiber.StatusCreated)

	resp = doJSON(t, app, fiber.MethodPost, base+"/"+checkpoint.ID+"/restore", map[string]any{"version": checkpoint.ProductionVersion})
	testutil.AssertStatus(t, resp, fiber.StatusConflict)
	var conflict utils.ErrorResponseStruct
	testutil.ParseJSON(t, resp, &conflict)
	assert.True(t, conflict.VersionError)

	current := testutil.ProductionVersion(t, db, prod.ID)
	resp = doJSON(t, app, fiber.MethodPost, base+"/"+checkpoint.ID+"/restore", map[string]any{"version": current})
	testutil.AssertStatus(t, resp, fiber.StatusOK)
	var restored services.SnapshotImport
	testutil.ParseJSON(t, resp, &restored)
	assert.Equal(t, 1, restored.Notes)

	resp = doJSON(t, app, fiber.MethodDelete, base+"/"+checkpoint.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusNoContent)

	resp = doJSON(t, app, fiber.MethodGet, base+"/"+checkpoint.ID, nil)
	testutil.AssertStatus(t, resp, fiber.StatusNotFound)
}
