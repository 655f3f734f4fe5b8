package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/console"
	"github.com/localnerve/lxnotes/internal/middleware"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/services"
	"gorm.io/gorm"
)

// Dependencies are the collaborators shared by the route handlers
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Engine      *printing.TemplateEngine
	Renderer    printing.PDFRenderer
	Email       *services.EmailService
	Checkpoints *services.CheckpointService
	Console     console.Recaller
}

// Register mounts every API route on api
func Register(api fiber.Router, d Dependencies) {
	cfg := d.Config

	health := &HealthHandler{Config: cfg, DB: d.DB}
	productions := &ProductionHandler{DB: d.DB}
	notes := &NoteHandler{DB: d.DB, Console: d.Console}
	script := &ScriptHandler{DB: d.DB}
	fixtures := &FixtureHandler{DB: d.DB, MaxUploadBytes: int64(cfg.MaxUploadBytes), MaxRowErrors: cfg.MaxRowErrors}
	presets := &PresetHandler{DB: d.DB}
	reports := &ReportHandler{DB: d.DB, Engine: d.Engine, Renderer: d.Renderer, Email: d.Email, PDFTimeout: cfg.PDFTimeout}
	snapshots := &SnapshotHandler{DB: d.DB, Checkpoints: d.Checkpoints}

	api.Get("/health", health.Health)

	// All production data requires a user session when an authorizer is configured
	prods := api.Group("/productions", middleware.AuthUser(cfg))
	prods.Get("/", productions.ListProductions)
	prods.Post("/", productions.CreateProduction)
	prods.Post("/import", snapshots.ImportSnapshot)
	prods.Get("/:productionId", productions.GetProduction)
	prods.Patch("/:productionId", productions.UpdateProduction)
	prods.Delete("/:productionId", productions.DeleteProduction)
	prods.Post("/:productionId/restore", productions.RestoreProduction)
	prods.Delete("/:productionId/purge", middleware.AuthAdmin(cfg), productions.PurgeProduction)

	prod := prods.Group("/:productionId")

	prod.Get("/notes", notes.ListNotes)
	prod.Post("/notes", notes.CreateNote)
	prod.Get("/notes/:noteId", notes.GetNote)
	prod.Patch("/notes/:noteId", notes.UpdateNote)
	prod.Delete("/notes/:noteId", notes.DeleteNote)
	prod.Put("/notes/:noteId/status", notes.SetNoteStatus)
	prod.Post("/notes/:noteId/recall", notes.RecallCue)

	prod.Get("/script/pages", script.ListScriptPages)
	prod.Post("/script/pages", script.CreateScriptPage)
	prod.Patch("/script/pages/:pageId", script.UpdateScriptPage)
	prod.Delete("/script/pages/:pageId", script.DeleteScriptPage)
	prod.Get("/script/pages/:pageId/scenes", script.ListScenesSongs)
	prod.Post("/script/pages/:pageId/scenes", script.CreateSceneSong)
	prod.Patch("/script/scenes/:sceneId", script.UpdateSceneSong)
	prod.Delete("/script/scenes/:sceneId", script.DeleteSceneSong)
	prod.Post("/script/scenes/:sceneId/continue", script.ContinueSceneSong)
	prod.Get("/script/scenes/:sceneId/chain", script.ResolveChain)
	prod.Get("/script/warnings", script.CueOrderWarnings)

	prod.Get("/fixtures", fixtures.ListFixtures)
	prod.Delete("/fixtures", fixtures.DeleteAllFixtures)
	prod.Post("/fixtures/import", fixtures.ImportHookup)
	prod.Get("/fixtures/channels/:channel", fixtures.LookupChannel)
	prod.Get("/fixtures/:fixtureId", fixtures.GetFixture)
	prod.Delete("/fixtures/:fixtureId", fixtures.DeleteFixture)

	prod.Get("/presets", presets.ListPresets)
	prod.Post("/presets", presets.CreatePreset)
	prod.Get("/presets/:presetId", presets.GetPreset)
	prod.Patch("/presets/:presetId", presets.UpdatePreset)
	prod.Delete("/presets/:presetId", presets.DeletePreset)

	prod.Post("/print", reports.RenderReportPDF)
	prod.Post("/print/preview", reports.RenderReportHTML)
	prod.Post("/email", reports.SendNotesEmail)

	prod.Get("/export", snapshots.ExportProduction)
	prod.Get("/checkpoints", snapshots.ListCheckpoints)
	prod.Post("/checkpoints", snapshots.CreateCheckpoint)
	prod.Get("/checkpoints/:checkpointId", snapshots.GetCheckpoint)
	prod.Delete("/checkpoints/:checkpointId", snapshots.DeleteCheckpoint)
	prod.Post("/checkpoints/:checkpointId/restore", snapshots.RestoreCheckpoint)
}
