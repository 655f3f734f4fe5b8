package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/lxnotes/data"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/console"
	"github.com/localnerve/lxnotes/internal/database"
	"github.com/localnerve/lxnotes/internal/handlers"
	"github.com/localnerve/lxnotes/internal/logger"
	"github.com/localnerve/lxnotes/internal/middleware"
	"github.com/localnerve/lxnotes/internal/notify"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/storage"
	"github.com/localnerve/lxnotes/internal/utils"
	"go.uber.org/zap"

	_ "github.com/localnerve/lxnotes/docs/api" // Swagger docs
)

// @title LX Notes API
// @version 1.0.0
// @description Lighting production notes, script structure, hookup fixtures, presets, reports and checkpoints
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/lxnotes
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	// Connect to database and migrate
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	seeded, err := services.SeedSystemPresets(db, data.DefaultPresets)
	if err != nil {
		log.Fatal("Failed to seed system presets", zap.Error(err))
	}
	log.Info("System presets ready", zap.Int("seeded", seeded))

	services.ConfigureFixtureCache(cfg.CacheTTL)

	// Collaborators
	store, err := storage.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to configure object storage", zap.Error(err))
	}
	sender, err := notify.New(cfg.NotifyURL, cfg.NotifyTimeout)
	if err != nil {
		log.Fatal("Failed to configure email delivery", zap.Error(err))
	}

	engine := printing.NewTemplateEngine()
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		RemoteURL:      cfg.ChromeRemoteURL,
		NoSandbox:      cfg.ChromeNoSandbox,
		DefaultTimeout: cfg.PDFTimeout,
		Logger:         log,
	})
	defer func() { _ = renderer.Close() }()

	checkpoints := services.NewCheckpointService(db, store, log)
	email := &services.EmailService{
		DB:         db,
		Engine:     engine,
		Renderer:   renderer,
		Sender:     sender,
		Store:      store,
		FromName:   cfg.MailFromName,
		LinkExpiry: cfg.StorageLinkExpiry,
	}

	deps := handlers.Dependencies{
		Config:      cfg,
		DB:          db,
		Engine:      engine,
		Renderer:    renderer,
		Email:       email,
		Checkpoints: checkpoints,
	}
	if cfg.ConsoleHost != "" {
		deps.Console = console.NewOSCConsole(cfg.ConsoleHost, cfg.ConsolePort, cfg.ConsoleCueList, log)
		log.Info("Console recall enabled", zap.String("host", cfg.ConsoleHost), zap.Int("port", cfg.ConsolePort))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		// Leave headroom for the multipart envelope around a hookup file
		BodyLimit:             cfg.MaxUploadBytes + 1024*1024,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(middleware.RequestLogger(log))
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("lxnotes")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())
	handlers.Register(api, deps)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "[404] Resource Not Found")
	})

	if cfg.AuthEnabled() {
		log.Info("Authorizer will be initialized on first authenticated request", zap.String("url", cfg.AuthzURL))
	} else {
		log.Warn("AUTHZ_URL is not set, API routes are unauthenticated")
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
	}

	checkpoints.Wait()
	log.Info("Server stopped")
}
