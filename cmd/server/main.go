package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"law_process_app_go/config"
	"law_process_app_go/db"
	"law_process_app_go/handlers"
	"law_process_app_go/models"
	"law_process_app_go/services"
	"law_process_app_go/services/extraction"
	"law_process_app_go/services/gateway"
	"law_process_app_go/services/jobs"
	"law_process_app_go/services/process"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		Environment: cfg.Environment,
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.Client{},
		&models.Case{},
		&models.PhaseState{},
		&models.PhaseDocument{},
		&models.FolderConsolidation{},
		&models.AuditLog{},
		&models.Precedent{},
		&models.Doctrine{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	services.InitializeStorage(cfg)

	schema := process.DefaultSchema()
	bus := process.NewBus()
	docs := services.NewDocumentService(db.DB, services.Storage,
		extraction.New(cfg.ExtractionServiceURL, 60*time.Second), schema, bus, cfg.MaxUploadBytes)
	store := services.NewProcessStore(db.DB)

	engine := process.NewEngine(process.EngineOptions{
		Schema:    schema,
		Store:     store,
		Docs:      docs,
		Gateways:  buildGateways(cfg),
		Sanitizer: services.NewFieldSanitizer(),
		Bus:       bus,
		OnOverwrite: func(caseID, phase, field, oldValue, newValue string) {
			services.LogFolderSync(db.DB, caseID, phase, field, oldValue, newValue)
		},
	})
	engine.Saver.OnAdvance(func(ctx context.Context, caseID, phase string, from, to int) {
		services.LogProgress(db.DB, caseID, phase, from, to)
		notifyAdvance(ctx, cfg, store, schema, caseID, phase, from, to)
	})

	scheduler, err := jobs.StartScheduler(cfg.ReconsolidateSchedule, docs)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Use(echomiddleware.BodyLimit(bodyLimit(cfg.MaxUploadBytes)))

	h := handlers.New(cfg, db.DB, engine, docs)
	h.Register(e)

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
	<-scheduler.Stop().Done()
	h.Close()
	engine.Close()
	services.WaitForAuditWrites()
}

// buildGateways wires the research tools to their providers. Jurisprudence
// always goes through Gemini; analysis uses the configured provider and falls
// back to keyword classification without a key.
func buildGateways(cfg *config.Config) process.Gateways {
	gw := process.Gateways{
		Doctrine:   gateway.NewDoctrine(db.DB, cfg.DoctrineMaxItems),
		MetaSearch: gateway.NewMetaSearch(cfg.MetabuscadorURL, cfg.MetabuscadorTimeout),
	}

	var gemini gateway.LLM
	if cfg.GeminiAPIKey != "" {
		gemini = gateway.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		gw.Jurisprudence = gateway.NewJurisprudence(gemini)
	} else {
		log.Println("[WARNING] GEMINI_API_KEY not set, jurisprudence tool disabled")
	}

	var analysisLLM gateway.LLM
	switch cfg.AnalysisProvider {
	case "gemini":
		analysisLLM = gemini
	default:
		if cfg.OpenAIAPIKey != "" {
			analysisLLM = gateway.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
	}
	if analysisLLM == nil {
		log.Printf("[WARNING] No API key for analysis provider %q, using keyword analysis", cfg.AnalysisProvider)
	}
	gw.Analysis = gateway.NewAnalysis(analysisLLM, gateway.NewPrecedentIndex(db.DB))
	return gw
}

func notifyAdvance(ctx context.Context, cfg *config.Config, store *services.ProcessStore, schema *process.Schema, caseID, phase string, from, to int) {
	if cfg.NotifyEmail == "" {
		return
	}
	c, err := store.GetCase(ctx, caseID)
	if err != nil {
		log.Printf("Error loading case %s for notification: %v", caseID, err)
		return
	}
	title := phase
	if def, err := schema.Phase(phase); err == nil {
		title = def.Title
	}
	services.SendEmailAsync(cfg, services.BuildPhaseAdvancedEmail(cfg.NotifyEmail, services.PhaseAdvancedEmailData{
		CaseNumber: c.CaseNumber,
		ClientName: c.Client.Name,
		PhaseTitle: title,
		From:       from,
		To:         to,
		CaseURL:    cfg.AppURL + "/api/cases/" + caseID + "/process",
	}))
}

// bodyLimit renders the upload cap with headroom for multipart framing
func bodyLimit(maxUpload int64) string {
	return strconv.FormatInt(maxUpload/(1<<20)+1, 10) + "M"
}
