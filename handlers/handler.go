package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"law_process_app_go/config"
	"law_process_app_go/middleware"
	"law_process_app_go/services"
	"law_process_app_go/services/process"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Handler serves the JSON API of the process engine
type Handler struct {
	cfg       *config.Config
	db        *gorm.DB
	engine    *process.Engine
	documents *services.DocumentService
	tools     *middleware.RateLimiter
}

func New(cfg *config.Config, db *gorm.DB, engine *process.Engine, documents *services.DocumentService) *Handler {
	perMinute := 20
	if cfg != nil && cfg.ToolRatePerMinute > 0 {
		perMinute = cfg.ToolRatePerMinute
	}
	return &Handler{
		cfg:       cfg,
		db:        db,
		engine:    engine,
		documents: documents,
		tools: middleware.NewRateLimiter(middleware.RateLimitConfig{
			Requests: perMinute,
			Window:   time.Minute,
			Message:  "Demasiadas consultas a las herramientas. Espere un momento.",
		}),
	}
}

// Register mounts every route on e
func (h *Handler) Register(e *echo.Echo) {
	e.Validator = NewValidator()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.Use(middleware.AuditContext())

	api.GET("/phases", h.ListPhases)
	api.POST("/clients", h.RegisterClient)

	api.GET("/cases", h.ListCases)
	api.GET("/cases/:caseId/process", h.GetProcess)
	api.GET("/cases/:caseId/audit", h.GetAuditTrail)
	api.PUT("/cases/:caseId/phases/:phase", h.SavePhase)
	api.GET("/cases/:caseId/report.pdf", h.ProcessReport)

	api.POST("/cases/:caseId/phases/:phase/folders/:folder/documents", h.UploadDocument)
	api.GET("/cases/:caseId/phases/:phase/folders/:folder/documents", h.ListDocuments)
	api.GET("/cases/:caseId/phases/:phase/folders/:folder/consolidated", h.FolderConsolidated)
	api.GET("/cases/:caseId/phases/:phase/consolidated", h.PhaseConsolidated)
	api.GET("/documents/:id/file", h.DownloadDocument)
	api.DELETE("/documents/:id", h.DeleteDocument)

	ws := api.Group("/workspaces/:session")
	ws.POST("/open", h.OpenWorkspace)
	ws.GET("", h.GetWorkspace)
	ws.DELETE("", h.CloseWorkspace)
	ws.PATCH("/fields", h.SetWorkspaceFields)
	ws.POST("/save", h.SaveWorkspace)
	ws.POST("/tools/:tool", h.RunTool, h.tools.Middleware())
	ws.GET("/tools/:tool", h.GetTool)
}

// Close releases background resources
func (h *Handler) Close() {
	h.tools.Stop()
}

// Validator adapts validator/v10 to echo
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Solicitud inválida"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "El campo " + fe.Field() + " es obligatorio"
	case "email":
		return "El campo " + fe.Field() + " debe ser un correo válido"
	case "max":
		return "El campo " + fe.Field() + " es demasiado largo"
	}
	return "El campo " + fe.Field() + " no es válido"
}

// bindAndValidate binds the request body into req and validates it
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Solicitud inválida")
	}
	return c.Validate(req)
}

// httpError maps domain errors to HTTP responses
func httpError(err error) error {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var gwErr *process.GatewayError
	var pErr *process.PersistenceError

	switch {
	case process.IsConfigurationError(err):
		log.Printf("[PROCESS] Configuration error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	case errors.Is(err, process.ErrNoTextAvailable):
		return echo.NewHTTPError(http.StatusBadRequest, process.NoTextMessage)
	case errors.Is(err, process.ErrCaseNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Recurso no encontrado")
	case errors.Is(err, process.ErrNoActiveCase):
		return echo.NewHTTPError(http.StatusConflict, "No hay un caso abierto en esta sesión")
	case errors.Is(err, process.ErrContextChanged):
		return echo.NewHTTPError(http.StatusConflict, "El caso cambió mientras se procesaba la solicitud")
	case errors.Is(err, process.ErrUnknownField),
		errors.Is(err, services.ErrEmptyFile),
		errors.Is(err, services.ErrUnknownFolder),
		errors.Is(err, services.ErrMissingClientData):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &gwErr):
		msg := gwErr.Message
		if msg == "" {
			msg = gwErr.Error()
		}
		return echo.NewHTTPError(http.StatusBadGateway, msg)
	case errors.As(err, &pErr):
		log.Printf("[PROCESS] %v", pErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "No se pudo guardar el avance del proceso")
	}

	log.Printf("[PROCESS] Unhandled error: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Error interno")
}

// requirePhase returns 404 for phase ids the schema does not declare
func (h *Handler) requirePhase(phase string) error {
	if !h.engine.Schema.Has(phase) {
		return echo.NewHTTPError(http.StatusNotFound, "Fase desconocida: "+phase)
	}
	return nil
}
