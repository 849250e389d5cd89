package handlers

import (
	"net/http"
	"strconv"

	"law_process_app_go/middleware"
	"law_process_app_go/models"
	"law_process_app_go/services"
	"law_process_app_go/services/process"

	"github.com/labstack/echo/v4"
)

// RegisterClientRequest is the registro form
type RegisterClientRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactInfo string `json:"contactInfo" validate:"required,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=300"`
	DNI         string `json:"dni" validate:"omitempty,max=20"`
	Notes       string `json:"notes"`
}

// SavePhaseRequest carries a full field map for one phase
type SavePhaseRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// ProcessResponse is the persisted process state plus per-phase progress
type ProcessResponse struct {
	*process.ProcessState
	CaseNumber string                  `json:"caseNumber"`
	ClientName string                  `json:"clientName"`
	Progress   []process.PhaseProgress `json:"progress"`
}

// ListPhases returns the phase schema in navigation order
func (h *Handler) ListPhases(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"phases":          h.engine.Schema.Phases(),
		"completionOrder": h.engine.Schema.CompletionOrder(),
	})
}

// RegisterClient creates a client with its case
func (h *Handler) RegisterClient(c echo.Context) error {
	var req RegisterClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := services.RegisterClient(c.Request().Context(), h.db, services.RegisterClientInput{
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
		Email:       req.Email,
		Address:     req.Address,
		DNI:         req.DNI,
		Notes:       req.Notes,
	})
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), created.ID),
		models.AuditActionCreate, "Case", created.ID, created.CaseNumber,
		"Cliente registrado", nil, created.PhaseStates[0].Fields)

	return c.JSON(http.StatusCreated, created)
}

// ListCases returns every case with its client
func (h *Handler) ListCases(c echo.Context) error {
	cases, err := services.NewProcessStore(h.db).ListCases(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cases)
}

// GetProcess returns loadProcessState for a case
func (h *Handler) GetProcess(c echo.Context) error {
	ctx := c.Request().Context()
	store := services.NewProcessStore(h.db)

	cs, err := store.GetCase(ctx, c.Param("caseId"))
	if err != nil {
		return httpError(err)
	}
	state, err := store.LoadProcessState(ctx, cs.ID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, ProcessResponse{
		ProcessState: state,
		CaseNumber:   cs.CaseNumber,
		ClientName:   cs.Client.Name,
		Progress:     h.engine.Schema.Progress(state.PerPhaseData),
	})
}

// SavePhase stores a phase's fields and returns the resulting percentage
func (h *Handler) SavePhase(c echo.Context) error {
	phase := c.Param("phase")
	if err := h.requirePhase(phase); err != nil {
		return err
	}
	var req SavePhaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	def, _ := h.engine.Schema.Phase(phase)
	for name := range req.Fields {
		if _, ok := def.Field(name); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "Campo desconocido para la fase "+phase+": "+name)
		}
	}

	caseID := c.Param("caseId")
	outcome, err := h.engine.Saver.Save(c.Request().Context(), caseID, phase, models.FieldMap(req.Fields))
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), caseID),
		models.AuditActionUpdate, "PhaseState", caseID+"/"+phase, phase,
		"Campos de la fase guardados", nil, outcome.Fields)

	return c.JSON(http.StatusOK, outcome)
}

// GetAuditTrail returns the latest audit entries of a case
func (h *Handler) GetAuditTrail(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := services.GetCaseAuditHistory(h.db, c.Param("caseId"), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, logs)
}

// ProcessReport exports the case process as PDF, or as HTML with ?format=html
func (h *Handler) ProcessReport(c echo.Context) error {
	ctx := c.Request().Context()
	report, err := services.BuildProcessReport(ctx, h.db, h.engine.Schema, c.Param("caseId"))
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), c.Param("caseId")),
		models.AuditActionReportPrint, "Case", c.Param("caseId"), report.CaseNumber,
		"Reporte del proceso exportado", nil, nil)

	if c.QueryParam("format") == "html" {
		body, err := services.RenderProcessReportHTML(report)
		if err != nil {
			return httpError(err)
		}
		return c.HTML(http.StatusOK, services.WrapHTMLForPDF(body))
	}

	opts := services.DefaultPDFOptions()
	if h.cfg != nil {
		opts.ChromePath = h.cfg.ChromePath
	}
	pdf, err := services.RenderProcessReportPDF(ctx, report, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "No se pudo generar el PDF")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+report.CaseNumber+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func withCase(ctx services.AuditContext, caseID string) services.AuditContext {
	if ctx.CaseID == "" {
		ctx.CaseID = caseID
	}
	return ctx
}
