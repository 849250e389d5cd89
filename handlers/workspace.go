package handlers

import (
	"net/http"
	"strings"

	"law_process_app_go/middleware"
	"law_process_app_go/models"
	"law_process_app_go/services"
	"law_process_app_go/services/process"

	"github.com/labstack/echo/v4"
)

// OpenWorkspaceRequest selects the case phase a session works on
type OpenWorkspaceRequest struct {
	CaseID string `json:"caseId" validate:"required"`
	Phase  string `json:"phase" validate:"required"`
}

// SetFieldsRequest carries field edits
type SetFieldsRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// ToolRequest names the text a tool runs against: a field of the open phase
// or an uploaded document. Term, when set, is sent instead of that text and
// always reruns; the result is cached under the field or document.
type ToolRequest struct {
	Field      string `json:"field" query:"field" validate:"required_without=DocumentID"`
	DocumentID string `json:"documentId" query:"documentId" validate:"required_without=Field"`
	Term       string `json:"term" query:"term" validate:"max=500"`
	Rerun      bool   `json:"rerun" query:"rerun"`
}

// ToolResponse is a tool result with its cache status
type ToolResponse struct {
	Tool   process.ToolKind   `json:"tool"`
	Key    string             `json:"key"`
	Status process.ToolStatus `json:"status"`
	Result process.ToolResult `json:"result,omitempty"`
}

// OpenWorkspace opens a case phase in the session's workspace
func (h *Handler) OpenWorkspace(c echo.Context) error {
	var req OpenWorkspaceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.requirePhase(req.Phase); err != nil {
		return err
	}

	snap, err := h.engine.Workspace(c.Param("session")).Open(c.Request().Context(), req.CaseID, req.Phase)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// GetWorkspace returns the session's fields, dirty flag and percentage
func (h *Handler) GetWorkspace(c echo.Context) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.Snapshot())
}

// CloseWorkspace drops the session's workspace and tool cache
func (h *Handler) CloseWorkspace(c echo.Context) error {
	h.engine.CloseWorkspace(c.Param("session"))
	return c.NoContent(http.StatusNoContent)
}

// SetWorkspaceFields applies unsaved edits
func (h *Handler) SetWorkspaceFields(c echo.Context) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	var req SetFieldsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := ws.SetFields(req.Fields); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ws.Snapshot())
}

// SaveWorkspace persists the open phase
func (h *Handler) SaveWorkspace(c echo.Context) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	outcome, err := ws.Save(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	snap := ws.Snapshot()
	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), snap.CaseID),
		models.AuditActionUpdate, "PhaseState", snap.CaseID+"/"+snap.Phase, snap.Phase,
		"Campos de la fase guardados", nil, outcome.Fields)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"outcome":   outcome,
		"workspace": snap,
	})
}

// RunTool runs a research tool against a field or a document
func (h *Handler) RunTool(c echo.Context) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	tool, ok := process.ParseToolKind(c.Param("tool"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Herramienta desconocida: "+c.Param("tool"))
	}
	var req ToolRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if c.QueryParam("rerun") == "true" {
		req.Rerun = true
	}

	src, err := h.toolSource(c, ws, req)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Term) != "" {
		src = process.WithTerm(src, req.Term)
		req.Rerun = true
	}

	result, err := ws.RunTool(c.Request().Context(), tool, src, req.Rerun)
	if err != nil {
		return httpError(err)
	}

	snap := ws.Snapshot()
	key := process.KeyFor(tool, src)
	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), snap.CaseID),
		models.AuditActionToolRun, "Tool", key.Identity(), string(tool),
		"Herramienta ejecutada", nil, map[string]interface{}{"rerun": req.Rerun, "term": req.Term != ""})

	return c.JSON(http.StatusOK, ToolResponse{
		Tool:   tool,
		Key:    key.Identity(),
		Status: ws.Tools().Status(tool, src),
		Result: result,
	})
}

// GetTool returns a cached tool result without running the tool
func (h *Handler) GetTool(c echo.Context) error {
	ws, err := h.workspace(c)
	if err != nil {
		return err
	}
	tool, ok := process.ParseToolKind(c.Param("tool"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Herramienta desconocida: "+c.Param("tool"))
	}
	var req ToolRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Solicitud inválida")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	src, err := h.toolSource(c, ws, req)
	if err != nil {
		return err
	}

	resp := ToolResponse{
		Tool:   tool,
		Key:    process.KeyFor(tool, src).Identity(),
		Status: ws.Tools().Status(tool, src),
	}
	result, ok := ws.GetCached(tool, src)
	if !ok {
		return c.JSON(http.StatusNotFound, resp)
	}
	resp.Result = result
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) workspace(c echo.Context) (*process.Workspace, error) {
	ws, ok := h.engine.LookupWorkspace(c.Param("session"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Sesión no encontrada")
	}
	return ws, nil
}

func (h *Handler) toolSource(c echo.Context, ws *process.Workspace, req ToolRequest) (process.Source, error) {
	if req.Field != "" {
		src, err := ws.FieldSource(req.Field)
		if err != nil {
			return nil, httpError(err)
		}
		return src, nil
	}

	doc, err := h.documents.GetDocument(c.Request().Context(), req.DocumentID)
	if err != nil {
		return nil, httpError(err)
	}
	if doc.CaseID != ws.Snapshot().CaseID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Documento no encontrado en el caso abierto")
	}
	return process.DocumentSource{DocumentID: doc.ID, Text: doc.ExtractedText}, nil
}
