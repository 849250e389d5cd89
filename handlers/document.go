package handlers

import (
	"io"
	"mime"
	"net/http"

	"law_process_app_go/middleware"
	"law_process_app_go/models"
	"law_process_app_go/services"

	"github.com/labstack/echo/v4"
)

// ConsolidatedResponse is the concatenated text of a folder or phase
type ConsolidatedResponse struct {
	CaseID     string `json:"caseId"`
	Phase      string `json:"phase"`
	FolderType string `json:"folderType,omitempty"`
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
}

// UploadDocument stores a file in a phase folder
func (h *Handler) UploadDocument(c echo.Context) error {
	caseID, phase, folder := c.Param("caseId"), c.Param("phase"), c.Param("folder")
	if err := h.requirePhase(phase); err != nil {
		return err
	}
	if err := h.documents.ValidateFolder(phase, folder); err != nil {
		return httpError(err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Debe adjuntar un archivo en el campo 'file'")
	}
	maxBytes := int64(0)
	if h.cfg != nil {
		maxBytes = h.cfg.MaxUploadBytes
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return httpError(services.ErrFileTooLarge)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No se pudo leer el archivo")
	}
	defer src.Close()

	reader := io.Reader(src)
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No se pudo leer el archivo")
	}

	doc, err := h.documents.Upload(c.Request().Context(), services.UploadInput{
		CaseID:      caseID,
		Phase:       phase,
		FolderType:  folder,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), caseID),
		models.AuditActionCreate, "PhaseDocument", doc.ID, doc.FileName,
		"Documento cargado en "+phase+"/"+folder, nil, nil)

	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments lists a folder's documents in upload order
func (h *Handler) ListDocuments(c echo.Context) error {
	phase, folder := c.Param("phase"), c.Param("folder")
	if err := h.requirePhase(phase); err != nil {
		return err
	}
	if err := h.documents.ValidateFolder(phase, folder); err != nil {
		return httpError(err)
	}

	docs, err := h.documents.ListDocuments(c.Request().Context(), c.Param("caseId"), phase, folder)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, docs)
}

// FolderConsolidated returns the consolidated text of one folder
func (h *Handler) FolderConsolidated(c echo.Context) error {
	caseID, phase, folder := c.Param("caseId"), c.Param("phase"), c.Param("folder")
	if err := h.requirePhase(phase); err != nil {
		return err
	}
	if err := h.documents.ValidateFolder(phase, folder); err != nil {
		return httpError(err)
	}

	text, err := h.documents.GetConsolidatedText(c.Request().Context(), caseID, phase, folder)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ConsolidatedResponse{
		CaseID:     caseID,
		Phase:      phase,
		FolderType: folder,
		Text:       text,
		TokenCount: services.TokenCount(text),
	})
}

// PhaseConsolidated returns every folder of a phase joined under headers
func (h *Handler) PhaseConsolidated(c echo.Context) error {
	caseID, phase := c.Param("caseId"), c.Param("phase")
	if err := h.requirePhase(phase); err != nil {
		return err
	}

	text, err := h.documents.GetPhaseConsolidatedText(c.Request().Context(), caseID, phase)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ConsolidatedResponse{
		CaseID:     caseID,
		Phase:      phase,
		Text:       text,
		TokenCount: services.TokenCount(text),
	})
}

// DownloadDocument streams the stored original
func (h *Handler) DownloadDocument(c echo.Context) error {
	doc, rc, err := h.documents.OpenDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	return c.Stream(http.StatusOK, doc.FileType, rc)
}

// DeleteDocument removes a document and rebuilds its folder
func (h *Handler) DeleteDocument(c echo.Context) error {
	doc, err := h.documents.DeleteDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(h.db, withCase(middleware.GetAuditContext(c), doc.CaseID),
		models.AuditActionDelete, "PhaseDocument", doc.ID, doc.FileName,
		"Documento eliminado", doc, nil)

	return c.NoContent(http.StatusNoContent)
}
