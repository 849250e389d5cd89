package services

import (
	"context"
	"testing"
	"time"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProcessReport(t *testing.T) {
	db := setupProcessTestDB(t)
	c := createTestCase(t, db)
	ctx := context.Background()
	schema := process.DefaultSchema()

	saver := process.NewSaver(schema, NewProcessStore(db), NewFieldSanitizer())
	_, err := saver.Save(ctx, c.ID, "registro", models.FieldMap{"name": "Juan Pérez", "contactInfo": "999"})
	require.NoError(t, err)
	_, err = saver.Save(ctx, c.ID, "avance_investigacion", models.FieldMap{"fechaInicio": "2026-01-10"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.PhaseDocument{
		ID: "doc-1", CaseID: c.ID, Phase: "avance_investigacion", FolderType: "denuncias",
		FileName: "denuncia.txt", FilePath: "k", FileSize: 1, UploadedAt: time.Now(),
	}).Error)

	report, err := BuildProcessReport(ctx, db, schema, c.ID)
	require.NoError(t, err)

	assert.Equal(t, c.CaseNumber, report.CaseNumber)
	assert.Equal(t, "Juan Pérez", report.ClientName)
	assert.Equal(t, 10, report.Percentage)
	require.Len(t, report.Phases, 5)

	registro := report.Phases[0]
	assert.True(t, registro.Complete)
	assert.Len(t, registro.Rows, 2)

	avance := report.Phases[1]
	assert.False(t, avance.Complete)
	assert.Equal(t, int64(1), avance.Documents)
	assert.Equal(t, []ReportRow{{Label: "Fecha de inicio", Value: "2026-01-10"}}, avance.Rows)

	html, err := RenderProcessReportHTML(report)
	require.NoError(t, err)
	assert.Contains(t, html, "Reporte del proceso "+c.CaseNumber)
	assert.Contains(t, html, "Juan Pérez")
	assert.Contains(t, html, "Sin información registrada.")
}

func TestBuildProcessReportMissingCase(t *testing.T) {
	db := setupProcessTestDB(t)
	_, err := BuildProcessReport(context.Background(), db, process.DefaultSchema(), "ghost")
	assert.ErrorIs(t, err, process.ErrCaseNotFound)
}
