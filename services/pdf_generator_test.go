package services

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPDFOptions(t *testing.T) {
	opts := DefaultPDFOptions()
	assert.Equal(t, "portrait", opts.PageOrientation)
	assert.Equal(t, "A4", opts.PageSize)
	assert.Equal(t, 72, opts.MarginTop)
	assert.Equal(t, 72, opts.MarginRight)
	assert.Positive(t, opts.Timeout)
}

func TestWrapHTMLForPDF(t *testing.T) {
	content := "<h1>Reporte</h1><p>Contenido</p>"
	html := WrapHTMLForPDF(content)

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, `<html lang="es">`)
	assert.Contains(t, html, content)
}

func TestGeneratePDFSmoke(t *testing.T) {
	chromePath := os.Getenv("CHROME_PATH")
	if chromePath == "" {
		t.Skip("Skipping PDF generation test: CHROME_PATH not set")
	}

	pdf, err := GeneratePDF(context.Background(), WrapHTMLForPDF("<h1>Hola</h1>"), DefaultPDFOptions())
	if err != nil {
		if os.IsNotExist(err) {
			t.Skipf("Skipping: Chrome not found at %s", chromePath)
		}
		t.Errorf("GeneratePDF failed: %v", err)
		return
	}

	require.NotEmpty(t, pdf)
	assert.Contains(t, string(pdf[:5]), "%PDF-")
}
