package services

import (
	"os"
	"path/filepath"
	"testing"

	"law_process_app_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useEmailTemplateDir(t *testing.T, dir string) {
	t.Helper()
	prev := emailTemplateDir
	emailTemplateDir = dir
	t.Cleanup(func() { emailTemplateDir = prev })
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	useEmailTemplateDir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_template.html"), []byte("<p>Hola {{.Name}}</p>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_template.txt"), []byte("Hola {{.Name}}"), 0644))

	t.Run("renders both bodies", func(t *testing.T) {
		html, text, err := loadTemplate("test_template", map[string]string{"Name": "Juan"})
		require.NoError(t, err)
		assert.Equal(t, "<p>Hola Juan</p>", html)
		assert.Equal(t, "Hola Juan", text)
	})

	t.Run("template not found", func(t *testing.T) {
		_, _, err := loadTemplate("non_existent", nil)
		assert.Error(t, err)
	})
}

func TestBuildPhaseAdvancedEmail(t *testing.T) {
	data := PhaseAdvancedEmailData{
		CaseNumber: "PRC-2026-00001",
		ClientName: "Juan Pérez",
		PhaseTitle: "Armar estrategia",
		From:       35,
		To:         60,
	}

	t.Run("uses the repository templates", func(t *testing.T) {
		useEmailTemplateDir(t, filepath.Join("..", "templates", "emails"))

		email := BuildPhaseAdvancedEmail("abogado@example.com", data)
		assert.Equal(t, []string{"abogado@example.com"}, email.To)
		assert.Equal(t, "Caso PRC-2026-00001: avance al 60%", email.Subject)
		assert.Contains(t, email.HTMLBody, "Juan Pérez")
		assert.Contains(t, email.TextBody, "35% a 60%")
	})

	t.Run("falls back to plain text", func(t *testing.T) {
		useEmailTemplateDir(t, t.TempDir())

		done := data
		done.To = 100
		email := BuildPhaseAdvancedEmail("abogado@example.com", done)
		assert.Equal(t, "Caso PRC-2026-00001: proceso completado", email.Subject)
		assert.Empty(t, email.HTMLBody)
		assert.Contains(t, email.TextBody, "avanzó de 35% a 100%")
	})
}

func TestSendEmail_TestMode(t *testing.T) {
	cfg := &config.Config{EmailTestMode: true}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test", HTMLBody: "Body"}

	assert.NoError(t, SendEmail(cfg, email))
}

func TestSendEmail_NoApiKey(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false, ResendAPIKey: ""}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test", HTMLBody: "Body"}

	err := SendEmail(cfg, email)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY not configured")
}

func TestSendEmail_NoBody(t *testing.T) {
	cfg := &config.Config{EmailTestMode: false, ResendAPIKey: "key"}
	email := &Email{To: []string{"test@example.com"}, Subject: "Test"}

	err := SendEmail(cfg, email)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "email must have either HTMLBody or TextBody")
}

func TestTruncate(t *testing.T) {
	s := "Hello World"
	assert.Equal(t, "Hello", truncate(s, 5))
	assert.Equal(t, "Hello World", truncate(s, 20))
}
