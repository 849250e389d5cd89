package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	tempDir := t.TempDir()
	storage := NewLocalStorage(tempDir)
	ctx := context.Background()
	content := "DEMANDA DE AMPARO"
	key := "cases/c1/registro/documentos/doc_demanda.txt"

	t.Run("UploadReader creates file", func(t *testing.T) {
		result, err := storage.UploadReader(ctx, strings.NewReader(content), key, "text/plain", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, key, result.Key)
		assert.Equal(t, int64(len(content)), result.FileSize)

		_, err = os.Stat(filepath.Join(tempDir, key))
		assert.NoError(t, err)
	})

	t.Run("Get retrieves file content", func(t *testing.T) {
		reader, contentType, err := storage.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		got, _ := io.ReadAll(reader)
		assert.Equal(t, content, string(got))
		assert.True(t, strings.HasPrefix(contentType, "text/plain"))
	})

	t.Run("Delete removes file", func(t *testing.T) {
		require.NoError(t, storage.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(tempDir, key))
		assert.True(t, os.IsNotExist(err))

		// deleting twice is fine
		assert.NoError(t, storage.Delete(ctx, key))
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := storage.UploadReader(ctx, strings.NewReader("x"), "../escape.txt", "text/plain", 1)
		assert.Error(t, err)
	})

	t.Run("signed URL is the path", func(t *testing.T) {
		signed, err := storage.GetSignedURL(ctx, "some/key", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "/"+filepath.ToSlash(filepath.Join(tempDir, "some/key")), signed)
	})
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("escrito.PDF"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ContentTypeFor("gastos.xlsx"))
	assert.Equal(t, "text/markdown", ContentTypeFor("notas.md"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("archivo.zzz"))
}

func TestGenerateDocumentKey(t *testing.T) {
	key := GenerateDocumentKey("c1", "seguimiento", "observaciones", "c1_seguimiento_observaciones_1700000000000", "Informe pericial (final).pdf")
	assert.Equal(t, "cases/c1/seguimiento/observaciones/c1_seguimiento_observaciones_1700000000000_Informe_pericial_final_.pdf", key)

	key = GenerateDocumentKey("c1", "registro", "documentos", "id", "../../etc/passwd")
	assert.Equal(t, "cases/c1/registro/documentos/id_passwd", key)
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, NewLocalStorage(t.TempDir()).IsConfigured())

	r2 := &R2Storage{bucket: "test-bucket", client: nil}
	assert.False(t, r2.IsConfigured())
}
