package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"law_process_app_go/config"
	"law_process_app_go/models"
	"law_process_app_go/services"
	"law_process_app_go/services/extraction"
	"law_process_app_go/services/gateway"
	"law_process_app_go/services/process"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, testDB.AutoMigrate(
		&models.Client{},
		&models.Case{},
		&models.PhaseState{},
		&models.PhaseDocument{},
		&models.FolderConsolidation{},
		&models.AuditLog{},
		&models.Precedent{},
		&models.Doctrine{},
	))
	return testDB
}

type MockJurisprudence struct {
	mock.Mock
}

func (m *MockJurisprudence) Jurisprudence(ctx context.Context, query string) (*process.JurisprudenceResult, error) {
	args := m.Called(ctx, query)
	r, _ := args.Get(0).(*process.JurisprudenceResult)
	return r, args.Error(1)
}

type testServer struct {
	e             *echo.Echo
	db            *gorm.DB
	engine        *process.Engine
	documents     *services.DocumentService
	jurisprudence *MockJurisprudence
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	testDB := setupTestDB(t)
	schema := process.DefaultSchema()
	bus := process.NewBus()

	docs := services.NewDocumentService(testDB, services.NewLocalStorage(t.TempDir()),
		extraction.New("", time.Second), schema, bus, 1<<20)

	jur := new(MockJurisprudence)
	engine := process.NewEngine(process.EngineOptions{
		Schema: schema,
		Store:  services.NewProcessStore(testDB),
		Docs:   docs,
		Gateways: process.Gateways{
			Jurisprudence: jur,
			Analysis:      gateway.NewAnalysis(nil, gateway.NewPrecedentIndex(testDB)),
			Doctrine:      gateway.NewDoctrine(testDB, 0),
		},
		Sanitizer: services.NewFieldSanitizer(),
		Bus:       bus,
	})

	cfg := &config.Config{Environment: "test", MaxUploadBytes: 1 << 20, ToolRatePerMinute: 100}
	h := New(cfg, testDB, engine, docs)
	e := echo.New()
	h.Register(e)

	t.Cleanup(func() {
		engine.Close()
		h.Close()
		services.WaitForAuditWrites()
	})

	return &testServer{e: e, db: testDB, engine: engine, documents: docs, jurisprudence: jur}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) registerCase(t *testing.T) *models.Case {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/clients", map[string]string{
		"name":        "Juan Pérez",
		"contactInfo": "+51 999 999 999",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c models.Case
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return &c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decode(t, rec, &body)
	return body.Message
}
