package gateway

import (
	"context"
	"testing"

	"law_process_app_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type MockLLM struct{ mock.Mock }

func (m *MockLLM) Generate(ctx context.Context, system, prompt string, opts GenerationOptions) (string, error) {
	args := m.Called(ctx, system, prompt, opts)
	return args.String(0), args.Error(1)
}

func setupTestDB(t *testing.T) *gorm.DB {
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&models.Precedent{}, &models.Doctrine{}))
	return testDB
}
