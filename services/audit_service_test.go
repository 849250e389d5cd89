package services

import (
	"strings"
	"testing"

	"law_process_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAuditEvent(t *testing.T) {
	db := setupProcessTestDB(t)
	c := createTestCase(t, db)

	ctx := AuditContext{CaseID: c.ID, IPAddress: "10.0.0.1", UserAgent: "go-test", SessionID: "s-1"}
	LogAuditEvent(db, ctx, models.AuditActionUpdate, "PhaseState", c.ID+"/registro", "registro",
		"Guardado de campos", map[string]interface{}{"name": "Juan"}, map[string]interface{}{"name": "Juan Pérez"})
	WaitForAuditWrites()

	logs, err := GetCaseAuditHistory(db, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "s-1", entry.SessionID)

	changes := entry.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "name", changes[0].Field)
	assert.Equal(t, "Juan Pérez", changes[0].New)
}

func TestLogFolderSyncStoresReplayablePatch(t *testing.T) {
	db := setupProcessTestDB(t)
	c := createTestCase(t, db)

	oldValue := "Notas manuales del abogado."
	newValue := strings.Repeat("=", 10) + "\nDOCUMENTO: acta.txt\nContenido del acta policial."

	LogFolderSync(db, c.ID, "avance_investigacion", "denunciaPolicial", oldValue, newValue)
	WaitForAuditWrites()

	logs, err := GetCaseAuditHistory(db, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionFolderSync, logs[0].Action)
	assert.Equal(t, "avance_investigacion.denunciaPolicial", logs[0].ResourceName)
	require.NotEmpty(t, logs[0].Patch)

	replayed, err := ApplyAuditPatch(oldValue, logs[0].Patch)
	require.NoError(t, err)
	assert.Equal(t, newValue, replayed)
}

func TestLogProgress(t *testing.T) {
	db := setupProcessTestDB(t)
	c := createTestCase(t, db)

	LogProgress(db, c.ID, "armar_estrategia", 35, 60)
	WaitForAuditWrites()

	logs, err := GetCaseAuditHistory(db, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionProgress, logs[0].Action)
	assert.Contains(t, logs[0].Description, "35% a 60%")
}

func TestAuditLogsAreImmutable(t *testing.T) {
	db := setupProcessTestDB(t)
	c := createTestCase(t, db)

	LogProgress(db, c.ID, "registro", 0, 10)
	WaitForAuditWrites()

	logs, err := GetCaseAuditHistory(db, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	entry.Description = "tampered"
	assert.Error(t, db.Save(&entry).Error)
	assert.Error(t, db.Delete(&entry).Error)
}
