package process

import (
	"context"
	"errors"
	"testing"

	"law_process_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSyncLeavesManualValueWhenFolderEmpty(t *testing.T) {
	docs := new(MockConsolidatedText)
	docs.On("GetConsolidatedText", mock.Anything, "case-1", "programar_cita", mock.Anything).Return("", nil)

	bridge := NewBridge(DefaultSchema(), docs, nil)
	input := models.FieldMap{"agenda": "escrito a mano", "meetingDate": "2026-02-01"}

	res, err := bridge.SyncConsolidatedFields(context.Background(), "case-1", "programar_cita", input)
	require.NoError(t, err)
	assert.False(t, res.Dirty)
	assert.Equal(t, "escrito a mano", res.Fields["agenda"])
	assert.Empty(t, res.Overwritten)

	docs.AssertNumberOfCalls(t, "GetConsolidatedText", 2) // agenda, materiales
}

func TestSyncOverwritesBoundFieldWithFolderText(t *testing.T) {
	docs := new(MockConsolidatedText)
	docs.On("GetConsolidatedText", mock.Anything, "case-1", "programar_cita", "agenda").Return("DOCUMENTO: acta.pdf\n...", nil)
	docs.On("GetConsolidatedText", mock.Anything, "case-1", "programar_cita", "materiales").Return("", nil)

	var overwritten []string
	bridge := NewBridge(DefaultSchema(), docs, func(caseID, phase, field, oldValue, newValue string) {
		overwritten = append(overwritten, field+":"+oldValue)
	})
	input := models.FieldMap{"agenda": "escrito a mano", "preparationNotes": "notas"}

	res, err := bridge.SyncConsolidatedFields(context.Background(), "case-1", "programar_cita", input)
	require.NoError(t, err)
	assert.True(t, res.Dirty)
	assert.Equal(t, "DOCUMENTO: acta.pdf\n...", res.Fields["agenda"])
	assert.Equal(t, "notas", res.Fields["preparationNotes"])
	assert.Equal(t, []string{"agenda"}, res.Overwritten)
	assert.Equal(t, []string{"agenda:escrito a mano"}, overwritten)

	// input untouched
	assert.Equal(t, "escrito a mano", input["agenda"])
}

func TestSyncFetchesSharedFolderOnce(t *testing.T) {
	docs := new(MockConsolidatedText)
	docs.On("GetConsolidatedText", mock.Anything, "c", "armar_estrategia", "estrategia").Return("plan", nil).Once()
	docs.On("GetConsolidatedText", mock.Anything, "c", "armar_estrategia", mock.Anything).Return("", nil)

	res, err := NewBridge(DefaultSchema(), docs, nil).SyncConsolidatedFields(context.Background(), "c", "armar_estrategia", nil)
	require.NoError(t, err)
	assert.Equal(t, "plan", res.Fields["objetivos"])
	assert.Equal(t, "plan", res.Fields["estrategiaDefensa"])
	assert.Equal(t, []string{"estrategiaDefensa", "objetivos"}, res.Overwritten)
	docs.AssertNumberOfCalls(t, "GetConsolidatedText", 5)
}

func TestSyncIsolatesFolderFailures(t *testing.T) {
	docs := new(MockConsolidatedText)
	docs.On("GetConsolidatedText", mock.Anything, "c", "seguimiento", "resoluciones_emitidas").Return("", errors.New("timeout"))
	docs.On("GetConsolidatedText", mock.Anything, "c", "seguimiento", "tareas_pendientes").Return("presentar alegatos", nil)
	docs.On("GetConsolidatedText", mock.Anything, "c", "seguimiento", "observaciones").Return("", nil)

	input := models.FieldMap{"resolucionesEmitidas": "Res. 3", "pendingTasks": "ninguna"}
	res, err := NewBridge(DefaultSchema(), docs, nil).SyncConsolidatedFields(context.Background(), "c", "seguimiento", input)
	require.NoError(t, err)

	assert.Equal(t, "Res. 3", res.Fields["resolucionesEmitidas"])
	assert.Equal(t, "presentar alegatos", res.Fields["pendingTasks"])
	require.Contains(t, res.Failed, "resoluciones_emitidas")
	var gwErr *GatewayError
	assert.ErrorAs(t, res.Failed["resoluciones_emitidas"], &gwErr)
}

func TestSyncPhaseWithoutFolders(t *testing.T) {
	docs := new(MockConsolidatedText)
	res, err := NewBridge(DefaultSchema(), docs, nil).SyncConsolidatedFields(context.Background(), "c", "registro", models.FieldMap{"name": "Ana"})
	require.NoError(t, err)
	assert.False(t, res.Dirty)
	docs.AssertNotCalled(t, "GetConsolidatedText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncUnknownPhase(t *testing.T) {
	_, err := NewBridge(DefaultSchema(), new(MockConsolidatedText), nil).SyncConsolidatedFields(context.Background(), "c", "cierre", nil)
	assert.True(t, IsConfigurationError(err))
}
