package process

import (
	"testing"

	"law_process_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCompletionRegistroScenario(t *testing.T) {
	s := DefaultSchema()

	pct, err := s.ComputeCompletion("registro", models.FieldMap{"name": "Juan Pérez", "contactInfo": ""}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, pct)

	pct, err = s.ComputeCompletion("registro", models.FieldMap{"name": "Juan Pérez", "contactInfo": "+51999999999"}, pct)
	require.NoError(t, err)
	assert.Equal(t, 10, pct)
}

func TestComputeCompletionSeguimientoNeverDecreases(t *testing.T) {
	s := DefaultSchema()
	full := models.FieldMap{"currentStatus": "En apelación", "observations": "pendiente"}

	pct, err := s.ComputeCompletion("seguimiento", full, 85)
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	partial := models.FieldMap{"currentStatus": "En apelación", "observations": ""}
	pct, err = s.ComputeCompletion("seguimiento", partial, pct)
	require.NoError(t, err)
	assert.Equal(t, 100, pct)

	cleared := models.FieldMap{"currentStatus": "   "}
	pct, err = s.ComputeCompletion("seguimiento", cleared, pct)
	require.NoError(t, err)
	assert.Equal(t, 100, pct)
}

func TestComputeCompletionAllOrNothing(t *testing.T) {
	s := DefaultSchema()

	// every optional field filled, one required missing
	fields := models.FieldMap{
		"entenderHechos":    "hechos",
		"teoriaDelCaso":     "teoría",
		"objetivos":         "",
		"fundamentoLegal":   "art. 1969 CC",
		"estrategiaDefensa": "negociar",
		"riesgos":           "prescripción",
	}
	pct, err := s.ComputeCompletion("armar_estrategia", fields, 35)
	require.NoError(t, err)
	assert.Equal(t, 35, pct)
}

func TestComputeCompletionLowerTargetKeepsPrevious(t *testing.T) {
	s := DefaultSchema()

	pct, err := s.ComputeCompletion("registro", models.FieldMap{"name": "Ana", "contactInfo": "999"}, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, pct)
}

func TestComputeCompletionIdempotent(t *testing.T) {
	s := DefaultSchema()
	fields := models.FieldMap{"meetingDate": "2026-03-01", "meetingTime": "10:00"}

	first, err := s.ComputeCompletion("programar_cita", fields, 60)
	require.NoError(t, err)
	second, err := s.ComputeCompletion("programar_cita", fields, first)
	require.NoError(t, err)
	assert.Equal(t, 85, first)
	assert.Equal(t, first, second)
}

func TestComputeCompletionMonotonicOverSequence(t *testing.T) {
	s := DefaultSchema()
	saves := []struct {
		phase  string
		fields models.FieldMap
	}{
		{"registro", models.FieldMap{"name": "Ana"}},
		{"registro", models.FieldMap{"name": "Ana", "contactInfo": "999"}},
		{"programar_cita", models.FieldMap{"meetingDate": "2026-01-01", "meetingTime": "09:00"}},
		{"avance_investigacion", models.FieldMap{"estadoInvestigacion": "abierta"}},
		{"registro", models.FieldMap{}},
		{"seguimiento", models.FieldMap{"currentStatus": "archivado"}},
		{"armar_estrategia", models.FieldMap{"entenderHechos": "a", "teoriaDelCaso": "b", "objetivos": "c"}},
	}

	pct := 0
	for _, save := range saves {
		next, err := s.ComputeCompletion(save.phase, save.fields, pct)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next, pct, "phase %s", save.phase)
		pct = next
	}
	assert.Equal(t, 100, pct)
}

func TestComputeCompletionConfigurationErrors(t *testing.T) {
	t.Run("unknown phase", func(t *testing.T) {
		pct, err := DefaultSchema().ComputeCompletion("cierre", models.FieldMap{}, 40)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Equal(t, 40, pct)
	})

	t.Run("empty required list", func(t *testing.T) {
		s := &Schema{phases: map[string]PhaseDef{
			"x": {ID: "x", CompletionTarget: 50, Fields: []Field{{Name: "a", Type: FieldText}}},
		}}
		pct, err := s.ComputeCompletion("x", models.FieldMap{"a": "filled"}, 0)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Equal(t, 0, pct)
	})
}

func TestProgress(t *testing.T) {
	s := DefaultSchema()
	progress := s.Progress(map[string]models.FieldMap{
		"registro":         {"name": "Ana", "contactInfo": "999"},
		"armar_estrategia": {"entenderHechos": "x"},
	})

	require.Len(t, progress, 5)
	assert.Equal(t, PhaseProgress{Phase: "registro", Filled: 2, Required: 2, Target: 10, Complete: true}, progress[0])
	assert.Equal(t, "armar_estrategia", progress[3].Phase)
	assert.Equal(t, 1, progress[3].Filled)
	assert.False(t, progress[3].Complete)
}
