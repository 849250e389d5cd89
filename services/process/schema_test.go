package process

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	assert.Equal(t, []string{"registro", "avance_investigacion", "programar_cita", "armar_estrategia", "seguimiento"}, s.NavigationOrder())
	assert.Equal(t, []string{"registro", "avance_investigacion", "armar_estrategia", "programar_cita", "seguimiento"}, s.CompletionOrder())

	targets := map[string]int{}
	for _, p := range s.Phases() {
		targets[p.ID] = p.CompletionTarget
	}
	assert.Equal(t, map[string]int{
		"registro":             10,
		"avance_investigacion": 35,
		"armar_estrategia":     60,
		"programar_cita":       85,
		"seguimiento":          100,
	}, targets)

	registro, err := s.Phase("registro")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "contactInfo"}, registro.RequiredFields())
	assert.Empty(t, registro.Folders)

	estrategia, err := s.Phase("armar_estrategia")
	require.NoError(t, err)
	assert.Equal(t, []string{"entenderHechos", "teoriaDelCaso", "objetivos"}, estrategia.RequiredFields())
	assert.Len(t, estrategia.BoundFields(), 6)

	f, ok := estrategia.Field("objetivos")
	require.True(t, ok)
	assert.Equal(t, "estrategia", f.Folder)
	assert.Equal(t, FieldTextarea, f.Type)
}

func TestSchemaNext(t *testing.T) {
	s := DefaultSchema()

	next, ok := s.Next("avance_investigacion")
	assert.True(t, ok)
	assert.Equal(t, "programar_cita", next)

	_, ok = s.Next("seguimiento")
	assert.False(t, ok)
}

func TestUnknownPhaseIsConfigurationError(t *testing.T) {
	_, err := DefaultSchema().Phase("cierre")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

const validTable = `
navigation_order: [a, b]
completion_order: [a, b]
phases:
  - id: a
    completion_target: 10
    fields:
      - {name: x, type: text, required: true}
  - id: b
    completion_target: 20
    folders:
      - {type: docs}
    fields:
      - {name: y, type: textarea, required: true, folder: docs}
`

func TestLoadSchemaValidation(t *testing.T) {
	_, err := LoadSchema([]byte(validTable))
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(string) string
		wantMsg string
	}{
		{
			name:    "decreasing targets",
			mutate:  func(s string) string { return strings.Replace(s, "completion_target: 20", "completion_target: 5", 1) },
			wantMsg: "lower than previous",
		},
		{
			name:    "target out of range",
			mutate:  func(s string) string { return strings.Replace(s, "completion_target: 20", "completion_target: 120", 1) },
			wantMsg: "outside 1..100",
		},
		{
			name:    "empty required list",
			mutate:  func(s string) string { return strings.Replace(s, "{name: x, type: text, required: true}", "{name: x, type: text}", 1) },
			wantMsg: "no required fields",
		},
		{
			name:    "unknown folder binding",
			mutate:  func(s string) string { return strings.Replace(s, "folder: docs}", "folder: other}", 1) },
			wantMsg: "unknown folder",
		},
		{
			name:    "unknown field type",
			mutate:  func(s string) string { return strings.Replace(s, "type: text,", "type: number,", 1) },
			wantMsg: "unknown type",
		},
		{
			name:    "order missing a phase",
			mutate:  func(s string) string { return strings.Replace(s, "completion_order: [a, b]", "completion_order: [a]", 1) },
			wantMsg: "completion_order",
		},
		{
			name:    "order references undeclared phase",
			mutate:  func(s string) string { return strings.Replace(s, "navigation_order: [a, b]", "navigation_order: [a, c]", 1) },
			wantMsg: "undeclared phase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchema([]byte(tt.mutate(validTable)))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFolderLabel(t *testing.T) {
	s := DefaultSchema()
	assert.Equal(t, "Evidencia fotográfica", s.FolderLabel("avance_investigacion", "evidencia_fotografica"))
	assert.Equal(t, "OTRA", s.FolderLabel("registro", "otra"))
}
