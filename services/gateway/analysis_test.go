package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const analysisJSON = "```json\n" + `{
  "documentSummary": "Demanda por despido arbitrario",
  "keyLegalConcepts": ["Despido arbitrario"],
  "legalAreas": ["Derecho Laboral"],
  "relevantArticles": ["Art. 27 Const"],
  "recommendations": ["Interponer amparo"],
  "risks": ["Caducidad"],
  "confidence": 88
}` + "\n```"

func TestAnalyzeParsesJSON(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, analysisSystemPrompt, mock.Anything, GenerationOptions{Temperature: 0.3, MaxTokens: 2000}).Return(analysisJSON, nil)

	res, err := NewAnalysis(llm, nil).Analyze(context.Background(), "texto de la demanda")
	require.NoError(t, err)
	assert.Equal(t, "Demanda por despido arbitrario", res.DocumentSummary)
	assert.Equal(t, []string{"Derecho Laboral"}, res.LegalAreas)
	assert.Equal(t, 88, res.Confidence)
	assert.Empty(t, res.Note)
	assert.NotNil(t, res.PrecedentsFound)
}

func TestAnalyzeKeepsUnparsedReply(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("El documento es una demanda laboral.", nil)

	res, err := NewAnalysis(llm, nil).Analyze(context.Background(), "texto")
	require.NoError(t, err)
	assert.Equal(t, "El documento es una demanda laboral.", res.DocumentSummary)
	assert.Equal(t, 70, res.Confidence)
	assert.Equal(t, []string{"Derecho General"}, res.LegalAreas)
	assert.Equal(t, []string{}, res.RelevantArticles)
}

func TestAnalyzeFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		note string
	}{
		{"quota", ErrRateLimited, quotaFallbackNote},
		{"quota message", errors.New("You exceeded your current quota"), quotaFallbackNote},
		{"other", ErrUnavailable, errorFallbackNote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := new(MockLLM)
			llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", tt.err)

			res, err := NewAnalysis(llm, nil).Analyze(context.Background(), "El trabajador fue objeto de despido")
			require.NoError(t, err)
			assert.Equal(t, tt.note, res.Note)
			assert.Equal(t, 75, res.Confidence)
			assert.Equal(t, []string{"Derecho Laboral"}, res.LegalAreas)
		})
	}
}

func TestFallbackAnalysis(t *testing.T) {
	t.Run("construction and damages", func(t *testing.T) {
		res := FallbackAnalysis("El constructor causó daños en la obra")
		assert.Equal(t, []string{"Derecho Civil - Contratos", "Derecho Civil - Responsabilidad"}, res.LegalAreas)
		assert.Contains(t, res.RelevantArticles, "Art. 1762 CC")
		assert.Contains(t, res.RelevantArticles, "Art. 1985 CC")
		assert.Contains(t, res.DocumentSummary, "Derecho Civil - Contratos, Derecho Civil - Responsabilidad")
	})

	t.Run("default", func(t *testing.T) {
		res := FallbackAnalysis("Solicitud de copia certificada")
		assert.Equal(t, []string{"Derecho General"}, res.LegalAreas)
		assert.Equal(t, []string{"Análisis legal requerido"}, res.KeyLegalConcepts)
		assert.Empty(t, res.RelevantArticles)
		assert.Equal(t, 75, res.Confidence)
	})
}

func TestAnalyzeAttachesPrecedents(t *testing.T) {
	testDB := setupTestDB(t)
	require.NoError(t, testDB.Create(&[]models.Precedent{
		{
			Title:           "Despido Arbitrario y Reposición Laboral",
			Court:           "Tribunal Constitucional",
			CaseNumber:      "EXP-2023-2890",
			Date:            time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC),
			Summary:         "Reposición del trabajador despedido sin causa justa",
			ArticlesMatched: "Art. 27 Const, Art. 22 LPCL",
			LegalArea:       "Derecho Laboral",
			Relevance:       92,
		},
		{
			Title:     "Prescripción tributaria",
			Court:     "Corte Suprema",
			Summary:   "Cómputo del plazo",
			LegalArea: "Derecho Tributario",
			Relevance: 60,
		},
	}).Error)

	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(analysisJSON, nil)

	res, err := NewAnalysis(llm, NewPrecedentIndex(testDB)).Analyze(context.Background(), "texto")
	require.NoError(t, err)
	require.Len(t, res.PrecedentsFound, 1)
	assert.Equal(t, "Despido Arbitrario y Reposición Laboral", res.PrecedentsFound[0].Title)
	assert.Equal(t, 92, res.PrecedentsFound[0].Relevance)
}

func TestMatchPrecedentsAreaWildcard(t *testing.T) {
	precedents := []models.Precedent{
		{ID: "p1", Title: "Vicios ocultos", Summary: "Responsabilidad civil del vendedor"},
		{ID: "p2", Title: "Reposición", Summary: "Materia laboral"},
	}
	analysis := &process.AnalysisResult{LegalAreas: []string{"Derecho Civil - Contratos"}}

	refs := MatchPrecedents(analysis, precedents)
	require.Len(t, refs, 1)
	assert.Equal(t, "p1", refs[0].ID)

	assert.Empty(t, MatchPrecedents(&process.AnalysisResult{}, precedents))
}
