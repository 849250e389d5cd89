package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"law_process_app_go/services/process"
)

const analysisSystemPrompt = "Eres un experto asistente legal especializado en el sistema jurídico peruano. Analiza documentos legales con precisión y proporciona recomendaciones estratégicas basadas en la jurisprudencia y legislación peruana."

const analysisPromptTemplate = `
Analiza el siguiente documento legal peruano y proporciona:

1. Un resumen ejecutivo del documento
2. Los conceptos legales clave identificados
3. Las áreas del derecho involucradas
4. Los artículos de ley que podrían ser relevantes (formato: "Art. XXX CC/CONST/etc")
5. Recomendaciones estratégicas para el caso
6. Riesgos legales identificados
7. Un nivel de confianza del análisis (0-100)

Documento a analizar:
%s

Responde en formato JSON con la siguiente estructura:
{
  "documentSummary": "...",
  "keyLegalConcepts": ["concepto1", "concepto2"],
  "legalAreas": ["Derecho Civil", "Derecho Laboral"],
  "relevantArticles": ["Art. 1969 CC", "Art. 27 Const"],
  "recommendations": ["recomendación1", "recomendación2"],
  "risks": ["riesgo1", "riesgo2"],
  "confidence": 85
}`

const (
	analysisMaxTokens = 2000

	unparsedConfidence = 70
	fallbackConfidence = 75

	quotaFallbackNote = "Análisis realizado con sistema de respaldo. Para análisis completo con IA, verifique la configuración de OpenAI."
	errorFallbackNote = "Análisis realizado con sistema de respaldo debido a un error temporal del servicio de IA."
)

// PrecedentFinder looks up stored precedents related to an analysis
type PrecedentFinder interface {
	RelatedPrecedents(ctx context.Context, analysis *process.AnalysisResult) ([]process.PrecedentRef, error)
}

// Analysis produces structured document reviews. When the LLM fails a
// keyword based review is returned instead of an error.
type Analysis struct {
	llm        LLM
	precedents PrecedentFinder
}

func NewAnalysis(llm LLM, precedents PrecedentFinder) *Analysis {
	return &Analysis{llm: llm, precedents: precedents}
}

// Analyze implements process.AnalysisGateway
func (a *Analysis) Analyze(ctx context.Context, text string) (*process.AnalysisResult, error) {
	result := a.review(ctx, text)

	if a.precedents != nil {
		found, err := a.precedents.RelatedPrecedents(ctx, result)
		if err != nil {
			log.Printf("[TOOLS] Failed to look up precedents: %v", err)
		} else {
			result.PrecedentsFound = found
		}
	}
	if result.PrecedentsFound == nil {
		result.PrecedentsFound = []process.PrecedentRef{}
	}
	return result, nil
}

func (a *Analysis) review(ctx context.Context, text string) *process.AnalysisResult {
	if a.llm == nil {
		return fallbackWithNote(text, errorFallbackNote)
	}

	content, err := a.llm.Generate(ctx, analysisSystemPrompt, fmt.Sprintf(analysisPromptTemplate, text), GenerationOptions{
		Temperature: 0.3,
		MaxTokens:   analysisMaxTokens,
	})
	if err == nil && strings.TrimSpace(content) == "" {
		err = fmt.Errorf("no se recibió respuesta del análisis de IA")
	}
	if err != nil {
		if isQuotaError(err) {
			log.Printf("[TOOLS] Using fallback analysis due to quota/rate limit: %v", err)
			return fallbackWithNote(text, quotaFallbackNote)
		}
		log.Printf("[TOOLS] Using fallback analysis due to LLM error: %v", err)
		return fallbackWithNote(text, errorFallbackNote)
	}

	return parseAnalysis(content)
}

// parseAnalysis decodes the model's JSON. Replies that are not JSON are kept
// whole as the summary.
func parseAnalysis(content string) *process.AnalysisResult {
	var parsed process.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		return &process.AnalysisResult{
			DocumentSummary:  content,
			KeyLegalConcepts: []string{"Análisis detallado disponible"},
			LegalAreas:       []string{"Derecho General"},
			RelevantArticles: []string{},
			Recommendations:  []string{"Revisar análisis completo proporcionado"},
			Risks:            []string{"Consultar con especialista para validación"},
			Confidence:       unparsedConfidence,
		}
	}

	parsed.PrecedentsFound = nil
	parsed.Note = ""
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 100 {
		parsed.Confidence = 100
	}
	for _, list := range []*[]string{&parsed.KeyLegalConcepts, &parsed.LegalAreas, &parsed.RelevantArticles, &parsed.Recommendations, &parsed.Risks} {
		if *list == nil {
			*list = []string{}
		}
	}
	return &parsed
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func fallbackWithNote(text, note string) *process.AnalysisResult {
	r := FallbackAnalysis(text)
	r.Note = note
	return r
}

// FallbackAnalysis classifies a document by keywords when no model is
// available
func FallbackAnalysis(text string) *process.AnalysisResult {
	words := strings.ToLower(text)
	r := &process.AnalysisResult{
		KeyLegalConcepts: []string{},
		LegalAreas:       []string{},
		RelevantArticles: []string{},
		Recommendations:  []string{},
		Risks:            []string{},
		Confidence:       fallbackConfidence,
	}

	if containsAny(words, "constructor", "construcción", "obra") {
		r.LegalAreas = append(r.LegalAreas, "Derecho Civil - Contratos")
		r.KeyLegalConcepts = append(r.KeyLegalConcepts, "Responsabilidad contractual del constructor", "Vicios ocultos en la construcción")
		r.RelevantArticles = append(r.RelevantArticles, "Art. 1762 CC", "Art. 1969 CC", "Art. 1970 CC")
		r.Recommendations = append(r.Recommendations, "Solicitar inspección técnica independiente", "Recopilar documentación del proyecto completo")
		r.Risks = append(r.Risks, "Prescripción de la acción (10 años)", "Dificultad probatoria del nexo causal")
	}

	if containsAny(words, "despido", "laboral", "trabajador") {
		r.LegalAreas = append(r.LegalAreas, "Derecho Laboral")
		r.KeyLegalConcepts = append(r.KeyLegalConcepts, "Despido arbitrario", "Estabilidad laboral")
		r.RelevantArticles = append(r.RelevantArticles, "Art. 27 Const", "Art. 22 LPCL")
		r.Recommendations = append(r.Recommendations, "Evaluar si procede acción de amparo")
		r.Risks = append(r.Risks, "Plazos de caducidad de la acción")
	}

	if containsAny(words, "daños", "perjuicios", "responsabilidad") {
		r.LegalAreas = append(r.LegalAreas, "Derecho Civil - Responsabilidad")
		r.KeyLegalConcepts = append(r.KeyLegalConcepts, "Responsabilidad por daños y perjuicios")
		r.RelevantArticles = append(r.RelevantArticles, "Art. 1969 CC", "Art. 1985 CC")
		r.Recommendations = append(r.Recommendations, "Cuantificar correctamente el daño")
		r.Risks = append(r.Risks, "Demostración del nexo causal")
	}

	if len(r.LegalAreas) == 0 {
		r.LegalAreas = append(r.LegalAreas, "Derecho General")
		r.KeyLegalConcepts = append(r.KeyLegalConcepts, "Análisis legal requerido")
		r.Recommendations = append(r.Recommendations, "Consultar con especialista en la materia")
		r.Risks = append(r.Risks, "Evaluar plazos procesales aplicables")
	}

	r.DocumentSummary = fmt.Sprintf("Análisis automático del documento: Se ha identificado un caso que involucra %s. "+
		"El documento presenta elementos que requieren evaluación legal especializada para determinar las mejores estrategias procesales.",
		strings.Join(r.LegalAreas, ", "))
	return r
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
