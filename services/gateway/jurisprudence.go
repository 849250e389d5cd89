package gateway

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"law_process_app_go/services/process"
)

const jurisprudenceSystemPrompt = `Eres un asistente jurídico peruano especializado en jurisprudencia.

IMPORTANTE: Responde DIRECTAMENTE sin preámbulos ni introducciones. No digas "Entendido", "Soy un asistente", ni similares.

Lineamientos:
- Céntrate en jurisprudencia peruana (Corte Suprema, Corte IDH, Tribunal Constitucional).
- Si mencionas casos, incluye fecha, sala y número de expediente cuando sea posible.
- Diferencia claramente opiniones de hechos.
- Si no dispones de información, reconoce la limitación y sugiere fuentes oficiales.
- Ve directo al análisis jurisprudencial sin introducción.`

const (
	maxJurisprudencePrompt = 6000
	jurisprudenceMaxTokens = 1024
	emptyAnswerMessage     = "Gemini devolvió una respuesta vacía."
)

// ErrEmptyQuery is returned when the query is blank after whitespace cleanup
var ErrEmptyQuery = errors.New("empty jurisprudence query")

var jurisprudencePreambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Entendido\.?\s*`),
	regexp.MustCompile(`(?i)^Claro[.,!]\s*`),
	regexp.MustCompile(`(?i)^Por supuesto[.,!]\s*`),
	regexp.MustCompile(`(?i)^Soy un asistente jurídico.*?\.\s*`),
	regexp.MustCompile(`(?i)^Como asistente jurídico.*?\.\s*`),
	regexp.MustCompile(`(?i)^En mi capacidad como.*?\.\s*`),
	regexp.MustCompile(`(?i)^Me enfocaré en.*?\.\s*`),
}

var acknowledgementLine = regexp.MustCompile(`(?im)^Entendido\.?\s+Soy un asistente[^\n]*`)

// Jurisprudence answers case-law questions through an LLM
type Jurisprudence struct {
	llm LLM
}

func NewJurisprudence(llm LLM) *Jurisprudence {
	return &Jurisprudence{llm: llm}
}

// Jurisprudence implements process.JurisprudenceGateway
func (j *Jurisprudence) Jurisprudence(ctx context.Context, query string) (*process.JurisprudenceResult, error) {
	term := process.HeadRunes(collapseWhitespace(query), maxJurisprudencePrompt)
	if term == "" {
		return nil, ErrEmptyQuery
	}

	answer, err := j.llm.Generate(ctx, jurisprudenceSystemPrompt, "Consulta: "+term, GenerationOptions{
		Temperature: 0.2,
		MaxTokens:   jurisprudenceMaxTokens,
	})
	if err != nil {
		return nil, &process.GatewayError{Tool: process.ToolJurisprudencia, Message: "No se pudo obtener respuesta de Gemini.", Err: err}
	}
	if strings.TrimSpace(answer) == "" {
		return nil, &process.GatewayError{Tool: process.ToolJurisprudencia, Message: emptyAnswerMessage}
	}

	return &process.JurisprudenceResult{Term: term, Answer: cleanJurisprudenceAnswer(answer)}, nil
}

// cleanJurisprudenceAnswer strips acknowledgement preambles the model adds
// despite being told not to
func cleanJurisprudenceAnswer(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, re := range jurisprudencePreambles {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = acknowledgementLine.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
