package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"law_process_app_go/services/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJurisprudenceCollapsesQuery(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, jurisprudenceSystemPrompt, "Consulta: despido arbitrario reposición", GenerationOptions{Temperature: 0.2, MaxTokens: 1024}).
		Return("La Casación 123-2020 establece...", nil)

	res, err := NewJurisprudence(llm).Jurisprudence(context.Background(), "  despido\n\tarbitrario   reposición ")
	require.NoError(t, err)
	assert.Equal(t, "despido arbitrario reposición", res.Term)
	assert.Equal(t, "La Casación 123-2020 establece...", res.Answer)
	llm.AssertExpectations(t)
}

func TestJurisprudenceStripsPreambles(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"entendido", "Entendido. El TC ha señalado...", "El TC ha señalado..."},
		{"assistant intro", "Soy un asistente jurídico peruano. La Corte Suprema...", "La Corte Suprema..."},
		{"combined", "Entendido. Soy un asistente jurídico. El expediente 00976-2001-AA/TC...", "El expediente 00976-2001-AA/TC..."},
		{"claro", "Claro, la doctrina jurisprudencial...", "la doctrina jurisprudencial..."},
		{"untouched", "Claroscuro en la jurisprudencia", "Claroscuro en la jurisprudencia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJurisprudenceAnswer(tt.answer))
		})
	}
}

func TestJurisprudenceEmptyAnswer(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("  \n", nil)

	_, err := NewJurisprudence(llm).Jurisprudence(context.Background(), "amparo")
	var gwErr *process.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, emptyAnswerMessage, gwErr.Message)
}

func TestJurisprudenceProviderFailure(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", ErrUnavailable)

	_, err := NewJurisprudence(llm).Jurisprudence(context.Background(), "amparo")
	var gwErr *process.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestJurisprudenceBlankQuery(t *testing.T) {
	llm := new(MockLLM)
	_, err := NewJurisprudence(llm).Jurisprudence(context.Background(), " \n ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestJurisprudenceCapsPrompt(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ok", nil)

	res, err := NewJurisprudence(llm).Jurisprudence(context.Background(), strings.Repeat("ñ", 7000))
	require.NoError(t, err)
	assert.Equal(t, 6000, len([]rune(res.Term)))
}
