package gateway

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrUnauthorized  = errors.New("llm provider rejected credentials")
	ErrRateLimited   = errors.New("llm provider rate limited the request")
	ErrUnavailable   = errors.New("llm provider unavailable")
	ErrNotConfigured = errors.New("llm provider api key not configured")
)

// GenerationOptions tunes a single completion
type GenerationOptions struct {
	Temperature float32
	MaxTokens   int
}

// LLM is the minimal text-generation surface the gateways depend on
type LLM interface {
	Generate(ctx context.Context, system, prompt string, opts GenerationOptions) (string, error)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseWhitespace trims s and replaces every whitespace run with one space
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// isQuotaError reports whether an LLM failure came from billing or rate limits
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}
