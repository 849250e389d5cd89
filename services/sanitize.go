package services

import (
	"html"
	"strings"

	"law_process_app_go/models"

	"github.com/microcosm-cc/bluemonday"
)

// FieldSanitizer strips markup from phase field values before they are stored.
// Field values are plain text, so every tag is removed and entities escaped by
// the policy are turned back into characters.
type FieldSanitizer struct {
	policy *bluemonday.Policy
}

func NewFieldSanitizer() *FieldSanitizer {
	return &FieldSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeFields implements process.Sanitizer
func (s *FieldSanitizer) SanitizeFields(fields models.FieldMap) models.FieldMap {
	out := make(models.FieldMap, len(fields))
	for name, value := range fields {
		out[strings.TrimSpace(name)] = s.SanitizeText(value)
	}
	return out
}

// SanitizeText removes markup from a single value
func (s *FieldSanitizer) SanitizeText(value string) string {
	if !strings.ContainsAny(value, "<>&") {
		return value
	}
	return html.UnescapeString(s.policy.Sanitize(value))
}
