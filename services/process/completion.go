package process

import (
	"strings"

	"law_process_app_go/models"
)

// ComputeCompletion returns the case percentage after saving fields for phase.
// The phase only counts once every required field is filled, and the result
// is never lower than previous.
func (s *Schema) ComputeCompletion(phase string, fields models.FieldMap, previous int) (int, error) {
	def, err := s.Phase(phase)
	if err != nil {
		return previous, err
	}
	required := def.RequiredFields()
	if len(required) == 0 {
		return previous, &ConfigurationError{Phase: phase, Reason: "no required fields declared"}
	}

	for _, name := range required {
		if !IsFilled(fields[name]) {
			return previous, nil
		}
	}

	if def.CompletionTarget > previous {
		return def.CompletionTarget, nil
	}
	return previous, nil
}

// IsFilled reports whether a field value counts as filled
func IsFilled(value string) bool {
	return strings.TrimSpace(value) != ""
}

// PhaseProgress summarizes how many required fields of a phase are filled
type PhaseProgress struct {
	Phase    string `json:"phase"`
	Filled   int    `json:"filled"`
	Required int    `json:"required"`
	Target   int    `json:"target"`
	Complete bool   `json:"complete"`
}

// Progress reports per-phase required-field coverage in navigation order
func (s *Schema) Progress(perPhase map[string]models.FieldMap) []PhaseProgress {
	out := make([]PhaseProgress, 0, len(s.navigation))
	for _, def := range s.Phases() {
		required := def.RequiredFields()
		p := PhaseProgress{Phase: def.ID, Required: len(required), Target: def.CompletionTarget}
		fields := perPhase[def.ID]
		for _, name := range required {
			if IsFilled(fields[name]) {
				p.Filled++
			}
		}
		p.Complete = p.Required > 0 && p.Filled == p.Required
		out = append(out, p)
	}
	return out
}
