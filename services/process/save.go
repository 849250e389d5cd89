package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"law_process_app_go/models"
)

// ProcessState is the persisted view of a case's process
type ProcessState struct {
	CaseID               string                     `json:"caseId"`
	CurrentPhase         string                     `json:"currentPhase"`
	CompletionPercentage int                        `json:"completionPercentage"`
	PerPhaseData         map[string]models.FieldMap `json:"perPhaseData"`
}

// ProcessStore is the persistence contract of the engine.
// SaveFields must be idempotent; SavePercentage must never lower the stored value.
type ProcessStore interface {
	LoadProcessState(ctx context.Context, caseID string) (*ProcessState, error)
	SaveFields(ctx context.Context, caseID, phase string, fields models.FieldMap) error
	SavePercentage(ctx context.Context, caseID, phase string, percentage int) error
}

// Transactor is implemented by stores that can run a save atomically
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ProcessStore) error) error
}

// Sanitizer cleans user input before it is persisted
type Sanitizer interface {
	SanitizeFields(fields models.FieldMap) models.FieldMap
}

// SaveOutcome reports what a save did
type SaveOutcome struct {
	Fields     models.FieldMap `json:"fields"`
	Previous   int             `json:"previousPercentage"`
	Percentage int             `json:"completionPercentage"`
	Advanced   bool            `json:"advanced"`
	Attempts   int             `json:"attempts"`
}

// AdvanceHook runs after a save raised the completion percentage
type AdvanceHook func(ctx context.Context, caseID, phase string, from, to int)

// Saver runs the compute, persist fields, persist percentage sequence
type Saver struct {
	schema    *Schema
	store     ProcessStore
	sanitizer Sanitizer
	attempts  int
	backoff   time.Duration
	hooks     []AdvanceHook
}

// NewSaver creates a saver with three attempts; sanitizer may be nil
func NewSaver(schema *Schema, store ProcessStore, sanitizer Sanitizer) *Saver {
	return &Saver{schema: schema, store: store, sanitizer: sanitizer, attempts: 3, backoff: 200 * time.Millisecond}
}

// OnAdvance registers a hook called after the percentage went up
func (s *Saver) OnAdvance(hook AdvanceHook) {
	s.hooks = append(s.hooks, hook)
}

// Save persists fields for (caseID, phase) and the resulting percentage.
// The percentage is computed against the exact (sanitized) map being stored.
// A failure in either write retries the whole sequence.
func (s *Saver) Save(ctx context.Context, caseID, phase string, fields models.FieldMap) (SaveOutcome, error) {
	if _, err := s.schema.Phase(phase); err != nil {
		savesTotal.WithLabelValues(outcomeFailed).Inc()
		return SaveOutcome{}, err
	}

	clean := fields.Clone()
	if s.sanitizer != nil {
		clean = s.sanitizer.SanitizeFields(clean)
	}

	var (
		outcome SaveOutcome
		lastErr error
	)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		outcome, lastErr = s.saveOnce(ctx, caseID, phase, clean)
		outcome.Attempts = attempt
		if lastErr == nil {
			break
		}
		if IsConfigurationError(lastErr) || errors.Is(lastErr, ErrCaseNotFound) || ctx.Err() != nil {
			break
		}
		log.Printf("[PROCESS] Save attempt %d/%d for case %s phase %s failed: %v", attempt, s.attempts, caseID, phase, lastErr)
		if attempt < s.attempts {
			select {
			case <-ctx.Done():
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
	}

	if lastErr != nil {
		savesTotal.WithLabelValues(outcomeFailed).Inc()
		if IsConfigurationError(lastErr) || errors.Is(lastErr, ErrCaseNotFound) {
			return outcome, lastErr
		}
		var pErr *PersistenceError
		if errors.As(lastErr, &pErr) {
			pErr.Attempts = outcome.Attempts
			return outcome, pErr
		}
		return outcome, &PersistenceError{Stage: "state", Attempts: outcome.Attempts, Err: lastErr}
	}

	savesTotal.WithLabelValues(outcomeSuccess).Inc()
	if outcome.Advanced {
		log.Printf("[PROCESS] Case %s advanced from %d%% to %d%% (phase %s)", caseID, outcome.Previous, outcome.Percentage, phase)
		for _, hook := range s.hooks {
			hook(ctx, caseID, phase, outcome.Previous, outcome.Percentage)
		}
	}
	return outcome, nil
}

func (s *Saver) saveOnce(ctx context.Context, caseID, phase string, fields models.FieldMap) (SaveOutcome, error) {
	var outcome SaveOutcome
	run := func(store ProcessStore) error {
		state, err := store.LoadProcessState(ctx, caseID)
		if err != nil {
			if errors.Is(err, ErrCaseNotFound) {
				return err
			}
			return &PersistenceError{Stage: "state", Err: fmt.Errorf("failed to load process state: %w", err)}
		}

		next, err := s.schema.ComputeCompletion(phase, fields, state.CompletionPercentage)
		if err != nil {
			return err
		}

		if err := store.SaveFields(ctx, caseID, phase, fields); err != nil {
			return &PersistenceError{Stage: "fields", Err: err}
		}
		if err := store.SavePercentage(ctx, caseID, phase, next); err != nil {
			return &PersistenceError{Stage: "percentage", Err: err}
		}

		outcome = SaveOutcome{
			Fields:     fields,
			Previous:   state.CompletionPercentage,
			Percentage: next,
			Advanced:   next > state.CompletionPercentage,
		}
		return nil
	}

	var err error
	if tx, ok := s.store.(Transactor); ok {
		err = tx.InTransaction(ctx, run)
	} else {
		err = run(s.store)
	}
	return outcome, err
}
