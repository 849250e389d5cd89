package services

import (
	"context"
	"errors"
	"fmt"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessStore persists process state in the cases and phase_states tables
type ProcessStore struct {
	db *gorm.DB
}

func NewProcessStore(db *gorm.DB) *ProcessStore {
	return &ProcessStore{db: db}
}

// LoadProcessState implements process.ProcessStore
func (s *ProcessStore) LoadProcessState(ctx context.Context, caseID string) (*process.ProcessState, error) {
	var c models.Case
	if err := s.db.WithContext(ctx).Preload("PhaseStates").First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, process.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	state := &process.ProcessState{
		CaseID:               c.ID,
		CurrentPhase:         c.CurrentPhase,
		CompletionPercentage: c.CompletionPercentage,
		PerPhaseData:         make(map[string]models.FieldMap, len(c.PhaseStates)),
	}
	for _, ps := range c.PhaseStates {
		state.PerPhaseData[ps.Phase] = ps.Fields.Clone()
	}
	return state, nil
}

// SaveFields replaces the stored field map of a phase
func (s *ProcessStore) SaveFields(ctx context.Context, caseID, phase string, fields models.FieldMap) error {
	if fields == nil {
		fields = models.FieldMap{}
	}
	row := &models.PhaseState{CaseID: caseID, Phase: phase, Fields: fields}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "case_id"}, {Name: "phase"}},
		DoUpdates: clause.AssignmentColumns([]string{"fields", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save phase fields: %w", err)
	}
	return nil
}

// SavePercentage raises the stored percentage and moves currentPhase to the
// saved phase. A lower or equal value leaves the row untouched.
func (s *ProcessStore) SavePercentage(ctx context.Context, caseID, phase string, percentage int) error {
	res := s.db.WithContext(ctx).Model(&models.Case{}).
		Where("id = ? AND completion_percentage < ?", caseID, percentage).
		Updates(map[string]interface{}{
			"completion_percentage": percentage,
			"current_phase":         phase,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save completion percentage: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", caseID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up case: %w", err)
	}
	if count == 0 {
		return process.ErrCaseNotFound
	}
	return nil
}

// InTransaction implements process.Transactor
func (s *ProcessStore) InTransaction(ctx context.Context, fn func(process.ProcessStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProcessStore{db: tx})
	})
}

// ListCases returns cases with their client, newest first
func (s *ProcessStore) ListCases(ctx context.Context) ([]models.Case, error) {
	var cases []models.Case
	if err := s.db.WithContext(ctx).Preload("Client").Order("opened_at DESC").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}

// GetCase loads a case with its client
func (s *ProcessStore) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	var c models.Case
	if err := s.db.WithContext(ctx).Preload("Client").First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, process.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}
