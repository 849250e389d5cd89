package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"law_process_app_go/models"

	"gorm.io/gorm"
)

const caseNumberPrefix = "PRC"

// ErrMissingClientData is returned when name or contact info is blank
var ErrMissingClientData = errors.New("name and contact info are required")

// RegisterClientInput carries the registro form
type RegisterClientInput struct {
	Name        string
	ContactInfo string
	Email       string
	Address     string
	DNI         string
	Notes       string
}

// GenerateCaseNumber generates the next case number for the given year
// Format: PRC-{YEAR}-{SEQUENCE}
// Example: PRC-2026-00042
func GenerateCaseNumber(db *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", caseNumberPrefix, year)

	var maxCase models.Case
	err := db.Unscoped().Where("case_number LIKE ?", prefix+"%").
		Order("case_number DESC").
		First(&maxCase).Error

	sequence := 1
	if err == nil {
		var parsedSeq int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(maxCase.CaseNumber, prefix), "%d", &parsedSeq); scanErr == nil {
			sequence = parsedSeq + 1
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to query max case number: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, sequence), nil
}

// RegisterClient creates the client, its case and the registro field map in
// one transaction. A case number collision is retried.
func RegisterClient(ctx context.Context, db *gorm.DB, input RegisterClientInput) (*models.Case, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.ContactInfo = strings.TrimSpace(input.ContactInfo)
	if input.Name == "" || input.ContactInfo == "" {
		return nil, ErrMissingClientData
	}

	const maxRetries = 10
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		c, err := registerOnce(ctx, db, input)
		if err == nil {
			log.Printf("[PROCESS] Registered client %s with case %s", c.Client.Name, c.CaseNumber)
			return c, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to generate unique case number after %d retries: %w", maxRetries, lastErr)
}

func registerOnce(ctx context.Context, db *gorm.DB, input RegisterClientInput) (*models.Case, error) {
	var created models.Case
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client := models.Client{
			Name:        input.Name,
			ContactInfo: input.ContactInfo,
			Email:       ptrIfNotEmpty(strings.TrimSpace(input.Email)),
			Address:     ptrIfNotEmpty(strings.TrimSpace(input.Address)),
			DNI:         ptrIfNotEmpty(strings.TrimSpace(input.DNI)),
			Notes:       ptrIfNotEmpty(strings.TrimSpace(input.Notes)),
		}
		if err := tx.Create(&client).Error; err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		caseNumber, err := GenerateCaseNumber(tx, time.Now().Year())
		if err != nil {
			return err
		}
		created = models.Case{
			ClientID:     client.ID,
			CaseNumber:   caseNumber,
			CurrentPhase: models.PhaseRegistro,
		}
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		state := models.PhaseState{
			CaseID: created.ID,
			Phase:  models.PhaseRegistro,
			Fields: RegistroFields(client),
		}
		if err := tx.Create(&state).Error; err != nil {
			return fmt.Errorf("failed to create registro fields: %w", err)
		}

		created.Client = client
		created.PhaseStates = []models.PhaseState{state}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RegistroFields maps a client record onto the registro phase fields
func RegistroFields(client models.Client) models.FieldMap {
	fields := models.FieldMap{
		"name":        client.Name,
		"contactInfo": client.ContactInfo,
	}
	optional := map[string]*string{
		"email":   client.Email,
		"address": client.Address,
		"dni":     client.DNI,
		"notes":   client.Notes,
	}
	for name, value := range optional {
		if value != nil && *value != "" {
			fields[name] = *value
		}
	}
	return fields
}
