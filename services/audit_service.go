package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"law_process_app_go/models"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	CaseID    string
	IPAddress string
	UserAgent string
	SessionID string
}

// auditWG lets tests and shutdown wait for pending writes
var auditWG sync.WaitGroup

// LogAuditEvent creates a new audit log entry asynchronously
func LogAuditEvent(
	db *gorm.DB,
	ctx AuditContext,
	action models.AuditAction,
	resourceType string,
	resourceID string,
	resourceName string,
	description string,
	oldValues interface{},
	newValues interface{},
) {
	entry := buildAuditLog(ctx, action, resourceType, resourceID, resourceName, description, oldValues, newValues)
	writeAuditLog(db, entry)
}

// LogFolderSync records a field overwritten by consolidated folder text,
// keeping a patch of the change instead of both full texts
func LogFolderSync(db *gorm.DB, caseID, phase, field, oldValue, newValue string) {
	dmp := diffmatchpatch.New()
	patch := dmp.PatchToText(dmp.PatchMake(oldValue, newValue))

	entry := buildAuditLog(
		AuditContext{CaseID: caseID},
		models.AuditActionFolderSync,
		"PhaseState",
		caseID+"/"+phase,
		phase+"."+field,
		fmt.Sprintf("Campo %s reemplazado con el texto consolidado (%d → %d caracteres)", field, len([]rune(oldValue)), len([]rune(newValue))),
		nil,
		nil,
	)
	entry.Patch = patch
	writeAuditLog(db, entry)
}

// LogProgress records a raised completion percentage
func LogProgress(db *gorm.DB, caseID, phase string, from, to int) {
	LogAuditEvent(db, AuditContext{CaseID: caseID}, models.AuditActionProgress,
		"Case", caseID, phase,
		fmt.Sprintf("Avance del proceso de %d%% a %d%%", from, to),
		map[string]int{"completion_percentage": from},
		map[string]int{"completion_percentage": to},
	)
}

// WaitForAuditWrites blocks until queued audit entries are written
func WaitForAuditWrites() {
	auditWG.Wait()
}

func buildAuditLog(
	ctx AuditContext,
	action models.AuditAction,
	resourceType, resourceID, resourceName, description string,
	oldValues, newValues interface{},
) models.AuditLog {
	var oldJSON, newJSON string
	if oldValues != nil {
		if bytes, err := json.Marshal(oldValues); err == nil {
			oldJSON = string(bytes)
		}
	}
	if newValues != nil {
		if bytes, err := json.Marshal(newValues); err == nil {
			newJSON = string(bytes)
		}
	}

	return models.AuditLog{
		CaseID:       ptrIfNotEmpty(ctx.CaseID),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Action:       action,
		Description:  description,
		OldValues:    oldJSON,
		NewValues:    newJSON,
		IPAddress:    ctx.IPAddress,
		UserAgent:    ctx.UserAgent,
		SessionID:    ctx.SessionID,
	}
}

func writeAuditLog(db *gorm.DB, entry models.AuditLog) {
	if db == nil {
		return
	}
	auditWG.Add(1)
	// Run in goroutine to avoid blocking the request
	go func() {
		defer auditWG.Done()
		if err := db.Create(&entry).Error; err != nil {
			log.Printf("[AUDIT] Failed to create audit log: %v", err)
		}
	}()
}

// ptrIfNotEmpty returns a pointer to the string if not empty, nil otherwise
func ptrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetCaseAuditHistory retrieves the audit trail of a case, newest first
func GetCaseAuditHistory(db *gorm.DB, caseID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	query := db.Where("case_id = ?", caseID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// ApplyAuditPatch replays a folder-sync patch on the old value, returning the new value
func ApplyAuditPatch(oldValue, patch string) (string, error) {
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patch)
	if err != nil {
		return "", fmt.Errorf("failed to parse audit patch: %w", err)
	}
	out, applied := dmp.PatchApply(patches, oldValue)
	for _, ok := range applied {
		if !ok {
			return "", fmt.Errorf("failed to apply audit patch")
		}
	}
	return out, nil
}
