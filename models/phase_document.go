package models

import (
	"fmt"
	"time"
)

// PhaseDocument is an uploaded file inside a (case, phase, folder) bucket.
// Rows are immutable after creation.
type PhaseDocument struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CaseID     string `gorm:"type:uuid;not null;index:idx_phase_doc_folder" json:"case_id"`
	Phase      string `gorm:"not null;index:idx_phase_doc_folder" json:"phase"`
	FolderType string `gorm:"not null;index:idx_phase_doc_folder" json:"folder_type"`

	FileName      string    `gorm:"not null" json:"file_name"`
	FilePath      string    `gorm:"not null" json:"-"` // storage key, not exposed
	FileType      string    `json:"file_type"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	ExtractedText string    `gorm:"type:text" json:"extracted_text"`
	UploadedAt    time.Time `gorm:"not null;index" json:"uploaded_at"`
}

// TableName specifies the table name for PhaseDocument model
func (PhaseDocument) TableName() string {
	return "phase_documents"
}

// NewPhaseDocumentID builds the "case_phase_folder_millis" identifier
func NewPhaseDocumentID(caseID, phase, folderType string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d", caseID, phase, folderType, at.UnixMilli())
}
