package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FolderConsolidation caches the concatenated extracted text of a folder
type FolderConsolidation struct {
	ID string `gorm:"type:uuid;primarykey" json:"id"`

	CaseID     string `gorm:"type:uuid;not null;uniqueIndex:idx_consolidation_folder" json:"case_id"`
	Phase      string `gorm:"not null;uniqueIndex:idx_consolidation_folder" json:"phase"`
	FolderType string `gorm:"not null;uniqueIndex:idx_consolidation_folder" json:"folder_type"`

	ConsolidatedText string    `gorm:"type:text" json:"consolidated_text"`
	DocumentCount    int       `json:"document_count"`
	TokenCount       int       `json:"token_count"`
	LastUpdated      time.Time `json:"last_updated"`
}

// BeforeCreate hook to generate UUID
func (f *FolderConsolidation) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for FolderConsolidation model
func (FolderConsolidation) TableName() string {
	return "folder_consolidations"
}
