package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Precedent is a court decision used to enrich document analyses
type Precedent struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Title           string    `gorm:"not null" json:"title"`
	Court           string    `gorm:"not null" json:"court"`
	CaseNumber      string    `json:"case_number"`
	Date            time.Time `json:"date"`
	Summary         string    `gorm:"type:text" json:"summary"`
	Excerpt         string    `gorm:"type:text" json:"excerpt"`
	ArticlesMatched string    `gorm:"type:text" json:"articles_matched"` // comma separated, e.g. "Art. 1969 CC"
	LegalArea       string    `gorm:"index" json:"legal_area"`
	Relevance       int       `json:"relevance"`
	DocumentLink    string    `json:"document_link,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Precedent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Articles splits ArticlesMatched
func (p Precedent) Articles() []string {
	return SplitList(p.ArticlesMatched)
}

// TableName specifies the table name for Precedent model
func (Precedent) TableName() string {
	return "precedents"
}
