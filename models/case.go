package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Phase identifiers, in navigation order
const (
	PhaseRegistro            = "registro"
	PhaseAvanceInvestigacion = "avance_investigacion"
	PhaseProgramarCita       = "programar_cita"
	PhaseArmarEstrategia     = "armar_estrategia"
	PhaseSeguimiento         = "seguimiento"
)

// Case tracks a client's matter through the five process phases
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	CaseNumber string `gorm:"not null;uniqueIndex" json:"case_number"`

	// Process tracking
	CurrentPhase         string    `gorm:"not null;default:registro" json:"current_phase"`
	CompletionPercentage int       `gorm:"not null;default:0" json:"completion_percentage"`
	OpenedAt             time.Time `gorm:"not null" json:"opened_at"`

	PhaseStates []PhaseState `gorm:"foreignKey:CaseID" json:"phase_states,omitempty"`
}

// BeforeCreate hook to generate UUID and set OpenedAt
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.OpenedAt.IsZero() {
		c.OpenedAt = time.Now()
	}
	if c.CurrentPhase == "" {
		c.CurrentPhase = PhaseRegistro
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsValidPhase checks if a phase identifier is one of the five known phases
func IsValidPhase(phase string) bool {
	switch phase {
	case PhaseRegistro, PhaseAvanceInvestigacion, PhaseProgramarCita, PhaseArmarEstrategia, PhaseSeguimiento:
		return true
	}
	return false
}
