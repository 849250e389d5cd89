package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the person whose matter is tracked by a Case
type Client struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string  `gorm:"not null" json:"name"`
	ContactInfo string  `gorm:"not null" json:"contact_info"`
	Email       *string `json:"email,omitempty"`
	Address     *string `json:"address,omitempty"`
	DNI         *string `gorm:"size:20;index" json:"dni,omitempty"`
	Notes       *string `gorm:"type:text" json:"notes,omitempty"`

	Cases []Case `gorm:"foreignKey:ClientID" json:"cases,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Client model
func (Client) TableName() string {
	return "clients"
}
