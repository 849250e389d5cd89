package models

import "strings"

// Doctrine is a reference entry from legal scholarship
type Doctrine struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Autor           string `gorm:"not null" json:"autor"`
	Obra            string `gorm:"not null" json:"obra"`
	Ano             int    `json:"ano"`
	Extracto        string `gorm:"type:text" json:"extracto"`
	PalabrasClave   string `gorm:"type:text" json:"palabras_clave"` // comma separated
	LinkRepositorio string `json:"link_repositorio,omitempty"`
}

// Keywords splits PalabrasClave
func (d Doctrine) Keywords() []string {
	return SplitList(d.PalabrasClave)
}

// TableName specifies the table name for Doctrine model
func (Doctrine) TableName() string {
	return "doctrinas"
}

// SplitList splits a comma separated column, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
