package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"law_process_app_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Sheet names of the reference workbook
const (
	SheetDoctrine   = "Doctrina"
	SheetPrecedents = "Precedentes"
)

var (
	doctrineHeaders  = []string{"Autor", "Obra", "Año", "Extracto", "Palabras clave", "Enlace"}
	precedentHeaders = []string{"Título", "Tribunal", "Expediente", "Fecha (AAAA-MM-DD)", "Resumen", "Extracto", "Artículos", "Área", "Relevancia", "Enlace"}
)

// ImportResult contains the summary of the import process
type ImportResult struct {
	DoctrineCount  int
	PrecedentCount int
	FailedCount    int
	Errors         []string
}

// GenerateReferenceTemplate builds an empty workbook with the doctrine and
// precedent sheets and their headers
func GenerateReferenceTemplate() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetDoctrine)
	if _, err := f.NewSheet(SheetPrecedents); err != nil {
		return nil, fmt.Errorf("failed to create precedents sheet: %w", err)
	}

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for sheet, headers := range map[string][]string{SheetDoctrine: doctrineHeaders, SheetPrecedents: precedentHeaders} {
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, style)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// ImportReferenceWorkbook loads doctrine and precedent rows into their tables.
// Rows that fail validation are reported and skipped; the rest are inserted
// in one transaction.
func ImportReferenceWorkbook(ctx context.Context, dbConn *gorm.DB, file io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	result := &ImportResult{Errors: []string{}}
	var doctrines []models.Doctrine
	var precedents []models.Precedent

	if idx, _ := f.GetSheetIndex(SheetDoctrine); idx >= 0 {
		rows, err := f.GetRows(SheetDoctrine)
		if err != nil {
			return nil, fmt.Errorf("failed to read doctrine sheet: %w", err)
		}
		for i, row := range rows {
			if i == 0 || isBlankRow(row) {
				continue
			}
			d, err := parseDoctrineRow(row)
			if err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s fila %d: %v", SheetDoctrine, i+1, err))
				continue
			}
			doctrines = append(doctrines, d)
		}
	}

	if idx, _ := f.GetSheetIndex(SheetPrecedents); idx >= 0 {
		rows, err := f.GetRows(SheetPrecedents)
		if err != nil {
			return nil, fmt.Errorf("failed to read precedents sheet: %w", err)
		}
		for i, row := range rows {
			if i == 0 || isBlankRow(row) {
				continue
			}
			p, err := parsePrecedentRow(row)
			if err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s fila %d: %v", SheetPrecedents, i+1, err))
				continue
			}
			precedents = append(precedents, p)
		}
	}

	err = dbConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(doctrines) > 0 {
			if err := tx.Create(&doctrines).Error; err != nil {
				return fmt.Errorf("failed to insert doctrine: %w", err)
			}
		}
		if len(precedents) > 0 {
			if err := tx.Create(&precedents).Error; err != nil {
				return fmt.Errorf("failed to insert precedents: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.DoctrineCount = len(doctrines)
	result.PrecedentCount = len(precedents)
	return result, nil
}

func parseDoctrineRow(row []string) (models.Doctrine, error) {
	d := models.Doctrine{
		Autor:           cell(row, 0),
		Obra:            cell(row, 1),
		Extracto:        cell(row, 3),
		PalabrasClave:   cell(row, 4),
		LinkRepositorio: cell(row, 5),
	}
	if d.Autor == "" || d.Obra == "" {
		return d, fmt.Errorf("autor y obra son obligatorios")
	}
	if v := cell(row, 2); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return d, fmt.Errorf("año inválido %q", v)
		}
		d.Ano = year
	}
	return d, nil
}

func parsePrecedentRow(row []string) (models.Precedent, error) {
	p := models.Precedent{
		Title:           cell(row, 0),
		Court:           cell(row, 1),
		CaseNumber:      cell(row, 2),
		Summary:         cell(row, 4),
		Excerpt:         cell(row, 5),
		ArticlesMatched: cell(row, 6),
		LegalArea:       cell(row, 7),
		DocumentLink:    cell(row, 9),
	}
	if p.Title == "" || p.Court == "" {
		return p, fmt.Errorf("título y tribunal son obligatorios")
	}
	if v := cell(row, 3); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			return p, fmt.Errorf("fecha inválida %q", v)
		}
		p.Date = date
	}
	if v := cell(row, 8); v != "" {
		rel, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("relevancia inválida %q", v)
		}
		p.Relevance = rel
	}
	return p, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
