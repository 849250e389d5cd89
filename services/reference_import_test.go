package services

import (
	"bytes"
	"context"
	"testing"

	"law_process_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateReferenceTemplate(t *testing.T) {
	buf, err := GenerateReferenceTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetDoctrine, SheetPrecedents}, f.GetSheetList())
	header, err := f.GetCellValue(SheetPrecedents, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Tribunal", header)
}

func TestImportReferenceWorkbook(t *testing.T) {
	db := setupProcessTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Doctrine{}, &models.Precedent{}))

	buf, err := GenerateReferenceTemplate()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow(SheetDoctrine, "A2", &[]interface{}{
		"Espinoza", "Derecho de la responsabilidad civil", "2019", "El daño es presupuesto de la responsabilidad.", "responsabilidad,daño", "",
	}))
	require.NoError(t, f.SetSheetRow(SheetDoctrine, "A3", &[]interface{}{"", "Sin autor"}))
	require.NoError(t, f.SetSheetRow(SheetPrecedents, "A2", &[]interface{}{
		"Casación 1234-2019", "Corte Suprema", "1234-2019", "2019-08-15", "Indemnización por daño moral", "", "Art. 1969 CC,Art. 1985 CC", "Derecho Civil", "9", "",
	}))
	require.NoError(t, f.SetSheetRow(SheetPrecedents, "A3", &[]interface{}{
		"Casación 99-2020", "Corte Suprema", "", "15/08/2020",
	}))

	out, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	result, err := ImportReferenceWorkbook(context.Background(), db, out)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DoctrineCount)
	assert.Equal(t, 1, result.PrecedentCount)
	assert.Equal(t, 2, result.FailedCount)
	assert.Len(t, result.Errors, 2)

	var p models.Precedent
	require.NoError(t, db.First(&p).Error)
	assert.Equal(t, []string{"Art. 1969 CC", "Art. 1985 CC"}, p.Articles())
	assert.Equal(t, 9, p.Relevance)

	var d models.Doctrine
	require.NoError(t, db.First(&d).Error)
	assert.Equal(t, 2019, d.Ano)
}

func TestImportReferenceWorkbook_InvalidFile(t *testing.T) {
	db := setupProcessTestDB(t)
	_, err := ImportReferenceWorkbook(context.Background(), db, bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}
