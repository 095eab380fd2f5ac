package report

import (
	"fmt"
	"math"

	"ab-retention/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	RetentionSheet = "Retention"
	SamplesSheet   = "Samples"
)

// WriteRetentionXLSX exporte la matrice (valeurs brutes, pas en pourcentage).
// La ligne 1 porte le titre, la ligne 2 l'en-tête.
func WriteRetentionXLSX(path string, m *models.RetentionMatrix) error {
	rows := make([][]any, 0, len(m.Rows))
	for _, r := range m.Rows {
		row := []any{r.Label, r.Size}
		for _, v := range r.Retention {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return writeSheet(path, RetentionSheet, Title(m.Meta), Header(m.Meta), rows)
}

// WriteSamplesXLSX exporte la table bootstrap, une ligne par échantillon.
// Les valeurs non finies donnent une cellule vide.
func WriteSamplesXLSX(path string, t *models.SampleTable) error {
	rows := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]any, 0, len(models.SampleColumns))
		for _, v := range r.Values() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return writeSheet(path, SamplesSheet, "", models.SampleColumns, rows)
}

func writeSheet(path, sheet, title string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	line := 1
	if title != "" {
		if err := f.SetCellValue(sheet, "A1", title); err != nil {
			return err
		}
		line++
	}

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := setRow(f, sheet, line, head); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, sheet, line+1+i, r); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, line int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
