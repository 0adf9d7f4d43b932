package export

import (
	"fmt"
	"io"

	"todolist/internal/models"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Todos"

// WriteXLSX writes todos as a two-column workbook (ID, Title) to w.
func WriteXLSX(w io.Writer, todos []models.Todo) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(xlsxSheet, "A1", &[]any{"ID", "Title"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	_ = f.SetCellStyle(xlsxSheet, "A1", "B1", headerStyle)

	for i, t := range todos {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(xlsxSheet, cell, &[]any{t.ID, t.Title}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 10)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 60)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
