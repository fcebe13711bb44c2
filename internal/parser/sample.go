package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/recall/internal/domain"
)

// SampleCards are the rows of the downloadable example workbook.
var SampleCards = []domain.Card{
	{Front: "la manzana", Back: "the apple"},
	{Front: "el perro", Back: "the dog"},
	{Front: "la biblioteca", Back: "the library"},
	{Front: "madrugar", Back: "to get up early"},
	{Front: "sin embargo", Back: "however"},
}

// WriteWorkbook writes cards as an xlsx workbook with a front/back header.
func WriteWorkbook(w io.Writer, cards []domain.Card) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{frontHeader, backHeader}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, c := range cards {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &[]any{c.Front, c.Back}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteSample writes the example workbook offered for download.
func WriteSample(w io.Writer) error {
	return WriteWorkbook(w, SampleCards)
}
