// Package parser decodes spreadsheet workbooks into flashcards.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/gabriel-vasile/mimetype"
	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/recall/internal/domain"
)

const (
	frontHeader = "front"
	backHeader  = "back"
)

type format int

const (
	unknown format = iota
	openXML
	biff
)

// ParseFile reads a workbook from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.CorruptFile, Err: err}
	}

	return Parse(data)
}

// ParseReader reads a whole workbook from r and extracts all cards.
func ParseReader(r io.Reader) ([]domain.Card, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.CorruptFile, Err: err}
	}

	return Parse(data)
}

// Parse decodes the first sheet of an xlsx or xls workbook. The first row
// must name a "front" and a "back" column; each following non-blank row
// becomes a card, in sheet order.
func Parse(data []byte) ([]domain.Card, error) {
	var (
		rows [][]string
		err  error
	)

	switch detect(data) {
	case openXML:
		rows, err = readOpenXML(data)
	case biff:
		rows, err = readBIFF(data)
	default:
		err = fmt.Errorf("unrecognised content type %s", mimetype.Detect(data))
	}
	if err != nil {
		return nil, &domain.ImportError{Kind: domain.CorruptFile, Err: err}
	}

	return cardsFromRows(rows)
}

// detect sniffs the container format rather than trusting the file name.
func detect(data []byte) format {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is("application/zip"):
			return openXML
		case m.Is("application/x-ole-storage"), m.Is("application/vnd.ms-excel"):
			return biff
		}
	}
	return unknown
}

func readOpenXML(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}

	return f.GetRows(sheets[0])
}

// biffColumns is the widest row a BIFF8 sheet can hold.
const biffColumns = 256

func readBIFF(data []byte) (rows [][]string, err error) {
	if err := checkCompound(data); err != nil {
		return nil, err
	}

	// The legacy decoder panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("xls: no workbook stream")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("xls: workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Cells written without a ROW record leave the extent unset.
		width := row.LastCol()
		if width <= 0 {
			width = biffColumns
		}
		cells := make([]string, width)
		for c := row.FirstCol(); c < width; c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}

	return rows, nil
}

// checkCompound walks the compound document and reads its workbook stream
// end to end. The BIFF decoder exits the process on some broken sector
// chains, so it only sees files that pass.
func checkCompound(data []byte) error {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for f, err := doc.Next(); err == nil; f, err = doc.Next() {
		if f.Name != "Workbook" && f.Name != "Book" {
			continue
		}
		_, err = io.Copy(io.Discard, f)
		return err
	}
	return errors.New("xls: no workbook stream")
}

// sheetRow is nil for rows the sheet has no records for.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// cardsFromRows maps rows to cards using the header row.
func cardsFromRows(rows [][]string) ([]domain.Card, error) {
	if len(rows) == 0 {
		return nil, &domain.ImportError{Kind: domain.MissingColumns}
	}

	frontCol, backCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case frontHeader:
			if frontCol < 0 {
				frontCol = i
			}
		case backHeader:
			if backCol < 0 {
				backCol = i
			}
		}
	}
	if frontCol < 0 || backCol < 0 {
		return nil, &domain.ImportError{Kind: domain.MissingColumns}
	}

	var cards []domain.Card
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		cards = append(cards, domain.Card{
			Front: cell(row, frontCol),
			Back:  cell(row, backCol),
		})
	}

	if len(cards) == 0 || cards[0].Front == "" || cards[0].Back == "" {
		return nil, &domain.ImportError{Kind: domain.MissingColumns}
	}

	return cards, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
