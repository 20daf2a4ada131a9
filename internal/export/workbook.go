// Package export renders reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var heatFills = map[string]string{
	"max":  "#C6EFCE",
	"high": "#E2F0D9",
	"med":  "#FFF2CC",
	"low":  "#FCE4D6",
}

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	header int
}

func newWorkbook(sheet string) (*sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &sheetWriter{f: f, sheet: sheet, row: 1, header: header}, nil
}

func (s *sheetWriter) writeRow(values ...any) (int, error) {
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return 0, err
	}
	if err := s.f.SetSheetRow(s.sheet, cell, &values); err != nil {
		return 0, fmt.Errorf("write row %d: %w", s.row, err)
	}
	row := s.row
	s.row++
	return row, nil
}

func (s *sheetWriter) writeHeader(values ...any) error {
	row, err := s.writeRow(values...)
	if err != nil {
		return err
	}
	return s.styleRow(row, len(values), s.header)
}

func (s *sheetWriter) styleRow(row, cols, style int) error {
	if cols == 0 {
		return nil
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	return s.f.SetCellStyle(s.sheet, first, last, style)
}

func (s *sheetWriter) fill(col, row int, color string) error {
	style, err := s.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.sheet, cell, cell, style)
}

func (s *sheetWriter) widths(cols int, width float64) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	return s.f.SetColWidth(s.sheet, "A", last, width)
}

func (s *sheetWriter) flush(w io.Writer) error {
	defer s.f.Close()
	if err := s.f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
