package drive

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/salesledger/internal/domain"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported sheet format")

// RowError is a problem with one sheet row. Row counts the header as row 1.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Sheet is a parsed sales sheet. Rows[i] is the sheet row of Records[i].
type Sheet struct {
	Records []domain.SaleRecord
	Rows    []int
	Errors  []RowError
}

type column int

const (
	colDate column = iota
	colBranch
	colAmount
	colDescription
	colNotes
)

var headerAliases = map[string]column{
	"date":        colDate,
	"day":         colDate,
	"التاريخ":     colDate,
	"branch":      colBranch,
	"store":       colBranch,
	"الفرع":       colBranch,
	"amount":      colAmount,
	"sales":       colAmount,
	"total":       colAmount,
	"المبلغ":      colAmount,
	"المبيعات":    colAmount,
	"description": colDescription,
	"الوصف":       colDescription,
	"البيان":      colDescription,
	"notes":       colNotes,
	"note":        colNotes,
	"ملاحظات":     colNotes,
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// IsSheet reports whether name has an extension ParseSales understands.
func IsSheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// ParseSales reads a CSV or XLSX sheet, chosen by the extension of name. The
// first row is the header; date, branch and amount columns are required.
func ParseSales(r io.Reader, name string) (*Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV record: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	// Raw values keep dates as serial numbers instead of the cell display format.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func parseRows(rows [][]string) (*Sheet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	cols := make(map[column]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if c, ok := headerAliases[key]; ok {
			if _, seen := cols[c]; !seen {
				cols[c] = i
			}
		}
	}
	for c, name := range map[column]string{colDate: "date", colBranch: "branch", colAmount: "amount"} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing required column: %s", name)
		}
	}

	sheet := &Sheet{Errors: make([]RowError, 0)}
	for i, record := range rows[1:] {
		rowNum := i + 2
		get := func(c column) string {
			idx, ok := cols[c]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		if blank(record) {
			continue
		}

		date, err := ParseDate(get(colDate))
		if err != nil {
			sheet.Errors = append(sheet.Errors, RowError{Row: rowNum, Error: err.Error()})
			continue
		}
		amount, err := ParseAmount(get(colAmount))
		if err != nil {
			sheet.Errors = append(sheet.Errors, RowError{Row: rowNum, Error: err.Error()})
			continue
		}

		sheet.Records = append(sheet.Records, domain.SaleRecord{
			Date:        date,
			Branch:      get(colBranch),
			Amount:      amount,
			Description: get(colDescription),
			Notes:       get(colNotes),
		})
		sheet.Rows = append(sheet.Rows, rowNum)
	}
	return sheet, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseDate accepts the common sheet date spellings and Excel serial numbers
// and returns a YYYY-MM-DD date.
func ParseDate(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(domain.DateLayout), nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format(domain.DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", v)
}

// ParseAmount reads a number that may carry thousands separators, Arabic
// digits or a currency label.
func ParseAmount(v string) (float64, error) {
	if v == "" {
		return 0, fmt.Errorf("amount is required")
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r == '٫':
			return '.'
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return -1
	}, v)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	return f, nil
}
