package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CheckExtension accepts OOXML workbooks only. Legacy binary .xls files get
// their own error so the client can tell the user to convert them.
func CheckExtension(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return nil
	case ".xls":
		return ErrLegacyWorkbook
	}
	return ErrInvalidExtension
}

// Sheet is the first worksheet of a workbook, cells as raw strings.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// ReadSheet loads the first worksheet. Cells are read unformatted so dates
// arrive as serial numbers and long numbers keep all their digits.
func ReadSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(rows) == 0 || IsBlank(rows[0]) {
		return nil, ErrNoHeader
	}
	return &Sheet{Headers: rows[0], Rows: rows[1:]}, nil
}

// Line is the spreadsheet line number of Rows[i].
func (s *Sheet) Line(i int) int {
	return i + 2
}

// Parse maps and normalizes a whole sheet, skipping blank rows.
func (s *Schema) Parse(sheet *Sheet) ([]Record, error) {
	m, err := s.Map(sheet.Headers)
	if err != nil {
		return nil, err
	}
	res := make([]Record, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if IsBlank(row) {
			continue
		}
		rec, err := s.Normalize(m, row, sheet.Line(i))
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}
