package ingest

import (
	"fmt"
	"strings"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
)

var (
	ErrInvalidExtension = common.Kind(common.ErrValidation, "only .xlsx files are accepted")
	ErrLegacyWorkbook   = common.Kind(common.ErrValidation, "legacy .xls workbooks are not supported, save the file as .xlsx and upload it again")
	ErrUnreadable       = common.Kind(common.ErrValidation, "can't read the spreadsheet")
	ErrNoHeader         = common.Kind(common.ErrValidation, "the spreadsheet has no header row")
	ErrBlankValue       = common.Kind(common.ErrValidation, "value must not be blank")
	ErrValueTooLong     = common.Kind(common.ErrValidation, "value is too long")
	ErrInvalidDate      = common.Kind(common.ErrValidation, "value is not a date")
)

// MissingColumnsError lists the required headers a sheet lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error {
	return common.ErrValidation
}

// IngestionError points at the cell a row failed on. Row is the spreadsheet
// line number, the header being line 1.
type IngestionError struct {
	Row    int
	Column string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
