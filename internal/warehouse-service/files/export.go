package files

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
)

var ErrEmptyFile = common.Kind(common.ErrNotFound, "no records found for this file")

const (
	exportSheet     = "Export"
	exportTimestamp = "2006-01-02 15:04:05"
)

type Export struct {
	Filename string
	Content  []byte
}

// Export renders the rows of a file as a workbook. The asset columns use the
// upload headers, so the result can be uploaded again.
func (s *Service) Export(ctx context.Context, user *database.User, fileID uint) (*Export, error) {
	started := time.Now()
	file, err := getFile(ctx, s.repo, user, fileID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListRows(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	headers := append([]string{"File Name"}, ingest.Assets.Headers()...)
	headers = append(headers, "Created At", "Updated At")
	if err := writeRow(f, 1, headers); err != nil {
		return nil, err
	}
	for i, row := range rows {
		values := make([]string, 0, len(headers))
		values = append(values, file.Name)
		for _, c := range ingest.Assets.Columns {
			values = append(values, rowField(row, c.Field))
		}
		values = append(values, row.CreatedAt.UTC().Format(exportTimestamp), row.UpdatedAt.UTC().Format(exportTimestamp))
		if err := writeRow(f, i+2, values); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(exportSheet, "A", "A", 28)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	metrics.ExportsTotal.Inc()
	s.logger.WithFields(log.Fields{
		"user":       user.Username,
		"file_id":    file.ID,
		"rows":       len(rows),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("file exported")
	return &Export{Filename: exportName(file.Name, s.now()), Content: buf.Bytes()}, nil
}

// writeRow stores every value as text so serial numbers keep leading zeros.
func writeRow(f *excelize.File, line int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, line)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(exportSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func exportName(name string, now time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%s_export_%s.xlsx", base, now.Format("02-01-2006"))
}
