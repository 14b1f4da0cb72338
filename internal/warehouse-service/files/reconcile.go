package files

import (
	"context"
	"errors"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
)

const (
	StatusUpdated = "updated"
	StatusCreated = "created"
)

type ScanRequest struct {
	FileID             uint
	SerialNumber       string
	TechnicalCondition string
	WarehouseName      string
}

type ScanResult struct {
	Status string
	Row    *database.FileRow
}

func (r *ScanRequest) normalize() error {
	r.SerialNumber = ingest.CleanCell(r.SerialNumber)
	r.TechnicalCondition = ingest.CleanCell(r.TechnicalCondition)
	r.WarehouseName = ingest.CleanCell(r.WarehouseName)
	if r.SerialNumber == "" {
		return ErrEmptySerial
	}
	for name, v := range map[string]string{
		"pos_serial_number":           r.SerialNumber,
		"scanned_technical_condition": r.TechnicalCondition,
		"scanned_outlet_whs_name":     r.WarehouseName,
	} {
		if utf8.RuneCountInString(v) > maxValueLen {
			return common.Validationf("%s is longer than %d characters", name, maxValueLen)
		}
	}
	return nil
}

// Lookup finds the first row of the file with the serial number.
func (s *Service) Lookup(ctx context.Context, user *database.User, fileID uint, serial string) (*database.FileRow, error) {
	serial = ingest.CleanCell(serial)
	if serial == "" {
		return nil, ErrEmptySerial
	}
	if _, err := getFile(ctx, s.repo, user, fileID); err != nil {
		return nil, err
	}
	row, err := s.repo.FindRowBySerial(ctx, fileID, serial)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrRowNotFound
	}
	return row, err
}

// Reconcile applies a scan to the file: the first row with the serial number
// gets the scanned values, or a new row is created for it. Two concurrent
// scans of an unknown serial may both create a row.
func (s *Service) Reconcile(ctx context.Context, user *database.User, req ScanRequest) (*ScanResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	l := s.logger.WithFields(log.Fields{
		"user":              user.Username,
		"file_id":           req.FileID,
		"pos_serial_number": req.SerialNumber,
	})

	res := &ScanResult{}
	err := s.repo.Transaction(ctx, func(tx *database.Repository) error {
		if _, err := getFile(ctx, tx, user, req.FileID); err != nil {
			return err
		}
		row, err := tx.FindRowBySerial(ctx, req.FileID, req.SerialNumber)
		switch {
		case err == nil:
			row.ScannedTechnicalCondition = req.TechnicalCondition
			row.ScannedOutletWhsName = req.WarehouseName
			row.UpdatedAt = s.now()
			if err := tx.UpdateScan(ctx, row); err != nil {
				return err
			}
			res.Status, res.Row = StatusUpdated, row
			return nil
		case errors.Is(err, database.ErrRecordNotFound):
			row = &database.FileRow{
				FileID:                    req.FileID,
				OwnerID:                   user.ID,
				PosSerialNumber:           req.SerialNumber,
				ScannedTechnicalCondition: req.TechnicalCondition,
				ScannedOutletWhsName:      req.WarehouseName,
			}
			if err := tx.CreateRow(ctx, row); err != nil {
				return err
			}
			res.Status, res.Row = StatusCreated, row
			return nil
		default:
			return err
		}
	})
	if err != nil {
		l.WithError(err).Warn("scan failed")
		metrics.ScansTotal.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}
	metrics.ScansTotal.WithLabelValues(res.Status).Inc()
	l.WithField("status", res.Status).Info("scan reconciled")
	return res, nil
}
