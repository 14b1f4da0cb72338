// Package files ingests asset spreadsheets and reconciles scans against them.
package files

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/session"
)

var (
	ErrInvalidExtension = ingest.ErrInvalidExtension
	ErrEmptyName        = common.Kind(common.ErrValidation, "file name is empty")
	ErrDuplicateFile    = common.Kind(common.ErrConflict, "a file with this name already exists")
	ErrFileNotFound     = common.Kind(common.ErrNotFound, "file not found")
	ErrNoFiles          = common.Kind(common.ErrNotFound, "no files uploaded yet")
	ErrNoLatestFile     = common.Kind(common.ErrValidation, "latest_file_id is required")
	ErrRowNotFound      = common.Kind(common.ErrNotFound, "no record with this serial number")
	ErrEmptySerial      = common.Kind(common.ErrValidation, "pos_serial_number is required")
)

const maxValueLen = 255

type Service struct {
	repo     *database.Repository
	sessions session.Store
	logger   *log.Entry
	now      func() time.Time
}

func NewService(repo *database.Repository, sessions session.Store, logger *log.Entry) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		logger:   logger.WithField("component", "files"),
		now:      time.Now,
	}
}

// Upload stores a spreadsheet and all its rows, or nothing at all.
func (s *Service) Upload(ctx context.Context, owner *database.User, name string, r io.Reader) (*database.UploadedFile, error) {
	started := time.Now()
	f, err := s.upload(ctx, owner, name, r)
	var rows int
	if f != nil {
		rows = int(f.RowCount)
	}
	metrics.RecordUpload(ingest.Assets.Name, rows, started, err)
	return f, err
}

func (s *Service) upload(ctx context.Context, owner *database.User, name string, r io.Reader) (*database.UploadedFile, error) {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." {
		return nil, ErrEmptyName
	}
	if err := ingest.CheckExtension(name); err != nil {
		return nil, err
	}
	sheet, err := ingest.ReadSheet(r)
	if err != nil {
		return nil, err
	}
	m, err := ingest.Assets.Map(sheet.Headers)
	if err != nil {
		return nil, err
	}

	l := s.logger.WithFields(log.Fields{"user": owner.Username, "file_name": name})
	file := &database.UploadedFile{Name: name, OwnerID: owner.ID, UploadedAt: s.now()}
	err = s.repo.Transaction(ctx, func(tx *database.Repository) error {
		exists, err := tx.FileExists(ctx, owner.ID, name)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateFile
		}
		if err := tx.CreateFile(ctx, file); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateFile
			}
			return err
		}

		rows := make([]*database.FileRow, 0, len(sheet.Rows))
		for i, raw := range sheet.Rows {
			if ingest.IsBlank(raw) {
				continue
			}
			rec, err := ingest.Assets.Normalize(m, raw, sheet.Line(i))
			if err != nil {
				return err
			}
			row := rowFromRecord(rec)
			row.FileID = file.ID
			row.OwnerID = owner.ID
			rows = append(rows, row)
		}
		if err := tx.CreateRows(ctx, rows); err != nil {
			return err
		}
		file.RowCount = int64(len(rows))
		return nil
	})
	if err != nil {
		l.WithError(err).Warn("upload rejected")
		return nil, err
	}
	l.WithFields(log.Fields{"file_id": file.ID, "rows": file.RowCount}).Info("file uploaded")
	return file, nil
}

// List returns the owner's files, newest first, with their row counts.
func (s *Service) List(ctx context.Context, owner *database.User) ([]*database.UploadedFile, error) {
	files, err := s.repo.ListFiles(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.RowCount, err = s.repo.CountRows(ctx, f.ID); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Latest returns the owner's newest file and points the session at it when
// the session points elsewhere.
func (s *Service) Latest(ctx context.Context, owner *database.User, sid string) (*database.UploadedFile, error) {
	f, err := s.repo.LatestFile(ctx, owner.ID)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrNoFiles
	}
	if err != nil {
		return nil, err
	}
	id := strconv.FormatUint(uint64(f.ID), 10)
	cur, ok, err := s.sessions.Get(ctx, sid, session.KeyLatestFile)
	if err != nil {
		return nil, err
	}
	if !ok || cur != id {
		if err := s.sessions.Set(ctx, sid, session.KeyLatestFile, id); err != nil {
			return nil, err
		}
		s.logger.WithFields(log.Fields{"user": owner.Username, "file_id": f.ID}).Debug("latest file pointer moved")
	}
	return f, nil
}

// CurrentFileID is the file scans of the session default to.
func (s *Service) CurrentFileID(ctx context.Context, sid string) (uint, error) {
	v, ok, err := s.sessions.Get(ctx, sid, session.KeyLatestFile)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoLatestFile
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrNoLatestFile
	}
	return uint(id), nil
}

// getFile loads a file the user may see: their own, or any for staff.
func getFile(ctx context.Context, repo *database.Repository, user *database.User, id uint) (*database.UploadedFile, error) {
	f, err := repo.GetFile(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.OwnerID != user.ID && !user.IsStaff {
		return nil, ErrFileNotFound
	}
	return f, nil
}
