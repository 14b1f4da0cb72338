package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/files"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	paramSerial     = "scanned_pos_serial_number"
	paramLatestFile = "latest_file_id"
)

var errInvalidFileID = common.Kind(common.ErrValidation, "latest_file_id must be a positive integer")

// fileID is a file id sent either as a JSON number or a string.
type fileID uint

func (id *fileID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errInvalidFileID
	}
	*id = fileID(v)
	return nil
}

// resolveFileID falls back to the session's latest file when the client
// didn't name one.
func resolveFileID(rd *requestData, r *http.Request, id uint, fs FileService) (uint, error) {
	if id != 0 {
		return id, nil
	}
	return fs.CurrentFileID(r.Context(), rd.sid)
}

func uploadFile(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		if err := rd.readFile(r); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		defer rd.close()

		f, err := fs.Upload(r.Context(), rd.user, rd.file.header.Filename, rd.file.f)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusCreated, newFileView(f))
	}
}

func listFiles(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		list, err := fs.List(r.Context(), rd.user)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		if len(list) == 0 {
			rw.WriteHeader(http.StatusNoContent)
			return
		}
		res := make([]fileView, 0, len(list))
		for _, f := range list {
			res = append(res, newFileView(f))
		}
		writeJSON(rw, http.StatusOK, res)
	}
}

func latestFile(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		f, err := fs.Latest(r.Context(), rd.user, rd.sid)
		if errors.Is(err, files.ErrNoFiles) {
			rw.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusOK, latestFileView{LatestFileID: f.ID, LatestFileName: f.Name})
	}
}

func searchRow(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		q := r.URL.Query()
		var id fileID
		if err := id.UnmarshalJSON([]byte(q.Get(paramLatestFile))); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		fid, err := resolveFileID(rd, r, uint(id), fs)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		row, err := fs.Lookup(r.Context(), rd.user, fid, q.Get(paramSerial))
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusOK, newRowView(row))
	}
}

type updateRowRequest struct {
	LatestFileID              fileID `json:"latest_file_id"`
	PosSerialNumber           string `json:"pos_serial_number"`
	ScannedTechnicalCondition string `json:"scanned_technical_condition"`
	ScannedOutletWhsName      string `json:"scanned_outlet_whs_name"`
}

func updateRow(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		req := &updateRowRequest{}
		if err := decodeBody(rw, r, req); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		fid, err := resolveFileID(rd, r, uint(req.LatestFileID), fs)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		res, err := fs.Reconcile(r.Context(), rd.user, files.ScanRequest{
			FileID:             fid,
			SerialNumber:       req.PosSerialNumber,
			TechnicalCondition: req.ScannedTechnicalCondition,
			WarehouseName:      req.ScannedOutletWhsName,
		})
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		status, msg := http.StatusOK, "Row updated successfully!"
		if res.Status == files.StatusCreated {
			status, msg = http.StatusCreated, "New row added successfully!"
		}
		writeJSON(rw, status, scanResponse{Message: msg, Status: res.Status, Row: newRowView(res.Row)})
	}
}

func exportFile(fs FileService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		id, err := strconv.ParseUint(r.PathValue("file_id"), 10, 64)
		if err != nil {
			writeError(rw, rd.logger, files.ErrFileNotFound)
			return
		}
		exp, err := fs.Export(r.Context(), rd.user, uint(id))
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		rw.Header().Set("Content-Type", xlsxContentType)
		rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
		rw.Header().Set("Content-Length", strconv.Itoa(len(exp.Content)))
		if _, err := rw.Write(exp.Content); err != nil {
			rd.logger.WithError(err).Warn("can't send export")
		}
	}
}

var _ json.Unmarshaler = (*fileID)(nil)
