package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/handler/middleware"
)

const (
	fieldNameFile     = "file"
	fieldNameUsername = "user"
	fieldNameFileName = "file_name"
	fieldNameRoute    = "route"

	maxUploadSize = 32 << 20
	maxBodySize   = 1 << 20
)

var (
	errCantParseForm = common.Kind(common.ErrValidation, "can't parse request form")
	errNoFile        = common.Kind(common.ErrValidation, "no file provided")
	errCantParseBody = common.Kind(common.ErrValidation, "request body must be a JSON object")
	errNoUser        = common.Kind(common.ErrUnauthenticated, "authentication credentials were not provided")
)

// requestData is what a handler needs from an authenticated request.
type requestData struct {
	user   *database.User
	sid    string
	file   *fileData
	logger *log.Entry
}

type fileData struct {
	f      multipart.File
	header *multipart.FileHeader
}

func newRequestData(r *http.Request, logger *log.Entry) (*requestData, error) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		return nil, errNoUser
	}
	return &requestData{
		user: u,
		sid:  middleware.SessionFrom(r.Context()),
		logger: logger.WithFields(log.Fields{
			fieldNameUsername: u.Username,
			fieldNameRoute:    r.Pattern,
		}),
	}, nil
}

// readFile picks the uploaded spreadsheet out of a multipart form. The caller
// closes it with close.
func (rd *requestData) readFile(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		rd.logger.WithError(err).Warn(errCantParseForm)
		return errCantParseForm
	}
	f, fh, err := r.FormFile(fieldNameFile)
	if err != nil {
		rd.logger.WithError(err).Warn(errNoFile)
		return errNoFile
	}
	rd.file = &fileData{f: f, header: fh}
	rd.logger = rd.logger.WithField(fieldNameFileName, fh.Filename)
	return nil
}

func (rd *requestData) close() {
	if rd.file != nil {
		_ = rd.file.f.Close()
	}
}

func decodeBody(rw http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(rw, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return common.Kind(common.ErrValidation, "request body is too large")
		}
		return errCantParseBody
	}
	return nil
}
