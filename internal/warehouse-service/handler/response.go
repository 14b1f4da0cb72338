package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
)

const msgUnexpected = "something went wrong, please try later"

type errorResponse struct {
	Error          string   `json:"error"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Row            int      `json:"row,omitempty"`
	Column         string   `json:"column,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrExternalService):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError answers with the status of the error kind. Unexpected errors are
// logged and hidden from the client.
func writeError(rw http.ResponseWriter, l *log.Entry, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		l.WithError(err).Error("request failed")
		writeJSON(rw, status, errorResponse{Error: msgUnexpected})
		return
	}
	if status == http.StatusServiceUnavailable {
		l.WithError(err).Warn("external service failed")
	} else {
		l.WithError(err).Debug("request rejected")
	}

	res := errorResponse{Error: err.Error()}
	var mcErr *ingest.MissingColumnsError
	var ingErr *ingest.IngestionError
	switch {
	case errors.As(err, &mcErr):
		res.MissingColumns = mcErr.Columns
	case errors.As(err, &ingErr):
		res.Row, res.Column = ingErr.Row, ingErr.Column
	}
	writeJSON(rw, status, res)
}
