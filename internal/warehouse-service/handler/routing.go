package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func uploadRoutes(rs RoutingService, logger *log.Entry) http.HandlerFunc {
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

		n, err := rs.Upload(r.Context(), rd.user, rd.file.header.Filename, rd.file.f)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusCreated, messageResponse{Message: fmt.Sprintf("Imported %d records.", n), Count: &n})
	}
}

func listRoutes(rs RoutingService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		routes, err := rs.List(r.Context(), rd.user, r.URL.Query().Get("date"))
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		res := make([]routeView, 0, len(routes))
		for _, route := range routes {
			res = append(res, newRouteView(route))
		}
		writeJSON(rw, http.StatusOK, res)
	}
}

func updateRoutes(rs RoutingService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		patches := map[string]json.RawMessage{}
		if err := decodeBody(rw, r, &patches); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		n, err := rs.Update(r.Context(), rd.user, patches)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusOK, messageResponse{Message: fmt.Sprintf("Updated %d records successfully.", n)})
	}
}
