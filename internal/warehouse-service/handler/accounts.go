package handler

import (
	"net"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/accounts"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
)

type credentialsRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptcha_token"`
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func readCredentials(rw http.ResponseWriter, r *http.Request) (accounts.Credentials, error) {
	req := &credentialsRequest{}
	if err := decodeBody(rw, r, req); err != nil {
		return accounts.Credentials{}, err
	}
	return accounts.Credentials{
		Username:       req.Username,
		Password:       req.Password,
		RecaptchaToken: req.RecaptchaToken,
		RemoteIP:       remoteIP(r),
	}, nil
}

func register(s AccountService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		l := logger.WithField("remote_addr", r.RemoteAddr)
		c, err := readCredentials(rw, r)
		if err != nil {
			writeError(rw, l, err)
			return
		}
		u, err := s.Register(r.Context(), c)
		if err != nil {
			writeError(rw, l.WithField(fieldNameUsername, c.Username), err)
			return
		}
		writeJSON(rw, http.StatusCreated, newUserView(u))
	}
}

func login(s AccountService, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		l := logger.WithField("remote_addr", r.RemoteAddr)
		c, err := readCredentials(rw, r)
		if err != nil {
			writeError(rw, l, err)
			return
		}
		u, t, err := s.Login(r.Context(), c)
		if err != nil {
			writeError(rw, l.WithField(fieldNameUsername, c.Username), err)
			return
		}
		l.WithField(fieldNameUsername, u.Username).Info("user logged in")
		writeJSON(rw, http.StatusOK, loginResponse{Token: t.Key.String(), User: newUserView(u)})
	}
}

func currentUser(logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		writeJSON(rw, http.StatusOK, newUserView(rd.user))
	}
}

func listOptions(s AccountService, kind string, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		opts, err := s.ListOptions(r.Context(), rd.user, kind)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		res := make([]optionView, 0, len(opts))
		for _, o := range opts {
			res = append(res, optionView{ID: o.ID, Value: o.Value})
		}
		writeJSON(rw, http.StatusOK, res)
	}
}

func addOption(s AccountService, kind string, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		req := &optionView{}
		if err := decodeBody(rw, r, req); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		o, err := s.AddOption(r.Context(), rd.user, kind, req.Value)
		if err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		writeJSON(rw, http.StatusCreated, optionView{ID: o.ID, Value: o.Value})
	}
}

func removeOption(s AccountService, kind string, logger *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, logger)
		if err != nil {
			writeError(rw, logger, err)
			return
		}
		id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(rw, rd.logger, common.Kind(common.ErrNotFound, "option not found"))
			return
		}
		if err := s.RemoveOption(r.Context(), rd.user, kind, uint(id)); err != nil {
			writeError(rw, rd.logger, err)
			return
		}
		rw.WriteHeader(http.StatusNoContent)
	}
}
