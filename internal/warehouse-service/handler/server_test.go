package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm/logger"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/accounts"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/files"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/ingest"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/routing"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/session"
)

type testServer struct {
	*httptest.Server
	accounts *accounts.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.NewDb(database.Config{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := database.NewRepository(db)
	acc := accounts.NewService(repo, nil, getLogger())
	rs, err := routing.NewService(repo, getLogger())
	require.NoError(t, err)

	sessions := session.NewMemoryStore(time.Hour)
	srv := httptest.NewServer(NewHandler(Services{
		Accounts: acc,
		Files:    files.NewService(repo, sessions, getLogger()),
		Routing:  rs,
		DB:       repo,
		Sessions: sessions,
	}, getLogger()))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, accounts: acc}
}

// login creates a user and returns its token.
func (s *testServer) login(t *testing.T, username string, staff bool) string {
	t.Helper()
	_, err := s.accounts.CreateUser(context.Background(), username, "secret-password", staff)
	require.NoError(t, err)
	res := s.do(t, http.MethodPost, "/api/accounts/login/", "",
		jsonBody(t, map[string]string{"username": username, "password": "secret-password"}), "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	out := &loginResponse{}
	decode(t, res, out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if contentType == "" && body != nil {
		contentType = "application/json"
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (s *testServer) upload(t *testing.T, path, token, name string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldNameFile, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, path, token, &buf, mw.FormDataContentType())
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func stockSheet(t *testing.T) []byte {
	return workbook(t,
		[]any{"POS Serial Number", "Technical Condition", "Outlet WHS Name"},
		[]any{"SN-1", "ok", "Main"},
		[]any{"SN-2", "broken", "Main"},
	)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/api/accounts/register/", "",
		jsonBody(t, map[string]string{"username": "alice", "password": "long-enough"}), "")
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = s.do(t, http.MethodPost, "/api/accounts/register/", "",
		jsonBody(t, map[string]string{"username": "alice", "password": "long-enough"}), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodPost, "/api/accounts/login/", "",
		jsonBody(t, map[string]string{"username": "alice", "password": "wrong-password"}), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/api/accounts/user/", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Token", res.Header.Get("WWW-Authenticate"))

	res = s.do(t, http.MethodGet, "/api/accounts/user/", "00000000-0000-0000-0000-000000000000", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	token := s.login(t, "bob", false)
	res = s.do(t, http.MethodGet, "/api/accounts/user/", token, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	u := &userView{}
	decode(t, res, u)
	assert.Equal(t, "bob", u.Username)
	assert.False(t, u.IsStaff)
}

func TestOptions(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "bob", false)
	const path = "/api/accounts/user/whs-names/"

	res := s.do(t, http.MethodPost, path, token, jsonBody(t, map[string]string{"value": "Main"}), "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := &optionView{}
	decode(t, res, created)

	res = s.do(t, http.MethodPost, path, token, jsonBody(t, map[string]string{"value": "Main"}), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/api/accounts/user/technical-conditions/", token, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var other []optionView
	decode(t, res, &other)
	assert.Empty(t, other)

	res = s.do(t, http.MethodDelete, path+itoa(created.ID)+"/", token, nil, "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = s.do(t, http.MethodDelete, path+itoa(created.ID)+"/", token, nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestFileFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "bob", false)

	res := s.do(t, http.MethodGet, "/api/files/latest-file/", token, nil, "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	res = s.do(t, http.MethodGet, "/api/files/get-files/", token, nil, "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = s.upload(t, "/api/files/file/", token, "stock.xlsx", stockSheet(t))
	require.Equal(t, http.StatusCreated, res.StatusCode)
	f := &fileView{}
	decode(t, res, f)
	assert.Equal(t, "stock.xlsx", f.Name)
	assert.EqualValues(t, 2, f.RowCount)

	res = s.upload(t, "/api/files/upload-file/", token, "stock.xlsx", stockSheet(t))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/api/files/latest-file/", token, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	latest := &latestFileView{}
	decode(t, res, latest)
	assert.Equal(t, latestFileView{LatestFileID: f.ID, LatestFileName: "stock.xlsx"}, *latest)

	res = s.do(t, http.MethodGet, "/api/db/search/?scanned_pos_serial_number=SN-2", token, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	row := &rowView{}
	decode(t, res, row)
	assert.Equal(t, "broken", row.TechnicalCondition)
	assert.Equal(t, f.ID, row.File)

	res = s.do(t, http.MethodGet, "/api/db/search/?scanned_pos_serial_number=SN-9", token, nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// latest_file_id omitted, the session pointer set above is used
	res = s.do(t, http.MethodPut, "/api/db/update/", token, jsonBody(t, map[string]string{
		"pos_serial_number":           "SN-1",
		"scanned_technical_condition": "scratched",
		"scanned_outlet_whs_name":     "Second",
	}), "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	scan := &scanResponse{}
	decode(t, res, scan)
	assert.Equal(t, files.StatusUpdated, scan.Status)
	assert.Equal(t, "Row updated successfully!", scan.Message)
	assert.Equal(t, "scratched", scan.Row.ScannedTechnicalCondition)
	assert.Equal(t, "ok", scan.Row.TechnicalCondition)

	res = s.do(t, http.MethodPatch, "/api/db/update/", token, jsonBody(t, map[string]any{
		"latest_file_id":          itoa(f.ID),
		"pos_serial_number":       "SN-NEW",
		"scanned_outlet_whs_name": "Main",
	}), "")
	require.Equal(t, http.StatusCreated, res.StatusCode)
	scan = &scanResponse{}
	decode(t, res, scan)
	assert.Equal(t, files.StatusCreated, scan.Status)
	assert.Equal(t, "SN-NEW", scan.Row.PosSerialNumber)

	res = s.do(t, http.MethodPut, "/api/db/update/", token, jsonBody(t, map[string]any{
		"latest_file_id":    "abc",
		"pos_serial_number": "SN-1",
	}), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/api/export/"+itoa(f.ID)+"/", token, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, xlsxContentType, res.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(res.Header.Get("Content-Disposition"), `attachment; filename="stock_export_`))
	book, err := excelize.OpenReader(res.Body)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(book.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "File Name", rows[0][0])

	other := s.login(t, "eve", false)
	res = s.do(t, http.MethodGet, "/api/export/"+itoa(f.ID)+"/", other, nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestUploadRejected(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "bob", false)

	res := s.upload(t, "/api/files/file/", token, "stock.xlsx", workbook(t,
		[]any{"POS Serial Number", "City"},
		[]any{"SN-1", "Sofia"},
	))
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := &errorResponse{}
	decode(t, res, body)
	assert.Equal(t, []string{"Technical Condition", "Outlet WHS Name"}, body.MissingColumns)

	res = s.upload(t, "/api/files/file/", token, "stock.csv", []byte("a,b"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodPost, "/api/files/file/", token, strings.NewReader("{}"), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func routeRow(company, day string) []any {
	return []any{"fast", "SR 1", "North", "Shop Ltd", "Shop", "Main st 1", "Ingenico", "SN-1", "", company, day}
}

func TestRoutingFlow(t *testing.T) {
	s := newTestServer(t)
	staff := s.login(t, "admin", true)
	carrier := s.login(t, "speedy", false)

	header := make([]any, 0, len(ingest.Routes.Columns))
	for _, h := range ingest.Routes.Headers() {
		header = append(header, h)
	}
	res := s.upload(t, "/api/routing/upload-data/", staff, "plan.xlsx", workbook(t,
		header,
		routeRow("speedy", "2024-03-15"),
		routeRow("econt", "2024-03-15"),
	))
	require.Equal(t, http.StatusCreated, res.StatusCode)
	msg := &messageResponse{}
	decode(t, res, msg)
	assert.Equal(t, "Imported 2 records.", msg.Message)

	res = s.do(t, http.MethodGet, "/api/routing/get-data/", staff, nil, "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = s.do(t, http.MethodGet, "/api/routing/get-data/?date=2024-03-15", staff, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var all []routeView
	decode(t, res, &all)
	assert.Len(t, all, 2)

	res = s.do(t, http.MethodGet, "/api/routing/get-data/?date=2024-03-15", carrier, nil, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var own []routeView
	decode(t, res, &own)
	require.Len(t, own, 1)
	assert.Equal(t, "2024-03-15", own[0].DateForDelivery)

	res = s.do(t, http.MethodPatch, "/api/routing/update-data/", carrier, jsonBody(t, map[string]any{
		itoa(own[0].ID): map[string]string{"comment": "delivered"},
		"999":           map[string]string{"comment": "nobody"},
	}), "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	msg = &messageResponse{}
	decode(t, res, msg)
	assert.Equal(t, "Updated 1 records successfully.", msg.Message)

	res = s.do(t, http.MethodPatch, "/api/routing/update-data/", staff, jsonBody(t, map[string]any{
		itoa(own[0].ID): map[string]string{"date_for_delivery": "tomorrow"},
	}), "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	res := s.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth_SessionsDown(t *testing.T) {
	up := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	rw := httptest.NewRecorder()
	NewHandler(Services{DB: up, Sessions: down}, getLogger()).
		ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
	assert.JSONEq(t, `{"status":"unavailable","backend":"sessions"}`, rw.Body.String())

	rw = httptest.NewRecorder()
	NewHandler(Services{DB: up}, getLogger()).
		ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rw.Code, "sessions not configured")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "bob", false)
	res := s.do(t, http.MethodGet, "/api/files/get-files/extra/", token, nil, "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
