package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/accounts"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/files"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/handler/middleware"
)

type AccountService interface {
	middleware.Authenticator
	Register(ctx context.Context, c accounts.Credentials) (*database.User, error)
	Login(ctx context.Context, c accounts.Credentials) (*database.User, *database.Token, error)
	ListOptions(ctx context.Context, user *database.User, kind string) ([]*database.UserOption, error)
	AddOption(ctx context.Context, user *database.User, kind, value string) (*database.UserOption, error)
	RemoveOption(ctx context.Context, user *database.User, kind string, id uint) error
}

type FileService interface {
	Upload(ctx context.Context, owner *database.User, name string, r io.Reader) (*database.UploadedFile, error)
	List(ctx context.Context, owner *database.User) ([]*database.UploadedFile, error)
	Latest(ctx context.Context, owner *database.User, sid string) (*database.UploadedFile, error)
	CurrentFileID(ctx context.Context, sid string) (uint, error)
	Lookup(ctx context.Context, user *database.User, fileID uint, serial string) (*database.FileRow, error)
	Reconcile(ctx context.Context, user *database.User, req files.ScanRequest) (*files.ScanResult, error)
	Export(ctx context.Context, user *database.User, fileID uint) (*files.Export, error)
}

type RoutingService interface {
	Upload(ctx context.Context, user *database.User, name string, r io.Reader) (int, error)
	List(ctx context.Context, user *database.User, day string) ([]*database.Route, error)
	Update(ctx context.Context, user *database.User, patches map[string]json.RawMessage) (int, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Accounts AccountService
	Files    FileService
	Routing  RoutingService
	DB       Pinger
	Sessions Pinger
}

var optionLists = map[string]string{
	"/api/accounts/user/technical-conditions/": database.OptionTechnicalCondition,
	"/api/accounts/user/whs-names/":            database.OptionWarehouseName,
}

func NewHandler(s Services, logger *log.Entry) http.Handler {
	handler := http.NewServeMux()
	auth := middleware.TokenAuth(s.Accounts, logger)
	secured := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	handler.HandleFunc("POST /api/accounts/register/{$}", register(s.Accounts, logger))
	handler.HandleFunc("POST /api/accounts/login/{$}", login(s.Accounts, logger))
	handler.Handle("GET /api/accounts/user/{$}", secured(currentUser(logger)))
	for path, kind := range optionLists {
		handler.Handle("GET "+path+"{$}", secured(listOptions(s.Accounts, kind, logger)))
		handler.Handle("POST "+path+"{$}", secured(addOption(s.Accounts, kind, logger)))
		handler.Handle("DELETE "+path+"{id}/{$}", secured(removeOption(s.Accounts, kind, logger)))
	}

	handler.Handle("POST /api/files/file/{$}", secured(uploadFile(s.Files, logger)))
	handler.Handle("POST /api/files/upload-file/{$}", secured(uploadFile(s.Files, logger)))
	handler.Handle("GET /api/files/get-files/{$}", secured(listFiles(s.Files, logger)))
	handler.Handle("GET /api/files/latest-file/{$}", secured(latestFile(s.Files, logger)))

	handler.Handle("GET /api/db/search/{$}", secured(searchRow(s.Files, logger)))
	handler.Handle("PUT /api/db/update/{$}", secured(updateRow(s.Files, logger)))
	handler.Handle("PATCH /api/db/update/{$}", secured(updateRow(s.Files, logger)))

	handler.Handle("POST /api/routing/upload-data/{$}", secured(uploadRoutes(s.Routing, logger)))
	handler.Handle("GET /api/routing/get-data/{$}", secured(listRoutes(s.Routing, logger)))
	handler.Handle("PATCH /api/routing/update-data/{$}", secured(updateRoutes(s.Routing, logger)))

	handler.Handle("GET /api/export/{file_id}/{$}", secured(exportFile(s.Files, logger)))

	handler.HandleFunc("GET /healthz", health(logger, map[string]Pinger{"database": s.DB, "sessions": s.Sessions}))
	return middleware.Metrics(handler)
}

// health pings every backend; a nil one is not configured and skipped.
func health(logger *log.Entry, backends map[string]Pinger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		for name, p := range backends {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				logger.WithError(err).WithField("backend", name).Error("backend is not reachable")
				writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "backend": name})
				return
			}
		}
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	}
}
