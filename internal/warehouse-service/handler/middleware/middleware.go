package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/database"
	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/metrics"
)

const authScheme = "Token"

type ctxKey int

const (
	userKey ctxKey = iota
	sessionKey
)

type Authenticator interface {
	Authenticate(ctx context.Context, key string) (*database.User, error)
}

// UserFrom returns the user TokenAuth attached to the request.
func UserFrom(ctx context.Context) (*database.User, bool) {
	u, ok := ctx.Value(userKey).(*database.User)
	return u, ok && u != nil
}

// SessionFrom returns the session id of an authenticated request.
func SessionFrom(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

// WithUser attaches an authenticated user and session to ctx.
func WithUser(ctx context.Context, u *database.User, sid string) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, sessionKey, sid)
}

func tokenFromHeader(h string) (string, bool) {
	scheme, key, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, authScheme) {
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

func unauthorized(rw http.ResponseWriter, detail string) {
	rw.Header().Set("WWW-Authenticate", authScheme)
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(rw).Encode(map[string]string{"detail": detail})
}

// TokenAuth lets through requests carrying "Authorization: Token <key>" of an
// active user. The token key doubles as the session id.
func TokenAuth(a Authenticator, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			key, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(rw, "authentication credentials were not provided")
				return
			}
			u, err := a.Authenticate(r.Context(), key)
			if err != nil {
				if errors.Is(err, common.ErrUnauthenticated) {
					unauthorized(rw, err.Error())
					return
				}
				logger.WithError(err).Error("can't authenticate request")
				http.Error(rw, "something went wrong, please try later", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(rw, r.WithContext(WithUser(r.Context(), u, key)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics times every request by its route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(started).Seconds())
	})
}
