package recaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/konorlevich/warehouse_tracker/internal/warehouse-service/common"
)

func getLogger() *log.Entry {
	l := log.New()
	l.SetLevel(log.FatalLevel)
	return l.WithField("in_test", true)
}

func TestClient_Verify(t *testing.T) {
	received := &sync.Map{}

	testHandler := http.NewServeMux()
	testHandler.HandleFunc("POST /verify", func(rw http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		received.Store(r.PostForm.Get(formParamResponse), r.PostForm.Get(formParamSecret))
		switch r.PostForm.Get(formParamResponse) {
		case "good":
			_, _ = rw.Write([]byte(`{"success": true, "score": 0.9}`))
		case "v2":
			_, _ = rw.Write([]byte(`{"success": true}`))
		case "bot":
			_, _ = rw.Write([]byte(`{"success": true, "score": 0.1}`))
		case "expired":
			_, _ = rw.Write([]byte(`{"success": false, "error-codes": ["timeout-or-duplicate"]}`))
		case "slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = rw.Write([]byte(`{"success": true}`))
		default:
			rw.WriteHeader(http.StatusInternalServerError)
		}
	})
	server := httptest.NewServer(testHandler)
	defer server.Close()

	c := New(server.URL+"/verify", "secret", DefaultMinScore, 100*time.Millisecond, getLogger())
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid", token: "good"},
		{name: "no score", token: "v2"},
		{name: "empty", token: "", wantErr: ErrMissingToken},
		{name: "low score", token: "bot", wantErr: ErrRejected},
		{name: "rejected", token: "expired", wantErr: ErrRejected},
		{name: "timeout", token: "slow", wantErr: ErrUnavailable},
		{name: "server error", token: "boom", wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Verify(context.Background(), tt.token, "127.0.0.1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("secret sent", func(t *testing.T) {
		v, ok := received.Load("good")
		assert.True(t, ok)
		assert.Equal(t, "secret", v)
	})
	t.Run("unreachable", func(t *testing.T) {
		err := New("http://localhost:432342234/verify", "secret", 0, time.Second, getLogger()).Verify(context.Background(), "good", "")
		assert.ErrorIs(t, err, common.ErrExternalService)
		assert.Equal(t, ErrUnavailable.Error(), err.Error(), "transport details stay in the log")
	})
	t.Run("server error hides status", func(t *testing.T) {
		err := c.Verify(context.Background(), "boom", "")
		assert.Equal(t, ErrUnavailable.Error(), err.Error())
	})
}
