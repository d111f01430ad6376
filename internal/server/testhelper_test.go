package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/stockfolio/internal/app"
	"github.com/bobmcallan/stockfolio/internal/common"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a full server over a temp SQLite database with the
// example quotes seeded. The trusted user header is on unless mutate turns
// it off.
func newTestServer(t *testing.T, mutate func(cfg *common.Config)) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "stockfolio.db")
	cfg.Server.RateLimit = 0
	cfg.Auth.TrustUserHeader = true
	cfg.Auth.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewServer(a)
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

// do sends a request through the full middleware stack as user (header
// identity); an empty user sends no identity.
func do(t *testing.T, srv *Server, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(userIDHeader, user)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// createPortfolio creates a portfolio for user and returns its id.
func createPortfolio(t *testing.T, srv *Server, user, name string) string {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/portfolios", user, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode(t, rr)["id"].(string)
}
