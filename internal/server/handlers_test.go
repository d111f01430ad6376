package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockfolio/internal/common"
)

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode(t, rr), "version")

	rr = do(t, srv, http.MethodPost, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRegisterLoginAndBearerAccess(t *testing.T) {
	srv := newTestServer(t, func(cfg *common.Config) { cfg.Auth.TrustUserHeader = false })

	creds := map[string]string{"username": "alice", "password": "s3cret", "email": "alice@example.com"}
	rr := do(t, srv, http.MethodPost, "/api/users", "", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/users", "", creds)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decode(t, rr)["data"].(map[string]interface{})
	token := data["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodPost, "/api/portfolios", strings.NewReader(`{"name":"Main"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	out := httptest.NewRecorder()
	srv.Handler().ServeHTTP(out, req)
	require.Equal(t, http.StatusCreated, out.Code, out.Body.String())
	assert.Equal(t, "alice", decode(t, out)["user_id"])

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	out = httptest.NewRecorder()
	srv.Handler().ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	me := decode(t, out)["data"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Contains(t, me["preferences"], "last_login")
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/users", "", map[string]string{"username": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/users", "", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/users", "", map[string]string{"username": "bad\x01name", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserMePreferences(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/users/me", "alice", map[string]interface{}{
		"preferences": map[string]string{"currency": "USD"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decode(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, map[string]interface{}{"currency": "USD"}, data["preferences"])

	rr = do(t, srv, http.MethodPut, "/api/users/me", "alice", map[string]interface{}{
		"preferences": map[string]string{"last_login": "never"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPortfolioLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/portfolios", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/portfolios", "alice", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	id := createPortfolio(t, srv, "alice", "Main")

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice",
		map[string]interface{}{"symbol": "aapl", "quantity": 10, "price": 100})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	holding := decode(t, rr)["holding"].(map[string]interface{})
	assert.Equal(t, "AAPL", holding["symbol"])
	assert.Equal(t, float64(1000), holding["invested_capital"])

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice",
		map[string]interface{}{"symbol": "AAPL", "quantity": 10, "price": 300})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings/AAPL/sell", "alice",
		map[string]interface{}{"quantity": 5, "price": 250})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, float64(250), body["realized_gain"])
	holding = body["holding"].(map[string]interface{})
	assert.Equal(t, float64(15), holding["quantity"])
	assert.Equal(t, float64(200), holding["average_cost"])
	assert.Equal(t, float64(3000), holding["invested_capital"])

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings/AAPL/sell", "alice",
		map[string]interface{}{"quantity": 100, "price": 250})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "insufficient_shares", decode(t, rr)["code"])

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings/MSFT/sell", "alice",
		map[string]interface{}{"quantity": 1, "price": 250})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "holding_not_found", decode(t, rr)["code"])

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice",
		map[string]interface{}{"symbol": "AAPL", "quantity": 0, "price": 10})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	details := decode(t, rr)
	assert.Len(t, details["holdings"], 1)
	assert.Len(t, details["transactions"], 3)

	rr = do(t, srv, http.MethodGet, "/api/portfolios", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode(t, rr)
	assert.Len(t, list["portfolios"], 1)
	assert.Contains(t, list, "summary")

	rr = do(t, srv, http.MethodDelete, "/api/portfolios/"+id, "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "portfolio_not_found", decode(t, rr)["code"])
}

func TestPortfolioOwnership(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createPortfolio(t, srv, "alice", "Main")

	rr := do(t, srv, http.MethodGet, "/api/portfolios/"+id, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "bob",
		map[string]interface{}{"symbol": "AAPL", "quantity": 1, "price": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/unknown", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransactionsEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createPortfolio(t, srv, "alice", "Main")

	for _, trade := range []map[string]interface{}{
		{"symbol": "AAPL", "quantity": 10, "price": 100},
		{"symbol": "MSFT", "quantity": 2, "price": 300},
		{"symbol": "AAPL", "quantity": 5, "price": 120},
	} {
		rr := do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice", trade)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/transactions?symbol=aapl&order=asc", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, float64(2), body["count"])
	txns := body["transactions"].([]interface{})
	assert.Equal(t, float64(100), txns[0].(map[string]interface{})["price"])

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/transactions?limit=1", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decode(t, rr)["count"])

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/transactions?limit=abc", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/transactions?order=sideways", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/transactions.csv", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,timestamp,symbol,side"))
}

func TestRefreshRecomputeAndReports(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createPortfolio(t, srv, "alice", "Main")

	rr := do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice",
		map[string]interface{}{"symbol": "AAPL", "quantity": 10, "price": 100})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/holdings", "alice",
		map[string]interface{}{"symbol": "MSFT", "quantity": 1, "price": 400})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/recompute", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	totals := decode(t, rr)
	assert.Equal(t, float64(1400), totals["total_value"])
	assert.Equal(t, float64(1400), totals["total_investment"])

	// Seeded quotes: AAPL 175.43, MSFT 378.85.
	rr = do(t, srv, http.MethodPost, "/api/portfolios/"+id+"/refresh", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	totals = decode(t, rr)
	assert.InDelta(t, 2133.15, totals["total_value"].(float64), 1e-9)
	assert.Equal(t, float64(1400), totals["total_investment"])
	assert.Equal(t, float64(2), totals["positions"])

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/growth", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["points"], 2)

	for _, kind := range []string{"", "allocation", "growth"} {
		rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/chart?kind="+kind, "alice", nil)
		require.Equal(t, http.StatusOK, rr.Code, "kind=%q: %s", kind, rr.Body.String())
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))
	}

	rr = do(t, srv, http.MethodGet, "/api/portfolios/"+id+"/chart?kind=radar", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMarketQuotes(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/market/quote/aapl", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	quote := decode(t, rr)
	assert.Equal(t, "AAPL", quote["symbol"])
	assert.Equal(t, 175.43, quote["current_price"])

	rr = do(t, srv, http.MethodGet, "/api/market/quote/ZZZZ", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/market/quote/NVDA", "", map[string]interface{}{"current_price": 120})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/market/quote/NVDA", "alice", map[string]interface{}{
		"name": "NVIDIA", "current_price": 120, "previous_close": 100,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, float64(20), decode(t, rr)["change"])

	rr = do(t, srv, http.MethodPut, "/api/market/quote/NVDA", "alice", map[string]interface{}{"current_price": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/market/quotes?symbols=AAPL,NVDA", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["quotes"], 2)

	rr = do(t, srv, http.MethodGet, "/api/market/quotes", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWatchlistEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/api/watchlist", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/watchlist", "alice", map[string]string{"symbol": "tsla"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/watchlist", "alice", map[string]string{"symbol": "TSLA"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_watched", decode(t, rr)["code"])

	rr = do(t, srv, http.MethodGet, "/api/watchlist", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode(t, rr)["watchlist"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "TSLA", list[0].(map[string]interface{})["symbol"])

	rr = do(t, srv, http.MethodGet, "/api/watchlist", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr)["watchlist"])

	rr = do(t, srv, http.MethodDelete, "/api/watchlist/tsla", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "TSLA", decode(t, rr)["symbol"])

	rr = do(t, srv, http.MethodDelete, "/api/watchlist/TSLA", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_watched", decode(t, rr)["code"])
}
