package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/stockfolio/internal/interfaces"
)

// writeError logs unexpected errors before mapping them to a response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !WriteServiceError(w, err) {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
}

// handlePortfolioList handles GET (list with summary) and POST (create) on /api/portfolios.
func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodPost {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		p, err := s.app.PortfolioService.CreatePortfolio(r.Context(), req.Name, req.Description)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, newPortfolioView(p))
		return
	}

	portfolios, summary, err := s.app.PortfolioService.ListPortfolios(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]portfolioView, len(portfolios))
	for i, p := range portfolios {
		views[i] = newPortfolioView(p)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": views,
		"summary":    summary,
	})
}

// handlePortfolioGet handles GET (details) and DELETE on /api/portfolios/{id}.
func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.app.PortfolioService.DeletePortfolio(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
		return
	}

	d, err := s.app.PortfolioService.GetPortfolioDetails(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	holdings := make([]holdingView, len(d.Positions))
	for i, p := range d.Positions {
		holdings[i] = newHoldingView(p)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio":    newPortfolioView(d.Portfolio),
		"holdings":     holdings,
		"transactions": d.Transactions,
	})
}

type tradeRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// handleHoldingAdd handles POST /api/portfolios/{id}/holdings: record a buy.
func (s *Server) handleHoldingAdd(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req tradeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	result, err := s.app.TradeService.AddHolding(r.Context(), id, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// handleHoldingSell handles POST /api/portfolios/{id}/holdings/{symbol}/sell.
func (s *Server) handleHoldingSell(w http.ResponseWriter, r *http.Request, id, symbol string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req tradeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	result, err := s.app.TradeService.SellHolding(r.Context(), id, symbol, req.Quantity, req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleTransactions handles GET /api/portfolios/{id}/transactions?limit=&order=&symbol=.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := interfaces.LedgerQuery{
		Symbol: r.URL.Query().Get("symbol"),
		Order:  strings.ToLower(r.URL.Query().Get("order")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}

	entries, err := s.app.PortfolioService.ListTransactions(r.Context(), id, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": entries,
		"count":        len(entries),
	})
}

// handleTransactionsCSV handles GET /api/portfolios/{id}/transactions.csv.
func (s *Server) handleTransactionsCSV(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	// Buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := s.app.PortfolioService.ExportCSV(r.Context(), id, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions-`+id+`.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleRefresh handles POST /api/portfolios/{id}/refresh.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	totals, err := s.app.PortfolioService.RefreshPrices(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, totals)
}

// handleRecompute handles POST /api/portfolios/{id}/recompute.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	totals, err := s.app.PortfolioService.Recompute(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, totals)
}

// handleChart handles GET /api/portfolios/{id}/chart?kind=allocation|growth.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	png, err := s.app.PortfolioService.Chart(r.Context(), id, r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleGrowth handles GET /api/portfolios/{id}/growth.
func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	points, err := s.app.PortfolioService.GetGrowth(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"points": points,
	})
}
